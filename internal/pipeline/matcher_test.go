package pipeline

import (
	"testing"

	"almacen/backend/internal/domain"
)

func testCatalog() []domain.Product {
	return []domain.Product{
		{ID: "p1", Name: "Arroz Tucapel 1kg"},
		{ID: "p2", Name: "Aceite Chef 1L"},
		{ID: "p3", Name: "Azucar Iansa 1kg"},
	}
}

func TestMatchProductExact(t *testing.T) {
	match := MatchProduct("arroz tucapel 1kg", DefaultMatchThreshold, testCatalog())
	if match == nil {
		t.Fatalf("expected a match")
	}
	if match.Product.ID != "p1" {
		t.Fatalf("got product %s", match.Product.ID)
	}
	if match.Score != 100 {
		t.Fatalf("exact match should score 100, got %v", match.Score)
	}
}

func TestMatchProductCaseInsensitive(t *testing.T) {
	match := MatchProduct("ACEITE CHEF 1l", DefaultMatchThreshold, testCatalog())
	if match == nil || match.Product.ID != "p2" {
		t.Fatalf("expected p2, got %+v", match)
	}
}

func TestMatchProductBelowThreshold(t *testing.T) {
	if match := MatchProduct("detergente omo", DefaultMatchThreshold, testCatalog()); match != nil {
		t.Fatalf("expected no match, got %+v", match)
	}
}

func TestMatchProductNearMiss(t *testing.T) {
	// One transposed character in a 17-rune name is well above threshold.
	match := MatchProduct("aroz tucapel 1kg", DefaultMatchThreshold, testCatalog())
	if match == nil || match.Product.ID != "p1" {
		t.Fatalf("expected p1, got %+v", match)
	}
	if match.Score >= 100 || match.Score < DefaultMatchThreshold {
		t.Fatalf("unexpected score %v", match.Score)
	}
}

func TestMatchProductEmptyCatalog(t *testing.T) {
	if match := MatchProduct("arroz", DefaultMatchThreshold, nil); match != nil {
		t.Fatalf("expected nil match on empty catalog, got %+v", match)
	}
}

func TestMatchProductTieKeepsFirst(t *testing.T) {
	catalog := []domain.Product{
		{ID: "a", Name: "Leche Entera"},
		{ID: "b", Name: "Leche Entera"},
	}
	match := MatchProduct("leche entera", DefaultMatchThreshold, catalog)
	if match == nil || match.Product.ID != "a" {
		t.Fatalf("tie must keep the first product, got %+v", match)
	}
}

func TestMatchProductDeterministic(t *testing.T) {
	catalog := testCatalog()
	first := MatchProduct("azucar iansa", DefaultMatchThreshold, catalog)
	for i := 0; i < 5; i++ {
		again := MatchProduct("azucar iansa", DefaultMatchThreshold, catalog)
		if (first == nil) != (again == nil) {
			t.Fatalf("non-deterministic match presence")
		}
		if first != nil && (first.Product.ID != again.Product.ID || first.Score != again.Score) {
			t.Fatalf("non-deterministic match: %+v vs %+v", first, again)
		}
	}
}
