package pipeline

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleReceipt = `fecha: 20-01-2026
proveedor: abc
----
producto cantidad
----
arroz 5
aceite 2
----
total 7`

func TestParseLinesSampleReceipt(t *testing.T) {
	items := ParseLines(sampleReceipt)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if items[0].Name != "arroz" || items[0].Quantity == nil || !items[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Name != "aceite" || items[1].Quantity == nil || !items[1].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
	for _, item := range items {
		if item.NeedsReview {
			t.Fatalf("item %q should not need review", item.Name)
		}
	}
}

func TestStagesComposeOnRawText(t *testing.T) {
	raw := "Fecha:  20-01-2026\nProveedor:   ABC\n----\nProducto   Cantidad\n----\nArroz  5\nAceite   2\n----\nTotal"

	normalized := Normalize(raw)
	meta := ExtractMetadata(normalized)
	if meta.Date == nil || meta.Date.Format("2006-01-02") != "2026-01-20" {
		t.Fatalf("unexpected date: %v", meta.Date)
	}
	if meta.Supplier != "abc" {
		t.Fatalf("supplier %q", meta.Supplier)
	}

	items := ParseLines(normalized)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].Name != "arroz" || items[1].Name != "aceite" {
		t.Fatalf("unexpected names: %q, %q", items[0].Name, items[1].Name)
	}
}

func TestParseLinesHeaderOpensRegion(t *testing.T) {
	text := "producto cantidad\nharina 3\ntotal 3"
	items := ParseLines(text)
	if len(items) != 1 || items[0].Name != "harina" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestParseLinesTotalClosesRegion(t *testing.T) {
	text := "----\n----\nfideos 4\ntotal 4\nazucar 9"
	items := ParseLines(text)
	if len(items) != 1 {
		t.Fatalf("expected parsing to stop at total, got %+v", items)
	}
}

func TestParseLinesEmbeddedNumberInName(t *testing.T) {
	items := ParseLines("----\n----\narroz tucapel 1kg 3\n----")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %+v", items)
	}
	// The rightmost numeric token is the quantity; "1kg" stays in the name.
	if items[0].Name != "arroz tucapel 1kg" {
		t.Fatalf("got name %q", items[0].Name)
	}
	if items[0].Quantity == nil || !items[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("got quantity %v", items[0].Quantity)
	}
}

func TestParseLinesNoQuantityNeedsReview(t *testing.T) {
	items := ParseLines("----\n----\npromocion especial verano\n----")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %+v", items)
	}
	item := items[0]
	if !item.NeedsReview {
		t.Fatalf("expected needs review")
	}
	if item.Quantity != nil {
		t.Fatalf("expected nil quantity, got %v", item.Quantity)
	}
	if item.Name != item.RawText {
		t.Fatalf("flagged line should keep the raw text as name: %+v", item)
	}
}

func TestParseLinesZeroQuantityNeedsReview(t *testing.T) {
	items := ParseLines("----\n----\nleche 0\n----")
	if len(items) != 1 || !items[0].NeedsReview {
		t.Fatalf("zero quantity should be flagged: %+v", items)
	}
}

func TestParseLinesDecimalQuantity(t *testing.T) {
	items := ParseLines("----\n----\nqueso 2.5\n----")
	if len(items) != 1 || items[0].Quantity == nil {
		t.Fatalf("unexpected items: %+v", items)
	}
	want, _ := decimal.NewFromString("2.5")
	if !items[0].Quantity.Equal(want) {
		t.Fatalf("got quantity %v", items[0].Quantity)
	}
}

func TestParseLinesOutsideRegionIgnored(t *testing.T) {
	text := strings.Join([]string{
		"boleta numero 991",
		"arroz 5",
		"----",
		"----",
		"aceite 2",
		"----",
	}, "\n")
	items := ParseLines(text)
	if len(items) != 1 || items[0].Name != "aceite" {
		t.Fatalf("lines before the region must be ignored: %+v", items)
	}
}
