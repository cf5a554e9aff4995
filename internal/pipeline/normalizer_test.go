package pipeline

import "testing"

func TestNormalizeCollapsesAndLowercases(t *testing.T) {
	input := "  Fecha:   20-01-2026  \n\n\tProveedor:\tABC  \n   \n"
	got := Normalize(input)
	want := "fecha: 20-01-2026\nproveedor: abc"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	input := "  Arroz   Tucapel  1kg \nTOTAL:  45.90\n"
	once := Normalize(input)
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("second pass changed output: %q != %q", once, twice)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	if got := Normalize("\n  \n\t\n"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
