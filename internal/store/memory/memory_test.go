package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"almacen/backend/internal/domain"
	"almacen/backend/internal/store"
)

func seedValidatedReceipt(t *testing.T, s *Store) *domain.Receipt {
	t.Helper()
	receipt, err := s.CreateReceipt(context.Background(), domain.Receipt{
		UserID:   "admin",
		FilePath: "uploads/r.pdf",
		Status:   domain.ReceiptStatusValidated,
	})
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	return receipt
}

func TestApplyReceiptInventoryAllOrNothing(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	receipt := seedValidatedReceipt(t, s)

	before, _ := s.GetProductByID(ctx, "prod-arroz-01")

	_, err := s.ApplyReceiptInventory(ctx, receipt.ID, []domain.StockApplication{
		{ReceiptLineID: "l1", ProductID: "prod-arroz-01", Quantity: decimal.NewFromInt(5)},
		{ReceiptLineID: "l2", ProductID: "prod-fantasma", Quantity: decimal.NewFromInt(2)},
	}, "admin")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	after, _ := s.GetProductByID(ctx, "prod-arroz-01")
	if after.CurrentStock != before.CurrentStock {
		t.Fatalf("partial apply happened: %d -> %d", before.CurrentStock, after.CurrentStock)
	}
	stored, _ := s.GetReceiptByID(ctx, receipt.ID)
	if stored.Status != domain.ReceiptStatusValidated {
		t.Fatalf("receipt status changed to %s", stored.Status)
	}

	movements, _ := s.ListStockMovements(ctx, "", 10)
	if len(movements) != 0 {
		t.Fatalf("movements written on failed apply: %+v", movements)
	}
}

func TestApplyReceiptInventoryRequiresValidatedStatus(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	receipt, err := s.CreateReceipt(ctx, domain.Receipt{
		UserID:   "admin",
		FilePath: "uploads/r.pdf",
		Status:   domain.ReceiptStatusNeedsValidation,
	})
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}

	_, err = s.ApplyReceiptInventory(ctx, receipt.ID, []domain.StockApplication{
		{ReceiptLineID: "l1", ProductID: "prod-arroz-01", Quantity: decimal.NewFromInt(5)},
	}, "admin")
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestApplyReceiptInventoryMarksCompleted(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	receipt := seedValidatedReceipt(t, s)

	movements, err := s.ApplyReceiptInventory(ctx, receipt.ID, []domain.StockApplication{
		{ReceiptLineID: "l1", ProductID: "prod-azucar-01", Quantity: decimal.NewFromInt(6), Note: "recepcion"},
	}, "admin")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	if movements[0].NewStock-movements[0].PreviousStock != 6 {
		t.Fatalf("unexpected delta: %+v", movements[0])
	}

	stored, _ := s.GetReceiptByID(ctx, receipt.ID)
	if stored.Status != domain.ReceiptStatusCompleted {
		t.Fatalf("status %s", stored.Status)
	}
}

func TestCreateSaleNeverGoesNegative(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, _ := s.GetProductByID(ctx, "prod-te-01")
	_, err := s.CreateSale(ctx, domain.Sale{
		UserID:        "vendedor",
		PaymentMethod: domain.PaymentMethodCash,
		Items: []domain.SaleItem{
			{ProductID: "prod-te-01", Quantity: product.CurrentStock + 1},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	after, _ := s.GetProductByID(ctx, "prod-te-01")
	if after.CurrentStock != product.CurrentStock {
		t.Fatalf("stock changed on failed sale")
	}
}

func TestMovementChainIsConsistent(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	const productID = "prod-fideos-01"

	receipt := seedValidatedReceipt(t, s)
	if _, err := s.ApplyReceiptInventory(ctx, receipt.ID, []domain.StockApplication{
		{ReceiptLineID: "l1", ProductID: productID, Quantity: decimal.NewFromInt(10)},
	}, "admin"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := s.CreateSale(ctx, domain.Sale{
		UserID:        "vendedor",
		PaymentMethod: domain.PaymentMethodCash,
		Items:         []domain.SaleItem{{ProductID: productID, Quantity: 4}},
	}); err != nil {
		t.Fatalf("sale: %v", err)
	}
	if _, err := s.AdjustStock(ctx, productID, 30, "conteo", "admin"); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	movements, err := s.ListStockMovements(ctx, productID, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("expected 3 movements, got %d", len(movements))
	}

	// Listing is newest first; walk oldest to newest.
	for i := len(movements) - 1; i >= 0; i-- {
		m := movements[i]
		if int64(m.NewStock-m.PreviousStock) != m.Quantity.IntPart() {
			t.Fatalf("delta mismatch in %+v", m)
		}
		if i < len(movements)-1 && m.PreviousStock != movements[i+1].NewStock {
			t.Fatalf("broken chain between %+v and %+v", movements[i+1], m)
		}
	}
}

func TestReceiptLinesRoundTrip(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	receipt, err := s.CreateReceipt(ctx, domain.Receipt{UserID: "admin", FilePath: "uploads/r.pdf"})
	if err != nil {
		t.Fatalf("create receipt: %v", err)
	}

	q := decimal.NewFromInt(5)
	created, err := s.CreateReceiptLines(ctx, []domain.ReceiptLine{
		{ReceiptID: receipt.ID, RawText: "arroz 5", DetectedName: "arroz", DetectedQuantity: &q},
		{ReceiptID: receipt.ID, RawText: "promocion", DetectedName: "promocion", NeedsReview: true},
	})
	if err != nil {
		t.Fatalf("create lines: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(created))
	}

	lines, err := s.ListReceiptLines(ctx, receipt.ID)
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if len(lines) != 2 || lines[0].DetectedName != "arroz" {
		t.Fatalf("unexpected lines: %+v", lines)
	}

	if err := s.DeleteReceiptLines(ctx, receipt.ID); err != nil {
		t.Fatalf("delete lines: %v", err)
	}
	lines, _ = s.ListReceiptLines(ctx, receipt.ID)
	if len(lines) != 0 {
		t.Fatalf("lines survived delete: %+v", lines)
	}
}

func TestListReceiptsFiltersByStatus(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	for _, status := range []string{domain.ReceiptStatusPending, domain.ReceiptStatusError, domain.ReceiptStatusPending} {
		if _, err := s.CreateReceipt(ctx, domain.Receipt{UserID: "admin", FilePath: "uploads/r.pdf", Status: status}); err != nil {
			t.Fatalf("create receipt: %v", err)
		}
	}

	pending, err := s.ListReceipts(ctx, domain.ReceiptStatusPending, 10)
	if err != nil {
		t.Fatalf("list receipts: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	all, _ := s.ListReceipts(ctx, "", 10)
	if len(all) != 3 {
		t.Fatalf("expected 3 receipts, got %d", len(all))
	}
}
