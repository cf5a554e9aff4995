package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"almacen/backend/internal/domain"
)

func TestApplyReceiptInventoryCommitsAtomically(t *testing.T) {
	databaseURL := os.Getenv("ALMACEN_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set ALMACEN_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-apply-it-%d", stamp)
	receiptID := fmt.Sprintf("rcpt-apply-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stock_movements WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM receipt_lines WHERE receipt_id = $1`, receiptID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = $1`, receiptID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, price, unit, current_stock, created_at, updated_at)
		VALUES ($1, 'Producto Apply IT', 'abarrotes', 1990, 'unidad', 10, now(), now())
	`, productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, user_id, file_path, status, uploaded_at)
		VALUES ($1, 'admin', 'uploads/it.pdf', $2, now())
	`, receiptID, domain.ReceiptStatusValidated); err != nil {
		t.Fatalf("insert receipt: %v", err)
	}

	movements, err := s.ApplyReceiptInventory(ctx, receiptID, []domain.StockApplication{
		{ReceiptLineID: "", ProductID: productID, Quantity: decimal.NewFromInt(7), Note: "recepcion it"},
	}, "admin")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}

	product, err := s.GetProductByID(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.CurrentStock != 17 {
		t.Fatalf("stock %d, want 17", product.CurrentStock)
	}

	receipt, err := s.GetReceiptByID(ctx, receiptID)
	if err != nil {
		t.Fatalf("get receipt: %v", err)
	}
	if receipt.Status != domain.ReceiptStatusCompleted {
		t.Fatalf("status %s", receipt.Status)
	}

	// A second apply must fail the status guard and change nothing.
	if _, err := s.ApplyReceiptInventory(ctx, receiptID, []domain.StockApplication{
		{ProductID: productID, Quantity: decimal.NewFromInt(1)},
	}, "admin"); err == nil {
		t.Fatalf("expected second apply to fail")
	}
	product, _ = s.GetProductByID(ctx, productID)
	if product.CurrentStock != 17 {
		t.Fatalf("stock moved on failed apply: %d", product.CurrentStock)
	}
}
