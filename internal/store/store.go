package store

import (
	"context"
	"errors"

	"almacen/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	// ErrConflict reports a concurrent update detected by the transactional
	// layer (e.g. a serialization failure); callers may retry.
	ErrConflict = errors.New("concurrent update conflict")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	CreateReceipt(ctx context.Context, receipt domain.Receipt) (*domain.Receipt, error)
	GetReceiptByID(ctx context.Context, id string) (*domain.Receipt, error)
	ListReceipts(ctx context.Context, status string, limit int) ([]domain.Receipt, error)
	UpdateReceipt(ctx context.Context, receipt domain.Receipt) (*domain.Receipt, error)

	CreateReceiptLines(ctx context.Context, lines []domain.ReceiptLine) ([]domain.ReceiptLine, error)
	ListReceiptLines(ctx context.Context, receiptID string) ([]domain.ReceiptLine, error)
	GetReceiptLineByID(ctx context.Context, id string) (*domain.ReceiptLine, error)
	UpdateReceiptLine(ctx context.Context, line domain.ReceiptLine) (*domain.ReceiptLine, error)
	DeleteReceiptLines(ctx context.Context, receiptID string) error

	// ApplyReceiptInventory applies every stock delta, appends one movement
	// per application and marks the receipt completed, all inside a single
	// transaction. Either every row changes or none does.
	ApplyReceiptInventory(ctx context.Context, receiptID string, applications []domain.StockApplication, actor string) ([]domain.StockMovement, error)

	// CreateSale persists the sale and decrements stock for every item in
	// one transaction, appending sale movements. Stock never goes negative;
	// ErrInsufficientStock aborts the whole sale.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)

	AdjustStock(ctx context.Context, productID string, countedQty int, note string, actor string) (*domain.StockMovement, error)
	ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)

	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)

	CreateSystemLog(ctx context.Context, entry domain.SystemLog) error
	ListSystemLogs(ctx context.Context, limit int) ([]domain.SystemLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
