package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"almacen/backend/internal/domain"
	"almacen/backend/internal/store"
	"almacen/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	productOrder    []string
	receiptsByID    map[string]domain.Receipt
	linesByID       map[string]domain.ReceiptLine
	linesByReceipt  map[string][]string
	movements       []domain.StockMovement
	salesByID       map[string]domain.Sale
	saleOrder       []string
	categoriesByID  map[string]domain.Category
	categoryOrder   []string
	systemLogs      []domain.SystemLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_USER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning. These credentials are never used in production (the backend uses
// PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	userPwd := envOr("SEED_USER_PASSWORD", "user123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_USER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_USER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		email    string
		password string
		role     string
	}{
		{"admin", "admin@almacen.local", adminPwd, "admin"},
		{"vendedor", "vendedor@almacen.local", userPwd, "user"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Email:     u.email,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		productOrder:    make([]string, 0, 64),
		receiptsByID:    make(map[string]domain.Receipt),
		linesByID:       make(map[string]domain.ReceiptLine),
		linesByReceipt:  make(map[string][]string),
		movements:       make([]domain.StockMovement, 0, 128),
		salesByID:       make(map[string]domain.Sale),
		saleOrder:       make([]string, 0, 64),
		categoriesByID:  make(map[string]domain.Category),
		categoryOrder:   make([]string, 0, 16),
		systemLogs:      make([]domain.SystemLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()

	now := time.Now().UTC()
	seed := []domain.Product{
		{ID: "prod-arroz-01", Name: "Arroz Tucapel 1kg", SKU: "ARZ-TUC-1K", Category: "abarrotes", Price: decimal.NewFromInt(1890), Unit: "unidad", CurrentStock: 40},
		{ID: "prod-aceite-01", Name: "Aceite Chef 1L", SKU: "ACE-CHF-1L", Category: "abarrotes", Price: decimal.NewFromInt(3290), Unit: "unidad", CurrentStock: 24},
		{ID: "prod-azucar-01", Name: "Azucar Iansa 1kg", SKU: "AZU-IAN-1K", Category: "abarrotes", Price: decimal.NewFromInt(1590), Unit: "unidad", CurrentStock: 30},
		{ID: "prod-harina-01", Name: "Harina Selecta 1kg", SKU: "HAR-SEL-1K", Category: "abarrotes", Price: decimal.NewFromInt(1450), Unit: "unidad", CurrentStock: 18},
		{ID: "prod-fideos-01", Name: "Fideos Carozzi Espirales", SKU: "FID-CAR-ESP", Category: "abarrotes", Price: decimal.NewFromInt(1190), Unit: "unidad", CurrentStock: 36},
		{ID: "prod-leche-01", Name: "Leche Colun Entera 1L", SKU: "LEC-COL-1L", Category: "lacteos", Price: decimal.NewFromInt(1290), Unit: "unidad", CurrentStock: 48},
		{ID: "prod-te-01", Name: "Te Supremo 20 bolsas", SKU: "TE-SUP-20", Category: "bebidas", Price: decimal.NewFromInt(1990), Unit: "unidad", CurrentStock: 22},
	}
	for _, p := range seed {
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
		s.productOrder = append(s.productOrder, p.ID)
	}

	for _, c := range []domain.Category{
		{ID: "cat-abarrotes", Name: "Abarrotes", Description: "Despensa y basicos"},
		{ID: "cat-lacteos", Name: "Lacteos", Description: "Refrigerados"},
		{ID: "cat-bebidas", Name: "Bebidas", Description: "Bebidas e infusiones"},
	} {
		s.categoriesByID[c.ID] = c
		s.categoryOrder = append(s.categoryOrder, c.ID)
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		products = append(products, s.products[id])
	}
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.SKU != "" {
		for _, existing := range s.products {
			if existing.SKU == product.SKU {
				return nil, store.ErrInvalidInput
			}
		}
	}
	if product.Unit == "" {
		product.Unit = "unidad"
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	s.products[product.ID] = product
	s.productOrder = append(s.productOrder, product.ID)
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) CreateReceipt(_ context.Context, receipt domain.Receipt) (*domain.Receipt, error) {
	if receipt.UserID == "" || receipt.FilePath == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if receipt.ID == "" {
		receipt.ID = xid.New("rcpt")
	}
	if receipt.Status == "" {
		receipt.Status = domain.ReceiptStatusPending
	}
	if receipt.UploadedAt.IsZero() {
		receipt.UploadedAt = time.Now().UTC()
	}
	s.receiptsByID[receipt.ID] = receipt
	created := receipt
	return &created, nil
}

func (s *Store) GetReceiptByID(_ context.Context, id string) (*domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipt, exists := s.receiptsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyReceipt := receipt
	return &copyReceipt, nil
}

func (s *Store) ListReceipts(_ context.Context, status string, limit int) ([]domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipts := make([]domain.Receipt, 0, len(s.receiptsByID))
	for _, receipt := range s.receiptsByID {
		if status != "" && receipt.Status != status {
			continue
		}
		receipts = append(receipts, receipt)
	}
	slices.SortFunc(receipts, func(a, b domain.Receipt) int {
		if a.UploadedAt.Equal(b.UploadedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.UploadedAt.After(b.UploadedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(receipts) > limit {
		receipts = receipts[:limit]
	}
	return receipts, nil
}

func (s *Store) UpdateReceipt(_ context.Context, receipt domain.Receipt) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.receiptsByID[receipt.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.receiptsByID[receipt.ID] = receipt
	updated := receipt
	return &updated, nil
}

func (s *Store) CreateReceiptLines(_ context.Context, lines []domain.ReceiptLine) ([]domain.ReceiptLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]domain.ReceiptLine, 0, len(lines))
	for _, line := range lines {
		if line.ReceiptID == "" {
			return nil, store.ErrInvalidInput
		}
		if _, exists := s.receiptsByID[line.ReceiptID]; !exists {
			return nil, store.ErrNotFound
		}
		if line.ID == "" {
			line.ID = xid.New("line")
		}
		if line.CreatedAt.IsZero() {
			line.CreatedAt = time.Now().UTC()
		}
		s.linesByID[line.ID] = line
		s.linesByReceipt[line.ReceiptID] = append(s.linesByReceipt[line.ReceiptID], line.ID)
		created = append(created, line)
	}
	return created, nil
}

func (s *Store) ListReceiptLines(_ context.Context, receiptID string) ([]domain.ReceiptLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.linesByReceipt[receiptID]
	lines := make([]domain.ReceiptLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, s.linesByID[id])
	}
	return lines, nil
}

func (s *Store) GetReceiptLineByID(_ context.Context, id string) (*domain.ReceiptLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	line, exists := s.linesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyLine := line
	return &copyLine, nil
}

func (s *Store) UpdateReceiptLine(_ context.Context, line domain.ReceiptLine) (*domain.ReceiptLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.linesByID[line.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.linesByID[line.ID] = line
	updated := line
	return &updated, nil
}

func (s *Store) DeleteReceiptLines(_ context.Context, receiptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.linesByReceipt[receiptID] {
		delete(s.linesByID, id)
	}
	delete(s.linesByReceipt, receiptID)
	return nil
}

func (s *Store) ApplyReceiptInventory(_ context.Context, receiptID string, applications []domain.StockApplication, actor string) ([]domain.StockMovement, error) {
	if len(applications) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, exists := s.receiptsByID[receiptID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if receipt.Status != domain.ReceiptStatusValidated {
		return nil, store.ErrInvalidInput
	}

	// Validate everything up front so a failure leaves no partial change.
	for _, app := range applications {
		if _, exists := s.products[app.ProductID]; !exists {
			return nil, fmt.Errorf("product %s: %w", app.ProductID, store.ErrNotFound)
		}
		if !app.Quantity.IsPositive() {
			return nil, store.ErrInvalidInput
		}
	}

	now := time.Now().UTC()
	movements := make([]domain.StockMovement, 0, len(applications))
	for _, app := range applications {
		product := s.products[app.ProductID]
		previous := product.CurrentStock
		delta := int(app.Quantity.IntPart())
		product.CurrentStock = previous + delta
		product.UpdatedAt = now
		s.products[app.ProductID] = product

		movement := domain.StockMovement{
			ID:            xid.New("mov"),
			ProductID:     app.ProductID,
			ReceiptLineID: app.ReceiptLineID,
			Kind:          domain.MovementKindReceipt,
			Quantity:      app.Quantity,
			PreviousStock: previous,
			NewStock:      product.CurrentStock,
			Note:          app.Note,
			CreatedBy:     actor,
			CreatedAt:     now,
		}
		s.movements = append(s.movements, movement)
		movements = append(movements, movement)
	}

	receipt.Status = domain.ReceiptStatusCompleted
	s.receiptsByID[receiptID] = receipt

	return movements, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check every line before mutating anything.
	for _, item := range sale.Items {
		product, exists := s.products[item.ProductID]
		if !exists {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
		}
		if item.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		if product.CurrentStock < item.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	now := time.Now().UTC()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}

	total := decimal.Zero
	for i := range sale.Items {
		item := &sale.Items[i]
		if item.ID == "" {
			item.ID = xid.New("sitem")
		}
		item.SaleID = sale.ID
		item.CreatedAt = sale.CreatedAt

		product := s.products[item.ProductID]
		if item.UnitPrice.IsZero() {
			item.UnitPrice = product.Price
		}
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.Subtotal)

		previous := product.CurrentStock
		product.CurrentStock = previous - item.Quantity
		product.UpdatedAt = now
		s.products[item.ProductID] = product

		s.movements = append(s.movements, domain.StockMovement{
			ID:            xid.New("mov"),
			ProductID:     item.ProductID,
			Kind:          domain.MovementKindSale,
			Quantity:      decimal.NewFromInt(int64(-item.Quantity)),
			PreviousStock: previous,
			NewStock:      product.CurrentStock,
			Note:          "venta " + sale.ID,
			CreatedBy:     sale.UserID,
			CreatedAt:     now,
		})
	}
	sale.TotalAmount = total

	s.salesByID[sale.ID] = sale
	s.saleOrder = append(s.saleOrder, sale.ID)
	created := sale
	return &created, nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.saleOrder))
	for i := len(s.saleOrder) - 1; i >= 0; i-- {
		sales = append(sales, s.salesByID[s.saleOrder[i]])
		if limit > 0 && len(sales) >= limit {
			break
		}
	}
	return sales, nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, countedQty int, note string, actor string) (*domain.StockMovement, error) {
	if countedQty < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}

	now := time.Now().UTC()
	previous := product.CurrentStock
	product.CurrentStock = countedQty
	product.UpdatedAt = now
	s.products[productID] = product

	movement := domain.StockMovement{
		ID:            xid.New("mov"),
		ProductID:     productID,
		Kind:          domain.MovementKindAdjustment,
		Quantity:      decimal.NewFromInt(int64(countedQty - previous)),
		PreviousStock: previous,
		NewStock:      countedQty,
		Note:          note,
		CreatedBy:     actor,
		CreatedAt:     now,
	}
	s.movements = append(s.movements, movement)
	return &movement, nil
}

func (s *Store) ListStockMovements(_ context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movements := make([]domain.StockMovement, 0, len(s.movements))
	for i := len(s.movements) - 1; i >= 0; i-- {
		movement := s.movements[i]
		if productID != "" && movement.ProductID != productID {
			continue
		}
		movements = append(movements, movement)
		if limit > 0 && len(movements) >= limit {
			break
		}
	}
	return movements, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	s.categoriesByID[category.ID] = category
	s.categoryOrder = append(s.categoryOrder, category.ID)
	created := category
	return &created, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categoryOrder))
	for _, id := range s.categoryOrder {
		categories = append(categories, s.categoriesByID[id])
	}
	return categories, nil
}

func (s *Store) CreateSystemLog(_ context.Context, entry domain.SystemLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("syslog")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.systemLogs = append(s.systemLogs, entry)
	return nil
}

func (s *Store) ListSystemLogs(_ context.Context, limit int) ([]domain.SystemLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.SystemLog, 0, len(s.systemLogs))
	for i := len(s.systemLogs) - 1; i >= 0; i-- {
		logs = append(logs, s.systemLogs[i])
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
