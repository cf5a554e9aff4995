package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"almacen/backend/internal/domain"
	"almacen/backend/internal/store"
	"almacen/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sku, category, price, unit, current_stock, created_at, updated_at
		FROM products
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.Unit == "" {
		product.Unit = "unidad"
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, category, price, unit, current_stock, created_at, updated_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9)
	`, product.ID, product.Name, product.SKU, product.Category, product.Price, product.Unit, product.CurrentStock, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, sku, category, price, unit, current_stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, sku = NULLIF($3,''), category = $4, price = $5, unit = $6, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.SKU, product.Category, product.Price, product.Unit)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) CreateReceipt(ctx context.Context, receipt domain.Receipt) (*domain.Receipt, error) {
	if receipt.UserID == "" || receipt.FilePath == "" {
		return nil, store.ErrInvalidInput
	}
	if receipt.ID == "" {
		receipt.ID = xid.New("rcpt")
	}
	if receipt.Status == "" {
		receipt.Status = domain.ReceiptStatusPending
	}
	if receipt.UploadedAt.IsZero() {
		receipt.UploadedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, user_id, file_path, status, supplier, receipt_date, raw_text, error_message, uploaded_at, processed_at)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,NULLIF($7,''),NULLIF($8,''),$9,$10)
	`, receipt.ID, receipt.UserID, receipt.FilePath, receipt.Status, receipt.Supplier, receipt.ReceiptDate, receipt.RawText, receipt.ErrorMessage, receipt.UploadedAt, receipt.ProcessedAt)
	if err != nil {
		return nil, err
	}
	created := receipt
	return &created, nil
}

func (s *Store) GetReceiptByID(ctx context.Context, id string) (*domain.Receipt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, file_path, status, supplier, receipt_date, raw_text, error_message, uploaded_at, processed_at
		FROM receipts
		WHERE id = $1
	`, id)
	receipt, err := scanReceipt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

func (s *Store) ListReceipts(ctx context.Context, status string, limit int) ([]domain.Receipt, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, file_path, status, supplier, receipt_date, raw_text, error_message, uploaded_at, processed_at
		FROM receipts
		WHERE ($1 = '' OR status = $1)
		ORDER BY uploaded_at DESC, id
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipts := make([]domain.Receipt, 0, limit)
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return receipts, nil
}

func (s *Store) UpdateReceipt(ctx context.Context, receipt domain.Receipt) (*domain.Receipt, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE receipts
		SET status = $2, supplier = NULLIF($3,''), receipt_date = $4, raw_text = NULLIF($5,''),
		    error_message = NULLIF($6,''), processed_at = $7
		WHERE id = $1
	`, receipt.ID, receipt.Status, receipt.Supplier, receipt.ReceiptDate, receipt.RawText, receipt.ErrorMessage, receipt.ProcessedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := receipt
	return &updated, nil
}

func (s *Store) CreateReceiptLines(ctx context.Context, lines []domain.ReceiptLine) ([]domain.ReceiptLine, error) {
	if len(lines) == 0 {
		return []domain.ReceiptLine{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]domain.ReceiptLine, 0, len(lines))
	for _, line := range lines {
		if line.ReceiptID == "" {
			return nil, store.ErrInvalidInput
		}
		if line.ID == "" {
			line.ID = xid.New("line")
		}
		if line.CreatedAt.IsZero() {
			line.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO receipt_lines (id, receipt_id, raw_text, detected_name, detected_quantity, detected_unit,
				matched_product_id, confidence_score, validated, needs_review, validation_notes,
				corrected_name, corrected_quantity, created_at)
			VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8,$9,$10,NULLIF($11,''),NULLIF($12,''),$13,$14)
		`, line.ID, line.ReceiptID, line.RawText, line.DetectedName, decimalPtr(line.DetectedQuantity), line.DetectedUnit,
			line.MatchedProductID, line.ConfidenceScore, line.Validated, line.NeedsReview, line.ValidationNotes,
			line.CorrectedName, decimalPtr(line.CorrectedQuantity), line.CreatedAt)
		if err != nil {
			return nil, err
		}
		created = append(created, line)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) ListReceiptLines(ctx context.Context, receiptID string) ([]domain.ReceiptLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receipt_id, raw_text, detected_name, detected_quantity, detected_unit,
			matched_product_id, confidence_score, validated, needs_review, validation_notes,
			corrected_name, corrected_quantity, created_at
		FROM receipt_lines
		WHERE receipt_id = $1
		ORDER BY created_at, id
	`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.ReceiptLine, 0, 32)
	for rows.Next() {
		line, err := scanReceiptLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) GetReceiptLineByID(ctx context.Context, id string) (*domain.ReceiptLine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, receipt_id, raw_text, detected_name, detected_quantity, detected_unit,
			matched_product_id, confidence_score, validated, needs_review, validation_notes,
			corrected_name, corrected_quantity, created_at
		FROM receipt_lines
		WHERE id = $1
	`, id)
	line, err := scanReceiptLine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

func (s *Store) UpdateReceiptLine(ctx context.Context, line domain.ReceiptLine) (*domain.ReceiptLine, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE receipt_lines
		SET detected_name = $2, detected_quantity = $3, matched_product_id = NULLIF($4,''),
			confidence_score = $5, validated = $6, needs_review = $7, validation_notes = NULLIF($8,''),
			corrected_name = NULLIF($9,''), corrected_quantity = $10
		WHERE id = $1
	`, line.ID, line.DetectedName, decimalPtr(line.DetectedQuantity), line.MatchedProductID,
		line.ConfidenceScore, line.Validated, line.NeedsReview, line.ValidationNotes,
		line.CorrectedName, decimalPtr(line.CorrectedQuantity))
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := line
	return &updated, nil
}

func (s *Store) DeleteReceiptLines(ctx context.Context, receiptID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM receipt_lines WHERE receipt_id = $1`, receiptID)
	return err
}

// ApplyReceiptInventory runs the whole inventory apply as one serializable
// transaction with row locks on the affected products, so concurrent
// applications against the same product serialize instead of losing
// updates. Any failure rolls everything back.
func (s *Store) ApplyReceiptInventory(ctx context.Context, receiptID string, applications []domain.StockApplication, actor string) ([]domain.StockMovement, error) {
	if len(applications) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var receiptStatus string
	err = tx.QueryRowContext(ctx, `SELECT status FROM receipts WHERE id = $1 FOR UPDATE`, receiptID).Scan(&receiptStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if receiptStatus != domain.ReceiptStatusValidated {
		return nil, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	movements := make([]domain.StockMovement, 0, len(applications))
	for _, app := range applications {
		if !app.Quantity.IsPositive() {
			return nil, store.ErrInvalidInput
		}

		var previous int
		err := tx.QueryRowContext(ctx, `
			SELECT current_stock FROM products WHERE id = $1 FOR UPDATE
		`, app.ProductID).Scan(&previous)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("product %s: %w", app.ProductID, store.ErrNotFound)
			}
			return nil, err
		}

		newStock := previous + int(app.Quantity.IntPart())
		_, err = tx.ExecContext(ctx, `
			UPDATE products SET current_stock = $2, updated_at = now() WHERE id = $1
		`, app.ProductID, newStock)
		if err != nil {
			return nil, err
		}

		movement := domain.StockMovement{
			ID:            xid.New("mov"),
			ProductID:     app.ProductID,
			ReceiptLineID: app.ReceiptLineID,
			Kind:          domain.MovementKindReceipt,
			Quantity:      app.Quantity,
			PreviousStock: previous,
			NewStock:      newStock,
			Note:          app.Note,
			CreatedBy:     actor,
			CreatedAt:     now,
		}
		if err := insertMovement(ctx, tx, movement); err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}

	_, err = tx.ExecContext(ctx, `UPDATE receipts SET status = $2 WHERE id = $1`, receiptID, domain.ReceiptStatusCompleted)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return movements, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	total := decimal.Zero
	for i := range sale.Items {
		item := &sale.Items[i]
		if item.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		if item.ID == "" {
			item.ID = xid.New("sitem")
		}
		item.SaleID = sale.ID
		item.CreatedAt = sale.CreatedAt

		var previous int
		var price decimal.Decimal
		err := tx.QueryRowContext(ctx, `
			SELECT current_stock, price FROM products WHERE id = $1 FOR UPDATE
		`, item.ProductID).Scan(&previous, &price)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
			}
			return nil, err
		}
		if previous < item.Quantity {
			return nil, store.ErrInsufficientStock
		}
		if item.UnitPrice.IsZero() {
			item.UnitPrice = price
		}
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.Subtotal)

		newStock := previous - item.Quantity
		_, err = tx.ExecContext(ctx, `
			UPDATE products SET current_stock = $2, updated_at = now() WHERE id = $1
		`, item.ProductID, newStock)
		if err != nil {
			return nil, err
		}

		err = insertMovement(ctx, tx, domain.StockMovement{
			ID:            xid.New("mov"),
			ProductID:     item.ProductID,
			Kind:          domain.MovementKindSale,
			Quantity:      decimal.NewFromInt(int64(-item.Quantity)),
			PreviousStock: previous,
			NewStock:      newStock,
			Note:          "venta " + sale.ID,
			CreatedBy:     sale.UserID,
			CreatedAt:     sale.CreatedAt,
		})
		if err != nil {
			return nil, err
		}
	}
	sale.TotalAmount = total

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, user_id, total_amount, payment_method, notes, created_at)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6)
	`, sale.ID, sale.UserID, sale.TotalAmount, sale.PaymentMethod, sale.Notes, sale.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, item := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, subtotal, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal, item.CreatedAt)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := sale
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, total_amount, payment_method, COALESCE(notes,''), created_at
		FROM sales
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.UserID, &sale.TotalAmount, &sale.PaymentMethod, &sale.Notes, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		itemRows, err := s.db.QueryContext(ctx, `
			SELECT id, sale_id, product_id, quantity, unit_price, subtotal, created_at
			FROM sale_items
			WHERE sale_id = $1
			ORDER BY created_at, id
		`, sales[i].ID)
		if err != nil {
			return nil, err
		}
		for itemRows.Next() {
			var item domain.SaleItem
			if err := itemRows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Subtotal, &item.CreatedAt); err != nil {
				_ = itemRows.Close()
				return nil, err
			}
			sales[i].Items = append(sales[i].Items, item)
		}
		if err := itemRows.Err(); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		_ = itemRows.Close()
	}
	return sales, nil
}

func (s *Store) AdjustStock(ctx context.Context, productID string, countedQty int, note string, actor string) (*domain.StockMovement, error) {
	if countedQty < 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var previous int
	err = tx.QueryRowContext(ctx, `SELECT current_stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE products SET current_stock = $2, updated_at = now() WHERE id = $1`, productID, countedQty)
	if err != nil {
		return nil, err
	}

	movement := domain.StockMovement{
		ID:            xid.New("mov"),
		ProductID:     productID,
		Kind:          domain.MovementKindAdjustment,
		Quantity:      decimal.NewFromInt(int64(countedQty - previous)),
		PreviousStock: previous,
		NewStock:      countedQty,
		Note:          note,
		CreatedBy:     actor,
		CreatedAt:     time.Now().UTC(),
	}
	if err := insertMovement(ctx, tx, movement); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &movement, nil
}

func (s *Store) ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, COALESCE(receipt_line_id,''), kind, quantity, previous_stock, new_stock,
			COALESCE(note,''), COALESCE(created_by,''), created_at
		FROM stock_movements
		WHERE ($1 = '' OR product_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ReceiptLineID, &m.Kind, &m.Quantity, &m.PreviousStock, &m.NewStock, &m.Note, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description) VALUES ($1,$2,$3)
	`, category.ID, category.Name, category.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateSystemLog(ctx context.Context, entry domain.SystemLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("syslog")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_logs (id, actor, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.Actor, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListSystemLogs(ctx context.Context, limit int) ([]domain.SystemLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, actor_role, action, entity_type, entity_id, detail, created_at
		FROM system_logs
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.SystemLog, 0, limit)
	for rows.Next() {
		var entry domain.SystemLog
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.Username, user.Email, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, COALESCE(email,''), password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Email, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var sku, category sql.NullString
	err := row.Scan(&p.ID, &p.Name, &sku, &category, &p.Price, &p.Unit, &p.CurrentStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.SKU = sku.String
	p.Category = category.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func scanReceipt(row rowScanner) (domain.Receipt, error) {
	var r domain.Receipt
	var supplier, rawText, errMsg sql.NullString
	var receiptDate, processedAt sql.NullTime
	err := row.Scan(&r.ID, &r.UserID, &r.FilePath, &r.Status, &supplier, &receiptDate, &rawText, &errMsg, &r.UploadedAt, &processedAt)
	if err != nil {
		return domain.Receipt{}, err
	}
	r.Supplier = supplier.String
	r.RawText = rawText.String
	r.ErrorMessage = errMsg.String
	r.UploadedAt = r.UploadedAt.UTC()
	if receiptDate.Valid {
		d := receiptDate.Time.UTC()
		r.ReceiptDate = &d
	}
	if processedAt.Valid {
		p := processedAt.Time.UTC()
		r.ProcessedAt = &p
	}
	return r, nil
}

func scanReceiptLine(row rowScanner) (domain.ReceiptLine, error) {
	var l domain.ReceiptLine
	var detectedQty, correctedQty decimal.NullDecimal
	var detectedUnit, matchedID, notes, correctedName sql.NullString
	var confidence sql.NullFloat64
	err := row.Scan(&l.ID, &l.ReceiptID, &l.RawText, &l.DetectedName, &detectedQty, &detectedUnit,
		&matchedID, &confidence, &l.Validated, &l.NeedsReview, &notes, &correctedName, &correctedQty, &l.CreatedAt)
	if err != nil {
		return domain.ReceiptLine{}, err
	}
	if detectedQty.Valid {
		l.DetectedQuantity = &detectedQty.Decimal
	}
	if correctedQty.Valid {
		l.CorrectedQuantity = &correctedQty.Decimal
	}
	l.DetectedUnit = detectedUnit.String
	l.MatchedProductID = matchedID.String
	l.ValidationNotes = notes.String
	l.CorrectedName = correctedName.String
	if confidence.Valid {
		c := confidence.Float64
		l.ConfidenceScore = &c
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return l, nil
}

func insertMovement(ctx context.Context, tx *sql.Tx, m domain.StockMovement) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, receipt_line_id, kind, quantity, previous_stock, new_stock, note, created_by, created_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),$10)
	`, m.ID, m.ProductID, m.ReceiptLineID, m.Kind, m.Quantity, m.PreviousStock, m.NewStock, m.Note, m.CreatedBy, m.CreatedAt)
	return err
}

func decimalPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
