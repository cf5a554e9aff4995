package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"almacen/backend/internal/cache"
	"almacen/backend/internal/domain"
	"almacen/backend/internal/pipeline"
	"almacen/backend/internal/store"
	"almacen/backend/internal/xid"
)

const (
	catalogCacheKey = "catalog:v1"

	// Lines matched below this confidence stay flagged for human review
	// even though the matcher accepted them.
	reviewThreshold = 80.0
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ValidationError reports a request that fails the review workflow's
// preconditions, for example validating a receipt that still has
// unreviewed lines.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ApplyError reports a receipt that cannot be applied to inventory as-is.
// Nothing is written when it is returned.
type ApplyError struct {
	Msg string
}

func (e *ApplyError) Error() string { return e.Msg }

type Service struct {
	repo           store.Repository
	catalog        cache.CatalogCache
	uploadDir      string
	catalogTTL     time.Duration
	matchThreshold float64
}

func New(repo store.Repository, catalog cache.CatalogCache, uploadDir string, catalogTTL time.Duration) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if catalogTTL <= 0 {
		catalogTTL = 5 * time.Minute
	}

	return &Service{
		repo:           repo,
		catalog:        catalog,
		uploadDir:      uploadDir,
		catalogTTL:     catalogTTL,
		matchThreshold: pipeline.DefaultMatchThreshold,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Category = strings.TrimSpace(req.Category)

	if req.Name == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.Price.IsNegative() || req.InitialStock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		Name:         req.Name,
		SKU:          req.SKU,
		Category:     req.Category,
		Price:        req.Price,
		Unit:         req.Unit,
		CurrentStock: req.InitialStock,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	s.logSystem(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%s,stock=%d", created.Name, created.Price.String(), created.CurrentStock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.SKU != nil {
		existing.SKU = strings.ToUpper(strings.TrimSpace(*req.SKU))
	}
	if req.Category != nil {
		existing.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		existing.Price = *req.Price
	}
	if req.Unit != nil {
		existing.Unit = *req.Unit
	}

	saved, err := s.repo.UpdateProduct(ctx, *existing)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	s.logSystem(ctx, "product_update", "product", saved.ID, fmt.Sprintf("name=%s,price=%s", saved.Name, saved.Price.String()))
	return *saved, nil
}

// UploadReceipt stores the PDF under the upload directory and registers a
// pending receipt pointing at it. Processing happens in a separate call.
func (s *Service) UploadReceipt(ctx context.Context, filename string, content io.Reader) (domain.Receipt, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Receipt{}, fmt.Errorf("authenticated user required")
	}

	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return domain.Receipt{}, &ValidationError{Msg: "only pdf files are accepted"}
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return domain.Receipt{}, err
	}

	dest := filepath.Join(s.uploadDir, xid.New("upload")+".pdf")
	f, err := os.Create(dest)
	if err != nil {
		return domain.Receipt{}, err
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return domain.Receipt{}, err
	}
	if err := f.Close(); err != nil {
		return domain.Receipt{}, err
	}

	receipt, err := s.repo.CreateReceipt(ctx, domain.Receipt{
		UserID:     actor.Username,
		FilePath:   dest,
		Status:     domain.ReceiptStatusPending,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		_ = os.Remove(dest)
		return domain.Receipt{}, err
	}

	s.logSystem(ctx, "receipt_upload", "receipt", receipt.ID, filepath.Base(filename))
	return *receipt, nil
}

// ProcessReceipt runs the extraction pipeline over a pending or errored
// receipt: text extraction, normalization, metadata, line parsing and
// catalog matching. Any pipeline failure lands the receipt in the error
// status with the message recorded; the error is reported in the result,
// not returned, so callers can distinguish "receipt failed" from "call
// failed". Re-invoking process on an errored receipt retries it.
func (s *Service) ProcessReceipt(ctx context.Context, receiptID string) (domain.ProcessResult, error) {
	receipt, err := s.repo.GetReceiptByID(ctx, receiptID)
	if err != nil {
		return domain.ProcessResult{}, err
	}
	switch receipt.Status {
	case domain.ReceiptStatusPending, domain.ReceiptStatusError:
	default:
		return domain.ProcessResult{}, &ValidationError{Msg: fmt.Sprintf("receipt %s is %s, expected pending or error", receiptID, receipt.Status)}
	}

	receipt.Status = domain.ReceiptStatusProcessing
	receipt.ErrorMessage = ""
	if _, err := s.repo.UpdateReceipt(ctx, *receipt); err != nil {
		return domain.ProcessResult{}, err
	}

	result, runErr := s.runPipeline(ctx, receipt)
	if runErr != nil {
		return domain.ProcessResult{}, runErr
	}
	return result, nil
}

// ReprocessReceipt discards the previous extraction and runs the pipeline
// again. Allowed while the receipt is still under review or errored; applied
// receipts are immutable.
func (s *Service) ReprocessReceipt(ctx context.Context, receiptID string) (domain.ProcessResult, error) {
	receipt, err := s.repo.GetReceiptByID(ctx, receiptID)
	if err != nil {
		return domain.ProcessResult{}, err
	}

	switch receipt.Status {
	case domain.ReceiptStatusNeedsValidation, domain.ReceiptStatusValidated, domain.ReceiptStatusError:
	default:
		return domain.ProcessResult{}, &ValidationError{Msg: fmt.Sprintf("receipt %s is %s and cannot be reprocessed", receiptID, receipt.Status)}
	}

	if err := s.repo.DeleteReceiptLines(ctx, receiptID); err != nil {
		return domain.ProcessResult{}, err
	}

	receipt.Status = domain.ReceiptStatusProcessing
	receipt.ErrorMessage = ""
	receipt.ProcessedAt = nil
	if _, err := s.repo.UpdateReceipt(ctx, *receipt); err != nil {
		return domain.ProcessResult{}, err
	}

	result, runErr := s.runPipeline(ctx, receipt)
	if runErr != nil {
		return domain.ProcessResult{}, runErr
	}
	s.logSystem(ctx, "receipt_reprocess", "receipt", receiptID, "")
	return result, nil
}

func (s *Service) runPipeline(ctx context.Context, receipt *domain.Receipt) (domain.ProcessResult, error) {
	rawText, err := pipeline.ExtractText(receipt.FilePath)
	if err != nil {
		return s.failReceipt(ctx, receipt, err)
	}
	return s.ingestText(ctx, receipt, rawText)
}

// ingestText runs the post-extraction stages over raw text: normalization,
// metadata detection, line parsing and catalog matching. The raw extractor
// output is kept on the receipt verbatim as the audit record; only the
// pattern stages see the normalized form.
func (s *Service) ingestText(ctx context.Context, receipt *domain.Receipt, rawText string) (domain.ProcessResult, error) {
	catalog, err := s.catalogSnapshot(ctx)
	if err != nil {
		return s.failReceipt(ctx, receipt, err)
	}

	normalized := pipeline.Normalize(rawText)
	meta := pipeline.ExtractMetadata(normalized)
	parsed := pipeline.ParseLines(normalized)

	now := time.Now().UTC()
	lines := make([]domain.ReceiptLine, 0, len(parsed))
	for _, p := range parsed {
		line := domain.ReceiptLine{
			ReceiptID:        receipt.ID,
			RawText:          p.RawText,
			DetectedName:     p.Name,
			DetectedQuantity: p.Quantity,
			NeedsReview:      p.NeedsReview,
			CreatedAt:        now,
		}

		if match := pipeline.MatchProduct(p.Name, s.matchThreshold, catalog); match != nil {
			line.MatchedProductID = match.Product.ID
			score := match.Score
			line.ConfidenceScore = &score
			line.DetectedUnit = match.Product.Unit
			if score < reviewThreshold {
				line.NeedsReview = true
			}
		} else {
			line.NeedsReview = true
		}
		lines = append(lines, line)
	}

	if _, err := s.repo.CreateReceiptLines(ctx, lines); err != nil {
		return s.failReceipt(ctx, receipt, err)
	}

	receipt.RawText = rawText
	receipt.Supplier = meta.Supplier
	receipt.ReceiptDate = meta.Date
	receipt.Status = domain.ReceiptStatusNeedsValidation
	receipt.ErrorMessage = ""
	receipt.ProcessedAt = &now
	if _, err := s.repo.UpdateReceipt(ctx, *receipt); err != nil {
		return domain.ProcessResult{}, err
	}

	log.Printf("[pipeline] receipt=%s lines=%d supplier=%q", receipt.ID, len(lines), meta.Supplier)
	return domain.ProcessResult{OK: true, Message: fmt.Sprintf("extracted %d lines", len(lines))}, nil
}

func (s *Service) failReceipt(ctx context.Context, receipt *domain.Receipt, cause error) (domain.ProcessResult, error) {
	receipt.Status = domain.ReceiptStatusError
	receipt.ErrorMessage = cause.Error()
	if _, err := s.repo.UpdateReceipt(ctx, *receipt); err != nil {
		return domain.ProcessResult{}, err
	}
	log.Printf("[pipeline] receipt=%s failed: %v", receipt.ID, cause)
	return domain.ProcessResult{OK: false, Message: cause.Error()}, nil
}

func (s *Service) GetReceipt(ctx context.Context, receiptID string) (domain.ReceiptView, error) {
	receipt, err := s.repo.GetReceiptByID(ctx, receiptID)
	if err != nil {
		return domain.ReceiptView{}, err
	}
	lines, err := s.repo.ListReceiptLines(ctx, receiptID)
	if err != nil {
		return domain.ReceiptView{}, err
	}
	return domain.ReceiptView{Receipt: *receipt, Lines: lines}, nil
}

func (s *Service) ListReceipts(ctx context.Context, status string, limit int) ([]domain.Receipt, error) {
	return s.repo.ListReceipts(ctx, status, limit)
}

// ValidateLine records a human decision on one line. Setting a matched
// product pins confidence at 100 since the assignment is no longer a guess.
func (s *Service) ValidateLine(ctx context.Context, lineID string, corrections domain.LineCorrections) (domain.ReceiptLine, error) {
	line, err := s.repo.GetReceiptLineByID(ctx, lineID)
	if err != nil {
		return domain.ReceiptLine{}, err
	}

	receipt, err := s.repo.GetReceiptByID(ctx, line.ReceiptID)
	if err != nil {
		return domain.ReceiptLine{}, err
	}
	if receipt.Status != domain.ReceiptStatusNeedsValidation {
		return domain.ReceiptLine{}, &ValidationError{Msg: fmt.Sprintf("receipt %s is %s, lines can only be reviewed while it needs validation", receipt.ID, receipt.Status)}
	}

	if corrections.MatchedProductID != nil {
		if _, err := s.repo.GetProductByID(ctx, *corrections.MatchedProductID); err != nil {
			return domain.ReceiptLine{}, err
		}
		line.MatchedProductID = *corrections.MatchedProductID
		pinned := 100.0
		line.ConfidenceScore = &pinned
	}
	if corrections.CorrectedName != nil {
		line.CorrectedName = strings.TrimSpace(*corrections.CorrectedName)
	}
	if corrections.CorrectedQuantity != nil {
		if !corrections.CorrectedQuantity.IsPositive() {
			return domain.ReceiptLine{}, &ValidationError{Msg: "corrected quantity must be positive"}
		}
		line.CorrectedQuantity = corrections.CorrectedQuantity
	}
	if corrections.ValidationNotes != nil {
		line.ValidationNotes = *corrections.ValidationNotes
	}

	line.Validated = true
	line.NeedsReview = false

	saved, err := s.repo.UpdateReceiptLine(ctx, *line)
	if err != nil {
		return domain.ReceiptLine{}, err
	}
	s.logSystem(ctx, "line_validate", "receipt_line", saved.ID, fmt.Sprintf("receipt=%s", saved.ReceiptID))
	return *saved, nil
}

// ValidateReceipt moves a reviewed receipt to validated. Every line must
// carry a validation; automatic matches are confirmed through ValidateLine
// like any other line.
func (s *Service) ValidateReceipt(ctx context.Context, receiptID string) (domain.Receipt, error) {
	receipt, err := s.repo.GetReceiptByID(ctx, receiptID)
	if err != nil {
		return domain.Receipt{}, err
	}
	if receipt.Status != domain.ReceiptStatusNeedsValidation {
		return domain.Receipt{}, &ValidationError{Msg: fmt.Sprintf("receipt %s is %s, expected needs_validation", receiptID, receipt.Status)}
	}

	lines, err := s.repo.ListReceiptLines(ctx, receiptID)
	if err != nil {
		return domain.Receipt{}, err
	}
	if len(lines) == 0 {
		return domain.Receipt{}, &ValidationError{Msg: "receipt has no lines to validate"}
	}

	for _, line := range lines {
		if !line.Validated {
			return domain.Receipt{}, &ValidationError{Msg: "lines remain unvalidated"}
		}
	}

	receipt.Status = domain.ReceiptStatusValidated
	saved, err := s.repo.UpdateReceipt(ctx, *receipt)
	if err != nil {
		return domain.Receipt{}, err
	}
	s.logSystem(ctx, "receipt_validate", "receipt", receiptID, fmt.Sprintf("lines=%d", len(lines)))
	return *saved, nil
}

// ApplyToInventory turns a validated receipt into stock. Every line must
// resolve to a product and a positive quantity before anything is written;
// the store applies all deltas in one transaction.
func (s *Service) ApplyToInventory(ctx context.Context, receiptID string) (domain.ApplyResponse, error) {
	receipt, err := s.repo.GetReceiptByID(ctx, receiptID)
	if err != nil {
		return domain.ApplyResponse{}, err
	}
	if receipt.Status == domain.ReceiptStatusCompleted {
		return domain.ApplyResponse{}, &ApplyError{Msg: fmt.Sprintf("receipt %s was already applied", receiptID)}
	}
	if receipt.Status != domain.ReceiptStatusValidated {
		return domain.ApplyResponse{}, &ApplyError{Msg: fmt.Sprintf("receipt %s is %s, expected validated", receiptID, receipt.Status)}
	}

	lines, err := s.repo.ListReceiptLines(ctx, receiptID)
	if err != nil {
		return domain.ApplyResponse{}, err
	}

	note := "recepcion " + receiptID
	if receipt.Supplier != "" {
		note += " proveedor " + receipt.Supplier
	}

	applications := make([]domain.StockApplication, 0, len(lines))
	for _, line := range lines {
		if !line.Validated {
			return domain.ApplyResponse{}, &ApplyError{Msg: fmt.Sprintf("line %s is not validated", line.ID)}
		}
		if line.MatchedProductID == "" {
			return domain.ApplyResponse{}, &ApplyError{Msg: fmt.Sprintf("line %s has no matched product", line.ID)}
		}
		qty := line.ResolvedQuantity()
		if qty == nil || !qty.IsPositive() {
			return domain.ApplyResponse{}, &ApplyError{Msg: fmt.Sprintf("line %s has no positive quantity", line.ID)}
		}
		applications = append(applications, domain.StockApplication{
			ReceiptLineID: line.ID,
			ProductID:     line.MatchedProductID,
			Quantity:      *qty,
			Note:          note,
		})
	}
	if len(applications) == 0 {
		return domain.ApplyResponse{}, &ApplyError{Msg: "receipt has no lines to apply"}
	}

	// Movements credit the receipt's uploading user, not the caller.
	movements, err := s.repo.ApplyReceiptInventory(ctx, receiptID, applications, receipt.UserID)
	if err != nil {
		return domain.ApplyResponse{}, err
	}

	s.invalidateCatalog(ctx)

	applied := make([]domain.AppliedItem, 0, len(movements))
	for _, m := range movements {
		name := ""
		if product, err := s.repo.GetProductByID(ctx, m.ProductID); err == nil {
			name = product.Name
		}
		applied = append(applied, domain.AppliedItem{
			ReceiptLineID: m.ReceiptLineID,
			ProductID:     m.ProductID,
			ProductName:   name,
			Quantity:      m.Quantity,
			PreviousStock: m.PreviousStock,
			NewStock:      m.NewStock,
		})
	}

	s.logSystem(ctx, "receipt_apply", "receipt", receiptID, fmt.Sprintf("items=%d", len(applied)))
	return domain.ApplyResponse{
		ReceiptID:    receiptID,
		Status:       domain.ReceiptStatusCompleted,
		AppliedItems: applied,
	}, nil
}

func (s *Service) RegisterSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, fmt.Errorf("authenticated user required")
	}

	switch req.PaymentMethod {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodTransfer:
	default:
		return domain.Sale{}, store.ErrInvalidInput
	}
	if len(req.Items) == 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity < 1 {
			return domain.Sale{}, store.ErrInvalidInput
		}
		items = append(items, domain.SaleItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	sale, err := s.repo.CreateSale(ctx, domain.Sale{
		UserID:        actor.Username,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Items:         items,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateCatalog(ctx)
	s.logSystem(ctx, "sale_register", "sale", sale.ID, fmt.Sprintf("items=%d,total=%s", len(sale.Items), sale.TotalAmount.String()))
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, limit)
}

// AdjustStock sets a product's stock to a counted value, recording the
// delta as an adjustment movement.
func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustmentRequest) (domain.StockMovement, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.StockMovement{}, fmt.Errorf("admin role required")
	}
	if req.ProductID == "" || req.CountedQty < 0 {
		return domain.StockMovement{}, store.ErrInvalidInput
	}

	movement, err := s.repo.AdjustStock(ctx, req.ProductID, req.CountedQty, req.Note, actor.Username)
	if err != nil {
		return domain.StockMovement{}, err
	}

	s.invalidateCatalog(ctx)
	s.logSystem(ctx, "stock_adjust", "product", req.ProductID, fmt.Sprintf("counted=%d,delta=%s", req.CountedQty, movement.Quantity.String()))
	return *movement, nil
}

func (s *Service) ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	return s.repo.ListStockMovements(ctx, productID, limit)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Category{}, fmt.Errorf("admin role required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return domain.Category{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		return domain.Category{}, err
	}
	s.logSystem(ctx, "category_create", "category", created.ID, created.Name)
	return *created, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.UserView{}, fmt.Errorf("admin role required")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Password) < 8 {
		return domain.UserView{}, store.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserView{}, err
	}

	role := "user"
	if req.Admin {
		role = "admin"
	}
	account := domain.UserAccount{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hash),
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, account); err != nil {
		return domain.UserView{}, err
	}

	s.logSystem(ctx, "user_create", "user", account.Username, "role="+role)
	return domain.UserView{
		Username:  account.Username,
		Email:     account.Email,
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}

	accounts, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.UserView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, domain.UserView{
			Username:  account.Username,
			Email:     account.Email,
			Role:      account.Role,
			Active:    account.Active,
			CreatedAt: account.CreatedAt,
		})
	}
	return views, nil
}

func (s *Service) ListSystemLogs(ctx context.Context, limit int) ([]domain.SystemLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	return s.repo.ListSystemLogs(ctx, limit)
}

// catalogSnapshot returns the product list the matcher works against,
// served from the cache when a fresh snapshot exists.
func (s *Service) catalogSnapshot(ctx context.Context) ([]domain.Product, error) {
	if products, ok, err := s.catalog.Get(ctx, catalogCacheKey); err == nil && ok {
		return products, nil
	} else if err != nil {
		log.Printf("[catalog] WARN: cache read failed: %v", err)
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Set(ctx, catalogCacheKey, products, s.catalogTTL); err != nil {
		log.Printf("[catalog] WARN: cache write failed: %v", err)
	}
	return products, nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx, catalogCacheKey); err != nil {
		log.Printf("[catalog] WARN: cache invalidation failed: %v", err)
	}
}

func (s *Service) logSystem(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateSystemLog(ctx, domain.SystemLog{
		ID:         xid.New("syslog"),
		Actor:      actor.Username,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		log.Printf("[syslog] WARN: failed to write log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
