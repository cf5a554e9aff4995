package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt lifecycle statuses. Transitions are monotonic along
// pending -> processing -> needs_validation -> validated -> completed,
// with error reachable from any non-terminal status.
const (
	ReceiptStatusPending         = "pending"
	ReceiptStatusProcessing      = "processing"
	ReceiptStatusNeedsValidation = "needs_validation"
	ReceiptStatusValidated       = "validated"
	ReceiptStatusCompleted       = "completed"
	ReceiptStatusError           = "error"
)

const (
	MovementKindReceipt    = "receipt"
	MovementKindSale       = "sale"
	MovementKindAdjustment = "adjustment"
)

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
)

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku,omitempty"`
	Category     string          `json:"category,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Unit         string          `json:"unit"`
	CurrentStock int             `json:"current_stock"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name         string          `json:"name"`
	SKU          string          `json:"sku,omitempty"`
	Category     string          `json:"category,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Unit         string          `json:"unit,omitempty"`
	InitialStock int             `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Name     *string          `json:"name,omitempty"`
	SKU      *string          `json:"sku,omitempty"`
	Category *string          `json:"category,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Unit     *string          `json:"unit,omitempty"`
}

type Receipt struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	FilePath     string     `json:"file_path"`
	Status       string     `json:"status"`
	Supplier     string     `json:"supplier,omitempty"`
	ReceiptDate  *time.Time `json:"receipt_date,omitempty"`
	RawText      string     `json:"raw_text,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	UploadedAt   time.Time  `json:"uploaded_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// ReceiptLine is one detected product entry within a receipt. A confidence
// score is present if and only if a matched product is present.
type ReceiptLine struct {
	ID                string           `json:"id"`
	ReceiptID         string           `json:"receipt_id"`
	RawText           string           `json:"raw_text"`
	DetectedName      string           `json:"detected_name"`
	DetectedQuantity  *decimal.Decimal `json:"detected_quantity,omitempty"`
	DetectedUnit      string           `json:"detected_unit,omitempty"`
	MatchedProductID  string           `json:"matched_product_id,omitempty"`
	ConfidenceScore   *float64         `json:"confidence_score,omitempty"`
	Validated         bool             `json:"validated"`
	NeedsReview       bool             `json:"needs_review"`
	ValidationNotes   string           `json:"validation_notes,omitempty"`
	CorrectedName     string           `json:"corrected_name,omitempty"`
	CorrectedQuantity *decimal.Decimal `json:"corrected_quantity,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// ResolvedQuantity is the quantity the apply step uses: the human correction
// when present, otherwise the parsed quantity.
func (l ReceiptLine) ResolvedQuantity() *decimal.Decimal {
	if l.CorrectedQuantity != nil {
		return l.CorrectedQuantity
	}
	return l.DetectedQuantity
}

// StockMovement is an append-only audit record of one stock change.
// NewStock - PreviousStock always equals the signed quantity truncated to
// whole units.
type StockMovement struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	ReceiptLineID string          `json:"receipt_line_id,omitempty"`
	Kind          string          `json:"kind"`
	Quantity      decimal.Decimal `json:"quantity"`
	PreviousStock int             `json:"previous_stock"`
	NewStock      int             `json:"new_stock"`
	Note          string          `json:"note,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type LineCorrections struct {
	MatchedProductID  *string          `json:"matched_product_id,omitempty"`
	CorrectedName     *string          `json:"corrected_name,omitempty"`
	CorrectedQuantity *decimal.Decimal `json:"corrected_quantity,omitempty"`
	ValidationNotes   *string          `json:"validation_notes,omitempty"`
}

type ProcessResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type ReceiptView struct {
	Receipt Receipt       `json:"receipt"`
	Lines   []ReceiptLine `json:"lines"`
}

type AppliedItem struct {
	ReceiptLineID string          `json:"receipt_line_id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	PreviousStock int             `json:"previous_stock"`
	NewStock      int             `json:"new_stock"`
}

type ApplyResponse struct {
	ReceiptID    string        `json:"receipt_id"`
	Status       string        `json:"status"`
	AppliedItems []AppliedItem `json:"applied_items"`
}

// StockApplication is one computed inventory delta, handed to the store to
// be applied atomically together with its sibling lines.
type StockApplication struct {
	ReceiptLineID string
	ProductID     string
	Quantity      decimal.Decimal
	Note          string
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SaleItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SaleCreateRequest struct {
	PaymentMethod string            `json:"payment_method"`
	Notes         string            `json:"notes,omitempty"`
	Items         []SaleItemRequest `json:"items"`
}

type SaleItem struct {
	ID        string          `json:"id"`
	SaleID    string          `json:"sale_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

type Sale struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []SaleItem      `json:"items"`
}

type StockAdjustmentRequest struct {
	ProductID  string `json:"product_id"`
	CountedQty int    `json:"counted_qty"`
	Note       string `json:"note,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Admin    bool   `json:"admin"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Email     string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type UserView struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type SystemLog struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
