package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceType string

const (
	InvoiceTypeSale     InvoiceType = "sale"
	InvoiceTypePurchase InvoiceType = "purchase"
	InvoiceTypeReturn   InvoiceType = "return"
)

type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodElectronic PaymentMethod = "electronic"
	PaymentMethodMixed      PaymentMethod = "mixed"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodElectronic, PaymentMethodMixed:
		return true
	}
	return false
}

// Invoice is append-only once committed. Totals satisfy
// TotalAmount = Subtotal + TaxAmount - DiscountAmount and ChangeAmount = PaidAmount - TotalAmount.
// Money columns are unbounded numeric so the exact computed values are stored;
// rounding to cents happens only on receipts and exports.
type Invoice struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber  string          `gorm:"size:32;uniqueIndex;not null" json:"invoice_number"`
	InvoiceType    InvoiceType     `gorm:"size:20;not null;index" json:"invoice_type"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	ShiftID        *uuid.UUID      `gorm:"type:uuid;index" json:"shift_id"` // nil when posted outside a shift
	Subtotal       decimal.Decimal `gorm:"type:numeric;not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric;not null" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric;not null" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric;not null" json:"total_amount"`
	PaymentMethod  PaymentMethod   `gorm:"size:20;not null;index" json:"payment_method"`
	PaidAmount     decimal.Decimal `gorm:"type:numeric;not null" json:"paid_amount"`
	ChangeAmount   decimal.Decimal `gorm:"type:numeric;not null" json:"change_amount"`
	Notes          string          `gorm:"type:text" json:"notes"`
	IsVoid         bool            `gorm:"not null;index" json:"is_void"`
	CreatedAt      time.Time       `gorm:"index;not null" json:"created_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// InvoiceItem is one priced cart line. ProductName is copied from the catalog at
// posting time so later renames do not rewrite history.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string          `gorm:"size:200;not null" json:"product_name"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric;not null" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:numeric;not null" json:"tax_rate"`
	TaxAmount   decimal.Decimal `gorm:"type:numeric;not null" json:"tax_amount"`
	Discount    decimal.Decimal `gorm:"type:numeric;not null" json:"discount"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric;not null" json:"total_price"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// InvoiceCounter holds the last invoice sequence handed out for a UTC day (YYYYMMDD).
// The row is incremented inside the posting transaction, so a rolled back posting
// also rolls back its number.
type InvoiceCounter struct {
	Day       string `gorm:"size:8;primaryKey"`
	LastSeq   int    `gorm:"not null"`
	UpdatedAt time.Time
}
