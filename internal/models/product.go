package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. StockQuantity is counted in whole units and is only
// changed by invoice posting and stock adjustments, both of which lock the row first.
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Barcode       string          `gorm:"size:64;uniqueIndex;not null" json:"barcode"`
	Name          string          `gorm:"size:200;not null;index" json:"name"`
	NameEn        string          `gorm:"size:200" json:"name_en"`
	Description   string          `gorm:"type:text" json:"description"`
	CategoryID    *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	CostPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"cost_price"`
	SellingPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"selling_price"`
	StockQuantity int             `gorm:"not null" json:"stock_quantity"`
	MinStockLevel int             `gorm:"not null" json:"min_stock_level"`
	Unit          string          `gorm:"size:20;not null" json:"unit"`
	TaxRate       decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_rate"` // percentage, 10 = 10%
	ImageURL      string          `gorm:"size:255" json:"image_url"`
	IsActive      bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// IsLowStock reports whether the product reached its reorder threshold.
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}
