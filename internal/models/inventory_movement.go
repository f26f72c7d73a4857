package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementPurchase   MovementType = "purchase"
	MovementAdjustment MovementType = "adjustment"
	MovementDamage     MovementType = "damage"
)

// InventoryMovement is the immutable audit record of one stock change.
// NewQuantity = PreviousQuantity + Quantity; Quantity is negative for outgoing stock.
type InventoryMovement struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	MovementType     MovementType    `gorm:"size:20;not null;index" json:"movement_type"`
	Quantity         decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	PreviousQuantity decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"previous_quantity"`
	NewQuantity      decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"new_quantity"`
	ReferenceID      *uuid.UUID      `gorm:"type:uuid;index" json:"reference_id"` // invoice id for sales
	UserID           *uuid.UUID      `gorm:"type:uuid" json:"user_id"`
	Notes            string          `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time       `gorm:"index;not null" json:"created_at"`
}

func (m *InventoryMovement) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
