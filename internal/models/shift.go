package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

// Shift is a cashier's working session. The reconciliation fields stay nil until close.
// idx_shifts_one_open_per_user keeps a single open shift per cashier at the store level.
type Shift struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_shifts_one_open_per_user,where:status = 'open'" json:"user_id"`
	Status         ShiftStatus      `gorm:"size:10;not null;index" json:"status"`
	OpeningBalance decimal.Decimal  `gorm:"type:numeric;not null" json:"opening_balance"`
	ClosingBalance *decimal.Decimal `gorm:"type:numeric" json:"closing_balance"`
	ExpectedCash   *decimal.Decimal `gorm:"type:numeric" json:"expected_cash"`
	ActualCash     *decimal.Decimal `gorm:"type:numeric" json:"actual_cash"`
	Difference     *decimal.Decimal `gorm:"type:numeric" json:"difference"` // actual - expected
	Notes          string           `gorm:"type:text" json:"notes"`
	OpenedAt       time.Time        `gorm:"not null;index" json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at"`
}

func (s *Shift) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
