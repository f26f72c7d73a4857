package shift

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"market-backend/internal/audit"
	"market-backend/internal/auth"
	"market-backend/internal/database"
	"market-backend/internal/metrics"
	"market-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Summary is a shift together with the cash figures derived from its invoices.
// ExpectedCash is live for open shifts and the stored value for closed ones.
type Summary struct {
	Shift        models.Shift    `json:"shift"`
	InvoiceCount int64           `json:"invoice_count"`
	CashSales    decimal.Decimal `json:"cash_sales"`
	NonCashSales decimal.Decimal `json:"non_cash_sales"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
}

type ListFilter struct {
	UserID *uuid.UUID
	Status models.ShiftStatus
	Limit  int
	Offset int
}

// OpenShift starts a shift for actor. The user row is locked first, so two
// concurrent opens for the same cashier run one after the other.
func (s *Service) OpenShift(ctx context.Context, actor auth.Identity, openingBalance decimal.Decimal, notes string) (*models.Shift, error) {
	if openingBalance.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var sh models.Shift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := database.ForUpdate(tx).Select("id").First(&user, "id = ?", actor.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCashierNotFound
			}
			return fmt.Errorf("lock cashier: %w", err)
		}

		var open int64
		if err := tx.Model(&models.Shift{}).
			Where("user_id = ? AND status = ?", actor.UserID, models.ShiftOpen).
			Count(&open).Error; err != nil {
			return fmt.Errorf("count open shifts: %w", err)
		}
		if open > 0 {
			return ErrShiftAlreadyOpen
		}

		sh = models.Shift{
			UserID:         actor.UserID,
			Status:         models.ShiftOpen,
			OpeningBalance: openingBalance,
			Notes:          strings.TrimSpace(notes),
			OpenedAt:       s.now(),
		}
		if err := tx.Create(&sh).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrShiftAlreadyOpen
			}
			return fmt.Errorf("create shift: %w", err)
		}

		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "shift",
			EntityID:    sh.ID.String(),
			Action:      models.AuditActionOpen,
			Description: fmt.Sprintf("Shift opened with %s", openingBalance.StringFixed(2)),
			After:       sh,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Shift] %s opened shift %s", actor.Username, sh.ID)
	return &sh, nil
}

// CloseShift reconciles and closes shiftID. Only the owning cashier may close it.
// The shift row is locked before the cash sum is taken; postings that hold it in
// share mode finish first, later ones no longer see the shift as open.
func (s *Service) CloseShift(ctx context.Context, actor auth.Identity, shiftID uuid.UUID, actualCash decimal.Decimal, notes string) (*models.Shift, error) {
	if actualCash.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var sh models.Shift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := shiftForCloseQuery(tx, shiftID).First(&sh).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShiftNotFound
			}
			return fmt.Errorf("lock shift: %w", err)
		}
		if sh.UserID != actor.UserID {
			return ErrUnauthorized
		}
		if sh.Status == models.ShiftClosed {
			return ErrShiftAlreadyClosed
		}

		before := sh

		cashSales, err := cashTotal(tx, sh.ID)
		if err != nil {
			return err
		}
		expected := sh.OpeningBalance.Add(cashSales)
		difference := actualCash.Sub(expected)
		closedAt := s.now()

		sh.Status = models.ShiftClosed
		sh.ExpectedCash = &expected
		sh.ActualCash = &actualCash
		sh.ClosingBalance = &actualCash
		sh.Difference = &difference
		sh.ClosedAt = &closedAt
		if n := strings.TrimSpace(notes); n != "" {
			if sh.Notes != "" {
				sh.Notes += "\n"
			}
			sh.Notes += n
		}

		if err := tx.Save(&sh).Error; err != nil {
			return fmt.Errorf("save shift: %w", err)
		}

		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "shift",
			EntityID:    sh.ID.String(),
			Action:      models.AuditActionClose,
			Description: fmt.Sprintf("Shift closed, expected %s, counted %s, difference %s",
				expected.StringFixed(2), actualCash.StringFixed(2), difference.StringFixed(2)),
			Before: before,
			After:  sh,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.ShiftsClosed.Inc()
	diff, _ := sh.Difference.Float64()
	metrics.ShiftCashDifference.Observe(diff)
	if !sh.Difference.IsZero() {
		log.Printf("[Shift] %s closed shift %s with difference %s", actor.Username, sh.ID, sh.Difference.StringFixed(2))
	}
	return &sh, nil
}

// GetOpenShift returns the cashier's open shift, or nil when there is none.
func (s *Service) GetOpenShift(ctx context.Context, cashierID uuid.UUID) (*models.Shift, error) {
	var sh models.Shift
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", cashierID, models.ShiftOpen).
		First(&sh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open shift: %w", err)
	}
	return &sh, nil
}

// LockOpenShift is GetOpenShift for use inside a posting transaction: the row is
// held in share mode until tx ends so the shift cannot close underneath the posting.
func LockOpenShift(tx *gorm.DB, cashierID uuid.UUID) (*models.Shift, error) {
	var sh models.Shift
	err := openShiftQuery(tx, cashierID).First(&sh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock open shift: %w", err)
	}
	return &sh, nil
}

func openShiftQuery(tx *gorm.DB, cashierID uuid.UUID) *gorm.DB {
	return database.ForShare(tx).Where("user_id = ? AND status = ?", cashierID, models.ShiftOpen)
}

// shiftForCloseQuery holds the shift exclusively until the close commits.
func shiftForCloseQuery(tx *gorm.DB, shiftID uuid.UUID) *gorm.DB {
	return database.ForUpdate(tx).Where("id = ?", shiftID)
}

func (s *Service) GetShift(ctx context.Context, id uuid.UUID) (*Summary, error) {
	db := s.db.WithContext(ctx)

	var sh models.Shift
	if err := db.First(&sh, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("get shift: %w", err)
	}

	var count int64
	if err := db.Model(&models.Invoice{}).
		Where("shift_id = ? AND is_void = ?", sh.ID, false).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count shift invoices: %w", err)
	}

	cashSales, err := cashTotal(db, sh.ID)
	if err != nil {
		return nil, err
	}

	var others []decimal.Decimal
	if err := db.Model(&models.Invoice{}).
		Where("shift_id = ? AND payment_method <> ? AND is_void = ?", sh.ID, models.PaymentMethodCash, false).
		Pluck("total_amount", &others).Error; err != nil {
		return nil, fmt.Errorf("sum non-cash invoices: %w", err)
	}

	expected := sh.OpeningBalance.Add(cashSales)
	if sh.ExpectedCash != nil {
		expected = *sh.ExpectedCash
	}

	return &Summary{
		Shift:        sh,
		InvoiceCount: count,
		CashSales:    cashSales,
		NonCashSales: sum(others),
		ExpectedCash: expected,
	}, nil
}

func (s *Service) ListShifts(ctx context.Context, f ListFilter) ([]models.Shift, error) {
	q := s.db.WithContext(ctx).Model(&models.Shift{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var shifts []models.Shift
	if err := q.Order("opened_at DESC").Limit(limit).Offset(f.Offset).Find(&shifts).Error; err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	return shifts, nil
}

// cashTotal sums the cash, non-void invoices attributed to the shift.
func cashTotal(db *gorm.DB, shiftID uuid.UUID) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	if err := db.Model(&models.Invoice{}).
		Where("shift_id = ? AND payment_method = ? AND is_void = ?", shiftID, models.PaymentMethodCash, false).
		Pluck("total_amount", &totals).Error; err != nil {
		return decimal.Zero, fmt.Errorf("sum cash invoices: %w", err)
	}
	return sum(totals), nil
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
