package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"market-backend/internal/audit"
	"market-backend/internal/auth"
	"market-backend/internal/cache"
	"market-backend/internal/database"
	"market-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInvalidMovementType = errors.New("movement type must be purchase, adjustment or damage")
	ErrInvalidQuantity     = errors.New("invalid quantity for this movement type")
	ErrNegativeStock       = errors.New("stock cannot go below zero")
)

// AdjustmentInput changes stock outside of a sale. Purchase and damage take a
// positive count (added and removed respectively); adjustment takes a signed delta.
type AdjustmentInput struct {
	ProductID    uuid.UUID           `json:"product_id"`
	MovementType models.MovementType `json:"movement_type"`
	Quantity     int                 `json:"quantity"`
	Notes        string              `json:"notes"`
}

type StockService struct {
	db *gorm.DB
}

func NewStockService(db *gorm.DB) *StockService {
	return &StockService{db: db}
}

func signedDelta(in AdjustmentInput) (int, error) {
	switch in.MovementType {
	case models.MovementPurchase:
		if in.Quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
		return in.Quantity, nil
	case models.MovementDamage:
		if in.Quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
		return -in.Quantity, nil
	case models.MovementAdjustment:
		if in.Quantity == 0 {
			return 0, ErrInvalidQuantity
		}
		return in.Quantity, nil
	}
	return 0, ErrInvalidMovementType
}

// Adjust applies one stock movement under the same row lock the posting engine uses.
func (s *StockService) Adjust(ctx context.Context, actor auth.Identity, in AdjustmentInput) (*models.InventoryMovement, error) {
	delta, err := signedDelta(in)
	if err != nil {
		return nil, err
	}

	var mv models.InventoryMovement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := database.ForUpdate(tx).First(&p, "id = ?", in.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		previous := p.StockQuantity
		next := previous + delta
		if next < 0 {
			return fmt.Errorf("%w: %s has %d", ErrNegativeStock, p.Name, previous)
		}

		if err := tx.Model(&p).UpdateColumns(map[string]any{
			"stock_quantity": next,
			"updated_at":     time.Now().UTC(),
		}).Error; err != nil {
			return fmt.Errorf("update stock: %w", err)
		}

		mv = models.InventoryMovement{
			ProductID:        p.ID,
			MovementType:     in.MovementType,
			Quantity:         decimal.NewFromInt(int64(delta)),
			PreviousQuantity: decimal.NewFromInt(int64(previous)),
			NewQuantity:      decimal.NewFromInt(int64(next)),
			UserID:           &actor.UserID,
			Notes:            strings.TrimSpace(in.Notes),
		}
		if err := tx.Create(&mv).Error; err != nil {
			return fmt.Errorf("record movement: %w", err)
		}

		return audit.Write(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Username,
			EntityType:  "product",
			EntityID:    p.ID.String(),
			Action:      models.AuditActionAdjust,
			Description: fmt.Sprintf("Stock %s for %s: %d -> %d", in.MovementType, p.Name, previous, next),
			After:       mv,
		})
	})
	if err != nil {
		return nil, err
	}

	cache.Delete(ctx, fmt.Sprintf(cache.DashboardStatsKeyFmt, time.Now().UTC().Format("20060102")))
	log.Printf("[Inventory] %s %s %+d on %s", actor.Username, mv.MovementType, delta, mv.ProductID)
	return &mv, nil
}

type MovementFilter struct {
	ProductID    *uuid.UUID
	MovementType models.MovementType
	Limit        int
	Offset       int
}

func (s *StockService) ListMovements(ctx context.Context, f MovementFilter) ([]models.InventoryMovement, error) {
	q := s.db.WithContext(ctx).Model(&models.InventoryMovement{})
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.MovementType != "" {
		q = q.Where("movement_type = ?", f.MovementType)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var moves []models.InventoryMovement
	if err := q.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&moves).Error; err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return moves, nil
}

// LowStock returns active products at or below their reorder threshold.
func (s *StockService) LowStock(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND stock_quantity <= min_stock_level", true).
		Order("stock_quantity asc, name asc").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	return products, nil
}
