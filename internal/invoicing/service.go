package invoicing

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
	"market-backend/internal/metrics"
	"market-backend/internal/models"
	"market-backend/internal/shift"

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

// LineInput is one cart line. UnitPrice and TaxRate fall back to the product's
// selling price and tax rate when nil.
type LineInput struct {
	ProductID uuid.UUID        `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
	Discount  decimal.Decimal  `json:"discount"`
}

type PostInvoiceInput struct {
	Cashier        auth.Identity
	InvoiceType    models.InvoiceType
	Lines          []LineInput
	PaymentMethod  models.PaymentMethod
	PaidAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	CustomerID     *uuid.UUID
	Notes          string
	IPAddress      string
}

type ListFilter struct {
	InvoiceType models.InvoiceType
	ShiftID     *uuid.UUID
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// PostInvoice validates, prices and persists a sale in one transaction: the
// invoice, its items, the stock decrements and the inventory movements commit
// together or not at all.
func (s *Service) PostInvoice(ctx context.Context, in PostInvoiceInput) (*models.Invoice, error) {
	inv, err := s.postInvoice(ctx, in)
	if err != nil {
		metrics.InvoicePostFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	metrics.InvoicesPosted.Inc()
	total, _ := inv.TotalAmount.Float64()
	metrics.InvoiceTotalAmount.Observe(total)
	cache.Delete(ctx, fmt.Sprintf(cache.DashboardStatsKeyFmt, invoiceDay(inv.CreatedAt)))

	log.Printf("[Invoice] %s posted %s total %s (%s)",
		in.Cashier.Username, inv.InvoiceNumber, inv.TotalAmount.StringFixed(2), inv.PaymentMethod)
	return inv, nil
}

func (s *Service) postInvoice(ctx context.Context, in PostInvoiceInput) (*models.Invoice, error) {
	if in.InvoiceType == "" {
		in.InvoiceType = models.InvoiceTypeSale
	}
	if in.InvoiceType != models.InvoiceTypeSale {
		return nil, ErrUnsupportedInvoiceType
	}
	if !in.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if len(in.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Taken before the product locks, in the same order as CloseShift, so a
		// concurrent close either waits for this posting or hides the shift from it.
		openShift, err := shift.LockOpenShift(tx, in.Cashier.UserID)
		if err != nil {
			return err
		}

		products, err := lockProducts(tx, in.Lines)
		if err != nil {
			return err
		}

		if err := checkStock(in.Lines, products); err != nil {
			return err
		}

		items, priced, err := priceLines(in.Lines, products)
		if err != nil {
			return err
		}

		if in.DiscountAmount.IsNegative() {
			return fmt.Errorf("%w: invoice discount is negative", ErrInvalidDiscount)
		}
		if in.PaidAmount.IsNegative() {
			return ErrInvalidPaidAmount
		}
		totals := ComputeTotals(priced, in.DiscountAmount, in.PaidAmount)
		if in.DiscountAmount.GreaterThan(totals.Subtotal.Add(totals.Tax)) {
			return fmt.Errorf("%w: invoice discount exceeds the gross amount", ErrInvalidDiscount)
		}

		if in.CustomerID != nil {
			var n int64
			if err := tx.Model(&models.Customer{}).
				Where("id = ? AND is_active = ?", *in.CustomerID, true).
				Count(&n).Error; err != nil {
				return fmt.Errorf("check customer: %w", err)
			}
			if n == 0 {
				return ErrCustomerNotFound
			}
		} else if totals.Change.IsNegative() {
			// underpayment is only accepted on account
			return ErrUnderpaid
		}

		now := s.now()
		seq, err := nextInvoiceSequence(tx, now)
		if err != nil {
			return err
		}

		inv = &models.Invoice{
			InvoiceNumber:  FormatInvoiceNumber(now, seq),
			InvoiceType:    in.InvoiceType,
			UserID:         in.Cashier.UserID,
			CustomerID:     in.CustomerID,
			Subtotal:       totals.Subtotal,
			TaxAmount:      totals.Tax,
			DiscountAmount: totals.Discount,
			TotalAmount:    totals.Total,
			PaymentMethod:  in.PaymentMethod,
			PaidAmount:     totals.Paid,
			ChangeAmount:   totals.Change,
			Notes:          strings.TrimSpace(in.Notes),
			CreatedAt:      now,
			Items:          items,
		}
		if openShift != nil {
			inv.ShiftID = &openShift.ID
		}

		if err := tx.Create(inv).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		if err := applyStockMovements(tx, inv, products, now); err != nil {
			return err
		}

		return audit.Write(tx, audit.LogOptions{
			UserID:      in.Cashier.UserID,
			UserName:    in.Cashier.Username,
			EntityType:  "invoice",
			EntityID:    inv.ID.String(),
			Action:      models.AuditActionPost,
			Description: fmt.Sprintf("Invoice %s posted, total %s", inv.InvoiceNumber, inv.TotalAmount.StringFixed(2)),
			After:       inv,
			IPAddress:   in.IPAddress,
		})
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// lockProducts loads every active product in the cart with a row lock. Rows are
// locked in id order so two postings over overlapping carts cannot deadlock.
func lockProducts(tx *gorm.DB, lines []LineInput) (map[uuid.UUID]*models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}

	var rows []models.Product
	if err := lockedProductsQuery(tx, ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	products := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		products[rows[i].ID] = &rows[i]
	}
	for _, id := range ids {
		if products[id] == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
	}
	return products, nil
}

func lockedProductsQuery(tx *gorm.DB, ids []uuid.UUID) *gorm.DB {
	return database.ForUpdate(tx).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("id")
}

// checkStock compares the summed requested quantity per product with the locked stock.
func checkStock(lines []LineInput, products map[uuid.UUID]*models.Product) error {
	requested := make(map[uuid.UUID]decimal.Decimal, len(products))
	for _, l := range lines {
		requested[l.ProductID] = requested[l.ProductID].Add(l.Quantity)
	}
	for _, l := range lines {
		p := products[l.ProductID]
		want := requested[l.ProductID]
		if want.GreaterThan(decimal.NewFromInt(int64(p.StockQuantity))) {
			return &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   int(want.Ceil().IntPart()),
				Available:   p.StockQuantity,
			}
		}
	}
	return nil
}

func priceLines(lines []LineInput, products map[uuid.UUID]*models.Product) ([]models.InvoiceItem, []PricedLine, error) {
	items := make([]models.InvoiceItem, 0, len(lines))
	priced := make([]PricedLine, 0, len(lines))

	for _, l := range lines {
		p := products[l.ProductID]

		if !l.Quantity.IsPositive() {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, p.Name)
		}
		if !l.Quantity.Equal(l.Quantity.Truncate(0)) {
			return nil, nil, fmt.Errorf("%w: %s", ErrFractionalQuantity, p.Name)
		}

		unitPrice := p.SellingPrice
		if l.UnitPrice != nil {
			unitPrice = *l.UnitPrice
		}
		taxRate := p.TaxRate
		if l.TaxRate != nil {
			taxRate = *l.TaxRate
		}
		if unitPrice.IsNegative() || taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidPrice, p.Name)
		}

		line := PriceLine(unitPrice, l.Quantity, taxRate, l.Discount)
		if l.Discount.IsNegative() || l.Discount.GreaterThan(line.Net.Add(line.Tax)) {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidDiscount, p.Name)
		}

		priced = append(priced, line)
		items = append(items, models.InvoiceItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			UnitPrice:   unitPrice,
			TaxRate:     taxRate,
			TaxAmount:   line.Tax,
			Discount:    l.Discount,
			TotalPrice:  line.Total,
		})
	}
	return items, priced, nil
}

// applyStockMovements decrements stock per item and records one sale movement each.
// products holds the locked rows and is updated in place, so repeated lines see
// the stock left by the previous one.
func applyStockMovements(tx *gorm.DB, inv *models.Invoice, products map[uuid.UUID]*models.Product, now time.Time) error {
	for _, item := range inv.Items {
		p := products[item.ProductID]
		qty := int(item.Quantity.IntPart())
		previous := p.StockQuantity
		p.StockQuantity = previous - qty

		if err := tx.Model(&models.Product{}).
			Where("id = ?", p.ID).
			UpdateColumns(map[string]any{
				"stock_quantity": p.StockQuantity,
				"updated_at":     now,
			}).Error; err != nil {
			return fmt.Errorf("update stock for %s: %w", p.Name, err)
		}

		invoiceID := inv.ID
		cashierID := inv.UserID
		mv := models.InventoryMovement{
			ProductID:        p.ID,
			MovementType:     models.MovementSale,
			Quantity:         decimal.NewFromInt(int64(-qty)),
			PreviousQuantity: decimal.NewFromInt(int64(previous)),
			NewQuantity:      decimal.NewFromInt(int64(p.StockQuantity)),
			ReferenceID:      &invoiceID,
			UserID:           &cashierID,
			Notes:            "Sale invoice " + inv.InvoiceNumber,
			CreatedAt:        now,
		}
		if err := tx.Create(&mv).Error; err != nil {
			return fmt.Errorf("record movement for %s: %w", p.Name, err)
		}
	}
	return nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Preload("Items").First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// ListInvoices returns non-void invoices, newest first.
func (s *Service) ListInvoices(ctx context.Context, f ListFilter) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("is_void = ?", false)
	if f.InvoiceType != "" {
		q = q.Where("invoice_type = ?", f.InvoiceType)
	}
	if f.ShiftID != nil {
		q = q.Where("shift_id = ?", *f.ShiftID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var invoices []models.Invoice
	if err := q.Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}
