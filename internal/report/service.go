package report

import (
	"context"
	"fmt"
	"time"

	"market-backend/internal/cache"
	"market-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalSalesToday    decimal.Decimal `json:"total_sales_today"`
	TotalInvoicesToday int64           `json:"total_invoices_today"`
	TotalProducts      int64           `json:"total_products"`
	LowStockProducts   int64           `json:"low_stock_products"`
	ActiveShifts       int64           `json:"active_shifts"`
}

type SalesReport struct {
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	TotalInvoices   int             `json:"total_invoices"`
	CashSales       decimal.Decimal `json:"cash_sales"`
	CardSales       decimal.Decimal `json:"card_sales"`
	ElectronicSales decimal.Decimal `json:"electronic_sales"`
	MixedSales      decimal.Decimal `json:"mixed_sales"`
	TaxCollected    decimal.Decimal `json:"tax_collected"`
	DiscountGiven   decimal.Decimal `json:"discount_given"`
}

type Service struct {
	db       *gorm.DB
	cacheTTL time.Duration
	now      func() time.Time
}

func NewService(db *gorm.DB, cacheTTL time.Duration) *Service {
	return &Service{db: db, cacheTTL: cacheTTL, now: func() time.Time { return time.Now().UTC() }}
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Dashboard returns today's figures, served from redis when a fresh copy exists.
// Posting and stock adjustments drop the cached copy.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	today := dayStart(s.now())
	key := fmt.Sprintf(cache.DashboardStatsKeyFmt, today.Format("20060102"))

	var cached DashboardStats
	if cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	db := s.db.WithContext(ctx)
	var stats DashboardStats

	var totals []decimal.Decimal
	if err := db.Model(&models.Invoice{}).
		Where("created_at >= ? AND invoice_type = ? AND is_void = ?", today, models.InvoiceTypeSale, false).
		Pluck("total_amount", &totals).Error; err != nil {
		return nil, fmt.Errorf("today's sales: %w", err)
	}
	stats.TotalSalesToday = decimal.Zero
	for _, t := range totals {
		stats.TotalSalesToday = stats.TotalSalesToday.Add(t)
	}
	stats.TotalInvoicesToday = int64(len(totals))

	if err := db.Model(&models.Product{}).Where("is_active = ?", true).Count(&stats.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if err := db.Model(&models.Product{}).
		Where("is_active = ? AND stock_quantity <= min_stock_level", true).
		Count(&stats.LowStockProducts).Error; err != nil {
		return nil, fmt.Errorf("count low stock: %w", err)
	}
	if err := db.Model(&models.Shift{}).Where("status = ?", models.ShiftOpen).Count(&stats.ActiveShifts).Error; err != nil {
		return nil, fmt.Errorf("count open shifts: %w", err)
	}

	cache.SetJSON(ctx, key, stats, s.cacheTTL)
	return &stats, nil
}

// SalesInvoices returns the non-void sales created in [from, to).
func (s *Service) SalesInvoices(ctx context.Context, from, to time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ? AND invoice_type = ? AND is_void = ?",
			from, to, models.InvoiceTypeSale, false).
		Order("created_at asc").
		Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("sales invoices: %w", err)
	}
	return invoices, nil
}

// Sales aggregates the sales between two calendar days, both inclusive.
func (s *Service) Sales(ctx context.Context, start, end time.Time) (*SalesReport, []models.Invoice, error) {
	invoices, err := s.SalesInvoices(ctx, dayStart(start), dayStart(end).AddDate(0, 0, 1))
	if err != nil {
		return nil, nil, err
	}
	return Summarize(start, end, invoices), invoices, nil
}

func Summarize(start, end time.Time, invoices []models.Invoice) *SalesReport {
	r := &SalesReport{
		StartDate:       start.Format("2006-01-02"),
		EndDate:         end.Format("2006-01-02"),
		TotalSales:      decimal.Zero,
		TotalInvoices:   len(invoices),
		CashSales:       decimal.Zero,
		CardSales:       decimal.Zero,
		ElectronicSales: decimal.Zero,
		MixedSales:      decimal.Zero,
		TaxCollected:    decimal.Zero,
		DiscountGiven:   decimal.Zero,
	}

	for _, inv := range invoices {
		r.TotalSales = r.TotalSales.Add(inv.TotalAmount)
		r.TaxCollected = r.TaxCollected.Add(inv.TaxAmount)
		r.DiscountGiven = r.DiscountGiven.Add(inv.DiscountAmount)

		switch inv.PaymentMethod {
		case models.PaymentMethodCash:
			r.CashSales = r.CashSales.Add(inv.TotalAmount)
		case models.PaymentMethodCard:
			r.CardSales = r.CardSales.Add(inv.TotalAmount)
		case models.PaymentMethodElectronic:
			r.ElectronicSales = r.ElectronicSales.Add(inv.TotalAmount)
		case models.PaymentMethodMixed:
			r.MixedSales = r.MixedSales.Add(inv.TotalAmount)
		}
	}
	return r
}
