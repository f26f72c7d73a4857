package invoicing

import (
	"fmt"
	"time"

	"market-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const invoiceNumberPrefix = "INV"

func invoiceDay(t time.Time) string {
	return t.UTC().Format("20060102")
}

// FormatInvoiceNumber renders INV-YYYYMMDD-NNNN for the UTC day of t.
func FormatInvoiceNumber(t time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", invoiceNumberPrefix, invoiceDay(t), seq)
}

// nextInvoiceSequence hands out the next 1-based sequence for the day of now.
// The counter row stays locked by the UPDATE until tx ends, so concurrent postings
// on the same day queue behind each other and a rollback returns the number.
func nextInvoiceSequence(tx *gorm.DB, now time.Time) (int, error) {
	day := invoiceDay(now)

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoNothing: true,
	}).Create(&models.InvoiceCounter{Day: day}).Error; err != nil {
		return 0, fmt.Errorf("create invoice counter: %w", err)
	}

	res := tx.Model(&models.InvoiceCounter{}).
		Where("day = ?", day).
		UpdateColumn("last_seq", gorm.Expr("last_seq + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("increment invoice counter: %w", res.Error)
	}

	var counter models.InvoiceCounter
	if err := tx.First(&counter, "day = ?", day).Error; err != nil {
		return 0, fmt.Errorf("read invoice counter: %w", err)
	}
	return counter.LastSeq, nil
}
