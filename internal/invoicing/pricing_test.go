package invoicing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPriceLine(t *testing.T) {
	line := PriceLine(d("10.00"), d("2"), d("10"), d("0"))

	assert.True(t, line.Net.Equal(d("20")))
	assert.True(t, line.Tax.Equal(d("2")))
	assert.True(t, line.Total.Equal(d("22")))
}

func TestPriceLineWithDiscount(t *testing.T) {
	line := PriceLine(d("3.50"), d("3"), d("18"), d("1.00"))

	assert.Equal(t, "10.5", line.Net.String())
	assert.Equal(t, "1.89", line.Tax.String())
	assert.Equal(t, "11.39", line.Total.String())
}

func TestComputeTotals(t *testing.T) {
	lines := []PricedLine{
		PriceLine(d("10.00"), d("2"), d("10"), d("0")),
	}

	totals := ComputeTotals(lines, d("0"), d("22.00"))

	assert.Equal(t, "20", totals.Subtotal.String())
	assert.Equal(t, "2", totals.Tax.String())
	assert.Equal(t, "22", totals.Total.String())
	assert.True(t, totals.Change.IsZero())
}

func TestComputeTotalsHasNoFloatDrift(t *testing.T) {
	var lines []PricedLine
	for i := 0; i < 10; i++ {
		lines = append(lines, PriceLine(d("0.10"), d("1"), d("0"), d("0")))
	}

	totals := ComputeTotals(lines, d("0.30"), d("1"))

	assert.Equal(t, "1", totals.Subtotal.String())
	assert.Equal(t, "0.7", totals.Total.String())
	assert.Equal(t, "0.3", totals.Change.String())
	assert.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.Tax).Sub(totals.Discount)))
}

func TestComputeTotalsUnderpaidGivesNegativeChange(t *testing.T) {
	lines := []PricedLine{PriceLine(d("5"), d("1"), d("0"), d("0"))}

	totals := ComputeTotals(lines, d("0"), d("3"))

	assert.Equal(t, "-2", totals.Change.String())
}

func TestFormatInvoiceNumber(t *testing.T) {
	ts := time.Date(2024, 3, 7, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "INV-20240307-0001", FormatInvoiceNumber(ts, 1))
	assert.Equal(t, "INV-20240307-0042", FormatInvoiceNumber(ts, 42))
	assert.Equal(t, "INV-20240307-12345", FormatInvoiceNumber(ts, 12345))
}

func TestFormatInvoiceNumberUsesUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2024, 3, 8, 1, 0, 0, 0, loc) // 2024-03-07 22:00 UTC

	assert.Equal(t, "INV-20240307-0001", FormatInvoiceNumber(ts, 1))
}
