package report

import (
	"bytes"
	"fmt"

	"market-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	invoicesSheet = "Invoices"
	summarySheet  = "Summary"
)

// BuildSalesWorkbook writes the invoice list and the report totals into an xlsx file.
func BuildSalesWorkbook(r *SalesReport, invoices []models.Invoice) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoicesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	header := []interface{}{"Invoice No", "Date", "Payment", "Subtotal", "Tax", "Discount", "Total", "Paid", "Change"}
	if err := f.SetSheetRow(invoicesSheet, "A1", &header); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(invoicesSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, inv := range invoices {
		row := []interface{}{
			inv.InvoiceNumber,
			inv.CreatedAt.Format("2006-01-02 15:04"),
			string(inv.PaymentMethod),
			inv.Subtotal.InexactFloat64(),
			inv.TaxAmount.InexactFloat64(),
			inv.DiscountAmount.InexactFloat64(),
			inv.TotalAmount.InexactFloat64(),
			inv.PaidAmount.InexactFloat64(),
			inv.ChangeAmount.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(invoicesSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(invoicesSheet, "A", "B", 20)

	summary := [][]interface{}{
		{"Period", fmt.Sprintf("%s - %s", r.StartDate, r.EndDate)},
		{"Invoices", r.TotalInvoices},
		{"Total sales", r.TotalSales.StringFixed(2)},
		{"Cash", r.CashSales.StringFixed(2)},
		{"Card", r.CardSales.StringFixed(2)},
		{"Electronic", r.ElectronicSales.StringFixed(2)},
		{"Mixed", r.MixedSales.StringFixed(2)},
		{"Tax collected", r.TaxCollected.StringFixed(2)},
		{"Discounts", r.DiscountGiven.StringFixed(2)},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "B", 22)

	return f.WriteToBuffer()
}
