package invoicing

import (
	"bytes"
	"fmt"

	"market-backend/internal/models"

	"github.com/jung-kurt/gofpdf/v2"
)

// RenderReceipt draws an 80mm till receipt for inv.
func RenderReceipt(storeName string, inv *models.Invoice) ([]byte, error) {
	height := 90.0 + float64(len(inv.Items))*10
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: 80, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(72, 7, tr(storeName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(72, 4, inv.InvoiceNumber, "", 1, "C", false, 0, "")
	pdf.CellFormat(72, 4, inv.CreatedAt.Format("02-Jan-2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(36, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(10, 5, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(12, 5, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(14, 5, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 8)
	for _, it := range inv.Items {
		name := it.ProductName
		if len(name) > 24 {
			name = name[:24]
		}
		pdf.CellFormat(36, 5, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(10, 5, it.Quantity.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(12, 5, it.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(14, 5, it.TotalPrice.StringFixed(2), "", 1, "R", false, 0, "")
		if it.Discount.IsPositive() {
			pdf.CellFormat(58, 4, fmt.Sprintf("  discount -%s", it.Discount.StringFixed(2)), "", 0, "L", false, 0, "")
			pdf.CellFormat(14, 4, "", "", 1, "R", false, 0, "")
		}
	}
	pdf.Ln(1)

	row := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 8)
		pdf.CellFormat(50, 5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(22, 5, value, "", 1, "R", false, 0, "")
	}

	row("Subtotal", inv.Subtotal.StringFixed(2), false)
	row("Tax", inv.TaxAmount.StringFixed(2), false)
	if inv.DiscountAmount.IsPositive() {
		row("Discount", "-"+inv.DiscountAmount.StringFixed(2), false)
	}
	row("TOTAL", inv.TotalAmount.StringFixed(2), true)
	row(fmt.Sprintf("Paid (%s)", inv.PaymentMethod), inv.PaidAmount.StringFixed(2), false)
	row("Change", inv.ChangeAmount.StringFixed(2), false)

	pdf.Ln(3)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(72, 4, "Thank you for your purchase", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
