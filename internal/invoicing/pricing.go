package invoicing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PricedLine is the result of pricing one cart line.
type PricedLine struct {
	Net   decimal.Decimal // unit_price * quantity
	Tax   decimal.Decimal // net * tax_rate / 100
	Total decimal.Decimal // net + tax - discount
}

// PriceLine prices a single line. Arithmetic is exact; nothing is rounded here.
func PriceLine(unitPrice, quantity, taxRate, discount decimal.Decimal) PricedLine {
	net := unitPrice.Mul(quantity)
	tax := net.Mul(taxRate).Div(hundred)
	return PricedLine{
		Net:   net,
		Tax:   tax,
		Total: net.Add(tax).Sub(discount),
	}
}

// Totals is the invoice-level aggregation of priced lines.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Paid     decimal.Decimal
	Change   decimal.Decimal
}

func ComputeTotals(lines []PricedLine, discount, paid decimal.Decimal) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Net)
		tax = tax.Add(l.Tax)
	}

	total := subtotal.Add(tax).Sub(discount)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    total,
		Paid:     paid,
		Change:   paid.Sub(total),
	}
}
