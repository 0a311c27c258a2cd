package invoice

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// Line computes the per-row values. Rows are independent of each other.
func Line(li LineItem) LineBreakdown {
	base := li.Quantity.Mul(li.UnitPrice)
	taxable := base.Sub(li.DiscountAmount)
	tax := taxable.Mul(li.TaxPercent).Div(hundred)
	return LineBreakdown{
		Base:         base,
		TaxableValue: taxable,
		TaxValue:     tax,
		Amount:       taxable.Add(tax),
	}
}

// Compute derives the invoice totals from the line items and settings.
// It never fails; inputs are expected to be validated at the edge.
func Compute(items []LineItem, settings Settings) Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	tax := decimal.Zero
	for _, it := range items {
		line := Line(it)
		subtotal = subtotal.Add(line.Base)
		discount = discount.Add(it.DiscountAmount)
		tax = tax.Add(line.TaxValue)
	}
	taxable := subtotal.Sub(discount)
	raw := taxable.Add(tax)

	var total, adjustment decimal.Decimal
	if settings.RoundingMode == RoundingManual {
		adjustment = settings.ManualRoundingValue
		total = raw.Add(adjustment)
	} else {
		total = roundHalfUp(raw)
		adjustment = total.Sub(raw)
	}

	return Totals{
		Subtotal:           subtotal,
		TotalDiscount:      discount,
		TaxableAmount:      taxable,
		TotalTax:           tax,
		RawTotal:           raw,
		Total:              total,
		RoundingAdjustment: adjustment,
		BalanceDue:         total.Sub(settings.AmountPaid),
	}
}

// DiscountFromPercent converts a percentage discount on base into an absolute amount.
func DiscountFromPercent(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(hundred)
}

// roundHalfUp rounds to whole units with ties going toward positive infinity.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}
