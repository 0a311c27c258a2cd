package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how the grand total is rounded.
type RoundingMode string

const (
	// RoundingAuto rounds the raw total to whole currency units.
	RoundingAuto RoundingMode = "auto"
	// RoundingManual adds a caller supplied adjustment to the raw total.
	RoundingManual RoundingMode = "manual"
)

// LineItem is a single row on an invoice. Its amount is always derived, see Line.
type LineItem struct {
	ID             string          `json:"id"`
	ItemID         string          `json:"itemId,omitempty"`
	Name           string          `json:"name"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxPercent     decimal.Decimal `json:"taxPercent"`
}

// Amount returns the computed line amount.
func (li LineItem) Amount() decimal.Decimal {
	return Line(li).Amount
}

// Settings are the invoice-wide inputs to the calculator.
type Settings struct {
	InvoiceNumber       string          `json:"invoiceNumber"`
	Date                time.Time       `json:"date"`
	DueDate             time.Time       `json:"dueDate"`
	RoundingMode        RoundingMode    `json:"roundingMode"`
	ManualRoundingValue decimal.Decimal `json:"manualRoundingValue"`
	AmountPaid          decimal.Decimal `json:"amountPaid"`
	PaymentMode         string          `json:"paymentMode"`
}

// LineBreakdown exposes the intermediate values of a single line.
type LineBreakdown struct {
	Base         decimal.Decimal `json:"base"`
	TaxableValue decimal.Decimal `json:"taxableValue"`
	TaxValue     decimal.Decimal `json:"taxValue"`
	Amount       decimal.Decimal `json:"amount"`
}

// Totals is the derived set of monetary values for an invoice.
type Totals struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	TotalDiscount      decimal.Decimal `json:"totalDiscount"`
	TaxableAmount      decimal.Decimal `json:"taxableAmount"`
	TotalTax           decimal.Decimal `json:"totalTax"`
	RawTotal           decimal.Decimal `json:"rawTotal"`
	Total              decimal.Decimal `json:"total"`
	RoundingAdjustment decimal.Decimal `json:"roundingAdjustment"`
	BalanceDue         decimal.Decimal `json:"balanceDue"`
}
