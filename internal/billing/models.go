package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-inventory/internal/invoice"
)

// Kind distinguishes supplier purchases from customer sales.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindSales    Kind = "sales"
)

// Valid reports whether k is a known document kind.
func (k Kind) Valid() bool { return k == KindPurchase || k == KindSales }

// NumberPrefix is the invoice number prefix for documents of kind k.
func (k Kind) NumberPrefix() string {
	if k == KindPurchase {
		return "PO-"
	}
	return "INV-"
}

// FormatNumber renders the n-th invoice number of kind k.
func (k Kind) FormatNumber(n int64) string {
	return fmt.Sprintf("%s%06d", k.NumberPrefix(), n)
}

// Status is the document lifecycle state.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusIssued Status = "issued"
	StatusVoid   Status = "void"
)

// DiscountKind records how the line discount was entered. The stored
// DiscountAmount is always absolute.
type DiscountKind string

const (
	DiscountAmount  DiscountKind = "amount"
	DiscountPercent DiscountKind = "percent"
)

// Line is an invoice line plus how its discount was entered.
type Line struct {
	invoice.LineItem
	DiscountKind    DiscountKind    `json:"discountKind"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

// Payment is one recorded payment against an issued document.
type Payment struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      string          `json:"mode"`
	Reference string          `json:"reference,omitempty"`
	PaidAt    time.Time       `json:"paidAt"`
}

// Document is a purchase invoice or a sales order/invoice.
type Document struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	Status    Status           `json:"status"`
	PartyID   string           `json:"partyId,omitempty"`
	PartyName string           `json:"partyName"`
	Settings  invoice.Settings `json:"settings"`
	Lines     []Line           `json:"lines"`
	Payments  []Payment        `json:"payments"`
	Notes     string           `json:"notes,omitempty"`
	Version   int              `json:"version"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	IssuedAt  *time.Time       `json:"issuedAt,omitempty"`
}

// Items returns the calculator view of the lines.
func (d Document) Items() []invoice.LineItem {
	items := make([]invoice.LineItem, len(d.Lines))
	for i, l := range d.Lines {
		items[i] = l.LineItem
	}
	return items
}

// AmountPaid sums the recorded payments.
func (d Document) AmountPaid() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range d.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Totals computes the document totals with AmountPaid derived from Payments.
func (d Document) Totals() invoice.Totals {
	settings := d.Settings
	settings.AmountPaid = d.AmountPaid()
	return invoice.Compute(d.Items(), settings)
}

func (d Document) lineIndex(id string) int {
	for i, l := range d.Lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no slices with d.
func (d Document) Clone() Document {
	out := d
	out.Lines = append([]Line(nil), d.Lines...)
	out.Payments = append([]Payment(nil), d.Payments...)
	if d.IssuedAt != nil {
		t := *d.IssuedAt
		out.IssuedAt = &t
	}
	return out
}

// LineView is a line with its computed values.
type LineView struct {
	Line
	invoice.LineBreakdown
}

// View is the API representation of a document with derived totals.
type View struct {
	Document
	Lines  []LineView     `json:"lines"`
	Totals invoice.Totals `json:"totals"`
}

// NewView derives line amounts and totals for d.
func NewView(d Document) View {
	d.Settings.AmountPaid = d.AmountPaid()
	lines := make([]LineView, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = LineView{Line: l, LineBreakdown: invoice.Line(l.LineItem)}
	}
	return View{Document: d, Lines: lines, Totals: d.Totals()}
}
