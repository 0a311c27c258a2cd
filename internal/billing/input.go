package billing

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-inventory/internal/invoice"
)

// Raw holds a user supplied value exactly as entered. It decodes from a
// JSON string or a JSON number so form fields can be forwarded verbatim.
type Raw string

// UnmarshalJSON accepts "12.5", 12.5 and "".
func (r *Raw) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Raw(s)
		return nil
	}
	*r = Raw(b)
	return nil
}

// RawOf is a convenience for building inputs in code.
func RawOf(s string) *Raw {
	r := Raw(s)
	return &r
}

func (r *Raw) amount(field string) (decimal.Decimal, error) {
	return invoice.ParseAmount(field, string(*r))
}

func (r *Raw) text() string { return strings.TrimSpace(string(*r)) }

// LineInput patches a line. Nil fields are left unchanged.
type LineInput struct {
	ItemID          *Raw `json:"itemId"`
	Name            *Raw `json:"name"`
	Quantity        *Raw `json:"quantity"`
	UnitPrice       *Raw `json:"unitPrice"`
	DiscountAmount  *Raw `json:"discountAmount"`
	DiscountPercent *Raw `json:"discountPercent"`
	TaxPercent      *Raw `json:"taxPercent"`
}

// SettingsInput patches the invoice settings. Nil fields are left unchanged.
type SettingsInput struct {
	InvoiceNumber       *Raw `json:"invoiceNumber"`
	Date                *Raw `json:"date"`
	DueDate             *Raw `json:"dueDate"`
	RoundingMode        *Raw `json:"roundingMode"`
	ManualRoundingValue *Raw `json:"manualRoundingValue"`
	PaymentMode         *Raw `json:"paymentMode"`
}

// CreateInput describes a new draft document.
type CreateInput struct {
	PartyID   string        `json:"partyId" validate:"omitempty,max=64"`
	PartyName string        `json:"partyName" validate:"max=200"`
	Notes     string        `json:"notes" validate:"max=2000"`
	Settings  SettingsInput `json:"settings"`
	Items     []LineInput   `json:"items" validate:"max=500"`
}

// PatchInput edits the party and notes on a draft.
type PatchInput struct {
	PartyID   *string `json:"partyId" validate:"omitempty,max=64"`
	PartyName *string `json:"partyName" validate:"omitempty,max=200"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

// PaymentInput records a payment.
type PaymentInput struct {
	Amount    Raw    `json:"amount"`
	Mode      string `json:"mode" validate:"max=40"`
	Reference string `json:"reference" validate:"max=120"`
	PaidAt    Raw    `json:"paidAt"`
}

func inputError(field, value string) error {
	return &invoice.InputError{Field: field, Value: value, Err: invoice.ErrInvalidInput}
}

// apply patches l with in and re-derives a percentage discount. It does not
// validate the result.
func (in LineInput) apply(l *Line) error {
	if in.DiscountAmount != nil && in.DiscountPercent != nil {
		return inputError("discountPercent", "cannot be set together with discountAmount")
	}
	if in.ItemID != nil {
		l.ItemID = in.ItemID.text()
	}
	if in.Name != nil {
		l.Name = in.Name.text()
	}
	amounts := []struct {
		field string
		raw   *Raw
		dst   *decimal.Decimal
	}{
		{"quantity", in.Quantity, &l.Quantity},
		{"unitPrice", in.UnitPrice, &l.UnitPrice},
		{"discountAmount", in.DiscountAmount, &l.DiscountAmount},
		{"discountPercent", in.DiscountPercent, &l.DiscountPercent},
		{"taxPercent", in.TaxPercent, &l.TaxPercent},
	}
	for _, a := range amounts {
		if a.raw == nil {
			continue
		}
		v, err := a.raw.amount(a.field)
		if err != nil {
			return err
		}
		*a.dst = v
	}
	switch {
	case in.DiscountAmount != nil:
		l.DiscountKind = DiscountAmount
		l.DiscountPercent = decimal.Zero
	case in.DiscountPercent != nil:
		l.DiscountKind = DiscountPercent
	}
	if l.DiscountKind == "" {
		l.DiscountKind = DiscountAmount
	}
	if l.DiscountKind == DiscountPercent {
		l.DiscountAmount = invoice.DiscountFromPercent(l.Quantity.Mul(l.UnitPrice), l.DiscountPercent)
	}
	return nil
}

func validateLine(l Line) error {
	if l.Name == "" {
		return inputError("name", "")
	}
	if l.DiscountPercent.IsNegative() || l.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return inputError("discountPercent", l.DiscountPercent.String())
	}
	return l.LineItem.Validate()
}

func (in SettingsInput) apply(s *invoice.Settings) error {
	if in.InvoiceNumber != nil {
		number := in.InvoiceNumber.text()
		if number == "" {
			return inputError("invoiceNumber", "")
		}
		s.InvoiceNumber = number
	}
	if in.Date != nil {
		d, err := invoice.ParseDate("date", string(*in.Date))
		if err != nil {
			return err
		}
		s.Date = d
	}
	if in.DueDate != nil {
		d, err := invoice.ParseDate("dueDate", string(*in.DueDate))
		if err != nil {
			return err
		}
		s.DueDate = d
	}
	if in.RoundingMode != nil {
		mode, err := invoice.ParseRoundingMode(string(*in.RoundingMode))
		if err != nil {
			return err
		}
		s.RoundingMode = mode
	}
	if in.ManualRoundingValue != nil {
		v, err := in.ManualRoundingValue.amount("manualRoundingValue")
		if err != nil {
			return err
		}
		s.ManualRoundingValue = v
	}
	if in.PaymentMode != nil {
		s.PaymentMode = in.PaymentMode.text()
	}
	return s.Validate()
}

// EditLineField builds the single-field patch used by per-keystroke edits.
func EditLineField(field, value string) (LineInput, error) {
	raw := RawOf(value)
	var in LineInput
	switch field {
	case "itemId":
		in.ItemID = raw
	case "name":
		in.Name = raw
	case "quantity":
		in.Quantity = raw
	case "unitPrice":
		in.UnitPrice = raw
	case "discountAmount":
		in.DiscountAmount = raw
	case "discountPercent":
		in.DiscountPercent = raw
	case "taxPercent":
		in.TaxPercent = raw
	default:
		return LineInput{}, inputError("field", field)
	}
	return in, nil
}
