package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidNumericInput is returned when a numeric field cannot be parsed.
	ErrInvalidNumericInput = errors.New("invalid numeric input")
	// ErrInvalidInput is returned when a parsed value is out of its allowed range.
	ErrInvalidInput = errors.New("invalid input")
)

// DateLayout is the wire format for invoice dates.
const DateLayout = "2006-01-02"

// InputError names the field that failed validation.
type InputError struct {
	Field string
	Value string
	Err   error
}

func (e *InputError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %v %q", e.Field, e.Err, e.Value)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Bounds on user supplied numbers. Amounts outside them cannot come from a
// real document and would make the arithmetic in Compute unbounded.
const (
	maxAmountChars  = 32
	maxAmountScale  = 12
	maxAmountDigits = 15
)

// ParseAmount parses a user supplied plain decimal number. Blank input is
// zero. Exponent notation and values with more than 15 integer digits or
// 12 fractional digits are rejected.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	invalid := &InputError{Field: field, Value: raw, Err: ErrInvalidNumericInput}
	if len(trimmed) > maxAmountChars || strings.ContainsAny(trimmed, "eE") {
		return decimal.Zero, invalid
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, invalid
	}
	if -d.Exponent() > maxAmountScale || d.Abs().Truncate(0).NumDigits() > maxAmountDigits {
		return decimal.Zero, invalid
	}
	return d, nil
}

// ParseRoundingMode accepts "auto" or "manual"; blank means auto.
func ParseRoundingMode(raw string) (RoundingMode, error) {
	switch RoundingMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RoundingAuto:
		return RoundingAuto, nil
	case RoundingManual:
		return RoundingManual, nil
	default:
		return "", &InputError{Field: "roundingMode", Value: raw, Err: ErrInvalidInput}
	}
}

// ParseDate parses a YYYY-MM-DD date. Blank input yields the zero time.
func ParseDate(field, raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return time.Time{}, &InputError{Field: field, Value: raw, Err: ErrInvalidInput}
	}
	return t, nil
}

// Validate rejects negative quantities, prices, discounts and tax rates.
func (li LineItem) Validate() error {
	checks := []struct {
		field string
		value decimal.Decimal
	}{
		{"quantity", li.Quantity},
		{"unitPrice", li.UnitPrice},
		{"discountAmount", li.DiscountAmount},
		{"taxPercent", li.TaxPercent},
	}
	for _, c := range checks {
		if c.value.IsNegative() {
			return &InputError{Field: c.field, Value: c.value.String(), Err: ErrInvalidInput}
		}
	}
	return nil
}

// Validate checks the invoice-wide settings.
func (s Settings) Validate() error {
	if _, err := ParseRoundingMode(string(s.RoundingMode)); err != nil {
		return err
	}
	if s.AmountPaid.IsNegative() {
		return &InputError{Field: "amountPaid", Value: s.AmountPaid.String(), Err: ErrInvalidInput}
	}
	if !s.Date.IsZero() && !s.DueDate.IsZero() && s.DueDate.Before(s.Date) {
		return &InputError{Field: "dueDate", Value: s.DueDate.Format(DateLayout), Err: ErrInvalidInput}
	}
	return nil
}
