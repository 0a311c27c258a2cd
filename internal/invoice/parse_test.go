package invoice

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("quantity", "  ")
	require.NoError(t, err)
	require.True(t, v.IsZero())

	v, err = ParseAmount("unitPrice", "12.50")
	require.NoError(t, err)
	requireDecimal(t, "12.5", v)

	_, err = ParseAmount("unitPrice", "12,50abc")
	require.ErrorIs(t, err, ErrInvalidNumericInput)
	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	require.Equal(t, "unitPrice", inputErr.Field)

	v, err = ParseAmount("quantity", "-999999999999999.000000000001")
	require.NoError(t, err)
	requireDecimal(t, "-999999999999999.000000000001", v)

	for _, raw := range []string{"1e20000000", "1E3", "1e-50", "0.0000000000001", "1000000000000000", "1" + strings.Repeat("0", 40)} {
		_, err = ParseAmount("unitPrice", raw)
		require.ErrorIs(t, err, ErrInvalidNumericInput, raw)
	}
}

func TestParseRoundingMode(t *testing.T) {
	mode, err := ParseRoundingMode("")
	require.NoError(t, err)
	require.Equal(t, RoundingAuto, mode)

	mode, err = ParseRoundingMode("Manual")
	require.NoError(t, err)
	require.Equal(t, RoundingManual, mode)

	_, err = ParseRoundingMode("nearest")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("date", "2024-03-01")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("date", "01/03/2024")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestLineItemValidate(t *testing.T) {
	require.NoError(t, item("1", "2", "0", "0").Validate())
	err := item("-1", "2", "0", "0").Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Contains(t, err.Error(), "quantity")
}

func TestSettingsValidate(t *testing.T) {
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, Settings{Date: date, DueDate: date.AddDate(0, 0, 14)}.Validate())
	require.ErrorIs(t, Settings{Date: date, DueDate: date.AddDate(0, 0, -1)}.Validate(), ErrInvalidInput)
	require.ErrorIs(t, Settings{RoundingMode: "banker"}.Validate(), ErrInvalidInput)
	require.ErrorIs(t, Settings{AmountPaid: d("-1")}.Validate(), ErrInvalidInput)
}
