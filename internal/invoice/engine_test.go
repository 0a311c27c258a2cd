package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(d(want)), "expected %s, got %s", want, got)
}

func item(qty, price, discount, tax string) LineItem {
	return LineItem{Quantity: d(qty), UnitPrice: d(price), DiscountAmount: d(discount), TaxPercent: d(tax)}
}

func requireIdentities(t *testing.T, totals Totals, paid decimal.Decimal) {
	t.Helper()
	recomposed := totals.Subtotal.Sub(totals.TotalDiscount).Add(totals.TotalTax).Add(totals.RoundingAdjustment)
	require.Truef(t, totals.Total.Equal(recomposed), "total %s != %s", totals.Total, recomposed)
	require.True(t, totals.BalanceDue.Equal(totals.Total.Sub(paid)))
}

func TestLineBreakdown(t *testing.T) {
	line := Line(item("2", "100", "10", "10"))
	requireDecimal(t, "200", line.Base)
	requireDecimal(t, "190", line.TaxableValue)
	requireDecimal(t, "19", line.TaxValue)
	requireDecimal(t, "209", line.Amount)
	requireDecimal(t, "209", item("2", "100", "10", "10").Amount())
}

func TestComputeSingleItem(t *testing.T) {
	totals := Compute([]LineItem{item("2", "100", "10", "10")}, Settings{RoundingMode: RoundingAuto})
	requireDecimal(t, "200", totals.Subtotal)
	requireDecimal(t, "10", totals.TotalDiscount)
	requireDecimal(t, "190", totals.TaxableAmount)
	requireDecimal(t, "19", totals.TotalTax)
	requireDecimal(t, "209", totals.RawTotal)
	requireDecimal(t, "209", totals.Total)
	requireDecimal(t, "0", totals.RoundingAdjustment)
	requireDecimal(t, "209", totals.BalanceDue)
}

func TestComputeEmpty(t *testing.T) {
	auto := Compute(nil, Settings{})
	for _, v := range []decimal.Decimal{auto.Subtotal, auto.TotalDiscount, auto.TotalTax, auto.RawTotal, auto.Total, auto.RoundingAdjustment} {
		requireDecimal(t, "0", v)
	}

	manual := Compute([]LineItem{}, Settings{RoundingMode: RoundingManual, ManualRoundingValue: d("-0.25")})
	requireDecimal(t, "0", manual.RawTotal)
	requireDecimal(t, "-0.25", manual.Total)
	require.True(t, manual.Total.Equal(manual.RoundingAdjustment))
}

func TestComputeAutoRounding(t *testing.T) {
	cases := []struct {
		name  string
		items []LineItem
		total string
		adj   string
	}{
		{"rounds down", []LineItem{item("1", "10.49", "0", "0")}, "10", "-0.49"},
		{"rounds up", []LineItem{item("3", "3.17", "0", "0")}, "10", "0.49"},
		{"tie goes up", []LineItem{item("1", "10.5", "0", "0")}, "11", "0.5"},
		{"negative tie goes toward positive", []LineItem{item("1", "1", "3.5", "0")}, "-2", "0.5"},
		{"tax fraction", []LineItem{item("1", "99.99", "0", "18"), item("4", "12.35", "1.2", "5")}, "169", "0.4018"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals := Compute(tc.items, Settings{RoundingMode: RoundingAuto})
			requireDecimal(t, tc.total, totals.Total)
			requireDecimal(t, tc.adj, totals.RoundingAdjustment)
			require.True(t, totals.Total.Sub(totals.RawTotal).Equal(totals.RoundingAdjustment))
			require.True(t, totals.RoundingAdjustment.Abs().LessThanOrEqual(d("0.5")))
			requireIdentities(t, totals, decimal.Zero)
		})
	}
}

func TestComputeManualRoundingIsVerbatim(t *testing.T) {
	manual := d("0.37")
	sets := [][]LineItem{
		nil,
		{item("1", "10.49", "0", "0")},
		{item("2", "100", "10", "10"), item("7", "0.33", "0.1", "12.5")},
	}
	for _, items := range sets {
		totals := Compute(items, Settings{RoundingMode: RoundingManual, ManualRoundingValue: manual})
		require.Equal(t, manual.String(), totals.RoundingAdjustment.String())
		require.True(t, totals.Total.Equal(totals.RawTotal.Add(manual)))
		requireIdentities(t, totals, decimal.Zero)
	}
}

func TestComputeBalanceDue(t *testing.T) {
	items := []LineItem{item("2", "100", "10", "10")}
	for _, paid := range []string{"0", "100", "209", "250.75"} {
		totals := Compute(items, Settings{AmountPaid: d(paid)})
		requireIdentities(t, totals, d(paid))
	}
	over := Compute(items, Settings{AmountPaid: d("250")})
	requireDecimal(t, "-41", over.BalanceDue)
}

func TestComputeIsIdempotent(t *testing.T) {
	items := []LineItem{item("3", "19.99", "2.5", "7.5"), item("1", "0.01", "0", "0")}
	settings := Settings{RoundingMode: RoundingAuto, AmountPaid: d("12.34")}
	first := Compute(items, settings)
	second := Compute(items, settings)
	require.Equal(t, first, second)
}

func TestComputeOrderIndependent(t *testing.T) {
	a := item("3", "19.99", "2.5", "7.5")
	b := item("1", "250", "10", "0")
	forward := Compute([]LineItem{a, b}, Settings{})
	backward := Compute([]LineItem{b, a}, Settings{})
	require.True(t, forward.Total.Equal(backward.Total))
	require.True(t, forward.TotalTax.Equal(backward.TotalTax))
}

func TestDiscountFromPercent(t *testing.T) {
	requireDecimal(t, "20", DiscountFromPercent(d("200"), d("10")))
	requireDecimal(t, "0", DiscountFromPercent(d("200"), decimal.Zero))
}
