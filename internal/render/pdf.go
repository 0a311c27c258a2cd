package render

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-inventory/internal/billing"
	"github.com/noah-isme/backend-inventory/internal/invoice"
	"github.com/noah-isme/backend-inventory/internal/obs"
	"github.com/noah-isme/backend-inventory/internal/report"
)

// Company is the issuer block printed on every document.
type Company struct {
	Name     string
	Currency string
}

// FormatMoney renders d with two decimals, rounding half away from zero.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(invoice.DateLayout)
}

func title(kind billing.Kind) string {
	if kind == billing.KindPurchase {
		return "Purchase Invoice"
	}
	return "Sales Invoice"
}

func newDocument() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	return pdf
}

type column struct {
	header string
	width  float64
	align  string
}

func tableHeader(pdf *gofpdf.Fpdf, cols []column) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, c.header, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
}

func tableRow(pdf *gofpdf.Fpdf, cols []column, values []string) {
	for i, c := range cols {
		pdf.CellFormat(c.width, 6, values[i], "1", 0, c.align, false, 0, "")
	}
	pdf.Ln(-1)
}

// InvoicePDF writes an A4 invoice for v. A negative balance is printed as a
// zero balance plus a credit line.
func InvoicePDF(w io.Writer, v billing.View, company Company) error {
	defer func(start time.Time) { obs.ObservePDFRender("invoice", time.Since(start)) }(time.Now())

	pdf := newDocument()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(company.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, title(v.Kind), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	party := "Bill to"
	if v.Kind == billing.KindPurchase {
		party = "Supplier"
	}
	meta := [][2]string{
		{"Invoice number", v.Settings.InvoiceNumber},
		{"Status", strings.ToUpper(string(v.Status))},
		{party, tr(v.PartyName)},
		{"Date", formatDate(v.Settings.Date)},
		{"Due date", formatDate(v.Settings.DueDate)},
	}
	if v.Settings.PaymentMode != "" {
		meta = append(meta, [2]string{"Payment mode", tr(v.Settings.PaymentMode)})
	}
	for _, m := range meta {
		pdf.CellFormat(35, 6, m[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, m[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	cols := []column{
		{"#", 8, "C"},
		{"Item", 62, "L"},
		{"Qty", 16, "R"},
		{"Unit price", 24, "R"},
		{"Discount", 22, "R"},
		{"Tax %", 14, "R"},
		{"Amount", 34, "R"},
	}
	tableHeader(pdf, cols)
	for i, line := range v.Lines {
		tableRow(pdf, cols, []string{
			strconv.Itoa(i + 1),
			tr(line.Name),
			line.Quantity.String(),
			FormatMoney(line.UnitPrice),
			FormatMoney(line.DiscountAmount),
			line.TaxPercent.String(),
			FormatMoney(line.Amount),
		})
	}
	pdf.Ln(4)

	t := v.Totals
	balance, credit := t.BalanceDue, decimal.Zero
	if balance.IsNegative() {
		balance, credit = decimal.Zero, balance.Neg()
	}
	totals := [][2]string{
		{"Subtotal", FormatMoney(t.Subtotal)},
		{"Discount", FormatMoney(t.TotalDiscount)},
		{"Taxable amount", FormatMoney(t.TaxableAmount)},
		{"Tax", FormatMoney(t.TotalTax)},
		{"Rounding", FormatMoney(t.RoundingAdjustment)},
		{"Total", FormatMoney(t.Total)},
		{"Amount paid", FormatMoney(v.Settings.AmountPaid)},
		{"Balance due", FormatMoney(balance)},
	}
	if credit.IsPositive() {
		totals = append(totals, [2]string{"Credit", FormatMoney(credit)})
	}
	currency := strings.TrimSpace(company.Currency)
	for _, row := range totals {
		style := ""
		if row[0] == "Total" || row[0] == "Balance due" {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(130, 6, row[0], "", 0, "R", false, 0, "")
		value := row[1]
		if currency != "" {
			value = currency + " " + value
		}
		pdf.CellFormat(50, 6, value, "", 1, "R", false, 0, "")
	}
	if v.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(v.Notes), "", "L", false)
	}
	return pdf.Output(w)
}

// ReportPDF writes the summary table of s.
func ReportPDF(w io.Writer, s report.Summary, company Company) error {
	defer func(start time.Time) { obs.ObservePDFRender("report", time.Since(start)) }(time.Now())

	pdf := newDocument()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(company.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Billing summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Period: "+formatDate(s.From)+" to "+formatDate(s.To), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated: "+s.GeneratedAt.Format(time.RFC3339), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	kindCols := []column{
		{"Kind", 30, "L"},
		{"Count", 18, "R"},
		{"Total", 33, "R"},
		{"Paid", 33, "R"},
		{"Outstanding", 33, "R"},
		{"Credit", 33, "R"},
	}
	tableHeader(pdf, kindCols)
	for _, k := range s.Kinds {
		tableRow(pdf, kindCols, []string{
			string(k.Kind),
			strconv.Itoa(k.Count),
			FormatMoney(k.Total),
			FormatMoney(k.Paid),
			FormatMoney(k.Outstanding),
			FormatMoney(k.Credit),
		})
	}
	pdf.Ln(6)

	rowCols := []column{
		{"Number", 28, "L"},
		{"Date", 22, "L"},
		{"Party", 52, "L"},
		{"Status", 18, "L"},
		{"Total", 20, "R"},
		{"Paid", 20, "R"},
		{"Balance", 20, "R"},
	}
	tableHeader(pdf, rowCols)
	for _, r := range s.Rows {
		tableRow(pdf, rowCols, []string{
			r.InvoiceNumber,
			formatDate(r.Date),
			tr(r.PartyName),
			string(r.Status),
			FormatMoney(r.Total),
			FormatMoney(r.Paid),
			FormatMoney(r.BalanceDue),
		})
	}
	return pdf.Output(w)
}
