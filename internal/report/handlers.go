package report

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-inventory/internal/billing"
	"github.com/noah-isme/backend-inventory/internal/common"
	"github.com/noah-isme/backend-inventory/internal/invoice"
)

// PDFWriter renders a summary as PDF.
type PDFWriter func(w io.Writer, s Summary) error

// Handler serves GET /reports/summary.
type Handler struct {
	Svc *Service
	PDF PDFWriter
}

// Summary answers with JSON, or a PDF when format=pdf.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Kind:   billing.Kind(strings.ToLower(strings.TrimSpace(q.Get("kind")))),
		Status: billing.Status(strings.ToLower(strings.TrimSpace(q.Get("status")))),
	}
	if f.Kind != "" && !f.Kind.Valid() {
		common.WriteError(w, common.Invalid("invalid report filter", nil, []common.FieldError{{Field: "kind", Rule: "oneof"}}))
		return
	}
	var err error
	if f.From, err = invoice.ParseDate("from", q.Get("from")); err != nil {
		common.WriteError(w, common.Invalid(err.Error(), err, []common.FieldError{{Field: "from", Rule: "date"}}))
		return
	}
	if f.To, err = invoice.ParseDate("to", q.Get("to")); err != nil {
		common.WriteError(w, common.Invalid(err.Error(), err, []common.FieldError{{Field: "to", Rule: "date"}}))
		return
	}

	summary, err := h.Svc.Summary(r.Context(), f)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !strings.EqualFold(q.Get("format"), "pdf") {
		common.Data(w, http.StatusOK, summary)
		return
	}
	if h.PDF == nil {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "pdf export is not enabled", nil)
		return
	}
	var buf bytes.Buffer
	if err := h.PDF(&buf, summary); err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="report.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
