package billing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-inventory/internal/common"
	"github.com/noah-isme/backend-inventory/internal/invoice"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// PDFWriter renders a document view as PDF.
type PDFWriter func(w io.Writer, v View) error

// Handler exposes one document kind over HTTP.
type Handler struct {
	Svc  *Service
	Kind Kind
	PDF  PDFWriter
}

// Routes mounts the document endpoints. write wraps every mutating route.
func (h *Handler) Routes(r chi.Router, write func(http.Handler) http.Handler) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/pdf", h.pdf)
	r.Group(func(r chi.Router) {
		r.Use(write)
		r.Post("/", h.create)
		r.Patch("/{id}", h.patch)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/items", h.addItem)
		r.Patch("/{id}/items/{lineID}", h.updateItem)
		r.Put("/{id}/items/{lineID}/{field}", h.editItemField)
		r.Delete("/{id}/items/{lineID}", h.removeItem)
		r.Patch("/{id}/settings", h.updateSettings)
		r.Post("/{id}/payments", h.recordPayment)
		r.Post("/{id}/issue", h.issue)
		r.Post("/{id}/void", h.void)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, defaultPerPage, maxPerPage)
	q := r.URL.Query()
	f := Filter{
		Kind:    h.Kind,
		Status:  Status(strings.ToLower(strings.TrimSpace(q.Get("status")))),
		PartyID: strings.TrimSpace(q.Get("partyId")),
		Page:    page,
		PerPage: perPage,
	}
	var err error
	if f.From, err = invoice.ParseDate("from", q.Get("from")); err != nil {
		writeError(w, err)
		return
	}
	if f.To, err = invoice.ParseDate("to", q.Get("to")); err != nil {
		writeError(w, err)
		return
	}
	views, total, err := h.Svc.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Get(r.Context(), h.Kind, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, v, err)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	if h.PDF == nil {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "pdf export is not enabled", nil)
		return
	}
	v, err := h.Svc.Get(r.Context(), h.Kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.PDF(&buf, v); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", v.Settings.InvoiceNumber+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.Create(r.Context(), h.Kind, in)
	respond(w, http.StatusCreated, v, err)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	var in PatchInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.Patch(r.Context(), h.Kind, chi.URLParam(r, "id"), in)
	respond(w, http.StatusOK, v, err)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), h.Kind, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var in LineInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.AddItem(r.Context(), h.Kind, chi.URLParam(r, "id"), in)
	respond(w, http.StatusCreated, v, err)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var in LineInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.UpdateItem(r.Context(), h.Kind, chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), in)
	respond(w, http.StatusOK, v, err)
}

func (h *Handler) editItemField(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value Raw `json:"value"`
	}
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.EditItemField(r.Context(), h.Kind, chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), chi.URLParam(r, "field"), string(body.Value))
	respond(w, http.StatusOK, v, err)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.RemoveItem(r.Context(), h.Kind, chi.URLParam(r, "id"), chi.URLParam(r, "lineID"))
	respond(w, http.StatusOK, v, err)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var in SettingsInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.UpdateSettings(r.Context(), h.Kind, chi.URLParam(r, "id"), in)
	respond(w, http.StatusOK, v, err)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var in PaymentInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.RecordPayment(r.Context(), h.Kind, chi.URLParam(r, "id"), in)
	respond(w, http.StatusCreated, v, err)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Issue(r.Context(), h.Kind, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, v, err)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Void(r.Context(), h.Kind, chi.URLParam(r, "id"))
	respond(w, http.StatusOK, v, err)
}

func respond(w http.ResponseWriter, status int, v View, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, status, v)
}

func writeError(w http.ResponseWriter, err error) {
	var inputErr *invoice.InputError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, err.Error(), nil)
	case errors.Is(err, ErrNotEditable):
		common.JSONError(w, http.StatusConflict, common.CodeNotEditable, "only draft documents can be edited", nil)
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, err.Error(), nil)
	case errors.Is(err, ErrEmpty):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidation, err.Error(), nil)
	case errors.As(err, &inputErr):
		code := common.CodeValidation
		if errors.Is(err, invoice.ErrInvalidNumericInput) {
			code = common.CodeInvalidNumericInput
		}
		common.JSONError(w, http.StatusUnprocessableEntity, code, inputErr.Error(), map[string]string{
			"field": inputErr.Field,
			"value": inputErr.Value,
		})
	default:
		common.WriteError(w, err)
	}
}
