package directory

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-inventory/internal/common"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Handler exposes CRUD endpoints for suppliers, items and employees.
type Handler struct {
	Svc *Service
}

// SupplierRoutes mounts supplier endpoints. write guards mutating routes.
func (h *Handler) SupplierRoutes(r chi.Router, write func(http.Handler) http.Handler) {
	r.Get("/", listHandler(h.Svc.ListSuppliers))
	r.Get("/{id}", getHandler(h.Svc.Supplier))
	r.With(write).Post("/", createHandler(h.Svc.CreateSupplier))
	r.With(write).Put("/{id}", updateHandler(h.Svc.UpdateSupplier))
	r.With(write).Delete("/{id}", deleteHandler(h.Svc.DeleteSupplier))
}

// ItemRoutes mounts stock item endpoints. write guards mutating routes.
func (h *Handler) ItemRoutes(r chi.Router, write func(http.Handler) http.Handler) {
	r.Get("/", listHandler(h.Svc.ListItems))
	r.Get("/{id}", getHandler(h.Svc.Item))
	r.With(write).Post("/", createHandler(h.Svc.CreateItem))
	r.With(write).Put("/{id}", updateHandler(h.Svc.UpdateItem))
	r.With(write).Delete("/{id}", deleteHandler(h.Svc.DeleteItem))
}

// EmployeeRoutes mounts employee endpoints. The whole group is expected to be admin-only.
func (h *Handler) EmployeeRoutes(r chi.Router) {
	r.Get("/", listHandler(h.Svc.ListEmployees))
	r.Get("/{id}", getHandler(h.Svc.Employee))
	r.Post("/", createHandler(h.Svc.CreateEmployee))
	r.Put("/{id}", updateHandler(h.Svc.UpdateEmployee))
	r.Delete("/{id}", deleteHandler(h.Svc.DeleteEmployee))
}

func listHandler[T any](list func(context.Context, string, int, int) ([]T, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, perPage := common.ParsePagination(r, defaultPerPage, maxPerPage)
		rows, total := list(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")), page, perPage)
		common.JSON(w, http.StatusOK, map[string]any{
			"data":       rows,
			"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
		})
	}
}

func getHandler[T any](get func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		common.Data(w, http.StatusOK, row)
	}
}

func createHandler[In, Out any](create func(context.Context, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := common.DecodeJSON(r, &in); err != nil {
			common.WriteError(w, err)
			return
		}
		out, err := create(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		common.Data(w, http.StatusCreated, out)
	}
}

func updateHandler[In, Out any](update func(context.Context, string, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := common.DecodeJSON(r, &in); err != nil {
			common.WriteError(w, err)
			return
		}
		out, err := update(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		common.Data(w, http.StatusOK, out)
	}
}

func deleteHandler(del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "record not found", nil)
	case errors.Is(err, ErrDuplicate):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, err.Error(), nil)
	case errors.Is(err, ErrLastAdmin):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
