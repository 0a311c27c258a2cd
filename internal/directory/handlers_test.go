package directory_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-inventory/internal/directory"
)

func passthrough(next http.Handler) http.Handler { return next }

func newRouter(svc *directory.Service) http.Handler {
	h := &directory.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Route("/suppliers", func(r chi.Router) { h.SupplierRoutes(r, passthrough) })
	r.Route("/items", func(r chi.Router) { h.ItemRoutes(r, passthrough) })
	r.Route("/employees", h.EmployeeRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestItemHandlers(t *testing.T) {
	router := newRouter(directory.NewService())

	rec := do(t, router, http.MethodPost, "/items", `{"sku":"pen-01","name":"Pen","costPrice":"0.80","salePrice":1.25,"taxPercent":"10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data directory.Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "PEN-01", created.Data.SKU)
	require.Equal(t, "1.25", created.Data.SalePrice.String())

	rec = do(t, router, http.MethodGet, "/items/"+created.Data.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/items?q=pen&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data       []directory.Item `json:"data"`
		Pagination struct {
			TotalItems int `json:"total_items"`
			PerPage    int `json:"per_page"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.Equal(t, 5, list.Pagination.PerPage)

	rec = do(t, router, http.MethodPost, "/items", `{"sku":"PEN-01","name":"Another pen"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/items", `{"sku":"X","name":"Bad","salePrice":"abc"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/items/"+created.Data.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodGet, "/items/"+created.Data.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployeeHandlersHidePasswordHash(t *testing.T) {
	router := newRouter(directory.NewService())

	rec := do(t, router, http.MethodPost, "/employees", `{"name":"Eve","email":"eve@example.test","role":"staff","password":"supersecret"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "argon2id")
	require.NotContains(t, rec.Body.String(), "supersecret")

	rec = do(t, router, http.MethodPost, "/employees", `{"name":"Mallory","email":"m@example.test","role":"root","password":"supersecret"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"role"`)
}
