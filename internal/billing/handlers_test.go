package billing_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-inventory/internal/billing"
)

func passthrough(next http.Handler) http.Handler { return next }

func newRouter(svc *billing.Service) http.Handler {
	r := chi.NewRouter()
	orders := &billing.Handler{Svc: svc, Kind: billing.KindSales, PDF: func(w io.Writer, v billing.View) error {
		_, err := io.WriteString(w, "%PDF-1.3 "+v.Settings.InvoiceNumber)
		return err
	}}
	purchases := &billing.Handler{Svc: svc, Kind: billing.KindPurchase}
	r.Route("/orders", func(r chi.Router) { orders.Routes(r, passthrough) })
	r.Route("/purchases", func(r chi.Router) { purchases.Routes(r, passthrough) })
	return r
}

func call(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type viewBody struct {
	Data struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Settings struct {
			InvoiceNumber string `json:"invoiceNumber"`
			AmountPaid    string `json:"amountPaid"`
		} `json:"settings"`
		Lines []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Amount string `json:"amount"`
		} `json:"lines"`
		Totals map[string]string `json:"totals"`
	} `json:"data"`
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f.svc)

	rec := call(t, router, http.MethodPost, "/orders", `{"partyName":"Walk-in","items":[{"name":"Widget","quantity":2,"unitPrice":"100","discountAmount":10,"taxPercent":"10"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[viewBody](t, rec)
	require.Equal(t, "INV-000001", created.Data.Settings.InvoiceNumber)
	require.Equal(t, "209", created.Data.Totals["total"])
	require.Equal(t, "209", created.Data.Lines[0].Amount)
	id, lineID := created.Data.ID, created.Data.Lines[0].ID

	rec = call(t, router, http.MethodPut, "/orders/"+id+"/items/"+lineID+"/quantity", `{"value":"abc"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errBody := decode[errorBody](t, rec)
	require.Equal(t, "INVALID_NUMERIC_INPUT", errBody.Error.Code)
	require.Equal(t, "quantity", errBody.Error.Details["field"])

	rec = call(t, router, http.MethodPut, "/orders/"+id+"/items/"+lineID+"/quantity", `{"value":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "319", decode[viewBody](t, rec).Data.Totals["total"])

	rec = call(t, router, http.MethodPatch, "/orders/"+id+"/settings", `{"amountPaid":"5"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, router, http.MethodPost, "/orders/"+id+"/issue", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "issued", decode[viewBody](t, rec).Data.Status)

	rec = call(t, router, http.MethodPost, "/orders/"+id+"/items", `{"name":"Late"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "NOT_EDITABLE", decode[errorBody](t, rec).Error.Code)

	rec = call(t, router, http.MethodPost, "/orders/"+id+"/payments", `{"amount":"400","mode":"card"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paid := decode[viewBody](t, rec)
	require.Equal(t, "400", paid.Data.Settings.AmountPaid)
	require.Equal(t, "-81", paid.Data.Totals["balanceDue"])

	rec = call(t, router, http.MethodGet, "/orders/"+id+"/pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = call(t, router, http.MethodGet, "/purchases/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, router, http.MethodGet, "/purchases/"+id+"/pdf", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrdersPaginates(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f.svc)
	for i := 0; i < 3; i++ {
		rec := call(t, router, http.MethodPost, "/orders", `{"partyName":"Walk-in"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := call(t, router, http.MethodGet, "/orders?limit=2&status=draft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Data       []json.RawMessage `json:"data"`
		Pagination struct {
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}](t, rec)
	require.Len(t, body.Data, 2)
	require.Equal(t, 3, body.Pagination.TotalItems)

	rec = call(t, router, http.MethodGet, "/orders?from=yesterday", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteDraftOverHTTP(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f.svc)

	rec := call(t, router, http.MethodPost, "/purchases", `{"partyId":"`+f.supplier.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[viewBody](t, rec).Data.ID

	rec = call(t, router, http.MethodDelete, "/purchases/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, router, http.MethodDelete, "/purchases/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
