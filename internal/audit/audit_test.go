package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-inventory/internal/common"
)

func TestResourceOf(t *testing.T) {
	cases := map[string]string{
		"/api/v1/orders/{id}/items/{lineID}": "orders.items",
		"/api/v1/suppliers":                  "suppliers",
		"/health/ready":                      "health.ready",
		"":                                   "unknown",
	}
	for route, want := range cases {
		require.Equal(t, want, resourceOf(route), route)
	}
}

func TestServiceRecord(t *testing.T) {
	store := NewMemoryStore(10)
	at := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc := Service{Store: store, Enabled: true, SamplingRate: 1, Now: func() time.Time { return at }}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/abc/issue", nil)
	req.RemoteAddr = "10.0.0.2:54321"
	err := svc.Record(context.Background(), Actor{Kind: ActorKindUser, UserID: "u-1", Role: "manager"}, "/api/v1/orders/{id}/issue", "abc", req, 0)
	require.NoError(t, err)

	rows, total, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	e := rows[0]
	require.Equal(t, "POST /api/v1/orders/{id}/issue", e.Action)
	require.Equal(t, "orders.issue", e.Resource)
	require.Equal(t, "abc", e.ResourceID)
	require.Equal(t, "10.0.0.2", e.IP)
	require.Equal(t, http.StatusOK, e.Status)
	require.Equal(t, at, e.At)

	require.NoError(t, Service{Store: store}.Record(context.Background(), Actor{}, "", "", req, 201))
	_, total, _ = store.List(context.Background(), 10, 0)
	require.Equal(t, 1, total)
}

func TestMemoryStoreRingOrder(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Insert(ctx, Entry{ID: id}))
	}
	rows, total, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, []string{"d", "c", "b"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})

	rows, _, _ = store.List(ctx, 1, 1)
	require.Len(t, rows, 1)
	require.Equal(t, "c", rows[0].ID)
}

func TestMiddlewareRecordsWritesOnly(t *testing.T) {
	store := NewMemoryStore(10)
	rec := HTTPRecorder{Service: &Service{Store: store, Enabled: true}, ResourceIDParam: "id"}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := common.WithRole(common.WithUserID(req.Context(), "u-9"), "admin")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Use(rec.Middleware)
	r.Get("/api/v1/orders/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Delete("/api/v1/orders/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, "/api/v1/orders/42", nil))
	}

	rows, total, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "DELETE /api/v1/orders/{id}", rows[0].Action)
	require.Equal(t, "42", rows[0].ResourceID)
	require.Equal(t, http.StatusNoContent, rows[0].Status)
	require.Equal(t, ActorKindUser, rows[0].ActorKind)
	require.Equal(t, "admin", rows[0].Role)
}

func TestHandlerList(t *testing.T) {
	store := NewMemoryStore(10)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(context.Background(), Entry{ID: string(rune('a' + i))}))
	}
	rr := httptest.NewRecorder()
	Handler{Store: store}.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/audit?limit=2&page=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data       []Entry           `json:"data"`
		Pagination common.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "a", body.Data[0].ID)
	require.Equal(t, 3, body.Pagination.TotalItems)
}
