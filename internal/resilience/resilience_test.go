package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-inventory/internal/resilience"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := resilience.NewBreaker("webhook", 2, 0.5, time.Minute)
	b.Now = func() time.Time { return now }

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, resilience.Open, b.State())
	require.False(t, b.Allow(ctx))

	now = now.Add(time.Minute)
	require.True(t, b.Allow(ctx))
	require.Equal(t, resilience.HalfOpen, b.State())
	require.False(t, b.Allow(ctx), "only one probe while half-open")
	b.Report(ctx, true)
	require.Equal(t, resilience.Closed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := resilience.NewBreaker("", 1, 1, time.Second)
	b.Now = func() time.Time { return now }

	b.Report(ctx, false)
	require.Equal(t, resilience.Open, b.State())
	now = now.Add(2 * time.Second)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, resilience.Open, b.State())
	require.False(t, b.Allow(ctx))
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, 4*base, resilience.Backoff(base, 3, 0))

	d := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, d, 160*time.Millisecond)
	require.LessOrEqual(t, d, 240*time.Millisecond)
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "yes", r.Header.Get("X-Test"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := &resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 3, BaseBackoff: time.Millisecond}
	status, err := c.Post(context.Background(), srv.URL, http.Header{"X-Test": {"yes"}}, []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, status)
	require.EqualValues(t, 3, calls.Load())
}

func TestHTTPClientStopsWhenBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &resilience.HTTPClient{
		Client:      srv.Client(),
		Breaker:     resilience.NewBreaker("test", 1, 1, time.Hour),
		MaxAttempts: 5,
		BaseBackoff: time.Millisecond,
	}
	_, err := c.Post(context.Background(), srv.URL, nil, nil)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.EqualValues(t, 1, calls.Load())

	status, err := c.Post(context.Background(), srv.URL, nil, nil)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Zero(t, status)
	require.EqualValues(t, 1, calls.Load())
}

func TestHTTPClientKeepsClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := &resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 3}
	status, err := c.Post(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)

	var nilClient *resilience.HTTPClient
	_, err = nilClient.Post(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
}
