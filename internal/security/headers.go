package security

import (
	"net/http"
	"strconv"
	"time"
)

const defaultHSTSMaxAge = 365 * 24 * time.Hour

// Headers sets hardening headers on every response. Strict-Transport-Security
// is only sent over TLS and only when HSTS is set.
type Headers struct {
	HSTS       bool
	HSTSMaxAge time.Duration
	// Policy overrides the Content-Security-Policy value.
	Policy string
}

func (h Headers) static() map[string]string {
	policy := h.Policy
	if policy == "" {
		policy = "default-src 'none'; frame-ancestors 'none'"
	}
	return map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
		"Content-Security-Policy": policy,
	}
}

// Middleware returns the header-setting handler.
func (h Headers) Middleware(next http.Handler) http.Handler {
	fixed := h.static()
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10) + "; includeSubDomains"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		for k, v := range fixed {
			header.Set(k, v)
		}
		if h.HSTS && r.TLS != nil {
			header.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}
