package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"JWT_SECRET":            "0123456789abcdef0123",
		"DATABASE_URL":          "",
		"REDIS_URL":             "",
		"DEFAULT_DUE_DAYS":      "",
		"PORT":                  "",
		"COOKIE_SAMESITE":       "",
		"MAX_BODY_BYTES":        "",
		"ACCESS_TOKEN_TTL":      "",
		"OBS_ENABLE_PROMETHEUS": "",
		"AUDIT_ENABLED":         "",
		"CORS_ALLOWED_ORIGINS":  "",
		"TRUSTED_PROXIES":       "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Empty(t, cfg.DatabaseURL)
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, 30, cfg.DefaultDueDays)
	require.Equal(t, 8*time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
	require.True(t, cfg.Obs.MetricsEnabled)
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	require.True(t, cfg.AuditEnabled)
	require.Equal(t, 500, cfg.AuditLogSize)
	require.Empty(t, cfg.CORSAllowedOrigins)
	require.Empty(t, cfg.TrustedProxies)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"JWT_SECRET":              "0123456789abcdef0123",
		"PORT":                    ":9090",
		"DEFAULT_DUE_DAYS":        "14",
		"CURRENCY_CODE":           "idr",
		"CORS_ALLOWED_ORIGINS":    "https://a.test, ,https://b.test",
		"LOGIN_RATE_LIMIT_WINDOW": "30s",
		"OBS_ENABLE_PROMETHEUS":   "off",
		"COOKIE_SAMESITE":         "strict",
		"TRUSTED_PROXIES":         "10.0.0.0/8, 192.0.2.7",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 14, cfg.DefaultDueDays)
	require.Equal(t, "IDR", cfg.CurrencyCode)
	require.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 30*time.Second, cfg.LoginRateLimitWindow)
	require.False(t, cfg.Obs.MetricsEnabled)
	require.Equal(t, http.SameSiteStrictMode, cfg.CookieSameSite)
	require.Len(t, cfg.TrustedProxies, 2)
	require.True(t, cfg.TrustedProxies.Trusts("10.20.30.40"))
	require.False(t, cfg.TrustedProxies.Trusts("192.0.2.8"))
}

func TestLoadValidation(t *testing.T) {
	_, err := LoadForTests(map[string]string{"JWT_SECRET": ""})
	require.ErrorContains(t, err, "JWT_SECRET is required")

	_, err = LoadForTests(map[string]string{"JWT_SECRET": "short"})
	require.ErrorContains(t, err, "at least 16")

	_, err = LoadForTests(map[string]string{"JWT_SECRET": "0123456789abcdef0123", "DEFAULT_DUE_DAYS": "-1"})
	require.ErrorContains(t, err, "DEFAULT_DUE_DAYS")

	_, err = LoadForTests(map[string]string{"JWT_SECRET": "0123456789abcdef0123", "SEED_DEMO_DATA": "true", "SEED_ADMIN_PASSWORD": "x"})
	require.ErrorContains(t, err, "SEED_ADMIN_PASSWORD")

	_, err = LoadForTests(map[string]string{"JWT_SECRET": "0123456789abcdef0123", "WEBHOOK_URL": "https://hooks.example.test", "WEBHOOK_SECRET": ""})
	require.ErrorContains(t, err, "WEBHOOK_SECRET")

	_, err = LoadForTests(map[string]string{"JWT_SECRET": "0123456789abcdef0123", "TRUSTED_PROXIES": "10.0.0.0/40"})
	require.ErrorContains(t, err, "TRUSTED_PROXIES")
}

func TestLoadWebhook(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"JWT_SECRET":           "0123456789abcdef0123",
		"WEBHOOK_URL":          " https://hooks.example.test/inventory ",
		"WEBHOOK_SECRET":       "hook-secret",
		"WEBHOOK_TOPICS":       "document.issued, document.paid",
		"WEBHOOK_MAX_ATTEMPTS": "",
		"WEBHOOK_TIMEOUT":      "2s",
	})
	require.NoError(t, err)
	require.Equal(t, "https://hooks.example.test/inventory", cfg.Webhook.URL)
	require.Equal(t, []string{"document.issued", "document.paid"}, cfg.Webhook.Topics)
	require.Equal(t, 3, cfg.Webhook.MaxAttempts)
	require.Equal(t, 2*time.Second, cfg.Webhook.Timeout)
}
