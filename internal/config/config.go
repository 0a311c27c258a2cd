package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-inventory/internal/common"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	CORSAllowedOrigins []string
	TrustedProxies     common.Proxies
	CookieName         string
	CookieDomain       string
	CookieSecure       bool
	CookieSameSite     http.SameSite

	CompanyName    string
	CurrencyCode   string
	DefaultDueDays int

	SeedDemoData      bool
	SeedAdminEmail    string
	SeedAdminPassword string

	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration
	IdempotencyTTL       time.Duration
	MaxBodyBytes         int64
	EventLogSize         int
	AuditEnabled         bool
	AuditLogSize         int

	Webhook WebhookConfig
	Obs     ObsConfig
}

// WebhookConfig configures outbound delivery of document events.
// Delivery is disabled while URL is empty.
type WebhookConfig struct {
	URL         string
	Secret      string
	Topics      []string
	Timeout     time.Duration
	MaxAttempts int
}

// ObsConfig groups the OBS_* logging, metrics and tracing switches.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
// DATABASE_URL and REDIS_URL are optional; without them the API runs on
// in-memory storage and Redis-backed middleware is disabled.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		JWTSecret:          k.String("JWT_SECRET"),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "8h"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CookieName:         valueOrDefault(k.String("COOKIE_NAME"), "inventory_session"),
		CookieDomain:       strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:       parseBool(k.String("COOKIE_SECURE"), false),
		CookieSameSite:     parseSameSite(k.String("COOKIE_SAMESITE")),

		CompanyName:    valueOrDefault(k.String("COMPANY_NAME"), "Backend Inventory"),
		CurrencyCode:   strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "USD")),
		DefaultDueDays: parseInt(k.String("DEFAULT_DUE_DAYS"), 30),

		SeedDemoData:      parseBool(k.String("SEED_DEMO_DATA"), false),
		SeedAdminEmail:    valueOrDefault(k.String("SEED_ADMIN_EMAIL"), "admin@example.com"),
		SeedAdminPassword: k.String("SEED_ADMIN_PASSWORD"),

		LoginRateLimitMax:    parseInt(k.String("LOGIN_RATE_LIMIT_MAX"), 10),
		LoginRateLimitWindow: parseDuration(k.String("LOGIN_RATE_LIMIT_WINDOW"), "1m"),
		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		MaxBodyBytes:         int64(parseInt(k.String("MAX_BODY_BYTES"), 1<<20)),
		EventLogSize:         parseInt(k.String("EVENT_LOG_SIZE"), 200),
		AuditEnabled:         parseBool(k.String("AUDIT_ENABLED"), true),
		AuditLogSize:         parseInt(k.String("AUDIT_LOG_SIZE"), 500),

		Webhook: WebhookConfig{
			URL:         strings.TrimSpace(k.String("WEBHOOK_URL")),
			Secret:      k.String("WEBHOOK_SECRET"),
			Topics:      splitAndTrim(k.String("WEBHOOK_TOPICS")),
			Timeout:     parseDuration(k.String("WEBHOOK_TIMEOUT"), "5s"),
			MaxAttempts: parseInt(k.String("WEBHOOK_MAX_ATTEMPTS"), 3),
		},

		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "inventory"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		},
	}

	proxies, err := common.ParseProxies(splitAndTrim(k.String("TRUSTED_PROXIES")))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	cfg.TrustedProxies = proxies

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, errors.New("JWT_SECRET must be at least 16 bytes")
	}
	if cfg.DefaultDueDays < 0 {
		return nil, errors.New("DEFAULT_DUE_DAYS must not be negative")
	}
	if cfg.Webhook.URL != "" && cfg.Webhook.Secret == "" {
		return nil, errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	if cfg.SeedDemoData && len(cfg.SeedAdminPassword) < 8 {
		return nil, errors.New("SEED_ADMIN_PASSWORD must be at least 8 characters when SEED_DEMO_DATA is set")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
