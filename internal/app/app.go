// Package app assembles the services, storage and HTTP router of the API.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-inventory/internal/audit"
	"github.com/noah-isme/backend-inventory/internal/auth"
	"github.com/noah-isme/backend-inventory/internal/billing"
	"github.com/noah-isme/backend-inventory/internal/common"
	"github.com/noah-isme/backend-inventory/internal/config"
	"github.com/noah-isme/backend-inventory/internal/directory"
	"github.com/noah-isme/backend-inventory/internal/events"
	"github.com/noah-isme/backend-inventory/internal/health"
	"github.com/noah-isme/backend-inventory/internal/lock"
	"github.com/noah-isme/backend-inventory/internal/navigation"
	"github.com/noah-isme/backend-inventory/internal/obs"
	"github.com/noah-isme/backend-inventory/internal/ratelimit"
	"github.com/noah-isme/backend-inventory/internal/render"
	"github.com/noah-isme/backend-inventory/internal/report"
	"github.com/noah-isme/backend-inventory/internal/resilience"
	"github.com/noah-isme/backend-inventory/internal/security"
	"github.com/noah-isme/backend-inventory/internal/seed"
)

// App holds the wired dependencies of one API process.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Directory *directory.Service
	Auth      *auth.Service
	Billing   *billing.Service
	Reports   *report.Service
	EventLog  *events.MemoryLog
	Audit     *audit.Service

	limiter ratelimit.Allower
	closers []func()
}

// New connects optional storage, seeds demo data when asked and wires the services.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
		resilience.MustRegisterMetrics(cfg.Obs.MetricsNamespace, nil)
	}

	var store billing.Store = billing.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		if err := billing.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		pool, err := obs.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.DB = pool
		a.closers = append(a.closers, pool.Close)
		store = &billing.PostgresStore{DB: pool}
		logger.Info().Msg("documents stored in postgres")
	}

	a.limiter = ratelimit.NewMemoryLimiter()
	if cfg.RedisURL != "" {
		client, err := newRedis(ctx, cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = client
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		})
		a.limiter = ratelimit.Limiter{Client: client, Prefix: "ratelimit:"}
	}

	a.Directory = directory.NewService()
	if cfg.SeedDemoData {
		if _, err := seed.Run(ctx, a.Directory, seed.Options{
			AdminEmail:    cfg.SeedAdminEmail,
			AdminPassword: cfg.SeedAdminPassword,
		}, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	authSvc, err := auth.NewService(auth.Config{
		Employees:      a.Directory,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}
	a.Auth = authSvc

	a.EventLog = events.NewMemoryLog(cfg.EventLogSize)
	eventLogger := logger.With().Str("component", "events").Logger()
	bus := &events.Bus{
		Store: a.EventLog,
		Notifiers: []events.Notifier{
			events.LogNotifier{Logger: eventLogger},
			events.NotifierFunc(func(_ context.Context, ev events.Event) error {
				obs.ObserveDocumentEvent(ev.Topic)
				return nil
			}),
		},
	}
	if hook := newWebhook(cfg.Webhook, eventLogger); hook != nil {
		bus.Notifiers = append(bus.Notifiers, hook)
		a.closers = append(a.closers, hook.Wait)
		logger.Info().Str("url", cfg.Webhook.URL).Msg("event webhook enabled")
	}

	a.Billing = billing.NewService(store, a.Directory, bus, logger.With().Str("component", "billing").Logger())
	a.Billing.DefaultDueDays = cfg.DefaultDueDays
	if a.Redis != nil {
		a.Billing.Locker = lock.Locker{R: a.Redis}
	}
	a.Reports = &report.Service{Docs: a.Billing}
	a.Audit = &audit.Service{Store: audit.NewMemoryStore(cfg.AuditLogSize), Enabled: cfg.AuditEnabled}
	return a, nil
}

func newWebhook(cfg config.WebhookConfig, logger zerolog.Logger) *events.Async {
	if cfg.URL == "" {
		return nil
	}
	breaker := resilience.NewBreaker("webhook", 5, 0.5, 30*time.Second)
	breaker.Logger = logger
	return &events.Async{
		Logger: logger,
		Notifier: &events.WebhookNotifier{
			URL:    cfg.URL,
			Secret: cfg.Secret,
			Topics: cfg.Topics,
			Client: &resilience.HTTPClient{
				Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
				Breaker:     breaker,
				MaxAttempts: cfg.MaxAttempts,
				BaseBackoff: 200 * time.Millisecond,
				Jitter:      0.2,
				Timeout:     cfg.Timeout,
			},
		},
	}
}

func newRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Close releases storage connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) company() render.Company {
	return render.Company{Name: a.Config.CompanyName, Currency: a.Config.CurrencyCode}
}

func roles(section string, write bool) func(http.Handler) http.Handler {
	return auth.RequireRole(navigation.Allowed(section, write)...)
}

// Router builds the HTTP handler tree.
func (a *App) Router() http.Handler {
	cfg := a.Config
	company := a.company()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(cfg.TrustedProxies.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Obs.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.Obs.MetricsEnabled {
		metrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: a.Logger}.Middleware)
	r.Use(security.Headers{HSTS: cfg.CookieSecure}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowOriginFunc:  originFunc(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", security.DefaultCSRFName, common.IdempotencyHeader},
		ExposedHeaders:   []string{"Content-Disposition", common.IdempotentReplayHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	healthHandler := health.Handler{Checker: health.Deps{DB: pgPinger(a.DB), Redis: a.Redis}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	csrf := &security.CSRF{SessionCookie: cfg.CookieName}
	authHandler := &auth.Handler{
		Service:          a.Auth,
		AccessCookieName: cfg.CookieName,
		CookieDomain:     cfg.CookieDomain,
		CookieSecure:     cfg.CookieSecure,
		CookieSameSite:   cfg.CookieSameSite,
		CSRF:             csrf,
	}
	authMiddleware := auth.Middleware{Service: a.Auth, AccessCookie: cfg.CookieName}
	loginLimit := ratelimit.Handler{
		Limiter: a.limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP("login"),
			Window: cfg.LoginRateLimitWindow,
			Max:    cfg.LoginRateLimitMax,
		},
		OnError: func(err error) { a.Logger.Warn().Err(err).Msg("login rate limiter unavailable") },
	}
	idem := common.Idem{R: a.Redis, TTL: cfg.IdempotencyTTL}
	dirHandler := &directory.Handler{Svc: a.Directory}
	orders := &billing.Handler{Svc: a.Billing, Kind: billing.KindSales, PDF: func(w io.Writer, v billing.View) error {
		return render.InvoicePDF(w, v, company)
	}}
	purchases := &billing.Handler{Svc: a.Billing, Kind: billing.KindPurchase, PDF: func(w io.Writer, v billing.View) error {
		return render.InvoicePDF(w, v, company)
	}}
	reports := &report.Handler{Svc: a.Reports, PDF: func(w io.Writer, s report.Summary) error {
		return render.ReportPDF(w, s, company)
	}}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)

		v.Route("/auth", func(ar chi.Router) {
			ar.With(loginLimit.Middleware).Post("/login", authHandler.Login)
			ar.Post("/logout", authHandler.Logout)
			ar.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Group(func(p chi.Router) {
			p.Use(authMiddleware.RequireAuth)
			p.Use(csrf.Middleware)
			p.Use(audit.HTTPRecorder{
				Service:         a.Audit,
				ResourceIDParam: "id",
				OnError:         func(err error) { a.Logger.Warn().Err(err).Msg("audit record") },
			}.Middleware)
			p.Get("/navigation", navigation.Handler)

			p.Route("/suppliers", func(s chi.Router) {
				s.Use(roles(navigation.Suppliers, false))
				dirHandler.SupplierRoutes(s, roles(navigation.Suppliers, true))
			})
			p.Route("/items", func(s chi.Router) {
				s.Use(roles(navigation.Items, false))
				dirHandler.ItemRoutes(s, roles(navigation.Items, true))
			})
			p.Route("/employees", func(s chi.Router) {
				s.Use(roles(navigation.Employees, false))
				dirHandler.EmployeeRoutes(s)
			})
			p.Route("/orders", func(s chi.Router) {
				s.Use(roles(navigation.Orders, false))
				orders.Routes(s, chain(roles(navigation.Orders, true), idem.Middleware))
			})
			p.Route("/purchases", func(s chi.Router) {
				s.Use(roles(navigation.Purchases, false))
				purchases.Routes(s, chain(roles(navigation.Purchases, true), idem.Middleware))
			})
			p.With(roles(navigation.Reports, false)).Get("/reports/summary", reports.Summary)
			p.With(auth.RequireRole(string(directory.RoleAdmin))).Get("/events", a.EventLog.Handler)
			p.With(auth.RequireRole(string(directory.RoleAdmin))).Get("/audit", audit.Handler{Store: a.Audit.Store}.List)
		})
	})
	return r
}

// chain composes middlewares so the first one runs outermost.
func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// originFunc denies every cross-origin request when no origins are
// configured. The cors package would otherwise allow all of them.
func originFunc(allowed []string) func(*http.Request, string) bool {
	if len(allowed) > 0 {
		return nil
	}
	return func(*http.Request, string) bool { return false }
}

// pgPinger keeps a nil pool from becoming a non-nil interface.
func pgPinger(pool *pgxpool.Pool) health.Pinger {
	if pool == nil {
		return nil
	}
	return pool
}
