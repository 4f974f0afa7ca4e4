package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// DefaultMaxUploadBytes caps multipart uploads when Config leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config carries the HTTP-level settings of the router.
type Config struct {
	Version        string
	CORSOrigins    []string
	UploadDir      string
	WebhookSecret  string
	MaxUploadBytes int64
}

// Services bundles the application services behind the routes. Any of them
// may be nil; the routes that need a missing one answer 503.
type Services struct {
	Ledger   *service.LedgerService
	Accounts *service.AccountService
	Auth     *service.AuthService
	Files    *service.FileService
	Store    Pinger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, cfg Config, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:5173"}
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.Tracing)
	r.Use(observability.RequestLogger(logger, metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Webhook-Secret"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/", apiInfoHandler(cfg.Version))
	r.Get("/healthz", healthzHandler(svc.Store, logger))
	r.Get("/readyz", readyzHandler())
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	// --- Public ---
	if cfg.UploadDir != "" {
		r.Handle(service.UploadPrefix+"*", http.StripPrefix(service.UploadPrefix, noDirListing(http.FileServer(http.Dir(cfg.UploadDir)))))
	}
	r.Post("/webhooks/auth", authWebhookHandler(svc.Accounts, cfg.WebhookSecret, logger))

	// --- Authenticated API ---
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(svc.Auth, logger))
		r.Use(requireServices(svc, logger))

		r.Route("/receipts", func(r chi.Router) {
			r.Post("/", createReceiptHandler(svc.Ledger, logger))
			r.Get("/", listReceiptsHandler(svc.Ledger, logger))

			// Static segments are matched before {id}.
			r.Get("/dashboard/stats", dashboardHandler(svc.Ledger, logger))
			r.Get("/export", exportHandler(svc.Ledger, logger))
			r.Post("/upload", uploadHandler(svc.Files, cfg.MaxUploadBytes, logger))
			r.Delete("/upload/{filename}", deleteUploadHandler(svc.Files, logger))

			r.Get("/items/{itemId}", getItemHandler(svc.Ledger, logger))
			r.Put("/items/{itemId}", updateItemHandler(svc.Ledger, logger))
			r.Delete("/items/{itemId}", deleteItemHandler(svc.Ledger, logger))

			r.Get("/{id}", getReceiptHandler(svc.Ledger, logger))
			r.Put("/{id}", updateReceiptHandler(svc.Ledger, logger))
			r.Delete("/{id}", deleteReceiptHandler(svc.Ledger, logger))
			r.Get("/{id}/items", listReceiptItemsHandler(svc.Ledger, logger))
			r.Post("/{id}/items", addReceiptItemHandler(svc.Ledger, logger))
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/pending", listPendingHandler(svc.Ledger, logger))
			r.Post("/pending", createPendingHandler(svc.Ledger, logger))
			r.Delete("/{id}", deletePendingHandler(svc.Ledger, logger))
		})

		r.Route("/income", func(r chi.Router) {
			r.Post("/", createIncomeHandler(svc.Ledger, logger))
			r.Get("/", listIncomesHandler(svc.Ledger, logger))
			r.Get("/{id}", getIncomeHandler(svc.Ledger, logger))
			r.Patch("/{id}", updateIncomeHandler(svc.Ledger, logger))
			r.Delete("/{id}", deleteIncomeHandler(svc.Ledger, logger))
		})

		r.Get("/settings", getSettingsHandler(svc.Ledger, logger))
		r.Patch("/settings", updateSettingsHandler(svc.Ledger, logger))

		r.Route("/users", func(r chi.Router) {
			r.Post("/", syncUserHandler(svc.Accounts, logger))
			r.Get("/{id}", getUserHandler(svc.Accounts, logger))
			r.Put("/{id}", updateUserHandler(svc.Accounts, logger))
			r.Delete("/{id}", deleteUserHandler(svc.Accounts, logger))
		})
	})

	return r
}

// requireServices answers 503 when the service a route group needs was
// not wired.
func requireServices(svc Services, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			missing := ""
			switch {
			case strings.HasPrefix(r.URL.Path, "/users"):
				if svc.Accounts == nil {
					missing = "accounts"
				}
			case strings.HasPrefix(r.URL.Path, "/receipts/upload"):
				if svc.Files == nil {
					missing = "files"
				}
			default:
				if svc.Ledger == nil {
					missing = "ledger"
				}
			}
			if missing != "" {
				logger.Error("service not configured", zap.String("service", missing), zap.String("path", r.URL.Path))
				writeError(w, http.StatusServiceUnavailable, missing+" service unavailable")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// noDirListing hides directory indexes of the upload folder.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ============================================================
// Metrics & Health
// ============================================================

func apiInfoHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.APIInfo{Name: "SpendLog API", Version: version})
	}
}

func healthzHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "spendlog-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			err := store.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			sh := domain.ServiceHealth{Name: "database", Status: "healthy", LatencyMs: latency, LastChecked: now}
			if err != nil {
				logger.Error("health: database ping failed", zap.Error(err))
				sh.Status = "unhealthy"
				sh.Error = err.Error()
			}
			services = append(services, sh)
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		status := http.StatusOK
		if overallStatus == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
