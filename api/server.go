/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:   Unique ID per request for tracing
  2. Recoverer:   Panic recovery (500 instead of crash)
  3. requestLog:  One structured log line per request
  4. Instrument:  Prometheus request metrics (when enabled)
  5. CORS:        Cross-origin requests for tenant front-ends
  6. JSON:        render content type

ROUTE GROUPS:
  /health                      Liveness
  /metrics                     Prometheus scrape (when enabled)
  /api/tenants                 Registration and public seed
  /api/tenants/{tenantID}/*    Tenant administration (tenant_admin)
  /api/users/me/*              Stamp card of the caller (bearer token)
  /api/scenarios/*             Demo tenants (when enabled)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token verification
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/warp/stamp-engine/lib/sl"
	"github.com/warp/stamp-engine/metrics"
)

// Options configures NewRouter.
type Options struct {
	Secret      []byte
	CORSOrigins []string
	// StampRate limits stamp attempts per user and second. Zero disables
	// the limiter.
	StampRate  float64
	StampBurst int
	Metrics    *metrics.Metrics
	// Scenarios mounts the demo tenant loader.
	Scenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLog(h.log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Instrument)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/health", h.Health)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	authenticate := Authenticate(h.log, opts.Secret)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", h.CreateTenant)
			r.Get("/{tenantID}", h.GetTenantSeed)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(RequireTenantAdmin)

				r.Post("/{tenantID}/stores", h.UpsertStore)
				r.Delete("/{tenantID}/stores/{storeID}", h.DeleteStore)
				r.Post("/{tenantID}/reward-rules", h.UpsertRewardRule)
				r.Delete("/{tenantID}/reward-rules/{threshold}", h.DeleteRewardRule)
				r.Put("/{tenantID}/campaign", h.UpdateCampaign)
				r.Get("/{tenantID}/dashboard-stats", h.DashboardStats)
			})
		})

		if opts.Scenarios {
			r.Get("/scenarios", h.ListScenarios)
			r.Post("/scenarios/load", h.LoadScenario)
		}

		r.Route("/users/me", func(r chi.Router) {
			r.Use(authenticate)

			stamps := r.With()
			if opts.StampRate > 0 {
				stamps = r.With(NewRateLimiter(opts.StampRate, opts.StampBurst).Handler)
			}
			stamps.Post("/stamps", h.RecordStamp)

			r.Get("/progress", h.GetProgress)
			r.Patch("/coupons/{couponID}/use", h.MarkCouponUsed)
		})
	})

	return r
}

// requestLog writes one line per request once the response is done.
func requestLog(log *slog.Logger) func(http.Handler) http.Handler {
	mod := sl.Module("api.request")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remote := r.RemoteAddr
			if xRemote := r.Header.Get("X-Forwarded-For"); xRemote != "" {
				remote = xRemote
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			t1 := time.Now()
			defer func() {
				log.With(
					mod,
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", remote),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				).Info("incoming request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
