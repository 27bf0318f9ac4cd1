package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/smart-import/pkg/interceptors"
	"github.com/FACorreiaa/smart-import/pkg/observability"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health() error
}

// RouteHandler mounts a group of routes.
type RouteHandler interface {
	RegisterRoutes(mux *http.ServeMux, wrap func(http.Handler) http.Handler)
}

// SetupRouter configures all routes and returns the HTTP handler
func SetupRouter(deps *Dependencies) http.Handler {
	var health HealthChecker
	if deps.DB != nil {
		health = deps.DB
	}
	return newRouter(deps, health, deps.ImportHandler)
}

func newRouter(deps *Dependencies, health HealthChecker, routes ...RouteHandler) http.Handler {
	mux := http.NewServeMux()

	jwtSecret := []byte(deps.Config.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		deps.Logger.Warn("JWT secret is empty; authentication middleware will reject requests")
	}
	auth := interceptors.NewAuth(jwtSecret)

	for _, r := range routes {
		if r != nil {
			r.RegisterRoutes(mux, auth)
		}
	}
	deps.Logger.Info("import routes configured")

	registerUtilityRoutes(mux, deps, health)

	tracer := otel.GetTracerProvider().Tracer("smart-import/api")

	var limiter *rate.Limiter
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter = rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
	}

	// Tracing and metrics sit closest to the mux so they see the matched pattern.
	handler := interceptors.Chain(mux,
		interceptors.NewRecovery(deps.Logger),
		interceptors.NewRequestID("X-Request-ID"),
		interceptors.NewLogging(deps.Logger),
		interceptors.NewRateLimit(limiter),
		interceptors.NewTracing(tracer),
		observability.Metrics,
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           7200, // Cache preflights for 2 hours
	})

	return corsHandler.Handler(handler)
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies, health HealthChecker) {
	// Liveness
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			deps.Logger.Error("failed to write health response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health check", "path", "/healthz")

	// Readiness, including the database
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status string `json:"status"`
			Detail string `json:"detail,omitempty"`
		}
		result := map[string]status{"db": {Status: "ok"}}
		code := http.StatusOK

		if health == nil {
			result["db"] = status{Status: "fail", Detail: "not configured"}
			code = http.StatusServiceUnavailable
		} else if err := health.Health(); err != nil {
			result["db"] = status{Status: "fail", Detail: err.Error()}
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			deps.Logger.Error("failed to encode readiness", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered readiness check", "path", "/ready")

	// Metrics endpoint (Prometheus)
	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
