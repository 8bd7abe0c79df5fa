package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecommerce/internal/platform/metrics"
	"ecommerce/internal/platform/middleware"
	"ecommerce/pkg/platform/httputil"
	"ecommerce/pkg/platform/middleware/requesttime"
)

// RequestTimeout bounds every request handled by the router.
const RequestTimeout = 30 * time.Second

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps is what the router needs from main. RateLimit, when set, guards the
// module routes but not /healthz or /metrics.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	RateLimit func(http.Handler) http.Handler
	Modules   []Registrar
	Health    map[string]HealthCheck
}

// NewRouter wires the shared middleware chain, the module routes, /healthz
// and /metrics.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))
	r.Use(chimw.Timeout(RequestTimeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(d.Health))
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit)
		}
		for _, m := range d.Modules {
			m.Register(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
