package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ecommerce/internal/platform/metrics"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/platform/httputil"
	"ecommerce/pkg/platform/middleware/metadata"
	"ecommerce/pkg/requestcontext"
)

// Middleware limits requests per client IP. Store failures let the request
// through.
type Middleware struct {
	store   Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Middleware)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func NewMiddleware(store Store, limit int, window time.Duration, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler is the chi-compatible middleware function.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := metadata.ClientIP(r)

		result, err := m.store.Allow(ctx, ip, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if m.metrics != nil {
				m.metrics.RateLimited.Inc()
			}
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"request_id", requestcontext.RequestID(ctx),
				"client_ip", ip,
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter(m.now())))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
