package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"ecommerce/internal/platform/metrics"
	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/platform/httputil"
	"ecommerce/pkg/requestcontext"
)

// storeTimeout bounds Complete and Release, which run detached from the
// request so a cancelled request still settles its key.
const storeTimeout = 5 * time.Second

// Middleware applies Idempotency-Key semantics to the wrapped routes.
// Requests without the header pass through untouched.
type Middleware struct {
	store   Store
	ttl     time.Duration
	lease   time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Middleware)

// WithLease sets how long a reservation stays in flight when the request
// never settles it, e.g. after a crash.
func WithLease(lease time.Duration) Option {
	return func(m *Middleware) {
		if lease > 0 {
			m.lease = lease
		}
	}
}

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

func NewMiddleware(store Store, ttl time.Duration, opts ...Option) *Middleware {
	m := &Middleware{store: store, ttl: ttl, lease: DefaultLease, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler is the chi-compatible middleware function.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(Header)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)
		if len(key) > MaxKeyLength {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Idempotency-Key is too long"))
			return
		}

		fingerprint, err := fingerprintRequest(r)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body"))
			return
		}

		record, err := m.store.Reserve(ctx, key, fingerprint, m.lease)
		switch {
		case errors.Is(err, ErrInFlight):
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a request with this Idempotency-Key is in progress"))
			return
		case err != nil:
			m.logger.ErrorContext(ctx, "idempotency reserve failed",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "idempotency store unavailable"))
			return
		case record != nil:
			if record.Fingerprint != fingerprint {
				httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "Idempotency-Key was used for a different request"))
				return
			}
			m.replay(w, record)
			m.logger.InfoContext(ctx, "idempotent_replay",
				"request_id", requestID,
				"idempotency_key", key,
				"status", record.Status,
			)
			return
		}

		settled := false
		defer func() {
			if settled {
				return
			}
			// the handler panicked; free the key before Recovery answers
			m.release(ctx, key)
		}()

		var body bytes.Buffer
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&body)
		next.ServeHTTP(ww, r.WithContext(requestcontext.WithIdempotencyKey(ctx, key)))
		settled = true

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if !replayable(status) {
			m.release(ctx, key)
			return
		}
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()
		err = m.store.Complete(storeCtx, key, Record{
			Fingerprint: fingerprint,
			Status:      status,
			Header:      http.Header{"Content-Type": ww.Header().Values("Content-Type")},
			Body:        body.Bytes(),
			CreatedAt:   requestcontext.Now(ctx),
		}, m.ttl)
		if err != nil {
			m.logger.WarnContext(ctx, "idempotency complete failed", "request_id", requestID, "error", err)
		}
	})
}

// replayable reports whether a response is the settled outcome of the request.
// Server errors and rejected credentials are not, so the client may retry.
func replayable(status int) bool {
	switch {
	case status >= http.StatusInternalServerError:
		return false
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return false
	}
	return true
}

func (m *Middleware) release(ctx context.Context, key string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := m.store.Release(releaseCtx, key); err != nil {
		m.logger.WarnContext(ctx, "idempotency release failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (m *Middleware) replay(w http.ResponseWriter, record *Record) {
	for name, values := range record.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
	if m.metrics != nil {
		m.metrics.IdempotentReplays.Inc()
	}
}

// fingerprintRequest hashes method, path and body, then restores the body
// for the next handler.
func fingerprintRequest(r *http.Request) (string, error) {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	if r.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(r.Body, httputil.MaxBodyBytes+1))
		if err != nil {
			return "", err
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
