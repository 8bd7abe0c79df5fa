package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("redis down")
}

func sendFrom(h http.Handler, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.RemoteAddr = ip + ":51000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects requests over the limit", func(t *testing.T) {
		h := NewMiddleware(NewInMemory(), 2, time.Minute).Handler(ok)

		first := sendFrom(h, "10.0.0.1")
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1").Code)

		blocked := sendFrom(h, "10.0.0.1")
		assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
		assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
		assert.Contains(t, blocked.Body.String(), "rate_limit_exceeded")

		assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.2").Code)
	})

	t.Run("lets requests through when the store fails", func(t *testing.T) {
		h := NewMiddleware(failingStore{}, 1, time.Minute).Handler(ok)
		assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1").Code)
		assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1").Code)
	})
}
