package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"ecommerce/pkg/platform/middleware/admin"
	"ecommerce/pkg/requestcontext"
)

type stubValidator map[string]*JWTClaims

func (v stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := stubValidator{
		"admin-token": {Subject: "ops", Roles: []string{admin.Role}},
		"clerk-token": {Subject: "clerk", Roles: []string{"support"}},
	}

	var subject string
	h := RequireAuth(validator, logger)(admin.RequireAdmin(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = requestcontext.Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", want: http.StatusUnauthorized},
		{name: "not a bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "missing admin role", header: "Bearer clerk-token", want: http.StatusForbidden},
		{name: "admin", header: "Bearer admin-token", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/products", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
	assert.Equal(t, "ops", subject)
}
