package testutil

import (
	"net/http"

	"ecommerce/pkg/platform/middleware/admin"
	"ecommerce/pkg/requestcontext"
)

// WithAdmin marks the request as coming from an authenticated back-office
// operator, as the auth middleware would for a valid bearer token.
func WithAdmin(req *http.Request, subject string) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), subject, []string{admin.Role})
	return req.WithContext(ctx)
}
