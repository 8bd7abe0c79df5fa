package admin

import (
	"log/slog"
	"net/http"

	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/platform/httputil"
	"ecommerce/pkg/requestcontext"
)

// Role is the token role granting back-office access.
const Role = "admin"

// RequireAdmin lets through principals holding Role. It must run after
// auth.RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !requestcontext.HasRole(ctx, Role) {
				logger.WarnContext(ctx, "forbidden - admin role required",
					"request_id", requestcontext.RequestID(ctx),
					"subject", requestcontext.Subject(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
