package httpx

import (
	"net/http"
	"slices"
)

// RequireAnyRole allows the request if the authenticated role is one of
// roles. It must run after AuthnMiddleware.
func RequireAnyRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !slices.Contains(roles, role) {
				WriteError(w, http.StatusForbidden, "insufficient_role", "account role is not permitted here")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
