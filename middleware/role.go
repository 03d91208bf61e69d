package middleware

import (
	"net/http"
	"slices"

	"github.com/Br3achBl0ckers/authcore"
)

// RequireRole admits only the listed roles. It must run after Guard.
func RequireRole(roles ...authcore.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeMsg(w, http.StatusUnauthorized, msgNoToken)
				return
			}
			if !slices.Contains(roles, claims.Role) {
				writeMsg(w, http.StatusForbidden, "Access denied, insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuper admits only super accounts.
func RequireSuper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeMsg(w, http.StatusUnauthorized, msgNoToken)
			return
		}
		if claims.Role != authcore.RoleSuper {
			writeMsg(w, http.StatusForbidden, "This operation requires super admin privileges")
			return
		}
		next.ServeHTTP(w, r)
	})
}
