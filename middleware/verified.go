package middleware

import "net/http"

// RequireVerified rejects tokens issued to accounts whose email is not yet
// verified. It must run after Guard.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeMsg(w, http.StatusUnauthorized, msgNoToken)
			return
		}
		if !claims.IsEmailVerified {
			writeJSON(w, http.StatusForbidden, map[string]any{
				"msg":             "Please verify your email first",
				"isEmailVerified": false,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
