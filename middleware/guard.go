package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Br3achBl0ckers/authcore"
)

const (
	msgNoToken      = "No token, authorization denied"
	msgInvalidToken = "Token is not valid"
)

// Validator is the part of *authcore.Engine the guards need.
type Validator interface {
	ValidateAccess(ctx context.Context, accessToken string) (*authcore.Claims, error)
}

type claimsContextKey struct{}

type tokenContextKey struct{}

// ClaimsFromContext returns the claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (*authcore.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authcore.Claims)
	return claims, ok
}

// TokenFromContext returns the raw access token accepted by Guard.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok && token != ""
}

// Guard requires a valid Bearer access token and stores its claims in the
// request context.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeMsg(w, http.StatusUnauthorized, msgNoToken)
				return
			}
			if v == nil {
				writeMsg(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			claims, err := v.ValidateAccess(r.Context(), token)
			if err != nil {
				writeMsg(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			ctx = context.WithValue(ctx, tokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"msg": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
