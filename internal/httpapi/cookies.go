package httpapi

import (
	"net/http"
	"time"
)

const refreshCookieName = "refreshToken"

// setRefreshCookie stores the refresh token. A persistent cookie lasting ttl
// is set only when persist is true; otherwise it is a session cookie.
func (s *Server) setRefreshCookie(w http.ResponseWriter, token string, persist bool, ttl time.Duration) {
	c := &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteStrictMode,
	}
	if persist && ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c)
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteStrictMode,
	})
}
