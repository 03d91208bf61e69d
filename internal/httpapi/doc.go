// Package httpapi exposes the authcore engine over JSON/HTTP with a chi
// router.
//
// Routes live under /api/auth and /api/users. Every error an Engine method
// returns is translated to a status code and body in writeError; handlers
// never pick status codes for engine errors themselves.
//
// Client IP and User-Agent are attached to the request context with
// authcore.WithClientIP and authcore.WithUserAgent before a handler runs, so
// the abuse guard keys on the same IP the API limiter uses.
package httpapi
