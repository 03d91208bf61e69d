package httpapi

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// apiLimiter is a per-IP token bucket over every /api request. Each bucket
// holds limit tokens and refills one every window/limit.
type apiLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     int
	window    time.Duration
	every     rate.Limit
	now       func() time.Time
	lastSweep time.Time
}

func newAPILimiter(limit int, window time.Duration, now func() time.Time) *apiLimiter {
	return &apiLimiter{
		visitors:  make(map[string]*visitor),
		limit:     limit,
		window:    window,
		every:     rate.Every(window / time.Duration(limit)),
		now:       now,
		lastSweep: now(),
	}
}

// allow reports whether ip may proceed and, if not, how long until a token
// is available.
func (l *apiLimiter) allow(ip string) (time.Duration, bool) {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.window {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.window {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.limit)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	res := v.limiter.ReserveN(now, 1)
	if !res.OK() {
		return l.window, false
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay, false
	}
	return 0, true
}

func (l *apiLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *apiLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wait, ok := l.allow(clientIP(r)); !ok {
			w.Header().Set("Retry-After", formatSeconds(wait))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"msg":           "Too many requests from this IP, please try again in " + formatTime(wait),
				"remainingTime": wait.Milliseconds(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
