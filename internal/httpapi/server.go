package httpapi

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Br3achBl0ckers/authcore"
	"github.com/Br3achBl0ckers/authcore/middleware"
)

// Options configures the router.
type Options struct {
	Engine *authcore.Engine
	Logger *slog.Logger

	// Production marks refresh cookies Secure and hides internal error detail.
	Production bool

	AllowedOrigins []string
	APIRateLimit   int
	APIRateWindow  time.Duration

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// RequestLogging enables chi's request logger.
	RequestLogging bool

	// TrustedProxies lists the peers whose X-Forwarded-For / X-Real-IP
	// headers are believed. Empty means the socket address is always used.
	TrustedProxies []netip.Prefix
}

// Server holds the handler dependencies.
type Server struct {
	engine     *authcore.Engine
	logger     *slog.Logger
	production bool
}

// NewRouter builds the HTTP handler for opts.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{engine: opts.Engine, logger: logger, production: opts.Production}

	limit, window := opts.APIRateLimit, opts.APIRateWindow
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	limiter := newAPILimiter(limit, window, time.Now)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(trustedRealIP(opts.TrustedProxies))
	if opts.RequestLogging {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(cors(opts.AllowedOrigins))
	r.Use(requestContext)

	r.Get("/healthz", s.healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	guard := middleware.Guard(opts.Engine)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/verify-otp", s.verifyOTP)
			r.Post("/resend-otp", s.resendOTP)
			r.Get("/verify-email", s.verifyEmail)
			r.Post("/resend-verification", s.resendVerification)
			r.Post("/login", s.login)
			r.Post("/forgot-password", s.forgotPassword)
			r.Post("/reset-password", s.resetPassword)
			r.Post("/refresh-token", s.refreshToken)

			r.With(guard).Post("/logout", s.logout)
			r.With(guard, middleware.RequireVerified).Get("/me", s.me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(guard)
			r.With(middleware.RequireSuper).Get("/", s.listUsers)
			r.Get("/{id}", s.getUser)
			r.With(middleware.RequireSuper).Patch("/{id}/role", s.updateRole)
			r.With(middleware.RequireSuper).Delete("/{id}", s.deleteUser)
		})
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// requestContext attaches the client IP and User-Agent for the engine.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authcore.WithClientIP(r.Context(), clientIP(r))
		ctx = authcore.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
