package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Br3achBl0ckers/authcore"
)

// writeError is the single translation from engine errors to responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rateErr   *authcore.RateLimitError
		lockErr   *authcore.ResetLockedError
		unverErr  *authcore.EmailNotVerifiedError
		policyErr *authcore.PasswordPolicyError
		validErr  *authcore.ValidationError
	)

	switch {
	case errors.Is(err, errMalformedBody):
		writeMsg(w, http.StatusBadRequest, "Invalid request body")

	case errors.As(err, &validErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"msg":    firstFieldMessage(validErr),
			"fields": validErr.Fields,
		})

	case errors.As(err, &policyErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"msg":    "Password requirements not met",
			"errors": policyErr.Reasons,
		})

	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", formatSeconds(rateErr.RemainingTime))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"msg":               rateLimitMessage(rateErr),
			"remainingTime":     rateErr.RemainingTime.Milliseconds(),
			"attemptsRemaining": rateErr.AttemptsRemaining,
		})

	case errors.As(err, &lockErr):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"msg":       "Too many reset attempts. Please try again later.",
			"lockUntil": lockErr.LockUntil.UTC().Format(time.RFC3339),
		})

	case errors.As(err, &unverErr):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"msg":             "Please verify your email first",
			"isEmailVerified": false,
			"canResend":       unverErr.CanResend,
		})

	case errors.Is(err, authcore.ErrDuplicateAccount):
		writeMsg(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, authcore.ErrNoPendingRegistration):
		writeMsg(w, http.StatusBadRequest, "Invalid or expired verification session")
	case errors.Is(err, authcore.ErrOtpExpired):
		writeMsg(w, http.StatusBadRequest, "OTP has expired. Please register again.")
	case errors.Is(err, authcore.ErrInvalidOtp):
		writeMsg(w, http.StatusBadRequest, "Invalid OTP")
	case errors.Is(err, authcore.ErrInvalidCredentials):
		writeMsg(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, authcore.ErrInvalidOrExpiredToken):
		writeMsg(w, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, authcore.ErrInvalidRole):
		writeMsg(w, http.StatusBadRequest, "Invalid role")
	case errors.Is(err, authcore.ErrSelfModification):
		writeMsg(w, http.StatusBadRequest, "Cannot modify your own account")
	case errors.Is(err, authcore.ErrNotFound):
		writeMsg(w, http.StatusNotFound, "User not found")
	case errors.Is(err, authcore.ErrNoSession):
		writeMsg(w, http.StatusUnauthorized, "No refresh token found")
	case errors.Is(err, authcore.ErrInvalidSession):
		writeMsg(w, http.StatusForbidden, "Invalid refresh token")
	case errors.Is(err, authcore.ErrUnauthorized):
		writeMsg(w, http.StatusUnauthorized, "Token is not valid")
	case errors.Is(err, authcore.ErrEmailDispatchFailed):
		writeMsg(w, http.StatusInternalServerError, "Failed to send email. Please try again.")

	default:
		s.logger.ErrorContext(r.Context(), "HTTP API: request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		body := map[string]any{"msg": "Server Error"}
		if !s.production {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

func rateLimitMessage(err *authcore.RateLimitError) string {
	wait := formatTime(err.RemainingTime)
	switch err.Operation {
	case "login":
		return "Too many login attempts. Please try again in " + wait
	case "registration":
		return "Too many registration attempts. Please try again in " + wait
	case "email":
		return "Too many email requests. Please try again in " + wait
	default:
		return "Too many requests. Please try again in " + wait
	}
}

func firstFieldMessage(err *authcore.ValidationError) string {
	for _, field := range []string{"name", "email", "password", "otp", "token", "newPassword", "role"} {
		if msgs := err.Fields[field]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	for _, msgs := range err.Fields {
		if len(msgs) > 0 {
			return msgs[0]
		}
	}
	return "Validation failed"
}
