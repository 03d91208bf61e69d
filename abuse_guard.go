package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Br3achBl0ckers/authcore/internal/limiters"
	"github.com/Br3achBl0ckers/authcore/internal/rate"
)

// abuseGuard applies the login, registration and email throttles to client
// keys. Privileged accounts are resolved by the caller and never reach it.
type abuseGuard struct {
	login        *rate.Tracker
	registration *limiters.FixedWindow
	email        *limiters.FixedWindow
	accounts     AccountStore
	logger       *slog.Logger
}

func (g *abuseGuard) checkLogin(ctx context.Context, key string) error {
	d, err := g.login.Attempt(ctx, key)
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		return &RateLimitError{
			Operation:         scopeLogin,
			RemainingTime:     d.RemainingTime,
			Attempts:          d.Attempts,
			AttemptsRemaining: 0,
		}
	}
	return fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
}

func (g *abuseGuard) checkRegistration(ctx context.Context, key string) error {
	return fixedWindowErr(ctx, g.registration, scopeRegistration, key)
}

func (g *abuseGuard) checkEmail(ctx context.Context, key string) error {
	return fixedWindowErr(ctx, g.email, scopeEmail, key)
}

func fixedWindowErr(ctx context.Context, l *limiters.FixedWindow, scope, key string) error {
	res, err := l.Allow(ctx, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiters.ErrRateLimited):
		return &RateLimitError{
			Operation:         scope,
			RemainingTime:     res.RetryAfter,
			Attempts:          int(res.Count),
			AttemptsRemaining: 0,
		}
	default:
		return fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}
}

// exempt reports whether email belongs to a privileged account. Lookup
// failures count as not exempt so the throttle still applies.
func (g *abuseGuard) exempt(ctx context.Context, email string) bool {
	if email == "" {
		return false
	}
	acct, err := g.accounts.GetByEmail(ctx, email)
	if err != nil {
		return false
	}
	return acct.Role.Privileged()
}

// succeeded clears the client's login ledger and, for non-privileged
// accounts, the password reset counter and lock. Both are best-effort.
func (g *abuseGuard) succeeded(ctx context.Context, key string, acct *Account) {
	if err := g.login.Reset(ctx, key); err != nil {
		g.logger.Warn("Auth engine: failed to reset login attempts", slog.Any("error", err))
	}
	if acct == nil || acct.Role.Privileged() {
		return
	}
	if acct.PasswordResetAttempts == 0 && acct.PasswordResetLockUntil == nil {
		return
	}
	if err := g.accounts.ClearResetLock(ctx, acct.ID); err != nil {
		g.logger.Warn("Auth engine: failed to clear password reset lock",
			slog.String("user_id", acct.ID), slog.Any("error", err))
	}
}
