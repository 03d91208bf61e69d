package authcore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Br3achBl0ckers/authcore/internal"
	"github.com/Br3achBl0ckers/authcore/internal/rate"
	"github.com/Br3achBl0ckers/authcore/jwt"
	"github.com/Br3achBl0ckers/authcore/password"
)

// Engine is the credential and session manager. It is safe for concurrent
// use once built.
type Engine struct {
	config    Config
	accounts  AccountStore
	pending   PendingStore
	hasher    *password.Hasher
	policy    password.Policy
	tokens    *jwt.Manager
	guard     *abuseGuard
	ledger    rate.Store
	sweeper   *rate.Sweeper
	notifier  *notifier
	audit     *auditDispatcher
	metrics   *Metrics
	logger    *slog.Logger
	clock     func() time.Time
	dummyHash string
}

// Close stops the attempt sweeper and drains the mail and audit queues.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.sweeper != nil {
		e.sweeper.Stop()
	}
	e.notifier.close()
	e.audit.Close()
}

// AuditDropped returns how many audit events were dropped by a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MailDropped returns how many async notifications were dropped by a full queue.
func (e *Engine) MailDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.notifier.dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live counters to exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// RefreshTTL is the lifetime of issued refresh tokens. Transports use it for
// persistent cookies.
func (e *Engine) RefreshTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.RefreshTTL
}

// Flow returns the configured registration flow.
func (e *Engine) Flow() RegistrationFlow {
	if e == nil {
		return FlowOTPVerified
	}
	return e.config.Registration.Flow
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

// ValidateAccess verifies an access token. It never touches the account store.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*Claims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrUnauthorized
	}

	start := time.Now()
	claims, err := e.tokens.ParseAccess(accessToken)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		return nil, ErrUnauthorized
	}

	out := &Claims{
		UserID:          claims.UserID,
		Role:            Role(claims.Role),
		IsEmailVerified: claims.IsEmailVerified,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Refresh rotates a refresh token. Of two concurrent calls presenting the
// same token exactly one succeeds; the other gets ErrInvalidSession.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, ErrNoSession
	}

	fail := func(userID string, err error) (*Session, error) {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, userID, "", err, nil)
		return nil, err
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return fail("", ErrInvalidSession)
	}

	acct, err := e.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fail(claims.UserID, ErrInvalidSession)
		}
		return nil, storeErr(err)
	}
	if acct.RefreshToken == "" || !internal.EqualSecret(acct.RefreshToken, refreshToken) {
		return fail(acct.ID, ErrInvalidSession)
	}

	access, next, err := e.mintPair(acct)
	if err != nil {
		return nil, err
	}

	rotated, err := e.accounts.RotateRefreshToken(ctx, acct.ID, refreshToken, next)
	if err != nil {
		return nil, storeErr(err)
	}
	if !rotated {
		e.metricInc(MetricRefreshRaceLost)
		return fail(acct.ID, ErrInvalidSession)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, acct.ID, "", nil, nil)

	return &Session{
		AccessToken:  access,
		RefreshToken: next,
		User:         acct.Public(),
	}, nil
}

// Logout ends the caller's session by clearing the stored refresh token.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	claims, err := e.ValidateAccess(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := e.accounts.ClearRefreshToken(ctx, claims.UserID); err != nil && !errors.Is(err, ErrNotFound) {
		return storeErr(err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, claims.UserID, "", nil, nil)
	return nil
}

func (e *Engine) mintPair(acct *Account) (string, string, error) {
	access, err := e.tokens.CreateAccess(acct.ID, string(acct.Role), acct.IsEmailVerified)
	if err != nil {
		return "", "", err
	}
	refresh, err := e.tokens.CreateRefresh(acct.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// issueSession mints a token pair and stores the refresh token, replacing
// any previous session.
func (e *Engine) issueSession(ctx context.Context, acct *Account) (*Session, error) {
	access, refresh, err := e.mintPair(acct)
	if err != nil {
		return nil, err
	}
	if err := e.accounts.SetRefreshToken(ctx, acct.ID, refresh); err != nil {
		return nil, storeErr(err)
	}
	acct.RefreshToken = refresh

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         acct.Public(),
	}, nil
}

func (e *Engine) onNotifyError(ctx context.Context, msg Message, err error) {
	if errors.Is(err, errQueueFull) {
		e.metricInc(MetricMailQueueDropped)
		e.emitAudit(ctx, auditEventNotificationDropped, false, "", msg.To, err, func() map[string]string {
			return map[string]string{"kind": msg.Kind.String()}
		})
		return
	}
	e.metricInc(MetricMailFailure)
	e.emitAudit(ctx, auditEventNotificationFailed, false, "", msg.To, ErrEmailDispatchFailed, func() map[string]string {
		return map[string]string{"kind": msg.Kind.String()}
	})
}
