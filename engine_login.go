package authcore

import (
	"context"
	"log/slog"
	"strings"
)

// Login authenticates email and password and starts a new session,
// replacing any previous one.
//
// The login throttle is consulted before the credentials are checked and is
// skipped for privileged accounts. Unknown emails and wrong passwords both
// return ErrInvalidCredentials after a comparable amount of hashing work. A
// correct password on an unverified account returns *EmailNotVerifiedError.
func (e *Engine) Login(ctx context.Context, email, password string) (*Session, error) {
	if e == nil || e.accounts == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	email = strings.TrimSpace(email)
	key := GuardKey(clientIPFromContext(ctx), email)

	acct, err := e.lookupForThrottle(ctx, email)
	if err != nil {
		return nil, err
	}

	if acct == nil || !acct.Role.Privileged() {
		if err := e.guard.checkLogin(ctx, key); err != nil {
			e.emitRateLimit(ctx, scopeLogin, email, err)
			return nil, err
		}
	}

	if acct == nil {
		_, _ = e.hasher.Verify(password, e.dummyHash)
		return nil, e.loginFailed(ctx, "", email)
	}

	ok, err := e.hasher.Verify(password, acct.PasswordHash)
	if err != nil {
		e.logger.Warn("Auth engine: stored password hash is unreadable",
			slog.String("user_id", acct.ID), slog.Any("error", err))
	}
	if err != nil || !ok {
		return nil, e.loginFailed(ctx, acct.ID, email)
	}

	if !acct.IsEmailVerified {
		e.metricInc(MetricLoginUnverified)
		e.emitAudit(ctx, auditEventLoginUnverified, false, acct.ID, email, ErrEmailNotVerified, nil)
		return nil, &EmailNotVerifiedError{CanResend: true}
	}

	e.upgradeHash(ctx, acct, password)

	sess, err := e.issueSession(ctx, acct)
	if err != nil {
		return nil, err
	}
	e.guard.succeeded(ctx, key, acct)

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.ID, email, nil, nil)
	return sess, nil
}

func (e *Engine) loginFailed(ctx context.Context, userID, email string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, email, ErrInvalidCredentials, nil)
	return ErrInvalidCredentials
}

// upgradeHash replaces legacy bcrypt and under-strength argon2id hashes after
// a successful verification. Failures are logged and the login proceeds.
func (e *Engine) upgradeHash(ctx context.Context, acct *Account, password string) {
	if !e.config.Password.UpgradeOnLogin || !e.hasher.NeedsRehash(acct.PasswordHash) {
		return
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		e.logger.Warn("Auth engine: password rehash failed", slog.String("user_id", acct.ID), slog.Any("error", err))
		return
	}
	if err := e.accounts.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		e.logger.Warn("Auth engine: failed to store upgraded password hash", slog.String("user_id", acct.ID), slog.Any("error", err))
		return
	}
	acct.PasswordHash = hash

	e.metricInc(MetricPasswordRehash)
	e.emitAudit(ctx, auditEventPasswordRehash, true, acct.ID, "", nil, nil)
}
