package authcore

import (
	"context"
	"errors"
	"strings"
)

// ForgotPassword mails a password reset link for email.
//
// The reset counter is incremented before the mail is sent, so failed
// deliveries still count. The request that reaches MaxAttempts still sends
// its link and locks further requests for LockDuration. While locked,
// *ResetLockedError is returned. The counter is not reset when the lock
// expires; it is cleared by a successful login or reset.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (*ResetRequest, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	email = strings.TrimSpace(email)

	acct, err := e.lookupForThrottle(ctx, email)
	if err != nil {
		return nil, err
	}
	if acct == nil || !acct.Role.Privileged() {
		if err := e.guard.checkEmail(ctx, GuardKey(clientIPFromContext(ctx), email)); err != nil {
			e.emitRateLimit(ctx, scopeEmail, email, err)
			return nil, err
		}
	}
	if acct == nil {
		return nil, ErrNotFound
	}

	now := e.now()
	if acct.ResetLocked(now) {
		e.metricInc(MetricPasswordResetLocked)
		lockErr := &ResetLockedError{LockUntil: *acct.PasswordResetLockUntil}
		e.emitAudit(ctx, auditEventPasswordResetLocked, false, acct.ID, email, lockErr, nil)
		return nil, lockErr
	}

	updated, err := e.accounts.IncrementResetAttempts(ctx, acct.ID,
		e.config.PasswordReset.MaxAttempts, now.Add(e.config.PasswordReset.LockDuration))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr(err)
	}

	token, err := e.tokens.CreateReset(acct.ID)
	if err != nil {
		return nil, err
	}
	if _, err := e.notifier.send(ctx, Message{
		Kind:      MessagePasswordReset,
		To:        acct.Email,
		Name:      acct.Name,
		Link:      frontendLink(e.config.FrontendURL, e.config.PasswordReset.LinkPath, token),
		ExpiresIn: e.config.PasswordReset.TokenTTL,
	}); err != nil {
		return nil, err
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, acct.ID, email, nil, nil)

	return &ResetRequest{
		Attempts:  updated.PasswordResetAttempts,
		LockUntil: updated.PasswordResetLockUntil,
	}, nil
}

// ResetPassword sets a new password using a reset token. The reset counter
// and lock are cleared, and with RevokeSessionsOnReset the stored refresh
// token is cleared too.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}

	fail := func(userID string, err error) error {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, userID, "", err, nil)
		return err
	}

	claims, err := e.tokens.ParseReset(token)
	if err != nil {
		return fail("", ErrInvalidOrExpiredToken)
	}

	acct, err := e.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fail(claims.UserID, ErrInvalidOrExpiredToken)
		}
		return storeErr(err)
	}

	if reasons := e.policy.Check(newPassword); len(reasons) > 0 {
		return fail(acct.ID, &PasswordPolicyError{Reasons: reasons})
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.accounts.ResetPassword(ctx, acct.ID, hash, e.config.PasswordReset.RevokeSessionsOnReset); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fail(acct.ID, ErrInvalidOrExpiredToken)
		}
		return storeErr(err)
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, acct.ID, acct.Email, nil, func() map[string]string {
		if e.config.PasswordReset.RevokeSessionsOnReset {
			return map[string]string{"sessions": "revoked"}
		}
		return nil
	})
	return nil
}
