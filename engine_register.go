package authcore

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Br3achBl0ckers/authcore/internal"
	"github.com/Br3achBl0ckers/authcore/internal/validate"
	"github.com/google/uuid"
)

// Register validates the request and either stages a pending account and
// mails a verification code (FlowOTPVerified) or creates an unverified
// account and mails a verification link (FlowLinkVerified).
//
// The registration throttle runs before any validation. In synchronous mail
// mode a delivery failure returns ErrEmailDispatchFailed; a staged pending
// account is kept and replaced by the next registration for the email.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	key := GuardKey(clientIPFromContext(ctx), email)

	if !e.guard.exempt(ctx, email) {
		if err := e.guard.checkRegistration(ctx, key); err != nil {
			e.emitRateLimit(ctx, scopeRegistration, email, err)
			return nil, err
		}
	}

	verr := &ValidationError{}
	if !validate.Email(email) {
		verr.add("email", validate.MsgEmailInvalid)
	}
	verr.add("name", validate.Name(name)...)
	if !verr.empty() {
		return nil, verr
	}
	if reasons := e.policy.Check(req.Password); len(reasons) > 0 {
		return nil, &PasswordPolicyError{Reasons: reasons}
	}

	if _, err := e.accounts.GetByEmail(ctx, email); err == nil {
		e.metricInc(MetricRegistrationDuplicate)
		e.emitAudit(ctx, auditEventRegistrationDuplicate, false, "", email, ErrDuplicateAccount, nil)
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, ErrNotFound) {
		return nil, storeErr(err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	var queued bool
	switch e.config.Registration.Flow {
	case FlowLinkVerified:
		queued, err = e.registerWithLink(ctx, name, email, hash)
	default:
		queued, err = e.registerWithOTP(ctx, name, email, hash)
	}
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegistrationStaged)
	e.emitAudit(ctx, auditEventRegistration, true, "", email, nil, func() map[string]string {
		return map[string]string{"flow": e.config.Registration.Flow.String()}
	})

	return &RegisterResult{
		Email:  email,
		Flow:   e.config.Registration.Flow,
		Queued: queued,
	}, nil
}

func (e *Engine) registerWithOTP(ctx context.Context, name, email, hash string) (bool, error) {
	code, err := internal.NewOTP(e.config.Registration.OTPDigits)
	if err != nil {
		return false, err
	}

	now := e.now()
	pending := &PendingAccount{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         e.config.Registration.DefaultRole,
		OTP:          code,
		OTPExpiresAt: now.Add(e.config.Registration.OTPTTL),
		CreatedAt:    now,
	}
	if err := e.pending.Save(ctx, pending, e.config.Registration.PendingTTL); err != nil {
		return false, err
	}

	return e.notifier.send(ctx, Message{
		Kind:      MessageVerificationOTP,
		To:        email,
		Name:      name,
		OTP:       code,
		ExpiresIn: e.config.Registration.OTPTTL,
	})
}

func (e *Engine) registerWithLink(ctx context.Context, name, email, hash string) (bool, error) {
	now := e.now()
	acct := &Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         e.config.Registration.DefaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			e.metricInc(MetricRegistrationDuplicate)
			return false, ErrDuplicateAccount
		}
		return false, storeErr(err)
	}

	return e.sendVerificationLink(ctx, acct)
}

func (e *Engine) sendVerificationLink(ctx context.Context, acct *Account) (bool, error) {
	token, err := e.tokens.CreateVerify(acct.ID, acct.Email)
	if err != nil {
		return false, err
	}

	return e.notifier.send(ctx, Message{
		Kind:      MessageVerificationLink,
		To:        acct.Email,
		Name:      acct.Name,
		Link:      frontendLink(e.config.FrontendURL, e.config.Registration.VerifyLinkPath, token),
		ExpiresIn: e.config.Registration.VerifyLinkTTL,
	})
}

// VerifyOTP promotes the pending account for email when code matches and has
// not expired, then logs the new account in.
//
// An expired code deletes the pending account whether or not it matches. A
// wrong code leaves it in place so the user can retry.
func (e *Engine) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	if e == nil || e.pending == nil {
		return nil, ErrEngineNotReady
	}
	email = strings.TrimSpace(email)

	pending, err := e.pending.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoPendingRegistration) {
			e.metricInc(MetricOTPVerifyFailure)
			e.emitAudit(ctx, auditEventOTPVerify, false, "", email, err, nil)
		}
		return nil, err
	}

	if !e.now().Before(pending.OTPExpiresAt) {
		if err := e.pending.Delete(ctx, email); err != nil {
			e.logger.Warn("Auth engine: failed to delete expired pending account", slog.Any("error", err))
		}
		e.metricInc(MetricOTPExpired)
		e.emitAudit(ctx, auditEventOTPVerify, false, "", email, ErrOtpExpired, nil)
		return nil, ErrOtpExpired
	}

	if !internal.EqualSecret(pending.OTP, strings.TrimSpace(code)) {
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPVerify, false, "", email, ErrInvalidOtp, nil)
		return nil, ErrInvalidOtp
	}

	now := e.now()
	acct := &Account{
		ID:              uuid.NewString(),
		Name:            pending.Name,
		Email:           pending.Email,
		PasswordHash:    pending.PasswordHash,
		Role:            pending.Role,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !acct.Role.Valid() {
		acct.Role = e.config.Registration.DefaultRole
	}
	if err := e.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			_ = e.pending.Delete(ctx, email)
			return nil, ErrDuplicateAccount
		}
		return nil, storeErr(err)
	}
	if err := e.pending.Delete(ctx, email); err != nil {
		e.logger.Warn("Auth engine: failed to delete promoted pending account", slog.Any("error", err))
	}

	sess, err := e.issueSession(ctx, acct)
	if err != nil {
		return nil, err
	}
	e.guard.succeeded(ctx, GuardKey(clientIPFromContext(ctx), email), acct)

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerify, true, acct.ID, email, nil, nil)
	return sess, nil
}

// ResendOTP replaces the code of a pending account and mails it. The pending
// account keeps its original lifetime.
func (e *Engine) ResendOTP(ctx context.Context, email string) error {
	if e == nil || e.pending == nil {
		return ErrEngineNotReady
	}
	email = strings.TrimSpace(email)

	if err := e.guard.checkEmail(ctx, GuardKey(clientIPFromContext(ctx), email)); err != nil {
		e.emitRateLimit(ctx, scopeEmail, email, err)
		return err
	}

	pending, err := e.pending.Get(ctx, email)
	if err != nil {
		return err
	}

	code, err := internal.NewOTP(e.config.Registration.OTPDigits)
	if err != nil {
		return err
	}
	if err := e.pending.ReplaceOTP(ctx, email, code, e.now().Add(e.config.Registration.OTPTTL)); err != nil {
		return err
	}

	if _, err := e.notifier.send(ctx, Message{
		Kind:      MessageVerificationOTP,
		To:        email,
		Name:      pending.Name,
		OTP:       code,
		ExpiresIn: e.config.Registration.OTPTTL,
	}); err != nil {
		return err
	}

	e.metricInc(MetricOTPResent)
	e.emitAudit(ctx, auditEventOTPResend, true, "", email, nil, nil)
	return nil
}

// VerifyEmail consumes a verification link token, marks the account
// verified and logs it in. Verifying an already verified account only logs
// it in.
func (e *Engine) VerifyEmail(ctx context.Context, token string) (*Session, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	fail := func(userID string) (*Session, error) {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerification, false, userID, "", ErrInvalidOrExpiredToken, nil)
		return nil, ErrInvalidOrExpiredToken
	}

	claims, err := e.tokens.ParseVerify(token)
	if err != nil {
		return fail("")
	}

	acct, err := e.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fail(claims.UserID)
		}
		return nil, storeErr(err)
	}
	if acct.Email != claims.Email {
		return fail(acct.ID)
	}

	if !acct.IsEmailVerified {
		if err := e.accounts.MarkEmailVerified(ctx, acct.ID); err != nil {
			return nil, storeErr(err)
		}
		acct.IsEmailVerified = true
	}

	sess, err := e.issueSession(ctx, acct)
	if err != nil {
		return nil, err
	}
	e.guard.succeeded(ctx, GuardKey(clientIPFromContext(ctx), acct.Email), acct)

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventEmailVerification, true, acct.ID, acct.Email, nil, nil)
	return sess, nil
}

// ResendVerification mails a fresh verification link to an unverified
// account. It succeeds without sending anything when the account is
// already verified.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	email = strings.TrimSpace(email)

	acct, err := e.lookupForThrottle(ctx, email)
	if err != nil {
		return err
	}
	if acct == nil || !acct.Role.Privileged() {
		if err := e.guard.checkEmail(ctx, GuardKey(clientIPFromContext(ctx), email)); err != nil {
			e.emitRateLimit(ctx, scopeEmail, email, err)
			return err
		}
	}
	if acct == nil {
		return ErrNotFound
	}
	if acct.IsEmailVerified {
		return nil
	}

	if _, err := e.sendVerificationLink(ctx, acct); err != nil {
		return err
	}

	e.metricInc(MetricVerificationResent)
	e.emitAudit(ctx, auditEventVerificationResend, true, acct.ID, email, nil, nil)
	return nil
}

// lookupForThrottle resolves email before a throttle decision. A missing
// account is (nil, nil) so the caller can still count the attempt.
func (e *Engine) lookupForThrottle(ctx context.Context, email string) (*Account, error) {
	if email == "" {
		return nil, nil
	}
	acct, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	return acct, nil
}
