package authcore

import (
	"context"
	"errors"
)

const (
	auditEventRegistration          = "registration"
	auditEventRegistrationDuplicate = "registration_duplicate"
	auditEventOTPVerify             = "otp_verify"
	auditEventOTPResend             = "otp_resend"
	auditEventEmailVerification     = "email_verification"
	auditEventVerificationResend    = "verification_resend"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginUnverified       = "login_unverified"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventLogout                = "logout"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetLocked   = "password_reset_locked"
	auditEventPasswordResetConfirm  = "password_reset_confirm"
	auditEventPasswordRehash        = "password_rehash"
	auditEventRoleChange            = "role_change"
	auditEventAccountDeleted        = "account_deleted"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
	auditEventNotificationFailed    = "notification_failed"
	auditEventNotificationDropped   = "notification_dropped"
)

// AuditErrorCode is the coarse failure class recorded in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrInvalidSession     AuditErrorCode = "invalid_session"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrUnverified         AuditErrorCode = "account_unverified"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrOTPInvalid         AuditErrorCode = "otp_invalid"
	auditErrOTPExpired         AuditErrorCode = "otp_expired"
	auditErrNoPending          AuditErrorCode = "no_pending_registration"
	auditErrAttemptsExceeded   AuditErrorCode = "attempts_exceeded"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrSelfModification   AuditErrorCode = "self_modification"
	auditErrMailFailed         AuditErrorCode = "mail_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, email string, err error) {
	e.metricInc(rateLimitMetric(scope))
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", email, err, func() map[string]string {
		return map[string]string{
			"scope": scope,
		}
	})
}

const (
	scopeLogin        = "login"
	scopeRegistration = "registration"
	scopeEmail        = "email"
)

func rateLimitMetric(scope string) MetricID {
	switch scope {
	case scopeLogin:
		return MetricLoginRateLimited
	case scopeRegistration:
		return MetricRegistrationRateLimited
	default:
		return MetricEmailRateLimited
	}
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrNoSession):
		return auditErrInvalidSession
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrEmailNotVerified):
		return auditErrUnverified
	case errors.Is(err, ErrWeakPassword):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRole):
		return auditErrValidation
	case errors.Is(err, ErrInvalidOtp):
		return auditErrOTPInvalid
	case errors.Is(err, ErrOtpExpired):
		return auditErrOTPExpired
	case errors.Is(err, ErrNoPendingRegistration):
		return auditErrNoPending
	case errors.Is(err, ErrTooManyAttempts):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrDuplicateAccount):
		return auditErrDuplicate
	case errors.Is(err, ErrSelfModification):
		return auditErrSelfModification
	case errors.Is(err, ErrEmailDispatchFailed):
		return auditErrMailFailed
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrGuardUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
