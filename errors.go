package authcore

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrValidation is matched by *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrWeakPassword is matched by *PasswordPolicyError.
	ErrWeakPassword = errors.New("password requirements not met")
	// ErrDuplicateAccount is returned by Register and AccountStore.Create for a taken email.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrNoPendingRegistration means there is nothing to verify for the email.
	ErrNoPendingRegistration = errors.New("no pending registration")
	// ErrOtpExpired means the code was correct or not, but too late; the pending record is gone.
	ErrOtpExpired = errors.New("otp expired")
	// ErrInvalidOtp means the code did not match; the pending record is kept.
	ErrInvalidOtp = errors.New("invalid otp")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified is matched by *EmailNotVerifiedError.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrNoSession means no refresh token was presented.
	ErrNoSession = errors.New("no refresh token")
	// ErrInvalidSession means the refresh token is forged, expired or superseded.
	ErrInvalidSession = errors.New("invalid refresh token")
	// ErrTooManyAttempts is matched by *ResetLockedError.
	ErrTooManyAttempts = errors.New("too many reset attempts")
	// ErrRateLimited is matched by *RateLimitError.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotFound means no account exists for the given email or id.
	ErrNotFound = errors.New("account not found")
	// ErrInvalidOrExpiredToken is returned for bad reset and verification tokens.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrUnauthorized is returned when an access token does not validate.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmailDispatchFailed is returned in synchronous mail mode when the notifier fails.
	ErrEmailDispatchFailed = errors.New("email dispatch failed")
	// ErrSelfModification guards admin operations against the acting account.
	ErrSelfModification = errors.New("cannot modify own account")
	// ErrInvalidRole is returned for unknown role names.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidRegistrationFlow is returned by ParseRegistrationFlow.
	ErrInvalidRegistrationFlow = errors.New("registration flow must be otp or link")
	// ErrStoreUnavailable wraps account or pending store failures.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrGuardUnavailable wraps rate-limit backend failures.
	ErrGuardUnavailable = errors.New("abuse guard backend unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a nil engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError carries the retry metadata for a throttled operation.
type RateLimitError struct {
	Operation         string
	RemainingTime     time.Duration
	Attempts          int
	AttemptsRemaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: retry in %s", e.Operation, e.RemainingTime.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// ResetLockedError reports when password reset requests unlock again.
type ResetLockedError struct {
	LockUntil time.Time
}

func (e *ResetLockedError) Error() string {
	return "too many reset attempts: locked until " + e.LockUntil.UTC().Format(time.RFC3339)
}

func (e *ResetLockedError) Is(target error) bool { return target == ErrTooManyAttempts }

// EmailNotVerifiedError is returned by Login for unverified accounts with a
// correct password. CanResend tells the caller a resend action is available.
type EmailNotVerifiedError struct {
	CanResend bool
}

func (e *EmailNotVerifiedError) Error() string { return ErrEmailNotVerified.Error() }

func (e *EmailNotVerifiedError) Is(target error) bool { return target == ErrEmailNotVerified }

// PasswordPolicyError lists every rule a candidate password broke.
type PasswordPolicyError struct {
	Reasons []string
}

func (e *PasswordPolicyError) Error() string {
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Reasons, "; ")
}

func (e *PasswordPolicyError) Is(target error) bool { return target == ErrWeakPassword }

// ValidationError maps request fields to their violations.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, ", "))
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field string, msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msgs...)
}

func (e *ValidationError) empty() bool { return len(e.Fields) == 0 }

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
