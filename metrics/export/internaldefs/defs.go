package internaldefs

import (
	"github.com/Br3achBl0ckers/authcore"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported engine counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Logins that issued a session."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Logins refused by the attempt tracker."},
	{ID: authcore.MetricLoginUnverified, Name: "authcore_login_unverified_total", Help: "Correct-password logins on unverified accounts."},
	{ID: authcore.MetricRegistrationStaged, Name: "authcore_registration_staged_total", Help: "Accepted registrations."},
	{ID: authcore.MetricRegistrationDuplicate, Name: "authcore_registration_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: authcore.MetricRegistrationRateLimited, Name: "authcore_registration_rate_limited_total", Help: "Registrations refused by the throttle."},
	{ID: authcore.MetricOTPVerifySuccess, Name: "authcore_otp_verify_success_total", Help: "Pending accounts promoted by a correct code."},
	{ID: authcore.MetricOTPVerifyFailure, Name: "authcore_otp_verify_failure_total", Help: "Wrong verification codes."},
	{ID: authcore.MetricOTPExpired, Name: "authcore_otp_expired_total", Help: "Verification codes presented after expiry."},
	{ID: authcore.MetricOTPResent, Name: "authcore_otp_resent_total", Help: "Verification codes re-sent."},
	{ID: authcore.MetricEmailVerificationSuccess, Name: "authcore_email_verification_success_total", Help: "Accounts verified by link."},
	{ID: authcore.MetricEmailVerificationFailure, Name: "authcore_email_verification_failure_total", Help: "Rejected verification links."},
	{ID: authcore.MetricVerificationResent, Name: "authcore_verification_resent_total", Help: "Verification links re-sent."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh token rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Rejected refresh tokens."},
	{ID: authcore.MetricRefreshRaceLost, Name: "authcore_refresh_race_lost_total", Help: "Rotations that lost a concurrent compare-and-swap."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Logout operations."},
	{ID: authcore.MetricPasswordResetRequest, Name: "authcore_password_reset_request_total", Help: "Password reset links sent."},
	{ID: authcore.MetricPasswordResetLocked, Name: "authcore_password_reset_locked_total", Help: "Reset requests refused by the reset lock."},
	{ID: authcore.MetricPasswordResetConfirmSuccess, Name: "authcore_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: authcore.MetricPasswordResetConfirmFailure, Name: "authcore_password_reset_confirm_failure_total", Help: "Rejected password reset tokens."},
	{ID: authcore.MetricEmailRateLimited, Name: "authcore_email_rate_limited_total", Help: "Mail-sending operations refused by the throttle."},
	{ID: authcore.MetricMailFailure, Name: "authcore_mail_failure_total", Help: "Notifier delivery errors."},
	{ID: authcore.MetricMailQueueDropped, Name: "authcore_mail_queue_dropped_total", Help: "Messages dropped by a full mail queue."},
	{ID: authcore.MetricPasswordRehash, Name: "authcore_password_rehash_total", Help: "Password hashes upgraded on login."},
	{ID: authcore.MetricRoleChanged, Name: "authcore_role_changed_total", Help: "Account role updates."},
	{ID: authcore.MetricAccountDeleted, Name: "authcore_account_deleted_total", Help: "Deleted accounts."},
}

// HistogramDefs lists every exported engine histogram.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "ValidateAccess latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "authcore_audit_dropped_total"

// HistogramBounds are the upper bounds, in seconds, of the latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable inside metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into the running totals
// Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
