package authcore

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines the engine's tunables.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	JWT           JWTConfig
	Registration  RegistrationConfig
	PasswordReset PasswordResetConfig
	Password      PasswordConfig
	AbuseGuard    AbuseGuardConfig
	Notification  NotificationConfig
	Audit         AuditConfig
	Metrics       MetricsConfig

	// FrontendURL is the base for links placed in outgoing mail.
	FrontendURL string
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds one HS256 secret per token purpose. No two secrets may be equal.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	ResetSecret   []byte
	VerifySecret  []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
REGISTRATION CONFIG
====================================
*/

// RegistrationConfig controls how accounts come into existence.
type RegistrationConfig struct {
	Flow        RegistrationFlow
	DefaultRole Role

	OTPDigits  int
	OTPTTL     time.Duration
	PendingTTL time.Duration

	VerifyLinkTTL  time.Duration
	VerifyLinkPath string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordResetConfig defines the forgot/reset lifecycle.
type PasswordResetConfig struct {
	TokenTTL     time.Duration
	MaxAttempts  int
	LockDuration time.Duration
	LinkPath     string

	// RevokeSessionsOnReset clears the stored refresh token when the password
	// is reset, ending every session issued before the reset.
	RevokeSessionsOnReset bool
}

// PasswordConfig holds the argon2id cost and the strength policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool

	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSymbol    bool
	Symbols          string
}

/*
====================================
ABUSE GUARD CONFIG
====================================
*/

// AttemptStoreKind selects where login attempts are tracked.
type AttemptStoreKind string

const (
	// AttemptStoreMemory keeps the ledger in process. Each instance counts separately.
	AttemptStoreMemory AttemptStoreKind = "memory"
	// AttemptStoreRedis shares the ledger across instances.
	AttemptStoreRedis AttemptStoreKind = "redis"
)

// AbuseGuardConfig defines the login, registration and email throttles.
type AbuseGuardConfig struct {
	LoginMaxAttempts int
	LoginWindow      time.Duration

	RegistrationMaxAttempts int
	RegistrationWindow      time.Duration

	EmailMaxAttempts int
	EmailWindow      time.Duration

	AttemptStore  AttemptStoreKind
	SweepInterval time.Duration
	SweepMaxAge   time.Duration
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig selects synchronous or queued mail dispatch.
type NotificationConfig struct {
	// Async hands messages to a background worker. Mail failures are then
	// logged and counted instead of failing the request.
	Async     bool
	QueueSize int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the audit event pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. Secrets and FrontendURL are
// left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "authcore",
		},
		Registration: RegistrationConfig{
			Flow:           FlowOTPVerified,
			DefaultRole:    RoleStudent,
			OTPDigits:      6,
			OTPTTL:         15 * time.Minute,
			PendingTTL:     24 * time.Hour,
			VerifyLinkTTL:  24 * time.Hour,
			VerifyLinkPath: "/verify-email",
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:              time.Hour,
			MaxAttempts:           3,
			LockDuration:          24 * time.Hour,
			LinkPath:              "/reset-password",
			RevokeSessionsOnReset: true,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,

			MinLength:        8,
			RequireUppercase: true,
			RequireLowercase: false,
			RequireDigit:     true,
			RequireSymbol:    true,
			Symbols:          "!@#$%^&*",
		},
		AbuseGuard: AbuseGuardConfig{
			LoginMaxAttempts:        5,
			LoginWindow:             15 * time.Minute,
			RegistrationMaxAttempts: 3,
			RegistrationWindow:      time.Hour,
			EmailMaxAttempts:        3,
			EmailWindow:             30 * time.Minute,
			AttemptStore:            AttemptStoreMemory,
			SweepInterval:           time.Hour,
			SweepMaxAge:             time.Hour,
		},
		Notification: NotificationConfig{
			Async:     false,
			QueueSize: 256,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	out.JWT.ResetSecret = cloneBytes(cfg.JWT.ResetSecret)
	out.JWT.VerifySecret = cloneBytes(cfg.JWT.VerifySecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be greater than AccessTTL")
	}
	if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 ||
		len(c.JWT.ResetSecret) == 0 || len(c.JWT.VerifySecret) == 0 {
		return errors.New("JWT requires access, refresh, reset and verify secrets")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Registration
	switch c.Registration.Flow {
	case FlowOTPVerified, FlowLinkVerified:
	default:
		return errors.New("Registration Flow is invalid")
	}
	if !c.Registration.DefaultRole.Valid() {
		return errors.New("Registration DefaultRole is invalid")
	}
	if c.Registration.DefaultRole.Privileged() {
		return errors.New("Registration DefaultRole must not be privileged")
	}
	if c.Registration.OTPDigits < 6 || c.Registration.OTPDigits > 10 {
		return errors.New("Registration OTPDigits must be between 6 and 10")
	}
	if c.Registration.OTPTTL <= 0 {
		return errors.New("Registration OTPTTL must be > 0")
	}
	if c.Registration.PendingTTL < c.Registration.OTPTTL {
		return errors.New("Registration PendingTTL must be >= OTPTTL")
	}
	if c.Registration.VerifyLinkTTL <= 0 {
		return errors.New("Registration VerifyLinkTTL must be > 0")
	}
	if !strings.HasPrefix(c.Registration.VerifyLinkPath, "/") {
		return errors.New("Registration VerifyLinkPath must start with /")
	}

	// Password Reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.MaxAttempts <= 0 {
		return errors.New("PasswordReset MaxAttempts must be > 0")
	}
	if c.PasswordReset.LockDuration <= 0 {
		return errors.New("PasswordReset LockDuration must be > 0")
	}
	if !strings.HasPrefix(c.PasswordReset.LinkPath, "/") {
		return errors.New("PasswordReset LinkPath must start with /")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}
	if c.Password.RequireSymbol && c.Password.Symbols == "" {
		return errors.New("Password Symbols must be set when RequireSymbol is true")
	}

	// Abuse guard
	if c.AbuseGuard.LoginMaxAttempts <= 0 || c.AbuseGuard.LoginWindow <= 0 {
		return errors.New("AbuseGuard login throttle must be > 0")
	}
	if c.AbuseGuard.RegistrationMaxAttempts <= 0 || c.AbuseGuard.RegistrationWindow <= 0 {
		return errors.New("AbuseGuard registration throttle must be > 0")
	}
	if c.AbuseGuard.EmailMaxAttempts <= 0 || c.AbuseGuard.EmailWindow <= 0 {
		return errors.New("AbuseGuard email throttle must be > 0")
	}
	switch c.AbuseGuard.AttemptStore {
	case AttemptStoreMemory, AttemptStoreRedis:
	default:
		return errors.New("AbuseGuard AttemptStore must be 'memory' or 'redis'")
	}
	if c.AbuseGuard.SweepInterval <= 0 || c.AbuseGuard.SweepMaxAge <= 0 {
		return errors.New("AbuseGuard sweep interval and max age must be > 0")
	}
	if c.AbuseGuard.SweepMaxAge < c.AbuseGuard.LoginWindow {
		return errors.New("AbuseGuard SweepMaxAge must be >= LoginWindow")
	}

	// Notification
	if c.Notification.Async && c.Notification.QueueSize <= 0 {
		return errors.New("Notification QueueSize must be > 0 when Async is true")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	if c.FrontendURL == "" {
		return errors.New("FrontendURL is required")
	}
	u, err := url.Parse(c.FrontendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("FrontendURL must be an absolute URL")
	}

	return nil
}
