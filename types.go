package authcore

import (
	"context"
	"strings"
	"time"
)

// Role identifies what an account may do. Admin and super accounts are
// exempt from every abuse throttle.
type Role string

const (
	// RoleStudent is the default role for new accounts.
	RoleStudent Role = "student"
	// RoleTeacher manages course content.
	RoleTeacher Role = "teacher"
	// RoleAdmin is a privileged operator role.
	RoleAdmin Role = "admin"
	// RoleSuper may administer other accounts.
	RoleSuper Role = "super"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleSuper:
		return true
	}
	return false
}

// Privileged reports whether r bypasses the abuse guard.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSuper
}

// ParseRole converts a role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// RegistrationFlow selects how new accounts prove ownership of their email.
type RegistrationFlow int

const (
	// FlowOTPVerified stages a pending account and mails a 6-digit code.
	FlowOTPVerified RegistrationFlow = iota
	// FlowLinkVerified creates the account unverified and mails a signed link.
	FlowLinkVerified
)

func (f RegistrationFlow) String() string {
	switch f {
	case FlowOTPVerified:
		return "otp"
	case FlowLinkVerified:
		return "link"
	default:
		return "unknown"
	}
}

// ParseRegistrationFlow accepts "otp" or "link".
func ParseRegistrationFlow(s string) (RegistrationFlow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "otp":
		return FlowOTPVerified, nil
	case "link":
		return FlowLinkVerified, nil
	}
	return 0, ErrInvalidRegistrationFlow
}

// Account is a persisted, registered user.
type Account struct {
	ID                     string
	Name                   string
	Email                  string
	PasswordHash           string
	Role                   Role
	IsEmailVerified        bool
	RefreshToken           string
	PasswordResetAttempts  int
	PasswordResetLockUntil *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Public returns the view of the account that may leave the service.
func (a *Account) Public() PublicUser {
	if a == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Role:            a.Role,
		IsEmailVerified: a.IsEmailVerified,
	}
}

// ResetLocked reports whether password reset requests are blocked at now.
func (a *Account) ResetLocked(now time.Time) bool {
	return a != nil && a.PasswordResetLockUntil != nil && now.Before(*a.PasswordResetLockUntil)
}

// PublicUser carries no credentials.
type PublicUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            Role   `json:"role"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

// PendingAccount is a registration awaiting OTP confirmation. It is never
// usable for authenticated actions.
type PendingAccount struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	OTP          string
	OTPExpiresAt time.Time
	CreatedAt    time.Time
}

// Session is the result of a successful login, verification or refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         PublicUser
}

// Claims is the validated content of an access token.
type Claims struct {
	UserID          string
	Role            Role
	IsEmailVerified bool
	ExpiresAt       time.Time
}

// RegisterRequest is the input to Engine.Register.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// RegisterResult describes what Register staged.
type RegisterResult struct {
	Email string
	Flow  RegistrationFlow
	// Queued is true when the verification mail was handed to the async queue
	// instead of being sent inline.
	Queued bool
}

// ResetRequest reports the reset counter state after ForgotPassword.
type ResetRequest struct {
	Attempts  int
	LockUntil *time.Time
}

// AccountStore persists registered accounts. Implementations must be safe
// for concurrent use.
//
// Lookups return ErrNotFound for missing accounts and Create returns
// ErrDuplicateAccount for a taken email.
type AccountStore interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context) ([]Account, error)

	// UpdatePasswordHash replaces the hash without touching any other state.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// ResetPassword replaces the hash, zeroes the reset counter, clears the
	// reset lock and, when revokeSessions is set, clears the refresh token.
	ResetPassword(ctx context.Context, id, hash string, revokeSessions bool) error

	// SetRefreshToken overwrites the stored refresh token.
	SetRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken replaces old with next only if old is still stored.
	// It reports false when another rotation or a logout won the race.
	RotateRefreshToken(ctx context.Context, id, old, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error

	// IncrementResetAttempts atomically bumps the reset counter and, when the
	// new value reaches lockThreshold, sets the lock to lockUntil. It returns
	// the account as stored after the update.
	IncrementResetAttempts(ctx context.Context, id string, lockThreshold int, lockUntil time.Time) (*Account, error)
	ClearResetLock(ctx context.Context, id string) error

	MarkEmailVerified(ctx context.Context, id string) error
	UpdateRole(ctx context.Context, id string, role Role) error
	Delete(ctx context.Context, id string) error
}

// PendingStore holds registrations awaiting OTP confirmation. Get returns
// ErrNoPendingRegistration when nothing is staged for the email.
type PendingStore interface {
	Save(ctx context.Context, pending *PendingAccount, ttl time.Duration) error
	Get(ctx context.Context, email string) (*PendingAccount, error)
	Delete(ctx context.Context, email string) error
	ReplaceOTP(ctx context.Context, email, otp string, expiresAt time.Time) error
}
