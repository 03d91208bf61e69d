package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose tags every token with what it may be used for. A token is only
// accepted by the parser for its own purpose.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
	PurposeReset   Purpose = "reset"
	PurposeVerify  Purpose = "verify"
)

var (
	// ErrWrongPurpose is returned when a validly signed token carries another purpose.
	ErrWrongPurpose = errors.New("token purpose mismatch")
	// ErrSharedSecret is returned by NewManager when two purposes share a secret.
	ErrSharedSecret = errors.New("token secrets must be distinct")
)

// Config holds one HS256 secret and lifetime per token purpose.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	ResetSecret   []byte
	VerifySecret  []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	VerifyTTL  time.Duration

	Issuer       string
	Leeway       time.Duration
	MaxFutureIAT time.Duration

	// Now overrides the clock used for issuing and validating. Tests only.
	Now func() time.Time
}

// Manager issues and verifies the four token kinds.
type Manager struct {
	config Config
}

// AccessClaims are embedded in the short-lived bearer token.
type AccessClaims struct {
	UserID          string  `json:"id"`
	Role            string  `json:"role"`
	IsEmailVerified bool    `json:"isEmailVerified"`
	Type            Purpose `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the account id; RegisteredClaims.ID holds a random
// jti so two refresh tokens issued in the same second never collide.
type RefreshClaims struct {
	UserID string  `json:"id"`
	Type   Purpose `json:"typ"`
	jwt.RegisteredClaims
}

// ActionClaims back the password-reset and email-verification links.
type ActionClaims struct {
	UserID string  `json:"id"`
	Email  string  `json:"email,omitempty"`
	Type   Purpose `json:"typ"`
	jwt.RegisteredClaims
}

type purposeClaims interface {
	jwt.Claims
	purpose() Purpose
	issuedAt() *jwt.NumericDate
}

func (c *AccessClaims) purpose() Purpose            { return c.Type }
func (c *AccessClaims) issuedAt() *jwt.NumericDate  { return c.IssuedAt }
func (c *RefreshClaims) purpose() Purpose           { return c.Type }
func (c *RefreshClaims) issuedAt() *jwt.NumericDate { return c.IssuedAt }
func (c *ActionClaims) purpose() Purpose            { return c.Type }
func (c *ActionClaims) issuedAt() *jwt.NumericDate  { return c.IssuedAt }

// NewManager validates cfg. Every secret must be set and no two purposes may
// share one.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetTTL <= 0 || cfg.VerifyTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secrets := map[Purpose][]byte{
		PurposeAccess:  cfg.AccessSecret,
		PurposeRefresh: cfg.RefreshSecret,
		PurposeReset:   cfg.ResetSecret,
		PurposeVerify:  cfg.VerifySecret,
	}
	for p, s := range secrets {
		if len(s) == 0 {
			return nil, fmt.Errorf("%s secret is required", p)
		}
	}
	ordered := [][]byte{cfg.AccessSecret, cfg.RefreshSecret, cfg.ResetSecret, cfg.VerifySecret}
	for i := 0; i < len(ordered); i++ {
		for k := i + 1; k < len(ordered); k++ {
			if bytes.Equal(ordered[i], ordered[k]) {
				return nil, ErrSharedSecret
			}
		}
	}

	return &Manager{config: cfg}, nil
}

// CreateAccess issues an access token for the account.
func (j *Manager) CreateAccess(userID, role string, isEmailVerified bool) (string, error) {
	claims := &AccessClaims{
		UserID:           userID,
		Role:             role,
		IsEmailVerified:  isEmailVerified,
		Type:             PurposeAccess,
		RegisteredClaims: j.registered(j.config.AccessTTL, ""),
	}
	return j.sign(claims, j.config.AccessSecret)
}

// ParseAccess verifies signature, expiry and purpose of an access token.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, j.config.AccessSecret, PurposeAccess); err != nil {
		return nil, err
	}
	return claims, nil
}

// CreateRefresh issues a refresh token for the account.
func (j *Manager) CreateRefresh(userID string) (string, error) {
	claims := &RefreshClaims{
		UserID:           userID,
		Type:             PurposeRefresh,
		RegisteredClaims: j.registered(j.config.RefreshTTL, uuid.NewString()),
	}
	return j.sign(claims, j.config.RefreshSecret)
}

// ParseRefresh verifies a refresh token.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, j.config.RefreshSecret, PurposeRefresh); err != nil {
		return nil, err
	}
	return claims, nil
}

// CreateReset issues a password-reset token for the account.
func (j *Manager) CreateReset(userID string) (string, error) {
	claims := &ActionClaims{
		UserID:           userID,
		Type:             PurposeReset,
		RegisteredClaims: j.registered(j.config.ResetTTL, ""),
	}
	return j.sign(claims, j.config.ResetSecret)
}

// ParseReset verifies a password-reset token.
func (j *Manager) ParseReset(tokenStr string) (*ActionClaims, error) {
	claims := &ActionClaims{}
	if err := j.parse(tokenStr, claims, j.config.ResetSecret, PurposeReset); err != nil {
		return nil, err
	}
	return claims, nil
}

// CreateVerify issues an email-verification token bound to the address it
// was sent to.
func (j *Manager) CreateVerify(userID, email string) (string, error) {
	claims := &ActionClaims{
		UserID:           userID,
		Email:            email,
		Type:             PurposeVerify,
		RegisteredClaims: j.registered(j.config.VerifyTTL, ""),
	}
	return j.sign(claims, j.config.VerifySecret)
}

// ParseVerify verifies an email-verification token.
func (j *Manager) ParseVerify(tokenStr string) (*ActionClaims, error) {
	claims := &ActionClaims{}
	if err := j.parse(tokenStr, claims, j.config.VerifySecret, PurposeVerify); err != nil {
		return nil, err
	}
	return claims, nil
}

// TTL returns the configured lifetime for p.
func (j *Manager) TTL(p Purpose) time.Duration {
	switch p {
	case PurposeAccess:
		return j.config.AccessTTL
	case PurposeRefresh:
		return j.config.RefreshTTL
	case PurposeReset:
		return j.config.ResetTTL
	case PurposeVerify:
		return j.config.VerifyTTL
	default:
		return 0
	}
}

func (j *Manager) registered(ttl time.Duration, jti string) jwt.RegisteredClaims {
	now := j.config.Now()
	return jwt.RegisteredClaims{
		ID:        jti,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    j.config.Issuer,
	}
}

func (j *Manager) sign(claims jwt.Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (j *Manager) parse(tokenStr string, claims purposeClaims, secret []byte, want Purpose) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	if claims.purpose() != want {
		return ErrWrongPurpose
	}
	if iat := claims.issuedAt(); iat != nil && j.config.MaxFutureIAT > 0 {
		if iat.Time.After(j.config.Now().Add(j.config.MaxFutureIAT)) {
			return errors.New("token iat too far in the future")
		}
	}

	return nil
}
