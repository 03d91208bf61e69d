package authcore

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/Br3achBl0ckers/authcore/internal/limiters"
	"github.com/Br3achBl0ckers/authcore/internal/rate"
	"github.com/Br3achBl0ckers/authcore/internal/stores"
	"github.com/Br3achBl0ckers/authcore/jwt"
	"github.com/Br3achBl0ckers/authcore/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts  AccountStore
	pending   PendingStore
	notifier  Notifier
	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the pending store, the throttles and,
// when configured, the shared attempt ledger.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the persistent account store. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithPendingStore overrides the Redis pending-account store.
func (b *Builder) WithPendingStore(store PendingStore) *Builder {
	b.pending = store
	return b
}

// WithNotifier sets the mail transport. Required.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for token issuance, OTP expiry, reset locks
// and the login ledger. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. It starts the
// ledger sweeper and, in async mode, the mail worker; Engine.Close stops them.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- TOKENS / PASSWORDS --------
	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		ResetSecret:   cloneBytes(cfg.JWT.ResetSecret),
		VerifySecret:  cloneBytes(cfg.JWT.VerifySecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		ResetTTL:      cfg.PasswordReset.TokenTTL,
		VerifyTTL:     cfg.Registration.VerifyLinkTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	dummyHash, err := newDummyHash(hasher)
	if err != nil {
		return nil, err
	}

	// -------- ABUSE GUARD --------
	var ledger rate.Store
	switch cfg.AbuseGuard.AttemptStore {
	case AttemptStoreRedis:
		ledger = rate.NewRedisStore(b.redis, cfg.AbuseGuard.SweepMaxAge)
	default:
		ledger = rate.NewMemoryStore()
	}

	registration, err := limiters.NewRegistrationLimiter(b.redis, limiters.RegistrationConfig{
		MaxAttempts: cfg.AbuseGuard.RegistrationMaxAttempts,
		Window:      cfg.AbuseGuard.RegistrationWindow,
	})
	if err != nil {
		return nil, err
	}
	email, err := limiters.NewEmailLimiter(b.redis, limiters.EmailConfig{
		MaxAttempts: cfg.AbuseGuard.EmailMaxAttempts,
		Window:      cfg.AbuseGuard.EmailWindow,
	})
	if err != nil {
		return nil, err
	}

	pending := b.pending
	if pending == nil {
		pending = newRedisPendingStore(stores.NewPendingAccountStore(b.redis))
	}

	engine := &Engine{
		config:    cfg,
		accounts:  b.accounts,
		pending:   pending,
		hasher:    hasher,
		policy:    passwordPolicy(cfg.Password),
		tokens:    tokens,
		ledger:    ledger,
		logger:    logger,
		clock:     clock,
		dummyHash: dummyHash,
	}
	engine.guard = &abuseGuard{
		login: rate.NewTracker(ledger, rate.Config{
			MaxAttempts: cfg.AbuseGuard.LoginMaxAttempts,
			Window:      cfg.AbuseGuard.LoginWindow,
		}, rate.WithClock(clock)),
		registration: registration,
		email:        email,
		accounts:     b.accounts,
		logger:       logger,
	}
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.notifier = newNotifier(cfg.Notification, b.notifier, logger, engine.onNotifyError)

	if cfg.AbuseGuard.AttemptStore == AttemptStoreMemory {
		engine.sweeper = rate.StartSweeper(ledger, cfg.AbuseGuard.SweepInterval, cfg.AbuseGuard.SweepMaxAge, logger)
	}

	b.built = true

	return engine, nil
}

func passwordPolicy(cfg PasswordConfig) password.Policy {
	return password.Policy{
		MinLength:     cfg.MinLength,
		RequireUpper:  cfg.RequireUppercase,
		RequireLower:  cfg.RequireLowercase,
		RequireDigit:  cfg.RequireDigit,
		RequireSymbol: cfg.RequireSymbol,
		Symbols:       cfg.Symbols,
	}
}

// newDummyHash produces a hash that no password matches, verified against
// for unknown emails so they cost as much as a wrong password.
func newDummyHash(h *password.Hasher) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return h.Hash(hex.EncodeToString(buf))
}
