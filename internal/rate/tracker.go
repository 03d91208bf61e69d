package rate

import (
	"context"
	"sync"
	"time"
)

// Config is the login throttle policy.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Entry is one ledger record.
type Entry struct {
	Attempts    int
	LastAttempt time.Time
}

// Store persists ledger entries.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	// Sweep removes entries whose last attempt is before cutoff.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// Decision describes the state of a key after Check or Attempt.
type Decision struct {
	Allowed           bool
	Attempts          int
	AttemptsRemaining int
	RemainingTime     time.Duration
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker applies Config to keys stored in a Store. Attempt and Record are
// serialised per key within a process, so a slow store round trip for one key
// never holds up another. Across processes sharing a RedisStore two attempts
// on one key can interleave, which at worst lets one extra attempt through.
type Tracker struct {
	store  Store
	config Config
	now    func() time.Time
	locks  keyLocks
}

type keyLock struct {
	sync.Mutex
	refs int
}

// keyLocks hands out one mutex per key and drops it once no caller holds it.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

func (l *keyLocks) lock(key string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*keyLock)
	}
	kl, ok := l.m[key]
	if !ok {
		kl = &keyLock{}
		l.m[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.Lock()
	return func() {
		kl.Unlock()
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}

func (l *keyLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// NewTracker builds a tracker over store.
func NewTracker(store Store, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Check reports whether key is currently blocked without recording anything.
func (t *Tracker) Check(ctx context.Context, key string) (Decision, error) {
	entry, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return t.allowed(0), nil
	}
	return t.evaluate(entry, t.now()), nil
}

// Record counts one attempt for key and refreshes its timestamp.
func (t *Tracker) Record(ctx context.Context, key string) error {
	defer t.locks.lock(key)()

	entry, _, err := t.store.Get(ctx, key)
	if err != nil {
		return err
	}
	entry.Attempts++
	entry.LastAttempt = t.now()
	return t.store.Set(ctx, key, entry)
}

// Reset forgets key entirely.
func (t *Tracker) Reset(ctx context.Context, key string) error {
	return t.store.Delete(ctx, key)
}

// Attempt runs the login state machine for one incoming attempt. A blocked
// key returns ErrRateLimited together with the retry metadata; otherwise the
// attempt is recorded and allowed.
func (t *Tracker) Attempt(ctx context.Context, key string) (Decision, error) {
	defer t.locks.lock(key)()

	now := t.now()
	entry, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	if ok {
		d := t.evaluate(entry, now)
		if !d.Allowed {
			return d, ErrRateLimited
		}
		if now.Sub(entry.LastAttempt) >= t.config.Window {
			if err := t.store.Delete(ctx, key); err != nil {
				return Decision{}, err
			}
			entry = Entry{}
		}
	}

	entry.Attempts++
	entry.LastAttempt = now
	if err := t.store.Set(ctx, key, entry); err != nil {
		return Decision{}, err
	}

	return t.allowed(entry.Attempts), nil
}

func (t *Tracker) evaluate(entry Entry, now time.Time) Decision {
	elapsed := now.Sub(entry.LastAttempt)
	if entry.Attempts >= t.config.MaxAttempts && elapsed < t.config.Window {
		return Decision{
			Allowed:           false,
			Attempts:          entry.Attempts,
			AttemptsRemaining: 0,
			RemainingTime:     t.config.Window - elapsed,
		}
	}
	if elapsed >= t.config.Window {
		return t.allowed(0)
	}
	return t.allowed(entry.Attempts)
}

func (t *Tracker) allowed(attempts int) Decision {
	remaining := t.config.MaxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:           true,
		Attempts:          attempts,
		AttemptsRemaining: remaining,
	}
}
