package authcore

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type mockAccountStore struct {
	mu    sync.Mutex
	byID  map[string]*Account
	calls int

	createErr error
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{byID: make(map[string]*Account)}
}

func cloneAccount(a *Account) *Account {
	out := *a
	if a.PasswordResetLockUntil != nil {
		lock := *a.PasswordResetLockUntil
		out.PasswordResetLockUntil = &lock
	}
	return &out
}

func (m *mockAccountStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockAccountStore) get(id string) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil
	}
	return cloneAccount(a)
}

func (m *mockAccountStore) findEmail(email string) *Account {
	for _, a := range m.byID {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (m *mockAccountStore) Create(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.createErr != nil {
		return m.createErr
	}
	if m.findEmail(account.Email) != nil {
		return ErrDuplicateAccount
	}
	m.byID[account.ID] = cloneAccount(account)
	return nil
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(a), nil
}

func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	a := m.findEmail(email)
	if a == nil {
		return nil, ErrNotFound
	}
	return cloneAccount(a), nil
}

func (m *mockAccountStore) List(context.Context) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	out := make([]Account, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, *cloneAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *mockAccountStore) update(id string, fn func(a *Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(a)
	return nil
}

func (m *mockAccountStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return m.update(id, func(a *Account) { a.PasswordHash = hash })
}

func (m *mockAccountStore) ResetPassword(_ context.Context, id, hash string, revokeSessions bool) error {
	return m.update(id, func(a *Account) {
		a.PasswordHash = hash
		a.PasswordResetAttempts = 0
		a.PasswordResetLockUntil = nil
		if revokeSessions {
			a.RefreshToken = ""
		}
	})
}

func (m *mockAccountStore) SetRefreshToken(_ context.Context, id, token string) error {
	return m.update(id, func(a *Account) { a.RefreshToken = token })
}

func (m *mockAccountStore) RotateRefreshToken(_ context.Context, id, old, next string) (bool, error) {
	rotated := false
	err := m.update(id, func(a *Account) {
		if a.RefreshToken == old {
			a.RefreshToken = next
			rotated = true
		}
	})
	return rotated, err
}

func (m *mockAccountStore) ClearRefreshToken(_ context.Context, id string) error {
	return m.update(id, func(a *Account) { a.RefreshToken = "" })
}

func (m *mockAccountStore) IncrementResetAttempts(_ context.Context, id string, lockThreshold int, lockUntil time.Time) (*Account, error) {
	var out *Account
	err := m.update(id, func(a *Account) {
		a.PasswordResetAttempts++
		if a.PasswordResetAttempts >= lockThreshold {
			lock := lockUntil
			a.PasswordResetLockUntil = &lock
		}
		out = cloneAccount(a)
	})
	return out, err
}

func (m *mockAccountStore) ClearResetLock(_ context.Context, id string) error {
	return m.update(id, func(a *Account) {
		a.PasswordResetAttempts = 0
		a.PasswordResetLockUntil = nil
	})
}

func (m *mockAccountStore) MarkEmailVerified(_ context.Context, id string) error {
	return m.update(id, func(a *Account) { a.IsEmailVerified = true })
}

func (m *mockAccountStore) UpdateRole(_ context.Context, id string, role Role) error {
	return m.update(id, func(a *Account) { a.Role = role })
}

func (m *mockAccountStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func (n *recordingNotifier) last(tb testing.TB) Message {
	tb.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.msgs) == 0 {
		tb.Fatal("expected a notification to be sent")
	}
	return n.msgs[len(n.msgs)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testIP = "203.0.113.7"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-tests")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-tests")
	cfg.JWT.ResetSecret = []byte("reset-secret-for-tests")
	cfg.JWT.VerifySecret = []byte("verify-secret-for-tests")
	cfg.FrontendURL = "https://app.example.com"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestRedis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

type testHarness struct {
	engine   *Engine
	accounts *mockAccountStore
	notifier *recordingNotifier
	clock    *testClock
	mr       *miniredis.Miniredis
	rdb      *redis.Client
}

func newTestHarness(tb testing.TB, mutate ...func(*Config)) *testHarness {
	tb.Helper()
	return newTestHarnessWithSink(tb, nil, mutate...)
}

func newTestHarnessWithSink(tb testing.TB, sink AuditSink, mutate ...func(*Config)) *testHarness {
	tb.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	mr, rdb := newTestRedis(tb)
	h := &testHarness{
		accounts: newMockAccountStore(),
		notifier: &recordingNotifier{},
		clock:    newTestClock(),
		mr:       mr,
		rdb:      rdb,
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(h.accounts).
		WithNotifier(h.notifier).
		WithAuditSink(sink).
		WithClock(h.clock.Now).
		WithLogger(slog.New(slog.DiscardHandler)).
		Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}
	tb.Cleanup(engine.Close)
	h.engine = engine
	return h
}

func ipCtx(ip string) context.Context {
	return WithClientIP(context.Background(), ip)
}

// seedAccount stores an account directly, bypassing registration.
func (h *testHarness) seedAccount(tb testing.TB, email, password string, role Role, verified bool) *Account {
	tb.Helper()

	hash, err := h.engine.hasher.Hash(password)
	if err != nil {
		tb.Fatalf("hash failed: %v", err)
	}
	now := h.clock.Now()
	acct := &Account{
		ID:              uuid.NewString(),
		Name:            "Seeded User",
		Email:           email,
		PasswordHash:    hash,
		Role:            role,
		IsEmailVerified: verified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.accounts.Create(context.Background(), acct); err != nil {
		tb.Fatalf("seed create failed: %v", err)
	}
	return acct
}

// registerAndVerify runs the OTP flow to completion and returns the session.
func (h *testHarness) registerAndVerify(tb testing.TB, name, email, password string) *Session {
	tb.Helper()

	ctx := ipCtx(testIP)
	if _, err := h.engine.Register(ctx, RegisterRequest{Name: name, Email: email, Password: password}); err != nil {
		tb.Fatalf("register failed: %v", err)
	}
	msg := h.notifier.last(tb)
	if msg.Kind != MessageVerificationOTP {
		tb.Fatalf("expected otp message, got %s", msg.Kind)
	}
	sess, err := h.engine.VerifyOTP(ctx, email, msg.OTP)
	if err != nil {
		tb.Fatalf("verify otp failed: %v", err)
	}
	return sess
}

func linkToken(tb testing.TB, link string) string {
	tb.Helper()

	u, err := url.Parse(link)
	if err != nil {
		tb.Fatalf("parse link %q: %v", link, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		tb.Fatalf("link %q has no token", link)
	}
	return token
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
