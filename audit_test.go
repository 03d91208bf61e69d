package authcore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func auditEnabled(buffer int, dropIfFull bool) func(*Config) {
	return func(cfg *Config) {
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = buffer
		cfg.Audit.DropIfFull = dropIfFull
	}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	h := newTestHarnessWithSink(t, sink, func(cfg *Config) {
		cfg.Audit.Enabled = false
	})
	h.seedAccount(t, "alice@example.com", "Passw0rd!", RoleStudent, true)

	_, _ = h.engine.Login(ipCtx("203.0.113.1"), "alice@example.com", "wrong-password")
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	sink := newCaptureSink(8)
	h := newTestHarnessWithSink(t, sink, auditEnabled(16, true))
	h.seedAccount(t, "alice@example.com", "Passw0rd!", RoleStudent, true)

	ctx := WithUserAgent(ipCtx("198.51.100.33"), "test-agent/1.0")
	_, _ = h.engine.Login(ctx, "alice@example.com", "super-secret-password")

	select {
	case ev := <-sink.events:
		if ev.EventType != auditEventLoginFailure {
			t.Fatalf("expected %s, got %q", auditEventLoginFailure, ev.EventType)
		}
		if ev.IP != "198.51.100.33" {
			t.Fatalf("expected IP 198.51.100.33, got %q", ev.IP)
		}
		if ev.UserAgent != "test-agent/1.0" {
			t.Fatalf("expected user agent, got %q", ev.UserAgent)
		}
		if ev.Email != "alice@example.com" || ev.Success {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if !ev.Timestamp.Equal(h.clock.Now()) {
			t.Fatalf("expected engine clock timestamp, got %s", ev.Timestamp)
		}
		if ev.Error == "super-secret-password" {
			t.Fatal("sensitive password leaked in error")
		}
		for _, v := range ev.Metadata {
			if v == "super-secret-password" {
				t.Fatal("sensitive password leaked in metadata")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
	}
}

func TestAuditRateLimitEventCarriesScope(t *testing.T) {
	sink := newCaptureSink(16)
	h := newTestHarnessWithSink(t, sink, auditEnabled(16, false))
	ctx := ipCtx(testIP)

	for i := 0; i < 6; i++ {
		_, _ = h.engine.Login(ctx, "ghost@example.com", "Passw0rd!")
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.events:
			if ev.EventType != auditEventRateLimitTriggered {
				continue
			}
			if ev.Metadata["scope"] != "login" || ev.Error != string(auditErrRateLimited) {
				t.Fatalf("unexpected rate limit event: %+v", ev)
			}
			return
		case <-timeout:
			t.Fatal("expected a rate limit audit event")
		}
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		UserID:    "u1",
		IP:        "127.0.0.1",
		Success:   true,
	}
	sink.Emit(context.Background(), event)

	if !buf.Contains("login_success") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains("\"user_id\":\"u1\"") {
		t.Fatal("expected JSON log line to contain user id")
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{})

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := newCaptureSink(32)
	h := newTestHarnessWithSink(t, sink, auditEnabled(32, false))
	sensitivePassword := "Passw0rd!"
	ctx := ipCtx(testIP)

	if _, err := h.engine.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: sensitivePassword}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	otp := h.notifier.last(t).OTP
	sess, err := h.engine.VerifyOTP(ctx, "alice@example.com", otp)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	next, err := h.engine.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	secretNeedles := []string{
		sensitivePassword,
		otp,
		sess.RefreshToken,
		next.RefreshToken,
		next.AccessToken,
		h.accounts.get(sess.User.ID).PasswordHash,
	}

	// Collect a bounded number of audit events generated by the operations above.
	events := make([]AuditEvent, 0, 8)
	timeout := time.After(2 * time.Second)
collectLoop:
	for len(events) < 3 {
		select {
		case ev := <-sink.events:
			events = append(events, ev)
		case <-timeout:
			break collectLoop
		}
	}

	if len(events) == 0 {
		t.Fatal("expected at least one audit event")
	}

	for _, ev := range events {
		for _, needle := range secretNeedles {
			if needle == "" {
				continue
			}
			if stringContains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in audit error field: %q", needle)
			}
			for k, v := range ev.Metadata {
				if stringContains(k, needle) || stringContains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf syncBuffer
	sink := NewSlogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLoginSuccess, UserID: "u1", Success: true})
	sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventLoginFailure,
		Email:     "alice@example.com",
		Error:     string(auditErrInvalidCredentials),
		Metadata:  map[string]string{"scope": "login"},
	})

	if !buf.Contains(`"level":"INFO","msg":"Audit: login_success"`) {
		t.Fatal("expected info record for successful event")
	}
	if !buf.Contains(`"level":"WARN","msg":"Audit: login_failure"`) {
		t.Fatal("expected warn record for failed event")
	}
	if !buf.Contains(`"meta.scope":"login"`) {
		t.Fatal("expected metadata attributes")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return stringContains(string(b.buf), v)
}

func stringContains(s, sub string) bool {
	if len(sub) == 0 {
		return true
	}
	if len(sub) > len(s) {
		return false
	}
	for i := 0; i <= len(s)-len(sub); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
