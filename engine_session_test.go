package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRefreshRotatesTokens(t *testing.T) {
	h := newTestHarness(t)
	sess := h.registerAndVerify(t, "Alice", "alice@example.com", "Passw0rd!")

	h.clock.Advance(time.Minute)
	next, err := h.engine.Refresh(context.Background(), sess.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if next.RefreshToken == sess.RefreshToken || next.AccessToken == sess.AccessToken {
		t.Fatal("refresh must issue a new pair")
	}
	if next.User.ID != sess.User.ID {
		t.Fatalf("unexpected user %+v", next.User)
	}

	if _, err := h.engine.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("old refresh token should be rejected, got %v", err)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricRefreshSuccess]; got != 1 {
		t.Fatalf("expected refresh success metric 1, got %d", got)
	}
}

func TestRefreshRejectsMissingAndForgedTokens(t *testing.T) {
	h := newTestHarness(t)
	sess := h.registerAndVerify(t, "Alice", "alice@example.com", "Passw0rd!")
	ctx := context.Background()

	if _, err := h.engine.Refresh(ctx, ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, err := h.engine.Refresh(ctx, "not-a-jwt"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := h.engine.Refresh(ctx, sess.AccessToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	h := newTestHarness(t)
	sess := h.registerAndVerify(t, "Alice", "alice@example.com", "Passw0rd!")

	h.clock.Advance(7*24*time.Hour + time.Second)
	if _, err := h.engine.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestRefreshDeletedAccount(t *testing.T) {
	h := newTestHarness(t)
	sess := h.registerAndVerify(t, "Alice", "alice@example.com", "Passw0rd!")

	if err := h.accounts.Delete(context.Background(), sess.User.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := h.engine.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestValidateAccessExpiry(t *testing.T) {
	h := newTestHarness(t)
	sess := h.registerAndVerify(t, "Alice", "alice@example.com", "Passw0rd!")
	ctx := context.Background()

	claims, err := h.engine.ValidateAccess(ctx, sess.AccessToken)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !claims.ExpiresAt.Equal(h.clock.Now().Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", claims.ExpiresAt)
	}

	h.clock.Advance(15*time.Minute + time.Second)
	if _, err := h.engine.ValidateAccess(ctx, sess.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := h.engine.ValidateAccess(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
	if _, err := h.engine.ValidateAccess(ctx, sess.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("refresh token must not validate as access, got %v", err)
	}
}

func TestLogoutClearsRefreshToken(t *testing.T) {
	h := newTestHarness(t)
	sess := h.registerAndVerify(t, "Alice", "alice@example.com", "Passw0rd!")
	ctx := context.Background()

	if err := h.engine.Logout(ctx, sess.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if h.accounts.get(sess.User.ID).RefreshToken != "" {
		t.Fatal("refresh token should be cleared")
	}
	if _, err := h.engine.Refresh(ctx, sess.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after logout, got %v", err)
	}

	// Idempotent while the access token is still valid.
	if err := h.engine.Logout(ctx, sess.AccessToken); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
	if err := h.engine.Logout(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestFullSessionRoundTrip(t *testing.T) {
	h := newTestHarness(t)
	ctx := ipCtx(testIP)

	h.registerAndVerify(t, "Alice", "alice@example.com", "Passw0rd!")

	login, err := h.engine.Login(ctx, "alice@example.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	refreshed, err := h.engine.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if err := h.engine.Logout(ctx, refreshed.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := h.engine.Refresh(ctx, refreshed.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}
