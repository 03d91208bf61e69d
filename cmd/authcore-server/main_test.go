package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Br3achBl0ckers/authcore"
	"github.com/Br3achBl0ckers/authcore/internal/config"
	"github.com/Br3achBl0ckers/authcore/internal/logger"
	"github.com/Br3achBl0ckers/authcore/internal/mailer"
	"github.com/Br3achBl0ckers/authcore/memstore"
)

func engineTestConfig(auditEnabled bool) *config.Config {
	return &config.Config{
		AppEnv: "development",
		Secrets: config.Secrets{
			Access:            "access-secret-for-tests",
			Refresh:           "refresh-secret-for-tests",
			PasswordReset:     "reset-secret-for-tests",
			EmailVerification: "verify-secret-for-tests",
		},
		FrontendURL:      "http://localhost:3000",
		RegistrationFlow: "otp",
		AttemptStore:     "memory",
		AuditEnabled:     auditEnabled,
	}
}

// failedLoginLog builds an engine, runs one failed login and returns what the
// process logger wrote.
func failedLoginLog(t *testing.T, auditEnabled bool) string {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var buf bytes.Buffer
	lg, err := logger.NewWithWriter(&buf, "info", "json")
	require.NoError(t, err)

	engine, err := newEngine(engineTestConfig(auditEnabled), rdb, memstore.NewAccounts(), mailer.NewLog(lg.Logger), lg)
	require.NoError(t, err)

	_, err = engine.Login(context.Background(), "nobody@example.com", "wrong-password")
	require.ErrorIs(t, err, authcore.ErrInvalidCredentials)
	engine.Close()

	return buf.String()
}

func TestNewEngineWritesAuditEventsToLog(t *testing.T) {
	out := failedLoginLog(t, true)

	assert.Contains(t, out, `"msg":"Audit: login_failure"`)
	assert.Contains(t, out, `"email":"nobody@example.com"`)
}

func TestNewEngineAuditDisabled(t *testing.T) {
	out := failedLoginLog(t, false)

	assert.NotContains(t, out, "Audit: ")
}

func TestNewNotifierRefusesLogMailerInProduction(t *testing.T) {
	cfg := &config.Config{AppEnv: "production"}

	n, err := newNotifier(cfg, logger.Noop())
	require.ErrorIs(t, err, errSMTPRequired)
	assert.Nil(t, n)
}

func TestNewNotifierUsesLogMailerInDevelopment(t *testing.T) {
	cfg := &config.Config{AppEnv: "development"}

	n, err := newNotifier(cfg, logger.Noop())
	require.NoError(t, err)
	assert.IsType(t, &mailer.Log{}, n)
}

func TestNewNotifierUsesSMTPWhenConfigured(t *testing.T) {
	cfg := &config.Config{
		AppEnv: "production",
		SMTP: config.SMTP{
			Host:     "smtp.example.com",
			Port:     587,
			Username: "mailer",
			Password: "secret",
			From:     "Br3achBl0ckers <no-reply@example.com>",
		},
	}

	n, err := newNotifier(cfg, logger.Noop())
	require.NoError(t, err)
	assert.IsType(t, &mailer.SMTP{}, n)
}
