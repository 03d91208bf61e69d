package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Br3achBl0ckers/authcore"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{authcore.ErrDuplicateAccount, http.StatusBadRequest, "User already exists"},
		{authcore.ErrNoPendingRegistration, http.StatusBadRequest, "Invalid or expired verification session"},
		{authcore.ErrOtpExpired, http.StatusBadRequest, "OTP has expired. Please register again."},
		{authcore.ErrInvalidOtp, http.StatusBadRequest, "Invalid OTP"},
		{authcore.ErrInvalidCredentials, http.StatusBadRequest, "Invalid credentials"},
		{authcore.ErrInvalidOrExpiredToken, http.StatusBadRequest, "Invalid or expired token"},
		{authcore.ErrInvalidRole, http.StatusBadRequest, "Invalid role"},
		{authcore.ErrSelfModification, http.StatusBadRequest, "Cannot modify your own account"},
		{authcore.ErrNotFound, http.StatusNotFound, "User not found"},
		{authcore.ErrNoSession, http.StatusUnauthorized, "No refresh token found"},
		{authcore.ErrInvalidSession, http.StatusForbidden, "Invalid refresh token"},
		{authcore.ErrUnauthorized, http.StatusUnauthorized, "Token is not valid"},
		{authcore.ErrEmailDispatchFailed, http.StatusInternalServerError, "Failed to send email. Please try again."},
		{&authcore.EmailNotVerifiedError{CanResend: true}, http.StatusForbidden, "Please verify your email first"},
		{&authcore.ResetLockedError{LockUntil: time.Now().Add(time.Hour)}, http.StatusTooManyRequests, "Too many reset attempts. Please try again later."},
		{&authcore.RateLimitError{Operation: "registration", RemainingTime: 90 * time.Second}, http.StatusTooManyRequests, "Too many registration attempts. Please try again in 2 minutes"},
		{&authcore.RateLimitError{Operation: "email", RemainingTime: 10 * time.Second}, http.StatusTooManyRequests, "Too many email requests. Please try again in 10 seconds"},
		{&authcore.PasswordPolicyError{Reasons: []string{"x"}}, http.StatusBadRequest, "Password requirements not met"},
		{&authcore.ValidationError{Fields: map[string][]string{"name": {"Name is required"}}}, http.StatusBadRequest, "Name is required"},
		{fmt.Errorf("wrapped: %w", authcore.ErrInvalidOtp), http.StatusBadRequest, "Invalid OTP"},
		{errMalformedBody, http.StatusBadRequest, "Invalid request body"},
	}

	s := &Server{logger: slog.New(slog.DiscardHandler)}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body["msg"])
		})
	}
}

func TestWriteErrorHidesDetailInProduction(t *testing.T) {
	boom := fmt.Errorf("%w: connection reset", authcore.ErrStoreUnavailable)

	for _, production := range []bool{false, true} {
		s := &Server{logger: slog.New(slog.DiscardHandler), production: production}
		rec := httptest.NewRecorder()
		s.writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), boom)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Server Error", body["msg"])
		if production {
			assert.NotContains(t, body, "error")
		} else {
			assert.Contains(t, body["error"], "connection reset")
		}
	}
}

func TestDecodeMapsValidatorErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", jsonReader(`{"email":"not-an-email"}`))
	var dst emailRequest
	err := decode(req, &dst)

	var verr *authcore.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Invalid email format"}, verr.Fields["email"])
}

func jsonReader(s string) *strings.Reader { return strings.NewReader(s) }
