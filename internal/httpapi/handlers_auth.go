package httpapi

import (
	"net/http"

	"github.com/Br3achBl0ckers/authcore"
	"github.com/Br3achBl0ckers/authcore/middleware"
)

type registerRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"max=254"`
	Password string `json:"password" validate:"max=128"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric,max=10"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email      string `json:"email" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=128"`
	RememberMe bool   `json:"rememberMe"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,max=128"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.engine.Register(r.Context(), authcore.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg := "Registration initiated! Please check your email for OTP verification."
	if res.Flow == authcore.FlowLinkVerified {
		msg = "Registration successful! Please check your email to verify your account."
	}
	writeJSON(w, http.StatusCreated, map[string]any{"msg": msg, "email": res.Email})
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.engine.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, sess, false, "Email verified successfully. You are now logged in.")
}

func (s *Server) resendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.ResendOTP(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, "A new verification code has been sent to your email")
}

func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeMsg(w, http.StatusBadRequest, "Verification token is required")
		return
	}

	sess, err := s.engine.VerifyEmail(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, sess, false, "Email verified successfully. You are now logged in.")
}

func (s *Server) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.ResendVerification(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, "Verification email sent")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, sess, req.RememberMe, "")
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.engine.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, "Password reset email sent")
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.engine.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, "Password reset successfully")
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(refreshCookieName); err == nil {
		token = c.Value
	}

	sess, err := s.engine.Refresh(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setRefreshCookie(w, sess.RefreshToken, false, 0)
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": sess.AccessToken})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.TokenFromContext(r.Context())
	if err := s.engine.Logout(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.clearRefreshCookie(w)
	writeMsg(w, http.StatusOK, "Logged out successfully!")
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	user, err := s.engine.GetAccount(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// writeSession sets the refresh cookie and writes the access token and user.
func (s *Server) writeSession(w http.ResponseWriter, sess *authcore.Session, persist bool, msg string) {
	s.setRefreshCookie(w, sess.RefreshToken, persist, s.engine.RefreshTTL())

	body := map[string]any{
		"accessToken": sess.AccessToken,
		"user":        sess.User,
	}
	if msg != "" {
		body["msg"] = msg
	}
	writeJSON(w, http.StatusOK, body)
}
