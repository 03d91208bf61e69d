package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Br3achBl0ckers/authcore"
	"github.com/Br3achBl0ckers/authcore/middleware"
)

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=student teacher admin super"`
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.engine.ListAccounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// getUser returns an account to its owner or to a privileged caller.
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if claims.UserID != id && !claims.Role.Privileged() {
		writeMsg(w, http.StatusForbidden, "Access denied, insufficient permissions")
		return
	}

	user, err := s.engine.GetAccount(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	user, err := s.engine.UpdateRole(r.Context(), claims.UserID, chi.URLParam(r, "id"), authcore.Role(req.Role))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"msg": "Role updated successfully", "user": user})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := s.engine.DeleteAccount(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, "User deleted successfully")
}
