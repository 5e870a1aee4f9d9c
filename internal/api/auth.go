package api

import (
	"errors"
	"net/http"

	"github.com/rushdelivery/rush-core/internal/auth"
	"github.com/rushdelivery/rush-core/internal/tracking"
)

// handleRegister creates a new user account. Role defaults to client
// when omitted.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	role := auth.RoleClient
	if req.Role != "" {
		role = auth.Role(req.Role)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	user, err := s.store.CreateUser(req.Email, hash, role)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.logger.Info("user registered", "uid", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registered",
		"uid":     user.ID,
	})
}

// handleLogin verifies credentials and issues a signed token. Unknown
// email and wrong password produce the same response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	user, err := s.store.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, tracking.ErrUserNotFound) {
			writeUnauthorized(w, "invalid credentials")
			return
		}
		writeStoreError(w, err)
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	token, err := s.guard.IssueToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to issue token", "uid", user.ID, "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	s.store.RecordActivity("User logged in: "+user.Email, "info", "user")

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"uid":   user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// handleVerifyKey checks a static admin key without issuing a token.
// The response shape is identical for valid and invalid keys.
func (s *Server) handleVerifyKey(w http.ResponseWriter, r *http.Request) {
	var req verifyKeyRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if !s.guard.MatchesAdminKey(req.Key) {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"role":  auth.RoleAdmin,
	})
}
