package api

import (
	"net/http"

	"github.com/rushdelivery/rush-core/internal/auth"
	"github.com/rushdelivery/rush-core/internal/tracking"
)

// currentUser resolves the authenticated identity to its user record.
// Admin-key callers have no account, so profile routes 404 for them.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*tracking.User, bool) {
	identity := identityFrom(r)
	if identity == nil || identity.UID == "" {
		writeNotFound(w, "user not found")
		return nil, false
	}

	user, err := s.store.GetUserByID(identity.UID)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	return user, true
}

// handleGetProfile returns the caller's profile.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uid":                   user.ID,
		"email":                 user.Email,
		"role":                  user.Role,
		"name":                  user.Name,
		"addresses":             user.Addresses,
		"default_address_index": user.DefaultAddressIndex,
		"prefs":                 user.Prefs,
	})
}

// handleUpdateProfile applies a partial update to the caller's profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var patch tracking.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	updated, err := s.store.UpdateProfile(user.ID, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":               "profile updated",
		"name":                  updated.Name,
		"addresses":             updated.Addresses,
		"default_address_index": updated.DefaultAddressIndex,
		"prefs":                 updated.Prefs,
	})
}

// handleUpdatePassword re-hashes and replaces the caller's password.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req passwordRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "uid", user.ID, "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	if err := s.store.UpdateUserPassword(user.ID, hash); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}

// handleUpdatePreferences replaces the caller's notification preferences.
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if _, err := s.store.UpdateProfile(user.ID, tracking.ProfilePatch{Prefs: &req.Prefs}); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "preferences updated"})
}
