package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rushdelivery/rush-core/internal/auth"
	"github.com/rushdelivery/rush-core/internal/tracking"
)

// userSummary is the admin view of an account.
type userSummary struct {
	ID     string    `json:"id"`
	Email  string    `json:"email"`
	Role   auth.Role `json:"role"`
	Tokens int       `json:"tokens"`
}

// handleListUsers returns every account with its push token count.
// Admin only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users := s.store.ListUsers()

	summaries := make([]userSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, userSummary{
			ID:     u.ID,
			Email:  u.Email,
			Role:   u.Role,
			Tokens: len(u.PushSubscriptions),
		})
	}

	writeJSON(w, http.StatusOK, summaries)
}

// handleUpdateUserRole changes an account's role. Admin only.
func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req roleUpdateRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.store.UpdateUserRole(userID, auth.Role(req.Role)); err != nil {
		writeStoreError(w, err)
		return
	}

	s.logger.Info("user role updated", "uid", userID, "role", req.Role)
	writeJSON(w, http.StatusOK, map[string]any{"message": "role updated"})
}

// handlePushTest delivers a test notification. With a uid it targets one
// account; without, it reports how many push tokens are registered
// overall. Admin only.
func (s *Server) handlePushTest(w http.ResponseWriter, r *http.Request) {
	var req pushTestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	title := req.Title
	if title == "" {
		title = "Test notification"
	}
	body := req.Body
	if body == "" {
		body = "Push delivery path verified"
	}

	sent := 0
	if req.UID != "" {
		notification := tracking.Notification{Title: title, Body: body, URL: req.URL}
		if _, err := s.store.AddNotification(req.UID, notification); err != nil {
			if errors.Is(err, tracking.ErrUserNotFound) {
				writeNotFound(w, "user not found")
				return
			}
			writeStoreError(w, err)
			return
		}
		sent = 1
	}

	tokens := s.store.PushSubscriptionCount(req.UID)
	s.store.RecordAlert("info", "Test push dispatched: "+title)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "push test dispatched",
		"sent":    sent,
		"tokens":  tokens,
	})
}
