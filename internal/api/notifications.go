package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleSubscribePush stores a push subscription for the caller.
func (s *Server) handleSubscribePush(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req subscribeRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.store.AddPushSubscription(user.ID, string(req.Subscription)); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "subscribed"})
}

// handleListNotifications returns the caller's notifications, newest
// first.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	notifications, err := s.store.Notifications(user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

// handleMarkAllNotificationsRead marks every notification read.
func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	if err := s.store.MarkAllNotificationsRead(user.ID); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "all notifications marked read"})
}

// handleUpdateNotification sets the read flag on a single notification.
func (s *Server) handleUpdateNotification(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	notificationID := chi.URLParam(r, "notificationID")

	var req notificationUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.store.SetNotificationRead(user.ID, notificationID, req.Read); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "notification updated"})
}
