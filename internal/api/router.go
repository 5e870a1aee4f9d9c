package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter wires all HTTP routes with their middleware chains.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(bodySizeLimitMiddleware)

	// Public surface: no credential required.
	r.Get("/health", s.handleHealth)
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/admin/verify_key", s.handleVerifyKey)
	r.Post("/parcels", s.handleCreateParcel)
	r.Get("/parcels/{trackingID}", s.handleGetParcel)
	r.Get("/ws/dashboard", s.handleDashboardWS)
	r.Get("/ws/{trackingID}", s.handleTrackingWS)

	// Authenticated surface: any valid token or the admin key.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handleUpdateProfile)
		r.Put("/profile/password", s.handleUpdatePassword)
		r.Put("/profile/preferences", s.handleUpdatePreferences)

		r.Post("/notifications/subscribe", s.handleSubscribePush)
		r.Get("/notifications", s.handleListNotifications)
		r.Put("/notifications/mark-all-read", s.handleMarkAllNotificationsRead)
		r.Put("/notifications/{notificationID}", s.handleUpdateNotification)

		// Admin surface.
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnlyMiddleware)

			r.Get("/parcels", s.handleListParcels)
			r.Put("/parcels/{parcelID}", s.handleUpdateParcel)

			r.Get("/drivers", s.handleListDrivers)
			r.Put("/drivers/{driverID}", s.handleUpdateDriver)

			r.Get("/dashboard/stats", s.handleDashboardStats)
			r.Get("/dashboard/activities", s.handleDashboardActivities)
			r.Get("/dashboard/alerts", s.handleDashboardAlerts)
			r.Get("/dashboard/shipments", s.handleDashboardShipments)

			r.Get("/admin/users", s.handleListUsers)
			r.Put("/admin/users/{userID}/role", s.handleUpdateUserRole)

			r.Post("/push/test", s.handlePushTest)
		})
	})

	return r
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"connections": s.hub.ClientCount(),
	})
}
