package api

import (
	"net/http"
	"strconv"
)

// limitParam parses the optional ?limit query parameter, falling back to
// the configured feed limit.
func (s *Server) limitParam(r *http.Request) int {
	limit := s.cfg.Tracking.ActivityFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}

// handleDashboardStats returns aggregate fleet and shipment numbers.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

// handleDashboardActivities returns the most recent activity entries.
func (s *Server) handleDashboardActivities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Activities(s.limitParam(r)))
}

// handleDashboardAlerts returns the most recent operational alerts.
func (s *Server) handleDashboardAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Alerts(s.limitParam(r)))
}

// handleDashboardShipments returns undelivered parcels for the live map.
func (s *Server) handleDashboardShipments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ActiveShipments(s.limitParam(r)))
}
