package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rushdelivery/rush-core/internal/tracking"
)

// handleListDrivers returns the fleet roster sorted by name. Admin only.
func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListDrivers())
}

// handleUpdateDriver applies a partial update to a driver record. Admin
// only.
func (s *Server) handleUpdateDriver(w http.ResponseWriter, r *http.Request) {
	driverID := chi.URLParam(r, "driverID")

	var patch tracking.DriverPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	updated, err := s.store.UpdateDriver(driverID, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
