package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rushdelivery/rush-core/internal/tracking"
)

// handleCreateParcel registers a new shipment. Creation is public so
// storefront integrations can book parcels without an account; the
// store assigns the tracking ID unless the caller supplied one.
func (s *Server) handleCreateParcel(w http.ResponseWriter, r *http.Request) {
	var req createParcelRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	parcel := &tracking.Parcel{
		TrackingID:        req.TrackingID,
		Status:            tracking.ParcelStatus(req.Status),
		EstimatedDelivery: req.EstimatedDelivery,
		Sender:            req.Sender,
		Receiver:          req.Receiver,
		DriverID:          req.DriverID,
		Origin:            req.Origin,
		Destination:       req.Destination,
	}
	if req.Location != nil {
		parcel.Location = *req.Location
	}

	created, err := s.store.CreateParcel(parcel)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.logger.Info("parcel created", "tracking_id", created.TrackingID)
	writeJSON(w, http.StatusCreated, created)
}

// handleGetParcel looks a parcel up by tracking ID. Public: the tracking
// ID itself is the capability.
func (s *Server) handleGetParcel(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	parcel, err := s.store.GetParcelByTrackingID(trackingID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, parcel)
}

// handleListParcels returns every parcel. Admin only.
func (s *Server) handleListParcels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListParcels())
}

// handleUpdateParcel applies a partial update to a parcel. Admin only.
func (s *Server) handleUpdateParcel(w http.ResponseWriter, r *http.Request) {
	parcelID := chi.URLParam(r, "parcelID")

	var patch tracking.ParcelPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	updated, err := s.store.UpdateParcel(parcelID, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
