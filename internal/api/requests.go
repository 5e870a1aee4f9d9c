package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rushdelivery/rush-core/internal/tracking"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=client admin"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyKeyRequest struct {
	Key string `json:"key" validate:"required"`
}

type createParcelRequest struct {
	TrackingID        string             `json:"tracking_id" validate:"omitempty,len=16,alphanum,uppercase"`
	Status            string             `json:"status" validate:"omitempty,oneof='Processing' 'In Transit' 'Out for Delivery' 'Delivered'"`
	Location          *tracking.Location `json:"location"`
	EstimatedDelivery time.Time          `json:"estimated_delivery"`
	Sender            string             `json:"sender" validate:"required"`
	Receiver          string             `json:"receiver" validate:"required"`
	DriverID          string             `json:"driver_id"`
	Origin            string             `json:"origin"`
	Destination       string             `json:"destination"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type preferencesRequest struct {
	Prefs tracking.NotificationPrefs `json:"prefs"`
}

type subscribeRequest struct {
	Subscription json.RawMessage `json:"subscription" validate:"required"`
}

type notificationUpdateRequest struct {
	Read bool `json:"read"`
}

type roleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=client admin"`
}

type pushTestRequest struct {
	UID   string `json:"uid"`
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// decodeJSON decodes a request body, rejecting unknown fields so typos
// in patch payloads fail loudly rather than being silently dropped.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// decodeAndValidate decodes the body into v and runs struct validation.
func (s *Server) decodeAndValidate(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0]
			return fmt.Errorf("field %q failed validation on %q", field.Field(), field.Tag())
		}
		return err
	}
	return nil
}
