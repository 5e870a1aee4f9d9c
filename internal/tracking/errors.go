package tracking

import "errors"

// Sentinel errors for store operations. The API layer maps these to
// transport status codes in one place.
var (
	ErrParcelNotFound       = errors.New("parcel not found")
	ErrDriverNotFound       = errors.New("driver not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrEmailExists          = errors.New("user already exists")
	ErrTrackingIDExists     = errors.New("tracking id already assigned")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrStatusOrder          = errors.New("status cannot move backwards")
	ErrInvalidField         = errors.New("invalid field")
	ErrIDSpaceExhausted     = errors.New("tracking id generation retries exhausted")
)
