package tracking

import (
	"time"
)

// Patch types define the explicit set of fields each entity accepts in a
// partial update. Only non-nil fields are applied; the API layer rejects
// unknown JSON keys outright instead of merging them blindly.

// ParcelPatch is a partial update to a parcel.
type ParcelPatch struct {
	Status            *ParcelStatus `json:"status,omitempty"`
	Location          *Location     `json:"location,omitempty"`
	EstimatedDelivery *time.Time    `json:"estimated_delivery,omitempty"`
	Sender            *string       `json:"sender,omitempty"`
	Receiver          *string       `json:"receiver,omitempty"`
	DriverID          *string       `json:"driver_id,omitempty"`
	Origin            *string       `json:"origin,omitempty"`
	Destination       *string       `json:"destination,omitempty"`
	Note              *string       `json:"note,omitempty"`
}

// apply merges the patch into the parcel. Validation happens before apply;
// by the time this runs the patch is known to be well-formed.
func (p *ParcelPatch) apply(target *Parcel, now time.Time) {
	if p.Status != nil && *p.Status != target.Status {
		target.Status = *p.Status
		note := ""
		if p.Note != nil {
			note = *p.Note
		}
		target.Updates = append(target.Updates, ParcelUpdate{
			Status:    *p.Status,
			Note:      note,
			Timestamp: now,
		})
	}
	if p.Location != nil {
		target.Location = *p.Location
	}
	if p.EstimatedDelivery != nil {
		target.EstimatedDelivery = *p.EstimatedDelivery
	}
	if p.Sender != nil {
		target.Sender = *p.Sender
	}
	if p.Receiver != nil {
		target.Receiver = *p.Receiver
	}
	if p.DriverID != nil {
		target.DriverID = *p.DriverID
	}
	if p.Origin != nil {
		target.Origin = *p.Origin
	}
	if p.Destination != nil {
		target.Destination = *p.Destination
	}
	target.UpdatedAt = now
}

// DriverPatch is a partial update to a driver.
type DriverPatch struct {
	Name            *string       `json:"name,omitempty"`
	Phone           *string       `json:"phone,omitempty"`
	VehicleType     *string       `json:"vehicle_type,omitempty"`
	CurrentLocation *Location     `json:"current_location,omitempty"`
	Status          *DriverStatus `json:"status,omitempty"`
}

func (p *DriverPatch) apply(target *Driver, now time.Time) {
	if p.Name != nil {
		target.Name = *p.Name
	}
	if p.Phone != nil {
		target.Phone = *p.Phone
	}
	if p.VehicleType != nil {
		target.VehicleType = *p.VehicleType
	}
	if p.CurrentLocation != nil {
		target.CurrentLocation = *p.CurrentLocation
	}
	if p.Status != nil {
		target.Status = *p.Status
	}
	target.UpdatedAt = now
}

// ProfilePatch is a partial update to a user's own profile fields.
// Credentials and role are intentionally not patchable here.
type ProfilePatch struct {
	Name                *string            `json:"name,omitempty"`
	Addresses           *[]string          `json:"addresses,omitempty"`
	DefaultAddressIndex *int               `json:"default_address_index,omitempty"`
	Prefs               *NotificationPrefs `json:"prefs,omitempty"`
}

func (p *ProfilePatch) apply(target *User, now time.Time) {
	if p.Name != nil {
		target.Name = *p.Name
	}
	if p.Addresses != nil {
		addrs := make([]string, len(*p.Addresses))
		copy(addrs, *p.Addresses)
		target.Addresses = addrs
	}
	if p.DefaultAddressIndex != nil {
		target.DefaultAddressIndex = *p.DefaultAddressIndex
	}
	if p.Prefs != nil {
		target.Prefs = *p.Prefs
	}
	target.UpdatedAt = now
}

// validateParcelPatch rejects unsupported values before anything mutates.
func validateParcelPatch(patch *ParcelPatch) error {
	if patch.Status != nil && !IsValidStatus(*patch.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// validateDriverPatch rejects unsupported values before anything mutates.
func validateDriverPatch(patch *DriverPatch) error {
	if patch.Status != nil && !IsValidDriverStatus(*patch.Status) {
		return ErrInvalidStatus
	}
	return nil
}
