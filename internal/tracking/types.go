package tracking

import (
	"time"

	"github.com/rushdelivery/rush-core/internal/auth"
)

// ParcelStatus is the delivery stage of a parcel.
type ParcelStatus string

const (
	StatusProcessing     ParcelStatus = "Processing"
	StatusInTransit      ParcelStatus = "In Transit"
	StatusOutForDelivery ParcelStatus = "Out for Delivery"
	StatusDelivered      ParcelStatus = "Delivered"
)

// statusRank orders statuses for optional forward-only enforcement.
var statusRank = map[ParcelStatus]int{
	StatusProcessing:     0,
	StatusInTransit:      1,
	StatusOutForDelivery: 2,
	StatusDelivered:      3,
}

// NonTerminalStatuses are the statuses a simulated update may move a parcel to.
var NonTerminalStatuses = []ParcelStatus{StatusProcessing, StatusInTransit, StatusOutForDelivery}

// IsValidStatus returns true for a recognised parcel status.
func IsValidStatus(s ParcelStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// DriverStatus is the availability state of a driver.
type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverActive    DriverStatus = "active"
	DriverBusy      DriverStatus = "busy"
)

// IsValidDriverStatus returns true for a recognised driver status.
func IsValidDriverStatus(s DriverStatus) bool {
	switch s {
	case DriverAvailable, DriverActive, DriverBusy:
		return true
	}
	return false
}

// Location is a geographic coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParcelUpdate is one entry in a parcel's ordered update history.
type ParcelUpdate struct {
	Status    ParcelStatus `json:"status"`
	Note      string       `json:"note,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Parcel is a tracked shipment.
//
// TrackingID is the public, human-shareable identifier, distinct from the
// internal ID. DriverID is a non-owning reference into the driver
// collection; it may dangle after a driver is removed and readers must
// tolerate that.
type Parcel struct {
	ID                string         `json:"id"`
	TrackingID        string         `json:"tracking_id"`
	Status            ParcelStatus   `json:"status"`
	Location          Location       `json:"location"`
	EstimatedDelivery time.Time      `json:"estimated_delivery"`
	Sender            string         `json:"sender"`
	Receiver          string         `json:"receiver"`
	DriverID          string         `json:"driver_id,omitempty"`
	Driver            string         `json:"driver,omitempty"` // joined driver name, read-time only
	Origin            string         `json:"origin,omitempty"`
	Destination       string         `json:"destination,omitempty"`
	Updates           []ParcelUpdate `json:"updates"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// DeepCopy returns an independent copy of the parcel.
func (p *Parcel) DeepCopy() *Parcel {
	cp := *p
	if p.Updates != nil {
		cp.Updates = make([]ParcelUpdate, len(p.Updates))
		copy(cp.Updates, p.Updates)
	}
	return &cp
}

// Driver is a delivery driver.
type Driver struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Phone           string       `json:"phone"`
	VehicleType     string       `json:"vehicle_type"`
	CurrentLocation Location     `json:"current_location"`
	Status          DriverStatus `json:"status"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// DeepCopy returns an independent copy of the driver.
func (d *Driver) DeepCopy() *Driver {
	cp := *d
	return &cp
}

// NotificationPrefs are a user's delivery-channel preferences.
type NotificationPrefs struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// User is a registered account.
type User struct {
	ID                  string            `json:"id"`
	Email               string            `json:"email"`
	PasswordHash        string            `json:"-"` // never serialised
	Role                auth.Role         `json:"role"`
	Name                string            `json:"name,omitempty"`
	Addresses           []string          `json:"addresses,omitempty"`
	DefaultAddressIndex int               `json:"default_address_index"`
	Prefs               NotificationPrefs `json:"prefs"`
	PushSubscriptions   []string          `json:"-"` // opaque push tokens, never serialised
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// DeepCopy returns an independent copy of the user.
func (u *User) DeepCopy() *User {
	cp := *u
	if u.Addresses != nil {
		cp.Addresses = make([]string, len(u.Addresses))
		copy(cp.Addresses, u.Addresses)
	}
	if u.PushSubscriptions != nil {
		cp.PushSubscriptions = make([]string, len(u.PushSubscriptions))
		copy(cp.PushSubscriptions, u.PushSubscriptions)
	}
	return &cp
}

// Activity is one append-only, most-recent-first feed entry.
// Entries are immutable once recorded.
type Activity struct {
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"time"`
}

// Alert is one append-only system alert entry.
type Alert struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"time"`
}

// Notification is a per-user message with a read flag.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	URL       string    `json:"url,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardStats summarises fleet and shipment state for the admin dashboard.
type DashboardStats struct {
	TotalShipments int     `json:"total_shipments"`
	ActiveDrivers  int     `json:"active_drivers"`
	RevenueToday   float64 `json:"revenue_today"`
	OnTimeDelivery float64 `json:"on_time_delivery"`
}
