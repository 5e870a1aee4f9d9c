package tracking

import (
	"fmt"
	"time"

	"github.com/rushdelivery/rush-core/internal/auth"
)

// SeedDemoData populates an empty store with the demo fixtures the
// dashboard expects: an admin and a client account, a small fleet and a
// handful of in-flight parcels. Seeding is skipped when users already
// exist so a restart with persistent config stays idempotent per process.
func SeedDemoData(s *Store) error {
	if len(s.ListUsers()) > 0 {
		return nil
	}

	seedUsers := []struct {
		email    string
		password string
		role     auth.Role
	}{
		{"admin@rushdelivery.com", "admin123", auth.RoleAdmin},
		{"demo@rushdelivery.com", "demo123", auth.RoleClient},
	}
	for _, u := range seedUsers {
		hash, err := auth.HashPassword(u.password)
		if err != nil {
			return fmt.Errorf("hashing seed password: %w", err)
		}
		if _, err := s.CreateUser(u.email, hash, u.role); err != nil {
			return fmt.Errorf("creating seed user %s: %w", u.email, err)
		}
	}

	fleet := []Driver{
		{Name: "John Smith", Phone: "+1-555-0101", VehicleType: "Van", CurrentLocation: Location{Lat: 40.7128, Lng: -74.0060}, Status: DriverActive},
		{Name: "Sarah Johnson", Phone: "+1-555-0102", VehicleType: "Truck", CurrentLocation: Location{Lat: 40.7589, Lng: -73.9851}, Status: DriverActive},
		{Name: "Mike Davis", Phone: "+1-555-0103", VehicleType: "Van", CurrentLocation: Location{Lat: 40.7505, Lng: -73.9934}, Status: DriverBusy},
		{Name: "Lisa Brown", Phone: "+1-555-0104", VehicleType: "Truck", CurrentLocation: Location{Lat: 40.7282, Lng: -73.7949}, Status: DriverAvailable},
		{Name: "David Wilson", Phone: "+1-555-0105", VehicleType: "Van", CurrentLocation: Location{Lat: 40.7831, Lng: -73.9712}, Status: DriverActive},
	}
	driverIDs := make([]string, 0, len(fleet))
	for i := range fleet {
		created, err := s.CreateDriver(&fleet[i])
		if err != nil {
			return fmt.Errorf("creating seed driver %s: %w", fleet[i].Name, err)
		}
		driverIDs = append(driverIDs, created.ID)
	}

	now := time.Now().UTC()
	shipments := []Parcel{
		{Status: StatusInTransit, Location: Location{Lat: 40.7589, Lng: -73.9851}, EstimatedDelivery: now.Add(48 * time.Hour), Sender: "Tech Corp Inc", Receiver: "Global Solutions LLC", DriverID: driverIDs[0]},
		{Status: StatusOutForDelivery, Location: Location{Lat: 40.7505, Lng: -73.9934}, EstimatedDelivery: now.Add(4 * time.Hour), Sender: "Fashion Retail", Receiver: "Sarah Martinez", DriverID: driverIDs[1]},
		{Status: StatusProcessing, Location: Location{Lat: 40.7128, Lng: -74.0060}, EstimatedDelivery: now.Add(24 * time.Hour), Sender: "Online Store", Receiver: "Michael Chen", DriverID: driverIDs[2]},
		{Status: StatusDelivered, Location: Location{Lat: 40.7282, Lng: -73.7949}, EstimatedDelivery: now.Add(-2 * time.Hour), Sender: "Book World", Receiver: "Emily Davis", DriverID: driverIDs[3]},
		{Status: StatusInTransit, Location: Location{Lat: 40.7831, Lng: -73.9712}, EstimatedDelivery: now.Add(72 * time.Hour), Sender: "Electronics Plus", Receiver: "David Wilson", DriverID: driverIDs[4]},
	}
	for i := range shipments {
		if _, err := s.CreateParcel(&shipments[i]); err != nil {
			return fmt.Errorf("creating seed parcel: %w", err)
		}
	}

	s.RecordAlert("info", "All systems operational")
	s.RecordAlert("success", "Monthly delivery target achieved")
	s.RecordAlert("warning", "2 packages delayed due to traffic")

	return nil
}
