package tracking

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rushdelivery/rush-core/internal/auth"
)

func newTestParcel() *Parcel {
	return &Parcel{
		Sender:            "Acme Warehouse",
		Receiver:          "Jane Doe",
		Origin:            "New York, NY",
		Destination:       "Boston, MA",
		EstimatedDelivery: time.Now().UTC().Add(48 * time.Hour),
		Location:          Location{Lat: 40.7128, Lng: -74.0060},
	}
}

// ---- Users ----

func TestStore_CreateUser(t *testing.T) {
	s := NewStore()

	user, err := s.CreateUser("jane@example.com", "hash", auth.RoleClient)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("expected a generated user ID")
	}
	if !user.Prefs.Email {
		t.Error("expected email notifications enabled by default")
	}

	got, err := s.GetUserByEmail("jane@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetUserByEmail() ID = %q, want %q", got.ID, user.ID)
	}
}

func TestStore_CreateUser_DuplicateEmail(t *testing.T) {
	s := NewStore()

	if _, err := s.CreateUser("jane@example.com", "hash", auth.RoleClient); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	_, err := s.CreateUser("jane@example.com", "other", auth.RoleAdmin)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("CreateUser() error = %v, want ErrEmailExists", err)
	}
}

func TestStore_CreateUser_ConcurrentSameEmail(t *testing.T) {
	s := NewStore()

	const racers = 16
	var wg sync.WaitGroup
	errs := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateUser("racer@example.com", "hash", auth.RoleClient)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else if !errors.Is(err, ErrEmailExists) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("created = %d accounts, want exactly 1", created)
	}
}

func TestStore_CreateUser_InvalidRole(t *testing.T) {
	s := NewStore()

	if _, err := s.CreateUser("x@example.com", "hash", auth.Role("superuser")); !errors.Is(err, ErrInvalidField) {
		t.Errorf("CreateUser() error = %v, want ErrInvalidField", err)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	s := NewStore()
	user, err := s.CreateUser("jane@example.com", "hash", auth.RoleClient)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	name := "Jane Doe"
	addrs := []string{"1 Main St", "2 Side St"}
	idx := 1
	updated, err := s.UpdateProfile(user.ID, ProfilePatch{
		Name:                &name,
		Addresses:           &addrs,
		DefaultAddressIndex: &idx,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if updated.Name != "Jane Doe" {
		t.Errorf("Name = %q, want %q", updated.Name, "Jane Doe")
	}
	if len(updated.Addresses) != 2 || updated.DefaultAddressIndex != 1 {
		t.Errorf("addresses = %v index = %d, want 2 addresses with index 1", updated.Addresses, updated.DefaultAddressIndex)
	}

	// Mutating the caller's slice must not leak into the store.
	addrs[0] = "hacked"
	fresh, _ := s.GetUserByID(user.ID)
	if fresh.Addresses[0] != "1 Main St" {
		t.Error("stored addresses aliased the caller's slice")
	}
}

func TestStore_UpdateUserRole(t *testing.T) {
	s := NewStore()
	user, _ := s.CreateUser("jane@example.com", "hash", auth.RoleClient)

	if err := s.UpdateUserRole(user.ID, auth.RoleAdmin); err != nil {
		t.Fatalf("UpdateUserRole() error = %v", err)
	}

	fresh, _ := s.GetUserByID(user.ID)
	if fresh.Role != auth.RoleAdmin {
		t.Errorf("Role = %q, want admin", fresh.Role)
	}

	if err := s.UpdateUserRole("missing", auth.RoleAdmin); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UpdateUserRole() error = %v, want ErrUserNotFound", err)
	}
}

// ---- Parcels ----

func TestStore_CreateParcel(t *testing.T) {
	s := NewStore()

	parcel, err := s.CreateParcel(newTestParcel())
	if err != nil {
		t.Fatalf("CreateParcel() error = %v", err)
	}

	if parcel.Status != StatusProcessing {
		t.Errorf("Status = %q, want default %q", parcel.Status, StatusProcessing)
	}
	if len(parcel.TrackingID) != trackingIDLength {
		t.Errorf("TrackingID = %q, want %d characters", parcel.TrackingID, trackingIDLength)
	}
	if len(parcel.Updates) != 1 || parcel.Updates[0].Status != StatusProcessing {
		t.Errorf("Updates = %v, want one initial entry", parcel.Updates)
	}

	got, err := s.GetParcelByTrackingID(parcel.TrackingID)
	if err != nil {
		t.Fatalf("GetParcelByTrackingID() error = %v", err)
	}
	if got.ID != parcel.ID {
		t.Errorf("lookup ID = %q, want %q", got.ID, parcel.ID)
	}
}

func TestStore_CreateParcel_UniqueTrackingIDs(t *testing.T) {
	s := NewStore()

	const count = 200
	seen := make(map[string]bool, count)
	for i := 0; i < count; i++ {
		parcel, err := s.CreateParcel(newTestParcel())
		if err != nil {
			t.Fatalf("CreateParcel() error = %v", err)
		}
		if seen[parcel.TrackingID] {
			t.Fatalf("duplicate tracking ID %q", parcel.TrackingID)
		}
		seen[parcel.TrackingID] = true
	}
}

func TestStore_CreateParcel_ProvidedTrackingIDConflict(t *testing.T) {
	s := NewStore()

	p := newTestParcel()
	p.TrackingID = "RUSH123456789012"
	if _, err := s.CreateParcel(p); err != nil {
		t.Fatalf("CreateParcel() error = %v", err)
	}

	dup := newTestParcel()
	dup.TrackingID = "RUSH123456789012"
	if _, err := s.CreateParcel(dup); !errors.Is(err, ErrTrackingIDExists) {
		t.Errorf("CreateParcel() error = %v, want ErrTrackingIDExists", err)
	}
}

func TestStore_CreateParcel_PoisonedEntropyFailsClosed(t *testing.T) {
	s := NewStore()
	s.idRand = constantReader(0)

	if _, err := s.CreateParcel(newTestParcel()); err != nil {
		t.Fatalf("first CreateParcel() error = %v", err)
	}

	// Every subsequent draw produces the same ID, which is now taken.
	_, err := s.CreateParcel(newTestParcel())
	if !errors.Is(err, ErrIDSpaceExhausted) {
		t.Errorf("CreateParcel() error = %v, want ErrIDSpaceExhausted", err)
	}
}

func TestStore_UpdateParcel(t *testing.T) {
	s := NewStore()
	parcel, _ := s.CreateParcel(newTestParcel())

	status := StatusInTransit
	note := "departed origin facility"
	loc := Location{Lat: 41.2, Lng: -73.5}
	updated, err := s.UpdateParcel(parcel.ID, ParcelPatch{
		Status:   &status,
		Note:     &note,
		Location: &loc,
	})
	if err != nil {
		t.Fatalf("UpdateParcel() error = %v", err)
	}

	if updated.Status != StatusInTransit {
		t.Errorf("Status = %q, want %q", updated.Status, StatusInTransit)
	}
	if updated.Location != loc {
		t.Errorf("Location = %v, want %v", updated.Location, loc)
	}
	if len(updated.Updates) != 2 {
		t.Fatalf("len(Updates) = %d, want 2", len(updated.Updates))
	}
	last := updated.Updates[len(updated.Updates)-1]
	if last.Status != StatusInTransit || last.Note != note {
		t.Errorf("last update = %+v, want status change with note", last)
	}
}

func TestStore_UpdateParcel_SameStatusNoHistoryEntry(t *testing.T) {
	s := NewStore()
	parcel, _ := s.CreateParcel(newTestParcel())

	status := StatusProcessing
	updated, err := s.UpdateParcel(parcel.ID, ParcelPatch{Status: &status})
	if err != nil {
		t.Fatalf("UpdateParcel() error = %v", err)
	}
	if len(updated.Updates) != 1 {
		t.Errorf("len(Updates) = %d, want 1 (no-op status keeps history)", len(updated.Updates))
	}
}

func TestStore_UpdateParcel_InvalidStatus(t *testing.T) {
	s := NewStore()
	parcel, _ := s.CreateParcel(newTestParcel())

	status := ParcelStatus("Lost")
	if _, err := s.UpdateParcel(parcel.ID, ParcelPatch{Status: &status}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("UpdateParcel() error = %v, want ErrInvalidStatus", err)
	}

	// Failed updates must not touch the parcel.
	fresh, _ := s.GetParcelByID(parcel.ID)
	if fresh.Status != StatusProcessing || len(fresh.Updates) != 1 {
		t.Error("parcel mutated by a rejected update")
	}
}

func TestStore_UpdateParcel_StatusOrderEnforcement(t *testing.T) {
	s := NewStore()
	s.SetStatusOrderEnforced(true)
	parcel, _ := s.CreateParcel(newTestParcel())

	delivered := StatusDelivered
	if _, err := s.UpdateParcel(parcel.ID, ParcelPatch{Status: &delivered}); err != nil {
		t.Fatalf("forward transition error = %v", err)
	}

	backward := StatusInTransit
	if _, err := s.UpdateParcel(parcel.ID, ParcelPatch{Status: &backward}); !errors.Is(err, ErrStatusOrder) {
		t.Errorf("backward transition error = %v, want ErrStatusOrder", err)
	}

	// With enforcement off (the default) the same transition is allowed.
	s.SetStatusOrderEnforced(false)
	if _, err := s.UpdateParcel(parcel.ID, ParcelPatch{Status: &backward}); err != nil {
		t.Errorf("unenforced backward transition error = %v", err)
	}
}

func TestStore_UpdateParcel_ConcurrentStatusChanges(t *testing.T) {
	s := NewStore()
	parcel, _ := s.CreateParcel(newTestParcel())

	statuses := []ParcelStatus{StatusInTransit, StatusOutForDelivery, StatusProcessing, StatusDelivered}

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		status := statuses[i%len(statuses)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.UpdateParcel(parcel.ID, ParcelPatch{Status: &status}); err != nil {
				t.Errorf("UpdateParcel() error = %v", err)
			}
		}()
	}
	wg.Wait()

	// Every status change appends a history entry; interleavings differ
	// but no write may be lost.
	fresh, _ := s.GetParcelByID(parcel.ID)
	if fresh.Updates[len(fresh.Updates)-1].Status != fresh.Status {
		t.Error("final status does not match last history entry")
	}
}

func TestStore_GetParcel_JoinsDriverName(t *testing.T) {
	s := NewStore()
	driver, _ := s.CreateDriver(&Driver{Name: "John Smith", Status: DriverActive})

	p := newTestParcel()
	p.DriverID = driver.ID
	parcel, _ := s.CreateParcel(p)

	got, err := s.GetParcelByID(parcel.ID)
	if err != nil {
		t.Fatalf("GetParcelByID() error = %v", err)
	}
	if got.Driver != "John Smith" {
		t.Errorf("Driver = %q, want joined name", got.Driver)
	}
}

func TestStore_RandomUndeliveredParcel(t *testing.T) {
	s := NewStore()

	if _, ok := s.RandomUndeliveredParcel(func(int) int { return 0 }); ok {
		t.Error("expected no candidate in an empty store")
	}

	delivered := StatusDelivered
	p1, _ := s.CreateParcel(newTestParcel())
	if _, err := s.UpdateParcel(p1.ID, ParcelPatch{Status: &delivered}); err != nil {
		t.Fatalf("UpdateParcel() error = %v", err)
	}

	if _, ok := s.RandomUndeliveredParcel(func(int) int { return 0 }); ok {
		t.Error("expected delivered parcels to be excluded")
	}

	p2, _ := s.CreateParcel(newTestParcel())
	got, ok := s.RandomUndeliveredParcel(func(n int) int { return n - 1 })
	if !ok {
		t.Fatal("expected one candidate")
	}
	if got.ID != p2.ID {
		t.Errorf("candidate = %q, want %q", got.ID, p2.ID)
	}
}

// ---- Events ----

func TestStore_EventsEmittedInMutationOrder(t *testing.T) {
	s := NewStore()

	var mu sync.Mutex
	var events []Event
	s.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	parcel, _ := s.CreateParcel(newTestParcel())

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		status := NonTerminalStatuses[i%len(NonTerminalStatuses)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.UpdateParcel(parcel.ID, ParcelPatch{Status: &status}) //nolint:errcheck
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	if events[0].Type != EventNewParcel {
		t.Errorf("first event = %q, want new_parcel", events[0].Type)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq != events[i-1].Seq+1 {
			t.Fatalf("event %d has seq %d after %d, want strictly sequential", i, events[i].Seq, events[i-1].Seq)
		}
	}
}

func TestStore_EventPayloadIsSnapshot(t *testing.T) {
	s := NewStore()

	var got *Parcel
	s.Subscribe(func(ev Event) {
		if ev.Type == EventParcelUpdate {
			got = ev.Payload.(*Parcel)
		}
	})

	parcel, _ := s.CreateParcel(newTestParcel())
	status := StatusInTransit
	s.UpdateParcel(parcel.ID, ParcelPatch{Status: &status}) //nolint:errcheck

	if got == nil {
		t.Fatal("expected a parcel_update event")
	}
	if got.Status != StatusInTransit {
		t.Errorf("payload status = %q, want the post-update value", got.Status)
	}

	// Later mutations must not show through an already-delivered payload.
	delivered := StatusDelivered
	snapshotStatus := got.Status
	s.UpdateParcel(parcel.ID, ParcelPatch{Status: &delivered}) //nolint:errcheck
	if snapshotStatus != StatusInTransit {
		t.Error("event payload aliased live store state")
	}
}

// ---- Drivers ----

func TestStore_Drivers(t *testing.T) {
	s := NewStore()

	driver, err := s.CreateDriver(&Driver{Name: "Maria Garcia", Phone: "555-0102", VehicleType: "van"})
	if err != nil {
		t.Fatalf("CreateDriver() error = %v", err)
	}
	if driver.Status != DriverAvailable {
		t.Errorf("Status = %q, want default available", driver.Status)
	}

	status := DriverBusy
	loc := Location{Lat: 34.05, Lng: -118.24}
	updated, err := s.UpdateDriver(driver.ID, DriverPatch{Status: &status, CurrentLocation: &loc})
	if err != nil {
		t.Fatalf("UpdateDriver() error = %v", err)
	}
	if updated.Status != DriverBusy || updated.CurrentLocation != loc {
		t.Errorf("updated = %+v, want busy at %v", updated, loc)
	}

	if _, err := s.UpdateDriver("missing", DriverPatch{Status: &status}); !errors.Is(err, ErrDriverNotFound) {
		t.Errorf("UpdateDriver() error = %v, want ErrDriverNotFound", err)
	}
}

func TestStore_ListDrivers_SortedByName(t *testing.T) {
	s := NewStore()
	s.CreateDriver(&Driver{Name: "Zoe"})   //nolint:errcheck
	s.CreateDriver(&Driver{Name: "Adam"})  //nolint:errcheck
	s.CreateDriver(&Driver{Name: "Maria"}) //nolint:errcheck

	drivers := s.ListDrivers()
	if len(drivers) != 3 {
		t.Fatalf("len = %d, want 3", len(drivers))
	}
	if drivers[0].Name != "Adam" || drivers[2].Name != "Zoe" {
		t.Errorf("order = [%s %s %s], want alphabetical", drivers[0].Name, drivers[1].Name, drivers[2].Name)
	}
}

// ---- Feed, notifications, dashboard ----

func TestStore_ActivityFeed(t *testing.T) {
	s := NewStore()

	for i := 0; i < 5; i++ {
		s.RecordActivity(fmt.Sprintf("entry %d", i), "Info", "info")
	}

	recent := s.Activities(3)
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	if recent[0].Title != "entry 4" {
		t.Errorf("newest = %q, want %q", recent[0].Title, "entry 4")
	}

	if all := s.Activities(0); len(all) != 5 {
		t.Errorf("Activities(0) len = %d, want all 5", len(all))
	}
}

func TestStore_Notifications(t *testing.T) {
	s := NewStore()
	user, _ := s.CreateUser("jane@example.com", "hash", auth.RoleClient)

	if _, err := s.AddNotification("missing", Notification{Title: "x"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("AddNotification() error = %v, want ErrUserNotFound", err)
	}

	first, err := s.AddNotification(user.ID, Notification{Title: "Parcel shipped"})
	if err != nil {
		t.Fatalf("AddNotification() error = %v", err)
	}
	s.AddNotification(user.ID, Notification{Title: "Parcel delivered"}) //nolint:errcheck

	list, err := s.Notifications(user.ID)
	if err != nil {
		t.Fatalf("Notifications() error = %v", err)
	}
	if len(list) != 2 || list[0].Title != "Parcel delivered" {
		t.Errorf("list = %+v, want newest first", list)
	}

	if err := s.SetNotificationRead(user.ID, first.ID, true); err != nil {
		t.Fatalf("SetNotificationRead() error = %v", err)
	}
	if err := s.SetNotificationRead(user.ID, "missing", true); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("SetNotificationRead() error = %v, want ErrNotificationNotFound", err)
	}

	if err := s.MarkAllNotificationsRead(user.ID); err != nil {
		t.Fatalf("MarkAllNotificationsRead() error = %v", err)
	}
	list, _ = s.Notifications(user.ID)
	for _, n := range list {
		if !n.Read {
			t.Errorf("notification %q still unread", n.Title)
		}
	}
}

func TestStore_Stats(t *testing.T) {
	s := NewStore()

	if stats := s.Stats(); stats.TotalShipments != 0 || stats.OnTimeDelivery != 0 {
		t.Errorf("empty stats = %+v, want zeros", stats)
	}

	delivered := StatusDelivered
	for i := 0; i < 4; i++ {
		p, _ := s.CreateParcel(newTestParcel())
		if i == 0 {
			s.UpdateParcel(p.ID, ParcelPatch{Status: &delivered}) //nolint:errcheck
		}
	}
	s.CreateDriver(&Driver{Name: "A", Status: DriverActive})    //nolint:errcheck
	s.CreateDriver(&Driver{Name: "B", Status: DriverAvailable}) //nolint:errcheck

	stats := s.Stats()
	if stats.TotalShipments != 4 {
		t.Errorf("TotalShipments = %d, want 4", stats.TotalShipments)
	}
	if stats.ActiveDrivers != 1 {
		t.Errorf("ActiveDrivers = %d, want 1", stats.ActiveDrivers)
	}
	if stats.RevenueToday != float64(4*25+1*10) {
		t.Errorf("RevenueToday = %v, want %v", stats.RevenueToday, float64(4*25+1*10))
	}
	if stats.OnTimeDelivery != 25.0 {
		t.Errorf("OnTimeDelivery = %v, want 25.0", stats.OnTimeDelivery)
	}
}

func TestStore_ActiveShipments(t *testing.T) {
	s := NewStore()

	delivered := StatusDelivered
	for i := 0; i < 3; i++ {
		p, _ := s.CreateParcel(newTestParcel())
		if i == 1 {
			s.UpdateParcel(p.ID, ParcelPatch{Status: &delivered}) //nolint:errcheck
		}
	}

	active := s.ActiveShipments(0)
	if len(active) != 2 {
		t.Fatalf("len = %d, want 2", len(active))
	}
	for _, p := range active {
		if p.Status == StatusDelivered {
			t.Errorf("delivered parcel %q in active shipments", p.TrackingID)
		}
	}

	if limited := s.ActiveShipments(1); len(limited) != 1 {
		t.Errorf("limited len = %d, want 1", len(limited))
	}
}
