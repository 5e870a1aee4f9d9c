package tracking

import (
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rushdelivery/rush-core/internal/auth"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store holds every entity collection behind atomic operations.
//
// Each collection is guarded by its own lock so writers on unrelated
// entities never block each other. Reads return deep copies. Change events
// for parcels and drivers are emitted after the mutation is applied, in
// apply order: the emit lock is acquired before the collection lock is
// released, so event order matches mutation order globally.
//
// Lock ordering: a collection lock, then emitMu. The feed and notification
// locks are only ever taken on their own. No two collection locks are held
// at once.
//
// All public methods are thread-safe.
type Store struct {
	logger             Logger
	enforceStatusOrder bool
	idRand             io.Reader

	usersMu    sync.RWMutex
	users      map[string]*User
	emailIndex map[string]string // email -> user id

	parcelsMu  sync.RWMutex
	parcels    map[string]*Parcel
	trackIndex map[string]string // tracking id -> parcel id

	driversMu sync.RWMutex
	drivers   map[string]*Driver

	feedMu     sync.RWMutex
	activities []Activity // most-recent-first
	alerts     []Alert    // most-recent-first

	notifsMu      sync.RWMutex
	notifications map[string][]Notification // by user id, most-recent-first

	subsMu      sync.RWMutex
	subscribers []Subscriber

	emitMu sync.Mutex
	seq    uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		logger:        noopLogger{},
		idRand:        defaultRandSource,
		users:         make(map[string]*User),
		emailIndex:    make(map[string]string),
		parcels:       make(map[string]*Parcel),
		trackIndex:    make(map[string]string),
		drivers:       make(map[string]*Driver),
		notifications: make(map[string][]Notification),
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetStatusOrderEnforced toggles forward-only parcel status transitions.
// Off by default, matching the legacy behaviour where any status can be
// set to any other.
func (s *Store) SetStatusOrderEnforced(on bool) {
	s.enforceStatusOrder = on
}

// Subscribe registers a change-event subscriber. Subscribers are invoked
// synchronously in mutation order and must not block.
func (s *Store) Subscribe(fn Subscriber) {
	s.subsMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subsMu.Unlock()
}

// emitAfter publishes a change event. It must be called while the mutating
// collection lock is still held; unlock releases it once the emit lock is
// acquired, guaranteeing that event order matches apply order.
func (s *Store) emitAfter(unlock func(), typ EventType, payload any) {
	s.emitMu.Lock()
	unlock()
	defer s.emitMu.Unlock()

	s.seq++
	ev := Event{Type: typ, Seq: s.seq, Payload: payload}

	s.subsMu.RLock()
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subsMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// ---- Users ----

// CreateUser registers a new account. Email uniqueness is enforced
// atomically at creation; the second of two racing registrations for the
// same email receives ErrEmailExists.
func (s *Store) CreateUser(email, passwordHash string, role auth.Role) (*User, error) {
	if !auth.IsValidRole(role) {
		return nil, ErrInvalidField
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Prefs:        NotificationPrefs{Email: true},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.usersMu.Lock()
	if _, exists := s.emailIndex[email]; exists {
		s.usersMu.Unlock()
		return nil, ErrEmailExists
	}
	s.users[user.ID] = user
	s.emailIndex[email] = user.ID
	s.usersMu.Unlock()

	s.RecordActivity("New user registered: "+email, "Success", "success")
	s.logger.Info("user registered", "uid", user.ID)
	return user.DeepCopy(), nil
}

// GetUserByID retrieves a user by ID. The result is a deep copy.
func (s *Store) GetUserByID(id string) (*User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.DeepCopy(), nil
}

// GetUserByEmail retrieves a user by email. The result is a deep copy.
func (s *Store) GetUserByEmail(email string) (*User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	id, ok := s.emailIndex[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.users[id].DeepCopy(), nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers() []User {
	s.usersMu.RLock()
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u.DeepCopy())
	}
	s.usersMu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

// UpdateUserRole changes a user's role.
func (s *Store) UpdateUserRole(id string, role auth.Role) error {
	if !auth.IsValidRole(role) {
		return ErrInvalidField
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateProfile applies a partial update to a user's profile fields and
// returns the post-update snapshot.
func (s *Store) UpdateProfile(id string, patch ProfilePatch) (*User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	patch.apply(u, time.Now().UTC())
	return u.DeepCopy(), nil
}

// UpdateUserPassword replaces a user's password hash.
func (s *Store) UpdateUserPassword(id, passwordHash string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// AddPushSubscription appends an opaque push token to a user's set.
func (s *Store) AddPushSubscription(id, token string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PushSubscriptions = append(u.PushSubscriptions, token)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// PushSubscriptionCount returns the total number of stored push tokens,
// optionally narrowed to one user (empty uid counts all users).
func (s *Store) PushSubscriptionCount(uid string) int {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	if uid != "" {
		if u, ok := s.users[uid]; ok {
			return len(u.PushSubscriptions)
		}
		return 0
	}
	total := 0
	for _, u := range s.users {
		total += len(u.PushSubscriptions)
	}
	return total
}

// ---- Parcels ----

// CreateParcel stores a new parcel, assigning internal and tracking IDs.
// The tracking ID is generated and claimed under the parcel lock so two
// concurrent creations can never share one. Emits a new_parcel event.
func (s *Store) CreateParcel(p *Parcel) (*Parcel, error) {
	if p.Status == "" {
		p.Status = StatusProcessing
	}
	if !IsValidStatus(p.Status) {
		return nil, ErrInvalidStatus
	}

	now := time.Now().UTC()
	parcel := p.DeepCopy()
	if parcel.ID == "" {
		parcel.ID = uuid.NewString()
	}
	parcel.CreatedAt = now
	parcel.UpdatedAt = now
	parcel.Driver = ""
	parcel.Updates = append(parcel.Updates, ParcelUpdate{Status: parcel.Status, Timestamp: now})

	s.parcelsMu.Lock()
	if parcel.TrackingID == "" {
		tid, err := generateTrackingID(s.idRand, func(candidate string) bool {
			_, taken := s.trackIndex[candidate]
			return taken
		})
		if err != nil {
			s.parcelsMu.Unlock()
			return nil, err
		}
		parcel.TrackingID = tid
	} else if _, taken := s.trackIndex[parcel.TrackingID]; taken {
		s.parcelsMu.Unlock()
		return nil, ErrTrackingIDExists
	}
	s.parcels[parcel.ID] = parcel
	s.trackIndex[parcel.TrackingID] = parcel.ID

	snapshot := parcel.DeepCopy()
	s.emitAfter(s.parcelsMu.Unlock, EventNewParcel, snapshot)

	s.RecordActivity("New shipment "+snapshot.TrackingID+" created", "Success", "success")
	s.logger.Info("parcel created", "tracking_id", snapshot.TrackingID)
	return snapshot.DeepCopy(), nil
}

// GetParcelByID retrieves a parcel by internal ID. The result is a deep
// copy with the driver name joined when the reference resolves.
func (s *Store) GetParcelByID(id string) (*Parcel, error) {
	s.parcelsMu.RLock()
	p, ok := s.parcels[id]
	if !ok {
		s.parcelsMu.RUnlock()
		return nil, ErrParcelNotFound
	}
	cp := p.DeepCopy()
	s.parcelsMu.RUnlock()

	s.joinDriverName(cp)
	return cp, nil
}

// GetParcelByTrackingID retrieves a parcel by its public tracking ID.
func (s *Store) GetParcelByTrackingID(trackingID string) (*Parcel, error) {
	s.parcelsMu.RLock()
	id, ok := s.trackIndex[trackingID]
	if !ok {
		s.parcelsMu.RUnlock()
		return nil, ErrParcelNotFound
	}
	cp := s.parcels[id].DeepCopy()
	s.parcelsMu.RUnlock()

	s.joinDriverName(cp)
	return cp, nil
}

// ListParcels returns all parcels ordered by creation time.
func (s *Store) ListParcels() []Parcel {
	s.parcelsMu.RLock()
	parcels := make([]Parcel, 0, len(s.parcels))
	for _, p := range s.parcels {
		parcels = append(parcels, *p.DeepCopy())
	}
	s.parcelsMu.RUnlock()

	sort.Slice(parcels, func(i, j int) bool {
		if parcels[i].CreatedAt.Equal(parcels[j].CreatedAt) {
			return parcels[i].ID < parcels[j].ID
		}
		return parcels[i].CreatedAt.Before(parcels[j].CreatedAt)
	})
	return parcels
}

// UpdateParcel applies a typed partial update atomically and returns the
// post-update snapshot. A failed update leaves the parcel untouched.
// Emits a parcel_update event; a status change also records an activity
// entry mentioning the tracking ID.
func (s *Store) UpdateParcel(id string, patch ParcelPatch) (*Parcel, error) {
	if err := validateParcelPatch(&patch); err != nil {
		return nil, err
	}

	s.parcelsMu.Lock()
	p, ok := s.parcels[id]
	if !ok {
		s.parcelsMu.Unlock()
		return nil, ErrParcelNotFound
	}

	statusChanged := patch.Status != nil && *patch.Status != p.Status
	if statusChanged && s.enforceStatusOrder && statusRank[*patch.Status] < statusRank[p.Status] {
		s.parcelsMu.Unlock()
		return nil, ErrStatusOrder
	}

	patch.apply(p, time.Now().UTC())
	snapshot := p.DeepCopy()
	s.emitAfter(s.parcelsMu.Unlock, EventParcelUpdate, snapshot)

	if statusChanged {
		s.RecordActivity("Shipment "+snapshot.TrackingID+" status updated to "+string(snapshot.Status), "Info", "info")
	}
	s.logger.Debug("parcel updated", "tracking_id", snapshot.TrackingID)
	return snapshot.DeepCopy(), nil
}

// RandomUndeliveredParcel returns a uniformly random parcel that has not
// reached the Delivered status, or false when none exists.
// pick receives the candidate count and must return an index within it.
func (s *Store) RandomUndeliveredParcel(pick func(n int) int) (*Parcel, bool) {
	s.parcelsMu.RLock()
	defer s.parcelsMu.RUnlock()

	candidates := make([]*Parcel, 0, len(s.parcels))
	for _, p := range s.parcels {
		if p.Status != StatusDelivered {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	// Stable order so pick(n) selects uniformly over a deterministic slice.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	idx := pick(len(candidates))
	if idx < 0 || idx >= len(candidates) {
		return nil, false
	}
	return candidates[idx].DeepCopy(), true
}

// joinDriverName resolves the parcel's driver reference to a display name.
// A dangling reference is tolerated and leaves the name empty.
func (s *Store) joinDriverName(p *Parcel) {
	if p.DriverID == "" {
		return
	}
	s.driversMu.RLock()
	if d, ok := s.drivers[p.DriverID]; ok {
		p.Driver = d.Name
	}
	s.driversMu.RUnlock()
}

// ---- Drivers ----

// CreateDriver stores a new driver.
func (s *Store) CreateDriver(d *Driver) (*Driver, error) {
	if d.Status == "" {
		d.Status = DriverAvailable
	}
	if !IsValidDriverStatus(d.Status) {
		return nil, ErrInvalidStatus
	}

	driver := d.DeepCopy()
	if driver.ID == "" {
		driver.ID = uuid.NewString()
	}
	driver.UpdatedAt = time.Now().UTC()

	s.driversMu.Lock()
	s.drivers[driver.ID] = driver
	s.driversMu.Unlock()

	return driver.DeepCopy(), nil
}

// GetDriver retrieves a driver by ID. The result is a deep copy.
func (s *Store) GetDriver(id string) (*Driver, error) {
	s.driversMu.RLock()
	defer s.driversMu.RUnlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, ErrDriverNotFound
	}
	return d.DeepCopy(), nil
}

// ListDrivers returns all drivers ordered by name.
func (s *Store) ListDrivers() []Driver {
	s.driversMu.RLock()
	drivers := make([]Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		drivers = append(drivers, *d.DeepCopy())
	}
	s.driversMu.RUnlock()

	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].Name == drivers[j].Name {
			return drivers[i].ID < drivers[j].ID
		}
		return drivers[i].Name < drivers[j].Name
	})
	return drivers
}

// UpdateDriver applies a typed partial update atomically and returns the
// post-update snapshot. Emits a driver_update event.
func (s *Store) UpdateDriver(id string, patch DriverPatch) (*Driver, error) {
	if err := validateDriverPatch(&patch); err != nil {
		return nil, err
	}

	s.driversMu.Lock()
	d, ok := s.drivers[id]
	if !ok {
		s.driversMu.Unlock()
		return nil, ErrDriverNotFound
	}

	patch.apply(d, time.Now().UTC())
	snapshot := d.DeepCopy()
	s.emitAfter(s.driversMu.Unlock, EventDriverUpdate, snapshot)

	if patch.Status != nil {
		s.RecordActivity("Driver "+snapshot.Name+" status updated to "+string(snapshot.Status), "Info", "info")
	} else {
		s.RecordActivity("Driver "+snapshot.Name+" location updated", "Info", "info")
	}
	return snapshot.DeepCopy(), nil
}

// ---- Activity feed and alerts ----

// RecordActivity prepends an entry to the activity feed.
func (s *Store) RecordActivity(title, status, typ string) {
	entry := Activity{Title: title, Status: status, Type: typ, Timestamp: time.Now().UTC()}
	s.feedMu.Lock()
	s.activities = append([]Activity{entry}, s.activities...)
	s.feedMu.Unlock()
}

// Activities returns the most recent feed entries, newest first.
// limit <= 0 returns everything.
func (s *Store) Activities(limit int) []Activity {
	s.feedMu.RLock()
	defer s.feedMu.RUnlock()
	n := len(s.activities)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Activity, n)
	copy(out, s.activities[:n])
	return out
}

// RecordAlert prepends a system alert.
func (s *Store) RecordAlert(typ, message string) {
	entry := Alert{Type: typ, Message: message, Timestamp: time.Now().UTC()}
	s.feedMu.Lock()
	s.alerts = append([]Alert{entry}, s.alerts...)
	s.feedMu.Unlock()
}

// Alerts returns the most recent alerts, newest first.
// limit <= 0 returns everything.
func (s *Store) Alerts(limit int) []Alert {
	s.feedMu.RLock()
	defer s.feedMu.RUnlock()
	n := len(s.alerts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Alert, n)
	copy(out, s.alerts[:n])
	return out
}

// ---- Notifications ----

// AddNotification appends a notification to a user's log.
func (s *Store) AddNotification(uid string, n Notification) (*Notification, error) {
	if _, err := s.GetUserByID(uid); err != nil {
		return nil, err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()

	s.notifsMu.Lock()
	s.notifications[uid] = append([]Notification{n}, s.notifications[uid]...)
	s.notifsMu.Unlock()
	return &n, nil
}

// Notifications returns a user's notification log, newest first.
func (s *Store) Notifications(uid string) ([]Notification, error) {
	if _, err := s.GetUserByID(uid); err != nil {
		return nil, err
	}
	s.notifsMu.RLock()
	defer s.notifsMu.RUnlock()
	out := make([]Notification, len(s.notifications[uid]))
	copy(out, s.notifications[uid])
	return out, nil
}

// SetNotificationRead updates the read flag of one notification.
func (s *Store) SetNotificationRead(uid, id string, read bool) error {
	if _, err := s.GetUserByID(uid); err != nil {
		return err
	}
	s.notifsMu.Lock()
	defer s.notifsMu.Unlock()
	for i := range s.notifications[uid] {
		if s.notifications[uid][i].ID == id {
			s.notifications[uid][i].Read = read
			return nil
		}
	}
	return ErrNotificationNotFound
}

// MarkAllNotificationsRead marks every notification of a user as read.
func (s *Store) MarkAllNotificationsRead(uid string) error {
	if _, err := s.GetUserByID(uid); err != nil {
		return err
	}
	s.notifsMu.Lock()
	defer s.notifsMu.Unlock()
	for i := range s.notifications[uid] {
		s.notifications[uid][i].Read = true
	}
	return nil
}

// ---- Dashboard ----

// Stats summarises shipments and fleet state.
// Revenue is a demo approximation derived from shipment counts.
func (s *Store) Stats() DashboardStats {
	s.parcelsMu.RLock()
	total := len(s.parcels)
	delivered := 0
	for _, p := range s.parcels {
		if p.Status == StatusDelivered {
			delivered++
		}
	}
	s.parcelsMu.RUnlock()

	s.driversMu.RLock()
	active := 0
	for _, d := range s.drivers {
		if d.Status == DriverActive {
			active++
		}
	}
	s.driversMu.RUnlock()

	onTime := 0.0
	if total > 0 {
		onTime = math.Round(float64(delivered)/float64(total)*1000) / 10
	}

	return DashboardStats{
		TotalShipments: total,
		ActiveDrivers:  active,
		RevenueToday:   float64(total*25 + delivered*10),
		OnTimeDelivery: onTime,
	}
}

// ActiveShipments returns undelivered parcels with driver names joined,
// oldest first, bounded by limit (<= 0 for everything).
func (s *Store) ActiveShipments(limit int) []Parcel {
	parcels := s.ListParcels()
	out := make([]Parcel, 0, len(parcels))
	for i := range parcels {
		if parcels[i].Status == StatusDelivered {
			continue
		}
		p := parcels[i]
		s.joinDriverName(&p)
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
