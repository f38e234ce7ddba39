package storage

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-booking/internal/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in maps behind one mutex. Every conditional
// update runs under the write lock, which gives the same single-winner
// semantics as the conditional UPDATEs in PostgresStore.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	drivers  map[string]*models.DriverProfile
	rides    map[string]*models.Ride
	ratings  map[string]*models.Rating
	payments map[string]*models.PaymentMethod
	contacts map[string]*models.EmergencyContact
	settings map[string]*models.UserSettings
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		drivers:  make(map[string]*models.DriverProfile),
		rides:    make(map[string]*models.Ride),
		ratings:  make(map[string]*models.Rating),
		payments: make(map[string]*models.PaymentMethod),
		contacts: make(map[string]*models.EmergencyContact),
		settings: make(map[string]*models.UserSettings),
		now:      time.Now,
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }

func (m *MemoryStore) stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := m.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// users

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
		if u.Phone != "" && existing.Phone == u.Phone {
			return ErrDuplicate
		}
	}
	m.stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListUsers(context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SetUserBlocked(_ context.Context, id string, blocked bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.IsBlocked = blocked
	u.UpdatedAt = m.now()
	c := *u
	return &c, nil
}

func (m *MemoryStore) SetUserRole(_ context.Context, id string, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = m.now()
	return nil
}

// drivers

func (m *MemoryStore) CreateDriver(_ context.Context, d *models.DriverProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.drivers {
		if existing.UserID == d.UserID {
			return ErrDuplicate
		}
	}
	m.stamp(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	c := *d
	m.drivers[d.ID] = &c
	return nil
}

func (m *MemoryStore) GetDriver(_ context.Context, id string) (*models.DriverProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *d
	return &c, nil
}

func (m *MemoryStore) GetDriverByUser(_ context.Context, userID string) (*models.DriverProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if d.UserID == userID {
			c := *d
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListDrivers(context.Context) ([]models.DriverProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DriverProfile, 0, len(m.drivers))
	for _, d := range m.drivers {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) mutateDriver(id string, fn func(d *models.DriverProfile) error) (*models.DriverProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	d.UpdatedAt = m.now()
	c := *d
	return &c, nil
}

func (m *MemoryStore) SetDriverOnline(_ context.Context, id string, online bool) (*models.DriverProfile, error) {
	return m.mutateDriver(id, func(d *models.DriverProfile) error { d.IsOnline = online; return nil })
}

func (m *MemoryStore) SetDriverSuspended(_ context.Context, id string, suspended bool) (*models.DriverProfile, error) {
	return m.mutateDriver(id, func(d *models.DriverProfile) error { d.IsSuspended = suspended; return nil })
}

func (m *MemoryStore) DecideApplication(_ context.Context, id string, status models.ApplicationStatus, reason string) (*models.DriverProfile, error) {
	return m.mutateDriver(id, func(d *models.DriverProfile) error {
		if d.ApplicationStatus != models.ApplicationPending {
			return ErrConflict
		}
		d.ApplicationStatus = status
		d.RejectionReason = reason
		return nil
	})
}

// rides

func (m *MemoryStore) CreateRide(_ context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamp(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if r.Rejections == nil {
		r.Rejections = []models.Rejection{}
	}
	m.rides[r.ID] = r.Clone()
	return nil
}

func (m *MemoryStore) GetRide(_ context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryStore) ListRides(_ context.Context, f RideFilter) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, 0)
	for _, r := range m.rides {
		if f.RiderID != "" && r.RiderID != f.RiderID {
			continue
		}
		if f.DriverID != "" && r.DriverID != f.DriverID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.NotRejectedBy != "" && r.RejectedBy(f.NotRejectedBy) {
			continue
		}
		out = append(out, *r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamps.RequestedAt.After(out[j].Timestamps.RequestedAt)
	})
	return out, nil
}

// mutateRide applies fn under the write lock; fn returns ErrConflict when the
// precondition does not hold and nothing is written.
func (m *MemoryStore) mutateRide(id string, fn func(r *models.Ride) error) (*models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := stored.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = m.now()
	m.rides[id] = next
	return next.Clone(), nil
}

func (m *MemoryStore) AcceptRide(_ context.Context, id, driverID string, at time.Time) (*models.Ride, error) {
	return m.mutateRide(id, func(r *models.Ride) error {
		if r.Status != models.RideRequested {
			return ErrConflict
		}
		r.Status = models.RideAccepted
		r.DriverID = driverID
		r.Timestamps.AcceptedAt = &at
		return nil
	})
}

func (m *MemoryStore) RejectRide(_ context.Context, id string, rej models.Rejection) (*models.Ride, error) {
	return m.mutateRide(id, func(r *models.Ride) error {
		if r.Status != models.RideRequested {
			return ErrConflict
		}
		r.Rejections = append(r.Rejections, rej)
		return nil
	})
}

func (m *MemoryStore) AdvanceRide(_ context.Context, id, driverID string, from, to models.RideStatus, at time.Time) (*models.Ride, error) {
	return m.mutateRide(id, func(r *models.Ride) error {
		if !from.HasDriver() || !to.HasDriver() || r.Status != from || r.DriverID != driverID {
			return ErrConflict
		}
		if to == models.RideCompleted {
			d, ok := m.drivers[driverID]
			if !ok {
				return ErrNotFound
			}
			d.Earnings = roundCents(d.Earnings + r.Price)
			d.UpdatedAt = at
		}
		r.Status = to
		switch to {
		case models.RidePickedUp:
			r.Timestamps.PickedUpAt = &at
		case models.RideCompleted:
			r.Timestamps.CompletedAt = &at
		}
		return nil
	})
}

func (m *MemoryStore) CancelRide(_ context.Context, id, riderID, reason string, at time.Time) (*models.Ride, error) {
	return m.mutateRide(id, func(r *models.Ride) error {
		if r.Status != models.RideRequested || r.RiderID != riderID {
			return ErrConflict
		}
		r.Status = models.RideCancelled
		r.CancelReason = reason
		r.Timestamps.CancelledAt = &at
		return nil
	})
}

func (m *MemoryStore) SetPaymentRef(_ context.Context, id, ref string) error {
	_, err := m.mutateRide(id, func(r *models.Ride) error { r.PaymentRef = ref; return nil })
	return err
}

// ratings

func (m *MemoryStore) CreateRating(_ context.Context, r *models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.ratings {
		if existing.RideID == r.RideID && existing.Type == r.Type {
			return ErrDuplicate
		}
	}
	m.stamp(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	c := *r
	m.ratings[r.ID] = &c
	return nil
}

func (m *MemoryStore) GetRating(_ context.Context, id string) (*models.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.ratings[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *MemoryStore) ListRatings(_ context.Context, f RatingFilter) ([]models.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Rating, 0)
	for _, r := range m.ratings {
		if !r.IsActive {
			continue
		}
		if f.RaterID != "" && r.RaterID != f.RaterID {
			continue
		}
		if f.RateeID != "" && r.RateeID != f.RateeID {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateRating(_ context.Context, r *models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ratings[r.ID]; !ok {
		return ErrNotFound
	}
	r.UpdatedAt = m.now()
	c := *r
	m.ratings[r.ID] = &c
	return nil
}

func (m *MemoryStore) RatingSummary(_ context.Context, rateeID string) (models.RatingSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := models.RatingSummary{Distribution: []int{}}
	total := 0
	for _, r := range m.ratings {
		if !r.IsActive || r.RateeID != rateeID {
			continue
		}
		sum.TotalRatings++
		sum.Distribution = append(sum.Distribution, r.Score)
		total += r.Score
	}
	if sum.TotalRatings > 0 {
		sum.AverageRating = math.Round(float64(total)/float64(sum.TotalRatings)*10) / 10
	}
	return sum, nil
}

// payment methods

func (m *MemoryStore) CreatePaymentMethod(_ context.Context, pm *models.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamp(&pm.ID, &pm.CreatedAt, &pm.UpdatedAt)
	c := *pm
	m.payments[pm.ID] = &c
	return nil
}

func (m *MemoryStore) GetPaymentMethod(_ context.Context, id string) (*models.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pm, ok := m.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *pm
	return &c, nil
}

func (m *MemoryStore) ListPaymentMethods(_ context.Context, userID string) ([]models.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.PaymentMethod, 0)
	for _, pm := range m.payments {
		if pm.UserID == userID && pm.IsActive {
			out = append(out, *pm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdatePaymentMethod(_ context.Context, pm *models.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[pm.ID]; !ok {
		return ErrNotFound
	}
	pm.UpdatedAt = m.now()
	c := *pm
	m.payments[pm.ID] = &c
	return nil
}

func (m *MemoryStore) ClearDefaultPaymentMethods(_ context.Context, userID, exceptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, pm := range m.payments {
		if pm.UserID == userID && id != exceptID && pm.IsDefault {
			pm.IsDefault = false
			pm.UpdatedAt = m.now()
		}
	}
	return nil
}

// emergency contacts

func (m *MemoryStore) CreateContact(_ context.Context, c *models.EmergencyContact, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := 0
	for _, other := range m.contacts {
		if other.UserID == c.UserID && other.IsActive {
			active++
		}
	}
	if active >= limit {
		return ErrLimit
	}
	if active == 0 {
		c.IsPrimary = true
	}
	m.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	cp := *c
	m.contacts[c.ID] = &cp
	return nil
}

func (m *MemoryStore) GetContact(_ context.Context, id string) (*models.EmergencyContact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) ListContacts(_ context.Context, userID string) ([]models.EmergencyContact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.EmergencyContact, 0)
	for _, c := range m.contacts {
		if c.UserID == userID && c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdateContact(_ context.Context, c *models.EmergencyContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[c.ID]; !ok {
		return ErrNotFound
	}
	c.UpdatedAt = m.now()
	cp := *c
	m.contacts[c.ID] = &cp
	return nil
}

func (m *MemoryStore) ClearPrimaryContacts(_ context.Context, userID, exceptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.contacts {
		if c.UserID == userID && id != exceptID && c.IsPrimary {
			c.IsPrimary = false
			c.UpdatedAt = m.now()
		}
	}
	return nil
}

// settings

func (m *MemoryStore) GetSettings(_ context.Context, userID string) (*models.UserSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[userID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, s *models.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if existing, ok := m.settings[s.UserID]; ok {
		s.CreatedAt = existing.CreatedAt
	} else if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	c := *s
	m.settings[s.UserID] = &c
	return nil
}

func (m *MemoryStore) DeleteSettings(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, userID)
	return nil
}

// reports

func (m *MemoryStore) Overview(_ context.Context, from, to time.Time) (models.Overview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in := func(t time.Time) bool { return !t.Before(from) && !t.After(to) }

	var o models.Overview
	for _, u := range m.users {
		if !in(u.CreatedAt) {
			continue
		}
		o.Users.Total++
		switch u.Role {
		case models.RoleRider:
			o.Users.Riders++
		case models.RoleDriver:
			o.Users.Drivers++
		}
		if u.IsBlocked {
			o.Users.Blocked++
		}
	}
	for _, d := range m.drivers {
		if !in(d.CreatedAt) {
			continue
		}
		switch d.ApplicationStatus {
		case models.ApplicationApproved:
			o.Users.ApprovedDrivers++
		case models.ApplicationPending:
			o.Users.PendingDrivers++
		}
	}
	for _, r := range m.rides {
		if !in(r.CreatedAt) {
			continue
		}
		o.Rides.Total++
		switch {
		case r.Status == models.RideCompleted:
			o.Rides.Completed++
			o.Earnings.Total += r.Price
		case r.Status == models.RideCancelled:
			o.Rides.Cancelled++
		case r.Status.IsActive():
			o.Rides.Active++
		}
	}
	o.Earnings.Total = roundCents(o.Earnings.Total)
	return o, nil
}

func roundCents(v float64) float64 { return math.Round(v*100) / 100 }
