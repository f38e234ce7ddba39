package storage

import (
	"context"
	"errors"
	"time"

	"github.com/example/ride-booking/internal/models"
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict means a conditional update matched no row: the stored
	// state no longer satisfies the precondition.
	ErrConflict  = errors.New("storage: state changed")
	ErrDuplicate = errors.New("storage: duplicate")
	// ErrLimit means an insert would exceed a per-owner cap.
	ErrLimit = errors.New("storage: limit reached")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserBlocked(ctx context.Context, id string, blocked bool) (*models.User, error)
	SetUserRole(ctx context.Context, id string, role models.Role) error
}

// DriverStore exposes targeted flag updates only; earnings move exclusively
// through RideStore.AdvanceRide so they can never be overwritten.
type DriverStore interface {
	CreateDriver(ctx context.Context, d *models.DriverProfile) error
	GetDriver(ctx context.Context, id string) (*models.DriverProfile, error)
	GetDriverByUser(ctx context.Context, userID string) (*models.DriverProfile, error)
	ListDrivers(ctx context.Context) ([]models.DriverProfile, error)
	SetDriverOnline(ctx context.Context, id string, online bool) (*models.DriverProfile, error)
	SetDriverSuspended(ctx context.Context, id string, suspended bool) (*models.DriverProfile, error)
	// DecideApplication moves a PENDING application to status; ErrConflict otherwise.
	DecideApplication(ctx context.Context, id string, status models.ApplicationStatus, reason string) (*models.DriverProfile, error)
}

// RideFilter selects rides for listings. Zero fields match everything.
type RideFilter struct {
	RiderID  string
	DriverID string
	Status   models.RideStatus
	// NotRejectedBy drops rides whose rejection list contains this driver id.
	NotRejectedBy string
}

// RideStore mutations are conditional: each succeeds only if the stored
// ride still satisfies the precondition, otherwise ErrConflict.
type RideStore interface {
	CreateRide(ctx context.Context, r *models.Ride) error
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	// ListRides returns matches newest request first.
	ListRides(ctx context.Context, f RideFilter) ([]models.Ride, error)
	// AcceptRide assigns driverID iff the ride is REQUESTED.
	AcceptRide(ctx context.Context, id, driverID string, at time.Time) (*models.Ride, error)
	// RejectRide appends rej iff the ride is REQUESTED.
	RejectRide(ctx context.Context, id string, rej models.Rejection) (*models.Ride, error)
	// AdvanceRide moves from -> to iff the ride is held by driverID in status from.
	// Moving to COMPLETED credits the driver's earnings by the ride price
	// in the same atomic operation.
	AdvanceRide(ctx context.Context, id, driverID string, from, to models.RideStatus, at time.Time) (*models.Ride, error)
	// CancelRide cancels iff the ride belongs to riderID and is REQUESTED.
	CancelRide(ctx context.Context, id, riderID, reason string, at time.Time) (*models.Ride, error)
	SetPaymentRef(ctx context.Context, id, ref string) error
}

// RatingFilter selects active ratings by rater or ratee.
type RatingFilter struct {
	RaterID string
	RateeID string
}

type RatingStore interface {
	// CreateRating returns ErrDuplicate when (ride, type) already exists.
	CreateRating(ctx context.Context, r *models.Rating) error
	GetRating(ctx context.Context, id string) (*models.Rating, error)
	ListRatings(ctx context.Context, f RatingFilter) ([]models.Rating, error)
	UpdateRating(ctx context.Context, r *models.Rating) error
	RatingSummary(ctx context.Context, rateeID string) (models.RatingSummary, error)
}

type PaymentMethodStore interface {
	CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error
	GetPaymentMethod(ctx context.Context, id string) (*models.PaymentMethod, error)
	// ListPaymentMethods returns active methods, default first then newest.
	ListPaymentMethods(ctx context.Context, userID string) ([]models.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error
	// ClearDefaultPaymentMethods unsets isDefault on every method of userID except exceptID.
	ClearDefaultPaymentMethods(ctx context.Context, userID, exceptID string) error
}

type EmergencyStore interface {
	// CreateContact inserts c unless the user already has limit active
	// contacts (ErrLimit). A user's first contact is stored as primary.
	// The count and insert are atomic per user.
	CreateContact(ctx context.Context, c *models.EmergencyContact, limit int) error
	GetContact(ctx context.Context, id string) (*models.EmergencyContact, error)
	// ListContacts returns active contacts, primary first then newest.
	ListContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error)
	UpdateContact(ctx context.Context, c *models.EmergencyContact) error
	ClearPrimaryContacts(ctx context.Context, userID, exceptID string) error
}

type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	// SaveSettings inserts or replaces the settings of s.UserID.
	SaveSettings(ctx context.Context, s *models.UserSettings) error
	DeleteSettings(ctx context.Context, userID string) error
}

type ReportStore interface {
	Overview(ctx context.Context, from, to time.Time) (models.Overview, error)
}

// Store is everything the API process persists.
type Store interface {
	UserStore
	DriverStore
	RideStore
	RatingStore
	PaymentMethodStore
	EmergencyStore
	SettingsStore
	ReportStore
	Ping(ctx context.Context) error
	Close() error
}
