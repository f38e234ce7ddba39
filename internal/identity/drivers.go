package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

type ApplyInput struct {
	VehicleNumber string `json:"vehicleNumber"`
	VehicleModel  string `json:"vehicleModel"`
	LicenseNumber string `json:"licenseNumber"`
}

func (in ApplyInput) Validate() error {
	if strings.TrimSpace(in.VehicleNumber) == "" || strings.TrimSpace(in.VehicleModel) == "" || strings.TrimSpace(in.LicenseNumber) == "" {
		return apperr.BadRequest("vehicleNumber, vehicleModel and licenseNumber are required")
	}
	return nil
}

type RejectInput struct {
	RejectionReason string `json:"rejectionReason"`
}

func (in RejectInput) Validate() error {
	if len(strings.TrimSpace(in.RejectionReason)) < 10 {
		return apperr.BadRequest("rejectionReason must be at least 10 characters")
	}
	return nil
}

func (s *Service) Apply(ctx context.Context, userID string, in ApplyInput) (*models.DriverProfile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsBlocked {
		return nil, apperr.Forbidden("User is blocked")
	}
	d := &models.DriverProfile{
		UserID:            userID,
		VehicleNumber:     strings.TrimSpace(in.VehicleNumber),
		VehicleModel:      strings.TrimSpace(in.VehicleModel),
		LicenseNumber:     strings.TrimSpace(in.LicenseNumber),
		ApplicationStatus: models.ApplicationPending,
		IsOnline:          true,
	}
	if err := s.Store.CreateDriver(ctx, d); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.BadRequest("Driver application already exists")
		}
		return nil, apperr.Internal("create driver", err)
	}
	return d, nil
}

func (s *Service) ListDrivers(ctx context.Context) ([]models.DriverProfile, error) {
	out, err := s.Store.ListDrivers(ctx)
	if err != nil {
		return nil, apperr.Internal("list drivers", err)
	}
	return out, nil
}

func (s *Service) Driver(ctx context.Context, userID string) (*models.DriverProfile, error) {
	d, err := s.Store.GetDriverByUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("Driver not found")
	}
	if err != nil {
		return nil, apperr.Internal("load driver", err)
	}
	return d, nil
}

func (s *Service) decide(ctx context.Context, id string, status models.ApplicationStatus, reason string) (*models.DriverProfile, error) {
	d, err := s.Store.DecideApplication(ctx, id, status, reason)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, apperr.NotFound("Driver not found")
	case errors.Is(err, storage.ErrConflict):
		return nil, apperr.BadRequest("Driver application has already been decided")
	case err != nil:
		return nil, apperr.Internal("decide application", err)
	}
	return d, nil
}

// Approve accepts a pending application and grants the user the driver role.
// Approving an already approved application re-applies the role, so a call
// that failed after the status change can be retried.
func (s *Service) Approve(ctx context.Context, id string) (*models.DriverProfile, error) {
	d, err := s.decide(ctx, id, models.ApplicationApproved, "")
	if apperr.Is(err, apperr.KindBadRequest) {
		prev, gerr := s.Store.GetDriver(ctx, id)
		if gerr != nil || prev.ApplicationStatus != models.ApplicationApproved {
			return nil, err
		}
		d = prev
	} else if err != nil {
		return nil, err
	}
	if err := s.Store.SetUserRole(ctx, d.UserID, models.RoleDriver); err != nil {
		return nil, apperr.Internal("promote user", err)
	}
	return d, nil
}

func (s *Service) Reject(ctx context.Context, id string, in RejectInput) (*models.DriverProfile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.decide(ctx, id, models.ApplicationRejected, strings.TrimSpace(in.RejectionReason))
}

func (s *Service) SetOnline(ctx context.Context, userID string, online bool) (*models.DriverProfile, error) {
	d, err := s.Driver(ctx, userID)
	if err != nil {
		return nil, err
	}
	out, err := s.Store.SetDriverOnline(ctx, d.ID, online)
	if err != nil {
		return nil, apperr.Internal("set availability", err)
	}
	return out, nil
}

func (s *Service) SetSuspended(ctx context.Context, id string, suspended bool) (*models.DriverProfile, error) {
	d, err := s.Store.SetDriverSuspended(ctx, id, suspended)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("Driver not found")
	}
	if err != nil {
		return nil, apperr.Internal("set suspension", err)
	}
	return d, nil
}

type Earnings struct {
	DriverID string  `json:"driverId"`
	Earnings float64 `json:"earnings"`
}

func (s *Service) Earnings(ctx context.Context, userID string) (Earnings, error) {
	d, err := s.Driver(ctx, userID)
	if err != nil {
		return Earnings{}, err
	}
	if d.IsSuspended {
		return Earnings{}, apperr.Forbidden("Driver is suspended")
	}
	return Earnings{DriverID: d.ID, Earnings: d.Earnings}, nil
}
