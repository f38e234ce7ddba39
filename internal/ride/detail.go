package ride

import (
	"context"
	"errors"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

// Party is the display view of a ride participant.
type Party struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	VehicleNumber string `json:"vehicleNumber,omitempty"`
	VehicleModel  string `json:"vehicleModel,omitempty"`
}

// Detail is a ride plus the resolved rider and driver.
type Detail struct {
	*models.Ride
	RiderInfo  *Party `json:"riderInfo,omitempty"`
	DriverInfo *Party `json:"driverInfo,omitempty"`
}

// Detail returns the ride to an admin, its rider, or its assigned driver.
func (e *Engine) Detail(ctx context.Context, rideID, callerID string, role models.Role) (*Detail, error) {
	r, err := e.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	var driver *models.DriverProfile
	if r.DriverID != "" {
		driver, err = e.Store.GetDriver(ctx, r.DriverID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Internal("load driver", err)
		}
	}

	allowed := role == models.RoleAdmin || r.RiderID == callerID || (driver != nil && driver.UserID == callerID)
	if !allowed {
		return nil, apperr.Forbidden("You are not allowed to view this ride")
	}

	out := &Detail{Ride: r}
	if rider, err := e.Store.GetUser(ctx, r.RiderID); err == nil {
		out.RiderInfo = &Party{ID: rider.ID, Name: rider.Name, Email: rider.Email, Phone: rider.Phone}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal("load rider", err)
	}
	if driver != nil {
		p := &Party{ID: driver.ID, VehicleNumber: driver.VehicleNumber, VehicleModel: driver.VehicleModel}
		if u, err := e.Store.GetUser(ctx, driver.UserID); err == nil {
			p.Name, p.Phone = u.Name, u.Phone
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Internal("load driver user", err)
		}
		out.DriverInfo = p
	}
	return out, nil
}
