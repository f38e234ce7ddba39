package ride

import (
	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
)

// CanSeeRequests gates the incoming-requests feed.
func CanSeeRequests(d *models.DriverProfile) error {
	return available(d)
}

// CanAccept gates acceptance of an open ride.
func CanAccept(d *models.DriverProfile) error {
	return available(d)
}

func available(d *models.DriverProfile) error {
	if d.ApplicationStatus != models.ApplicationApproved {
		return apperr.Forbidden("Driver is not approved")
	}
	if d.IsSuspended {
		return apperr.Forbidden("Driver is suspended")
	}
	if !d.IsOnline {
		return apperr.BadRequest("Driver is offline")
	}
	return nil
}
