package ride

import (
	"testing"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
)

func TestGates(t *testing.T) {
	cases := []struct {
		name string
		d    models.DriverProfile
		want apperr.Kind
		ok   bool
	}{
		{"available", models.DriverProfile{ApplicationStatus: models.ApplicationApproved, IsOnline: true}, 0, true},
		{"offline", models.DriverProfile{ApplicationStatus: models.ApplicationApproved}, apperr.KindBadRequest, false},
		{"suspended", models.DriverProfile{ApplicationStatus: models.ApplicationApproved, IsOnline: true, IsSuspended: true}, apperr.KindForbidden, false},
		{"pending", models.DriverProfile{ApplicationStatus: models.ApplicationPending, IsOnline: true}, apperr.KindForbidden, false},
		{"rejected", models.DriverProfile{ApplicationStatus: models.ApplicationRejected, IsOnline: true}, apperr.KindForbidden, false},
	}
	for _, c := range cases {
		for gate, fn := range map[string]func(*models.DriverProfile) error{"see": CanSeeRequests, "accept": CanAccept} {
			err := fn(&c.d)
			if c.ok && err != nil {
				t.Errorf("%s/%s: unexpected %v", c.name, gate, err)
			}
			if !c.ok && !apperr.Is(err, c.want) {
				t.Errorf("%s/%s: err = %v, want %s", c.name, gate, err, c.want)
			}
		}
	}
}
