package models

import (
	"testing"
	"time"
)

func TestRideStatusNext(t *testing.T) {
	cases := []struct {
		from RideStatus
		want RideStatus
		ok   bool
	}{
		{RideRequested, "", false},
		{RideAccepted, RidePickedUp, true},
		{RidePickedUp, RideInTransit, true},
		{RideInTransit, RideCompleted, true},
		{RideCompleted, "", false},
		{RideCancelled, "", false},
	}
	for _, c := range cases {
		got, ok := c.from.Next()
		if got != c.want || ok != c.ok {
			t.Errorf("%s.Next() = %q,%v want %q,%v", c.from, got, ok, c.want, c.ok)
		}
	}
}

func TestRideStatusPredicates(t *testing.T) {
	if !RideCompleted.IsTerminal() || !RideCancelled.IsTerminal() || RideInTransit.IsTerminal() {
		t.Fatal("terminal set should be exactly COMPLETED and CANCELLED")
	}
	for _, s := range []RideStatus{RideRequested, RideCancelled} {
		if s.HasDriver() {
			t.Errorf("%s must not carry a driver", s)
		}
	}
	for _, s := range []RideStatus{RideAccepted, RidePickedUp, RideInTransit, RideCompleted} {
		if !s.HasDriver() {
			t.Errorf("%s must carry a driver", s)
		}
	}
	if RideStatus("LOST").Valid() {
		t.Fatal("unknown status should be invalid")
	}
}

func TestRideCloneIsDeep(t *testing.T) {
	at := time.Now()
	r := &Ride{ID: "r1", Timestamps: RideTimestamps{AcceptedAt: &at}, Rejections: []Rejection{{DriverID: "d1"}}}
	c := r.Clone()
	c.Rejections[0].DriverID = "d2"
	*c.Timestamps.AcceptedAt = at.Add(time.Hour)
	if r.Rejections[0].DriverID != "d1" || !r.Timestamps.AcceptedAt.Equal(at) {
		t.Fatal("clone shares state with the original")
	}
	if !r.RejectedBy("d1") || r.RejectedBy("d2") {
		t.Fatal("RejectedBy mismatch")
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("DRIVER"); !ok || r != RoleDriver {
		t.Fatal("DRIVER should parse")
	}
	if _, ok := ParseRole("USER"); ok {
		t.Fatal("USER is not a role")
	}
}

func TestIsBDMobile(t *testing.T) {
	for s, want := range map[string]bool{
		"+8801712345678": true,
		"+8801212345678": false,
		"01712345678":    false,
		"+880171234567":  false,
	} {
		if IsBDMobile(s) != want {
			t.Errorf("IsBDMobile(%q) = %v", s, !want)
		}
	}
}
