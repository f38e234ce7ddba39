package rating

import (
	"context"
	"testing"
	"time"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

type fixture struct {
	svc                 *Service
	store               *storage.MemoryStore
	riderID, driverUser string
	ride                *models.Ride
}

func completedRide(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := storage.NewMemoryStore()
	rider := &models.User{Name: "Rina", Email: "rina@example.com", Role: models.RoleRider}
	du := &models.User{Name: "Dipu", Email: "dipu@example.com", Role: models.RoleDriver}
	_ = st.CreateUser(ctx, rider)
	_ = st.CreateUser(ctx, du)
	d := &models.DriverProfile{UserID: du.ID, ApplicationStatus: models.ApplicationApproved, IsOnline: true}
	_ = st.CreateDriver(ctx, d)

	r := &models.Ride{RiderID: rider.ID, PickupAddress: "a", DestinationAddress: "b", Price: 200,
		Status: models.RideRequested, Timestamps: models.RideTimestamps{RequestedAt: time.Now()}}
	_ = st.CreateRide(ctx, r)
	if _, err := st.AcceptRide(ctx, r.ID, d.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	for _, step := range [][2]models.RideStatus{
		{models.RideAccepted, models.RidePickedUp},
		{models.RidePickedUp, models.RideInTransit},
		{models.RideInTransit, models.RideCompleted},
	} {
		if _, err := st.AdvanceRide(ctx, r.ID, d.ID, step[0], step[1], time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{svc: &Service{Store: st}, store: st, riderID: rider.ID, driverUser: du.ID, ride: r}
}

func TestCreateInfersDirection(t *testing.T) {
	f := completedRide(t)
	ctx := context.Background()
	byRider, err := f.svc.Create(ctx, f.riderID, f.ride.ID, Input{Rating: 5, Comment: "smooth"})
	if err != nil {
		t.Fatal(err)
	}
	if byRider.Type != models.RiderToDriver || byRider.RateeID != f.driverUser {
		t.Fatalf("rider rating = %+v", byRider)
	}
	byDriver, err := f.svc.Create(ctx, f.driverUser, f.ride.ID, Input{Rating: 4})
	if err != nil {
		t.Fatal(err)
	}
	if byDriver.Type != models.DriverToRider || byDriver.RateeID != f.riderID {
		t.Fatalf("driver rating = %+v", byDriver)
	}
	if _, err := f.svc.Create(ctx, f.riderID, f.ride.ID, Input{Rating: 1}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := f.svc.Create(ctx, "stranger", f.ride.ID, Input{Rating: 3}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("stranger err = %v", err)
	}
}

func TestCreateRequiresCompletedRide(t *testing.T) {
	f := completedRide(t)
	ctx := context.Background()
	open := &models.Ride{RiderID: f.riderID, PickupAddress: "a", DestinationAddress: "b", Price: 10, Status: models.RideRequested}
	_ = f.store.CreateRide(ctx, open)
	if _, err := f.svc.Create(ctx, f.riderID, open.ID, Input{Rating: 5}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.svc.Create(ctx, f.riderID, "missing", Input{Rating: 5}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	if _, err := f.svc.Create(ctx, f.riderID, f.ride.ID, Input{Rating: 6}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("out of range err = %v", err)
	}
}

func TestUpdateDeleteAndAverage(t *testing.T) {
	f := completedRide(t)
	ctx := context.Background()
	r, _ := f.svc.Create(ctx, f.riderID, f.ride.ID, Input{Rating: 3})

	four := 4
	if _, err := f.svc.Update(ctx, f.driverUser, r.ID, UpdateInput{Rating: &four}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("non-rater update err = %v", err)
	}
	if _, err := f.svc.Update(ctx, f.riderID, r.ID, UpdateInput{Rating: &four}); err != nil {
		t.Fatal(err)
	}
	sum, _ := f.svc.Average(ctx, f.driverUser)
	if sum.AverageRating != 4 || sum.TotalRatings != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	received, _ := f.svc.List(ctx, f.driverUser, false)
	given, _ := f.svc.List(ctx, f.riderID, true)
	if len(received) != 1 || len(given) != 1 {
		t.Fatalf("received=%d given=%d", len(received), len(given))
	}

	if err := f.svc.Delete(ctx, f.riderID, r.ID); err != nil {
		t.Fatal(err)
	}
	sum, _ = f.svc.Average(ctx, f.driverUser)
	if sum.TotalRatings != 0 || sum.AverageRating != 0 || len(sum.Distribution) != 0 {
		t.Fatalf("summary after delete = %+v", sum)
	}
	if err := f.svc.Delete(ctx, f.riderID, r.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("double delete err = %v", err)
	}
}
