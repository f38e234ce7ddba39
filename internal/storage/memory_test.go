package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/ride-booking/internal/models"
)

func seedRide(t *testing.T, s *MemoryStore, rider string, price float64, at time.Time) *models.Ride {
	t.Helper()
	r := &models.Ride{
		RiderID:            rider,
		PickupAddress:      "Gulshan 1",
		DestinationAddress: "Banani 11",
		Price:              price,
		Status:             models.RideRequested,
		Timestamps:         models.RideTimestamps{RequestedAt: at},
	}
	if err := s.CreateRide(context.Background(), r); err != nil {
		t.Fatalf("create ride: %v", err)
	}
	return r
}

func TestMemoryStoreAcceptRideSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := seedRide(t, s, "rider-1", 300, time.Now())

	const drivers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners, conflicts := 0, 0
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AcceptRide(ctx, r.ID, fmt.Sprintf("driver-%d", i), time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if winners != 1 || conflicts != drivers-1 {
		t.Fatalf("winners=%d conflicts=%d", winners, conflicts)
	}
	got, _ := s.GetRide(ctx, r.ID)
	if got.Status != models.RideAccepted || got.DriverID == "" || got.Timestamps.AcceptedAt == nil {
		t.Fatalf("ride not accepted cleanly: %+v", got)
	}
}

func TestMemoryStoreCompletionCreditsEarnings(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	d := &models.DriverProfile{UserID: "user-d", ApplicationStatus: models.ApplicationApproved}
	if err := s.CreateDriver(ctx, d); err != nil {
		t.Fatal(err)
	}

	const rides = 10
	ids := make([]string, rides)
	for i := range ids {
		r := seedRide(t, s, "rider", 125.5, time.Now())
		ids[i] = r.ID
		if _, err := s.AcceptRide(ctx, r.ID, d.ID, time.Now()); err != nil {
			t.Fatal(err)
		}
		for _, step := range [][2]models.RideStatus{
			{models.RideAccepted, models.RidePickedUp},
			{models.RidePickedUp, models.RideInTransit},
		} {
			if _, err := s.AdvanceRide(ctx, r.ID, d.ID, step[0], step[1], time.Now()); err != nil {
				t.Fatal(err)
			}
		}
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		// two attempts per ride; only one may credit
		for k := 0; k < 2; k++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, _ = s.AdvanceRide(ctx, id, d.ID, models.RideInTransit, models.RideCompleted, time.Now())
			}(id)
		}
	}
	wg.Wait()

	got, _ := s.GetDriver(ctx, d.ID)
	if got.Earnings != 1255 {
		t.Fatalf("earnings = %v, want 1255", got.Earnings)
	}
}

func TestMemoryStoreAdvanceRequiresHolder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := seedRide(t, s, "rider", 100, time.Now())
	if _, err := s.AcceptRide(ctx, r.ID, "d1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AdvanceRide(ctx, r.ID, "d2", models.RideAccepted, models.RidePickedUp, time.Now()); !errors.Is(err, ErrConflict) {
		t.Fatalf("foreign driver advance err = %v", err)
	}
	if _, err := s.AdvanceRide(ctx, r.ID, "d1", models.RidePickedUp, models.RideInTransit, time.Now()); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale from-status err = %v", err)
	}
	open := seedRide(t, s, "rider", 100, time.Now())
	if _, err := s.AdvanceRide(ctx, open.ID, "", models.RideRequested, models.RidePickedUp, time.Now()); !errors.Is(err, ErrConflict) {
		t.Fatalf("driverless advance err = %v", err)
	}
	if _, err := s.AdvanceRide(ctx, "missing", "d1", models.RideAccepted, models.RidePickedUp, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing ride err = %v", err)
	}
}

func TestMemoryStoreIncomingFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	older := seedRide(t, s, "r1", 100, base)
	newer := seedRide(t, s, "r2", 100, base.Add(time.Minute))
	rejected := seedRide(t, s, "r3", 100, base.Add(2*time.Minute))
	taken := seedRide(t, s, "r4", 100, base.Add(3*time.Minute))

	if _, err := s.RejectRide(ctx, rejected.ID, models.Rejection{DriverID: "d1", Reason: "too far", Timestamp: base}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AcceptRide(ctx, taken.ID, "d2", base); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListRides(ctx, RideFilter{Status: models.RideRequested, NotRejectedBy: "d1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Fatalf("incoming = %+v", got)
	}

	got, _ = s.ListRides(ctx, RideFilter{Status: models.RideRequested, NotRejectedBy: "d9"})
	if len(got) != 3 {
		t.Fatalf("other driver sees %d rides, want 3", len(got))
	}
}

func TestMemoryStoreRejectAndCancelPreconditions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := seedRide(t, s, "rider", 100, time.Now())

	if _, err := s.CancelRide(ctx, r.ID, "someone-else", "", time.Now()); !errors.Is(err, ErrConflict) {
		t.Fatalf("foreign cancel err = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := s.RejectRide(ctx, r.ID, models.Rejection{DriverID: "d1", Reason: "busy"}); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := s.GetRide(ctx, r.ID)
	if len(got.Rejections) != 2 || got.Status != models.RideRequested {
		t.Fatalf("rejections=%d status=%s", len(got.Rejections), got.Status)
	}
	if _, err := s.CancelRide(ctx, r.ID, "rider", "changed plans", time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RejectRide(ctx, r.ID, models.Rejection{DriverID: "d2"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("reject after cancel err = %v", err)
	}
	if _, err := s.AcceptRide(ctx, r.ID, "d2", time.Now()); !errors.Is(err, ErrConflict) {
		t.Fatalf("accept after cancel err = %v", err)
	}
}

func TestMemoryStoreReadsAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := seedRide(t, s, "rider", 100, time.Now())
	got, _ := s.GetRide(ctx, r.ID)
	got.Status = models.RideCompleted
	got.Rejections = append(got.Rejections, models.Rejection{DriverID: "x"})
	again, _ := s.GetRide(ctx, r.ID)
	if again.Status != models.RideRequested || len(again.Rejections) != 0 {
		t.Fatal("caller mutation leaked into store")
	}
}

func TestMemoryStoreRatingUniqueAndSummary(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i, score := range []int{5, 4, 4} {
		r := &models.Rating{RideID: fmt.Sprintf("ride-%d", i), RaterID: "rider", RateeID: "drv", Type: models.RiderToDriver, Score: score, IsActive: true}
		if err := s.CreateRating(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	dup := &models.Rating{RideID: "ride-0", Type: models.RiderToDriver, Score: 1, IsActive: true}
	if err := s.CreateRating(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate err = %v", err)
	}
	other := &models.Rating{RideID: "ride-0", Type: models.DriverToRider, RateeID: "rider", Score: 3, IsActive: true}
	if err := s.CreateRating(ctx, other); err != nil {
		t.Fatalf("opposite direction should be allowed: %v", err)
	}
	sum, _ := s.RatingSummary(ctx, "drv")
	if sum.TotalRatings != 3 || sum.AverageRating != 4.3 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestMemoryStoreDecideApplicationOnlyFromPending(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	d := &models.DriverProfile{UserID: "u1", ApplicationStatus: models.ApplicationPending}
	if err := s.CreateDriver(ctx, d); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateDriver(ctx, &models.DriverProfile{UserID: "u1"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second application err = %v", err)
	}
	if _, err := s.DecideApplication(ctx, d.ID, models.ApplicationApproved, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DecideApplication(ctx, d.ID, models.ApplicationRejected, "documents expired"); !errors.Is(err, ErrConflict) {
		t.Fatalf("re-decide err = %v", err)
	}
}
