package report

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

type fakeHashes map[string]map[string]string

func (f fakeHashes) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	return redis.NewMapStringStringResult(f[key], nil)
}

var fixedNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func TestDailyReadsHashes(t *testing.T) {
	s := &Service{
		Stats: fakeHashes{
			DayKey("2025-03-10"): {"REQUESTED": "4", "COMPLETED": "2", RevenueField: "450.5"},
			DayKey("2025-03-09"): {"CANCELLED": "1"},
		},
		Now: func() time.Time { return fixedNow },
	}
	days, err := s.Daily(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 3 || days[0].Day != "2025-03-10" || days[2].Day != "2025-03-08" {
		t.Fatalf("days = %+v", days)
	}
	if days[0].ByStatus["REQUESTED"] != 4 || days[0].ByStatus["COMPLETED"] != 2 || days[0].Revenue != 450.5 {
		t.Fatalf("today = %+v", days[0])
	}
	if days[1].ByStatus["CANCELLED"] != 1 || len(days[2].ByStatus) != 0 {
		t.Fatalf("older days = %+v", days[1:])
	}
	if _, err := s.Daily(context.Background(), 0); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("days=0 err = %v", err)
	}
}

func TestTodayWithoutRedisIsEmpty(t *testing.T) {
	s := &Service{Now: func() time.Time { return fixedNow }}
	st, err := s.Today(context.Background())
	if err != nil || st.Day != "2025-03-10" || len(st.ByStatus) != 0 || st.Revenue != 0 {
		t.Fatalf("today = %+v, %v", st, err)
	}
}

func TestWindow(t *testing.T) {
	s := &Service{Now: func() time.Time { return fixedNow }}

	from, to, err := s.Window("", "")
	if err != nil || !to.Equal(fixedNow) || !from.Equal(fixedNow.AddDate(0, -1, 0)) {
		t.Fatalf("default window = %v..%v, %v", from, to, err)
	}
	from, to, err = s.Window("2025-01-01", "2025-01-31")
	if err != nil || from.Day() != 1 || to.Day() != 31 || to.Hour() != 23 {
		t.Fatalf("date window = %v..%v, %v", from, to, err)
	}
	if _, _, err := s.Window("yesterday", ""); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("bad from err = %v", err)
	}
	if _, _, err := s.Window("2025-02-01", "2025-01-01"); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("inverted window err = %v", err)
	}
}

func TestOverviewCountsWindow(t *testing.T) {
	st := storage.NewMemoryStore()
	ctx := context.Background()
	_ = st.CreateUser(ctx, &models.User{Name: "A", Email: "a@example.com", Role: models.RoleRider})
	_ = st.CreateUser(ctx, &models.User{Name: "B", Email: "b@example.com", Role: models.RoleDriver})
	s := &Service{Store: st}
	o, err := s.Overview(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil || o.Users.Total != 2 || o.Users.Riders != 1 || o.Users.Drivers != 1 {
		t.Fatalf("overview = %+v, %v", o, err)
	}
	o, _ = s.Overview(ctx, time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	if o.Users.Total != 0 {
		t.Fatalf("future window counted %d users", o.Users.Total)
	}
}
