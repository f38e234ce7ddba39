package fare

import (
	"context"
	"testing"
	"time"

	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/models"
)

var testFare = config.FareConfig{BaseFare: 50, PerKm: 25, PerMinute: 2, MinimumFare: 80, AvgSpeedKmph: 24, Currency: "BDT"}

func TestHaversineZero(t *testing.T) {
	p := Point{Lat: 23.8, Lon: 90.4}
	if d := Haversine(p, p); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of latitude is ~111.2 km
	d := Haversine(Point{Lat: 23, Lon: 90}, Point{Lat: 24, Lon: 90})
	if d < 111000 || d > 111400 {
		t.Fatalf("unexpected distance %f", d)
	}
}

func TestLocateStaysInAreaAndIsStable(t *testing.T) {
	for _, addr := range []string{"Gulshan 1", "Banani 11", "Dhanmondi 27", ""} {
		p := Dhaka.Locate(addr)
		if p.Lat < Dhaka.MinLat || p.Lat > Dhaka.MaxLat || p.Lon < Dhaka.MinLon || p.Lon > Dhaka.MaxLon {
			t.Fatalf("%q located outside area: %+v", addr, p)
		}
		if Dhaka.Locate("  "+addr+"  ") != p {
			t.Fatalf("%q not stable under whitespace", addr)
		}
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	e := NewEstimator(testFare, nil)
	a := e.Estimate(context.Background(), "Gulshan 1", "Motijheel")
	b := e.Estimate(context.Background(), "gulshan 1", "MOTIJHEEL")
	if a != b {
		t.Fatalf("estimates differ: %+v vs %+v", a, b)
	}
	if a.Currency != "BDT" || a.DistanceKm < minDistanceKm {
		t.Fatalf("unexpected estimate %+v", a)
	}
}

func TestEstimateAppliesMinimums(t *testing.T) {
	cfg := testFare
	cfg.AvgSpeedKmph = 30
	cfg.MinimumFare = 0
	est := NewEstimator(cfg, nil).Estimate(context.Background(), "Same Place", "same place")
	if est.DistanceKm != minDistanceKm || est.DurationMinutes != 2 {
		t.Fatalf("distance/duration = %v/%v, want 1km/2min", est.DistanceKm, est.DurationMinutes)
	}
	// 50 + 25*1 + 2*2
	if est.Fare != 79 {
		t.Fatalf("fare = %v, want 79", est.Fare)
	}

	cfg.MinimumFare = 500
	est = NewEstimator(cfg, nil).Estimate(context.Background(), "Same Place", "Same Place")
	if est.Fare != 500 {
		t.Fatalf("fare = %v, want minimum 500", est.Fare)
	}
}

func TestEstimateUsesCache(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	e := NewEstimator(testFare, c)
	planted := models.FareEstimate{Fare: 1234, Currency: "BDT"}
	c.Set(context.Background(), cacheKey("A", "B"), planted)
	if got := e.Estimate(context.Background(), "a", "b"); got.Fare != 1234 {
		t.Fatalf("cache not consulted, got %+v", got)
	}
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set(context.Background(), "k", models.FareEstimate{Fare: 1})
	if _, ok := c.Get(context.Background(), "k"); !ok {
		t.Fatal("fresh entry missing")
	}
	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatal("expired entry returned")
	}
}
