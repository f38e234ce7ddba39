package fare

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/ride-booking/internal/logging"
)

func TestOSRMRoute(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":12000,"duration":1800}]}`))
	}))
	defer ts.Close()

	m, s, err := NewOSRMClient(ts.URL).Route(context.Background(), Point{Lat: 23.75, Lon: 90.39}, Point{Lat: 23.81, Lon: 90.41})
	if err != nil {
		t.Fatal(err)
	}
	if m != 12000 || s != 1800 {
		t.Fatalf("route = %v m, %v s", m, s)
	}
	if !strings.HasPrefix(gotPath, "/route/v1/driving/90.390000,23.750000;") {
		t.Fatalf("path = %s", gotPath)
	}
}

func TestOSRMNoRoute(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer ts.Close()
	if _, _, err := NewOSRMClient(ts.URL).Route(context.Background(), Point{}, Point{}); err == nil {
		t.Fatal("expected error for NoRoute")
	}
}

type fixedRouter struct {
	meters, seconds float64
	err             error
}

func (f fixedRouter) Route(context.Context, Point, Point) (float64, float64, error) {
	return f.meters, f.seconds, f.err
}

func TestEstimateUsesRoadDistance(t *testing.T) {
	e := NewEstimator(testFare, nil).WithRouter(fixedRouter{meters: 12000, seconds: 1800}, logging.Discard())
	est := e.Estimate(context.Background(), "Mirpur 10", "Motijheel")
	if est.DistanceKm != 12 || est.DurationMinutes != 30 || est.Fare != 410 {
		t.Fatalf("estimate = %+v", est)
	}
}

func TestEstimateFallsBackWhenRouterFails(t *testing.T) {
	plain := NewEstimator(testFare, nil).Estimate(context.Background(), "Mirpur 10", "Motijheel")
	routed := NewEstimator(testFare, nil).
		WithRouter(fixedRouter{err: errors.New("osrm down")}, logging.Discard()).
		Estimate(context.Background(), "Mirpur 10", "Motijheel")
	if plain != routed {
		t.Fatalf("fallback %+v != straight-line %+v", routed, plain)
	}
}
