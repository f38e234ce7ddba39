package fare

import (
	"context"
	"log/slog"
	"math"

	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
)

const minDistanceKm = 1.0

// Estimator quotes fares between two free-form addresses. Quotes are
// deterministic: the same pair always yields the same estimate.
type Estimator struct {
	cfg    config.FareConfig
	area   Area
	cache  Cache
	router Router
	log    *slog.Logger
}

// NewEstimator builds an estimator; cache may be nil.
func NewEstimator(cfg config.FareConfig, cache Cache) *Estimator {
	return &Estimator{cfg: cfg, area: Dhaka, cache: cache}
}

// WithRouter prices trips by road distance and duration from r. A failed
// lookup falls back to the straight-line estimate.
func (e *Estimator) WithRouter(r Router, log *slog.Logger) *Estimator {
	e.router, e.log = r, log
	return e
}

func (e *Estimator) Estimate(ctx context.Context, pickup, destination string) models.FareEstimate {
	observability.FareEstimates.Inc()
	key := cacheKey(pickup, destination)
	if e.cache != nil {
		if est, ok := e.cache.Get(ctx, key); ok {
			observability.FareCacheHits.Inc()
			return est
		}
	}
	est := e.compute(ctx, pickup, destination)
	if e.cache != nil {
		e.cache.Set(ctx, key, est)
	}
	return est
}

func (e *Estimator) compute(ctx context.Context, pickup, destination string) models.FareEstimate {
	from, to := e.area.Locate(pickup), e.area.Locate(destination)
	meters, seconds := Haversine(from, to), 0.0
	if e.router != nil {
		if m, sec, err := e.router.Route(ctx, from, to); err == nil {
			meters, seconds = m, sec
		} else if e.log != nil {
			e.log.Warn("route lookup failed, using straight-line distance", "err", err)
		}
	}
	km := meters / 1000
	if km < minDistanceKm {
		km = minDistanceKm
	}
	km = round2(km)
	minutes := math.Round(km / e.cfg.AvgSpeedKmph * 60)
	if seconds > 0 {
		minutes = math.Round(seconds / 60)
	}

	b := models.FareBreakdown{
		BaseFare:     e.cfg.BaseFare,
		DistanceFare: round2(km * e.cfg.PerKm),
		TimeFare:     round2(minutes * e.cfg.PerMinute),
		MinimumFare:  e.cfg.MinimumFare,
	}
	total := math.Round(b.BaseFare + b.DistanceFare + b.TimeFare)
	if total < b.MinimumFare {
		total = b.MinimumFare
	}
	return models.FareEstimate{
		Fare:            total,
		DistanceKm:      km,
		DurationMinutes: minutes,
		Currency:        e.cfg.Currency,
		Breakdown:       b,
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
