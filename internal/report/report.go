// Package report serves admin reporting: window overviews from the store and
// live daily counters that cmd/consumer projects into Redis.
package report

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

// RevenueField holds the completed-ride revenue inside a day hash; every
// other field is a ride status counter.
const RevenueField = "revenue"

const maxDays = 90

// DayKey is the Redis hash holding the counters for day (YYYY-MM-DD).
func DayKey(day string) string { return "ride:stats:" + day }

type HashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

type Service struct {
	Store storage.ReportStore
	// Stats is nil when Redis is not configured.
	Stats HashReader
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Window resolves the from/to query values. Missing to means now, missing from
// means one month before to. Values are RFC3339 or YYYY-MM-DD.
func (s *Service) Window(from, to string) (time.Time, time.Time, error) {
	end := s.now().UTC()
	if to != "" {
		t, err := parseTime(to)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.BadRequest("invalid 'to' date")
		}
		end = t
		if len(to) == len(time.DateOnly) {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
	}
	start := end.AddDate(0, -1, 0)
	if from != "" {
		t, err := parseTime(from)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.BadRequest("invalid 'from' date")
		}
		start = t
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, apperr.BadRequest("'from' must not be after 'to'")
	}
	return start, end, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, v)
}

func (s *Service) Overview(ctx context.Context, from, to time.Time) (models.Overview, error) {
	o, err := s.Store.Overview(ctx, from, to)
	if err != nil {
		return models.Overview{}, apperr.Internal("build overview", err)
	}
	return o, nil
}

func (s *Service) Today(ctx context.Context) (models.DailyStats, error) {
	days, err := s.Daily(ctx, 1)
	if err != nil {
		return models.DailyStats{}, err
	}
	return days[0], nil
}

// Daily returns the counters of the last n days, today first.
func (s *Service) Daily(ctx context.Context, n int) ([]models.DailyStats, error) {
	if n < 1 || n > maxDays {
		return nil, apperr.BadRequest("days must be between 1 and 90")
	}
	today := s.now().UTC()
	out := make([]models.DailyStats, 0, n)
	for i := 0; i < n; i++ {
		day := today.AddDate(0, 0, -i).Format(time.DateOnly)
		st, err := s.day(ctx, day)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Service) day(ctx context.Context, day string) (models.DailyStats, error) {
	st := models.DailyStats{Day: day, ByStatus: map[string]int{}}
	if s.Stats == nil {
		return st, nil
	}
	fields, err := s.Stats.HGetAll(ctx, DayKey(day)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return st, apperr.Internal("read daily stats", err)
	}
	for k, v := range fields {
		if k == RevenueField {
			st.Revenue, _ = strconv.ParseFloat(v, 64)
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		st.ByStatus[k] = n
	}
	return st, nil
}
