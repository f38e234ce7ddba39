package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/events"
	"github.com/example/ride-booking/internal/logging"
	"github.com/example/ride-booking/internal/report"
)

// Day hashes outlive the reporting window so /reports/daily can look back.
const statsTTL = 120 * 24 * time.Hour

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total ride event messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total successful redis updates",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisUpdates, redisErrors)
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, "ride-stats-consumer")

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	radapter := &redisAdapter{c: rc}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(200)
			_, _ = w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		if err := srv.ListenAndServe(); err != nil {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 1, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()

		var ev events.RideEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil || ev.RideID == "" || ev.At.IsZero() {
			msgsInvalid.Inc()
			logger.Warn("invalid message", "offset", m.Offset, "err", err)
			continue
		}

		if err := updateRedisWithRetry(ctx, radapter, ev, 3, 200*time.Millisecond); err != nil {
			redisErrors.Inc()
			logger.Error("redis update failed", "ride_id", ev.RideID, "type", ev.Type, "err", err)
			continue
		}
		redisUpdates.Inc()
	}
}

// RedisUpdater is the one Redis operation the projection needs.
type RedisUpdater interface {
	// Increment bumps field in the hash at key and adds revenue to the
	// revenue field, atomically and at most once per eventKey.
	Increment(ctx context.Context, eventKey, key, field string, revenue float64) error
}

// incrementOnce claims the event's dedupe key and applies the counters in
// one script, so a retry after a lost reply or a redelivered message is a
// no-op.
var incrementOnce = redis.NewScript(`
if redis.call("SET", KEYS[2], "1", "NX", "EX", ARGV[4]) == false then
	return 0
end
redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
if tonumber(ARGV[2]) ~= 0 then
	redis.call("HINCRBYFLOAT", KEYS[1], ARGV[3], ARGV[2])
end
redis.call("EXPIRE", KEYS[1], ARGV[4])
return 1
`)

type redisAdapter struct{ c *redis.Client }

func (r *redisAdapter) Increment(ctx context.Context, eventKey, key, field string, revenue float64) error {
	keys := []string{key, "ride:stats:seen:" + eventKey}
	ttl := int64(statsTTL / time.Second)
	return incrementOnce.Run(ctx, r.c, keys, field, revenue, report.RevenueField, ttl).Err()
}

// counterField names the counter an event bumps. Rejections leave the ride
// REQUESTED, so they get their own field instead of recounting the request.
func counterField(ev events.RideEvent) string {
	if ev.Type == events.RideRejected {
		return "REJECTED"
	}
	return string(ev.Status)
}

// updateRedisWithRetry projects ev into its day hash with retry/backoff.
func updateRedisWithRetry(ctx context.Context, rc RedisUpdater, ev events.RideEvent, attempts int, delay time.Duration) error {
	var revenue float64
	if ev.Type == events.RideCompleted {
		revenue = ev.Price
	}
	key := report.DayKey(ev.Day())
	var err error
	for i := 0; i < attempts; i++ {
		if err = rc.Increment(ctx, ev.Key(), key, counterField(ev), revenue); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
