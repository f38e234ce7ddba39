package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

// ServerConfig captures all tunable parameters for the API process.
// Values come from environment variables (optionally seeded from a .env file)
// with defaults that let the binary run locally against the memory store.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	PGDSN         string
	RunMigrations bool

	RedisAddr     string
	RedisPassword string
	FareCacheTTL  time.Duration

	KafkaBrokers   []string
	KafkaRideTopic string
	KafkaGroup     string

	JWTAccessSecret string
	JWTAccessExpire time.Duration

	StripeAPIKey string

	AdminEmail string
	AdminName  string

	Fare FareConfig
	// OSRMURL enables road-distance fare quotes when set.
	OSRMURL string

	LogLevel string
}

// FareConfig holds the pricing constants used by the fare estimator.
type FareConfig struct {
	BaseFare     float64
	PerKm        float64
	PerMinute    float64
	MinimumFare  float64
	AvgSpeedKmph float64
	Currency     string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		FareCacheTTL:    10 * time.Minute,
		KafkaRideTopic:  "ride-events",
		KafkaGroup:      "ride-stats-consumer",
		JWTAccessExpire: 24 * time.Hour,
		AdminName:       "Super Admin",
		Fare: FareConfig{
			BaseFare:     50,
			PerKm:        25,
			PerMinute:    2,
			MinimumFare:  80,
			AvgSpeedKmph: 24,
			Currency:     "BDT",
		},
		LogLevel: "info",
	}
}

// LoadServerConfig reads .env (when present) and the process environment.
// All parse errors are collected and returned together.
func LoadServerConfig() (ServerConfig, error) {
	var errs []error
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("load .env: %w", err))
	}

	cfg := defaultServerConfig()

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setDurationFromEnv(&cfg.FareCacheTTL, "FARE_CACHE_TTL", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaRideTopic, "KAFKA_RIDE_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")

	cfg.JWTAccessSecret = os.Getenv("JWT_ACCESS_SECRET")
	setDurationFromEnv(&cfg.JWTAccessExpire, "JWT_ACCESS_EXPIRE", &errs)

	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")

	cfg.AdminEmail = strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	setStringFromEnv(&cfg.AdminName, "ADMIN_NAME")

	setFloatFromEnv(&cfg.Fare.BaseFare, "FARE_BASE", &errs)
	setFloatFromEnv(&cfg.Fare.PerKm, "FARE_PER_KM", &errs)
	setFloatFromEnv(&cfg.Fare.PerMinute, "FARE_PER_MINUTE", &errs)
	setFloatFromEnv(&cfg.Fare.MinimumFare, "FARE_MINIMUM", &errs)
	setFloatFromEnv(&cfg.Fare.AvgSpeedKmph, "FARE_AVG_SPEED_KMPH", &errs)
	setStringFromEnv(&cfg.Fare.Currency, "FARE_CURRENCY")
	cfg.OSRMURL = strings.TrimRight(strings.TrimSpace(os.Getenv("OSRM_URL")), "/")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.JWTAccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if cfg.Fare.AvgSpeedKmph <= 0 {
		errs = append(errs, errors.New("FARE_AVG_SPEED_KMPH must be > 0"))
	}
	if cfg.JWTAccessExpire <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_EXPIRE must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// ConsumerConfig is the subset needed by the ride event consumer.
type ConsumerConfig struct {
	MetricsAddr  string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string
	RedisAddr    string
	LogLevel     string
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	var errs []error
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("load .env: %w", err))
	}
	cfg := ConsumerConfig{
		MetricsAddr:  ":2112",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "ride-events",
		KafkaGroup:   "ride-stats-consumer",
		RedisAddr:    "localhost:6379",
		LogLevel:     "info",
	}
	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_RIDE_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS must name at least one broker"))
	}
	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
