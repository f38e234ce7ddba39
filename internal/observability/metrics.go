package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesRequested  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "rides_requested_total", Help: "Total rides requested"})
	RideTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_booking", Name: "ride_transitions_total", Help: "Ride status transitions by target status"},
		[]string{"status"},
	)
	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "accept_conflicts_total", Help: "Acceptances lost to a concurrent acceptor or state change"})
	RideRejections  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "ride_rejections_total", Help: "Driver rejections of open rides"})
	EarningsSettled = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "earnings_settled_total", Help: "Sum of ride prices credited to drivers"})

	FareEstimates  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "fare_estimates_total", Help: "Fare estimates served"})
	FareCacheHits  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "fare_cache_hits_total", Help: "Fare estimates served from cache"})
	SideEffectErrs = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_booking", Name: "side_effect_errors_total", Help: "Best-effort side effects that failed (events, payments)"},
		[]string{"kind"},
	)
	WSSessions = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_booking", Name: "ws_sessions", Help: "Connected websocket sessions"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_booking", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_booking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
