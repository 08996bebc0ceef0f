package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// RefreshTotal counts dashboard refresh passes by outcome.
	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petdash",
		Subsystem: "dashboard",
		Name:      "refresh_total",
		Help:      "Total number of dashboard refresh passes, labeled by result.",
	}, []string{"result"})

	// RefreshDurationSeconds is end-to-end time per refresh pass.
	RefreshDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "petdash",
		Subsystem: "dashboard",
		Name:      "refresh_duration_seconds",
		Help:      "End-to-end time of a dashboard refresh pass (fetch + aggregation).",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// LastRefreshTimestamp is a unix timestamp (seconds) of the last successful refresh.
	LastRefreshTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "petdash",
		Subsystem: "dashboard",
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix timestamp (seconds) of the last successful reports refresh.",
	})

	// GeocodeLookupTotal counts reverse-geocode lookups by source.
	GeocodeLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petdash",
		Subsystem: "geocode",
		Name:      "lookup_total",
		Help:      "Total number of reverse-geocode lookups, labeled by source (cache/remote/error).",
	}, []string{"source"})

	// ConnectedClients is the current number of WebSocket clients.
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "petdash",
		Subsystem: "websocket",
		Name:      "connected_clients",
		Help:      "Current number of connected WebSocket dashboard clients.",
	})
)

// Register registers all metrics with the default registry. Safe to call
// more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			RefreshTotal,
			RefreshDurationSeconds,
			LastRefreshTimestamp,
			GeocodeLookupTotal,
			ConnectedClients,
		)
	})
}
