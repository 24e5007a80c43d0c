package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	SnapshotReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "housezen_snapshot_reads_total",
			Help: "Local snapshot reads on view entry by result (hit, miss)",
		},
		[]string{"key", "result"},
	)
	Revalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "housezen_revalidations_total",
			Help: "Background list revalidations by outcome",
		},
		[]string{"key", "outcome"},
	)
	BackendWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "housezen_backend_writes_total",
			Help: "Backend table writes by table and outcome",
		},
		[]string{"table", "outcome"},
	)
	BackendReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "housezen_backend_read_duration_seconds",
			Help:    "Duration of backend table reads in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"table"},
	)
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "housezen_auth_events_total",
			Help: "Auth state changes by event type",
		},
		[]string{"event"},
	)
)

func InitMetrics() {
	for _, c := range []prometheus.Collector{SnapshotReads, Revalidations, BackendWrites, BackendReadDuration, AuthEvents} {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Msg("Failed to register metric")
		}
	}
}

// ObserveRead records the time spent reading table since start.
func ObserveRead(table string, start time.Time) {
	BackendReadDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
}

// RecordWrite counts a write against table, labelled by whether err is nil.
func RecordWrite(table string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	BackendWrites.WithLabelValues(table, outcome).Inc()
}
