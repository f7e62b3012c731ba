package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeLocal   = "local"
	OutcomeSkipped = "skipped"
)

var (
	once sync.Once

	// RefreshTotal counts refresh cycles by result (success, local, skipped).
	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldsync",
		Subsystem: "sync",
		Name:      "refresh_total",
		Help:      "Total number of refresh cycles, labeled by result.",
	}, []string{"result"})

	// RefreshDurationSeconds is the wall time of a completed refresh cycle.
	RefreshDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fieldsync",
		Subsystem: "sync",
		Name:      "refresh_duration_seconds",
		Help:      "Time to run one refresh cycle, push through persist.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"result"})

	// RefreshInFlight is 1 while a refresh cycle runs.
	RefreshInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldsync",
		Subsystem: "sync",
		Name:      "refresh_in_flight",
		Help:      "Whether a refresh cycle is currently running.",
	})

	// LastRefreshSeconds is a unix timestamp (seconds) of the last cycle that reached the remote.
	LastRefreshSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldsync",
		Subsystem: "sync",
		Name:      "last_cloud_refresh_timestamp_seconds",
		Help:      "Unix timestamp (seconds) of the last refresh whose pull succeeded.",
	})

	// PushTotal counts push attempts by outcome.
	PushTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldsync",
		Subsystem: "remote",
		Name:      "push_total",
		Help:      "Total number of pushes to the remote store, labeled by result.",
	}, []string{"result"})

	// PullTotal counts pending-item pulls by outcome.
	PullTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldsync",
		Subsystem: "remote",
		Name:      "pull_total",
		Help:      "Total number of pending-item pulls from the remote store, labeled by result.",
	}, []string{"result"})

	// Unsynced is the size of the dirty set per collection after the last cycle.
	Unsynced = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fieldsync",
		Subsystem: "store",
		Name:      "unsynced_records",
		Help:      "Number of local records not yet acknowledged by the remote, labeled by collection.",
	}, []string{"collection"})
)

// Register registers sync metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			RefreshTotal,
			RefreshDurationSeconds,
			RefreshInFlight,
			LastRefreshSeconds,
			PushTotal,
			PullTotal,
			Unsynced,
		)
	})
}

func NowUnixSeconds() float64 {
	return float64(time.Now().Unix())
}
