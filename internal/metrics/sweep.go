package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sweep subsystem metrics
var (
	// SweepDuration tracks how long sweeping one target takes
	SweepDuration prometheus.Histogram

	// EntriesRemovedTotal counts removed entries by kind and pass
	EntriesRemovedTotal *prometheus.CounterVec

	// TargetsTotal counts processed targets by outcome
	TargetsTotal *prometheus.CounterVec

	// ErrorsTotal tracks fatal sweep errors
	ErrorsTotal prometheus.Counter

	// LastRunTimestamp records Unix timestamp of the last run
	LastRunTimestamp prometheus.Gauge
)

func initSweepMetrics() {
	SweepDuration = NewDurationHistogram(
		"cmakeclean_sweep_duration_seconds",
		"Duration of sweeping one target directory in seconds.",
	)

	EntriesRemovedTotal = NewCounterVec(
		"cmakeclean_entries_removed_total",
		"Total generated entries removed, by object kind and sweep pass.",
		[]string{"kind", "pass"},
	)

	TargetsTotal = NewCounterVec(
		"cmakeclean_targets_total",
		"Total target directories processed, by outcome.",
		[]string{"outcome"},
	)

	ErrorsTotal = NewCounter(
		"cmakeclean_errors_total",
		"Total number of fatal errors encountered while sweeping.",
	)

	LastRunTimestamp = NewGauge(
		"cmakeclean_last_run_timestamp",
		"Timestamp of the last run (Unix epoch seconds).",
	)
}

func registerSweepMetrics() {
	Registry.MustRegister(SweepDuration)
	Registry.MustRegister(EntriesRemovedTotal)
	Registry.MustRegister(TargetsTotal)
	Registry.MustRegister(ErrorsTotal)
	Registry.MustRegister(LastRunTimestamp)
}

// RecordRun updates the last run timestamp to current time
func RecordRun() {
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordRemoval counts one removed entry
func RecordRemoval(kind, pass string) {
	EntriesRemovedTotal.WithLabelValues(kind, pass).Inc()
}

// RecordTarget counts one processed target and its sweep duration
func RecordTarget(outcome string, d time.Duration) {
	TargetsTotal.WithLabelValues(outcome).Inc()
	SweepDuration.Observe(d.Seconds())
}
