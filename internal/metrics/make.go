package metrics

import "github.com/prometheus/client_golang/prometheus"

// External clean action metrics
var (
	// MakeExitCode is the last exit code of the clean action per directory
	MakeExitCode *prometheus.GaugeVec

	// MakeFailuresTotal counts clean actions that could not be launched
	MakeFailuresTotal prometheus.Counter
)

func initMakeMetrics() {
	MakeExitCode = NewGaugeVec(
		"cmakeclean_make_exit_code",
		"Exit code of the last clean action per directory (-1 when it could not start).",
		[]string{"dir"},
	)

	MakeFailuresTotal = NewCounter(
		"cmakeclean_make_launch_failures_total",
		"Total clean actions that could not be started.",
	)
}

func registerMakeMetrics() {
	Registry.MustRegister(MakeExitCode)
	Registry.MustRegister(MakeFailuresTotal)
}

// RecordMakeExit records the clean action's exit code for dir
func RecordMakeExit(dir string, code int) {
	MakeExitCode.WithLabelValues(dir).Set(float64(code))
	if code < 0 {
		MakeFailuresTotal.Inc()
	}
}
