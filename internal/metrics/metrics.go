package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	// Registry holds every cmake-clean metric. A dedicated registry keeps the
	// textfile output free of Go runtime collectors.
	Registry = prometheus.NewRegistry()
)

// Init initializes all metrics subsystems and registers them
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initSweepMetrics()
		initMakeMetrics()

		registerSweepMetrics()
		registerMakeMetrics()

		// Present in output even before the first sweep
		LastRunTimestamp.Set(0)
	})
}

// WriteTextfile writes the registry in Prometheus text format to path,
// for the node exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
