package commands

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/systmms/dscreds/internal/logging"
	"github.com/systmms/dscreds/internal/metrics"
	"github.com/systmms/dscreds/internal/resolve"
)

// Metrics holds the --metrics-file setting of the commands that resolve
// or validate credentials. When File is set, each run records into its own
// registry and writes it in the Prometheus text format on exit, for the
// node_exporter textfile collector or a push step in CI.
type Metrics struct {
	File string

	registry *prometheus.Registry
}

// resolverOptions starts a fresh registry for one command run.
func (m *Metrics) resolverOptions() []resolve.Option {
	if m == nil || m.File == "" {
		return nil
	}
	m.registry = prometheus.NewRegistry()
	return []resolve.Option{resolve.WithMetrics(metrics.NewResolveMetrics(m.registry))}
}

// flush writes the run's metrics. A failed write is logged and does not
// fail the command.
func (m *Metrics) flush(logger *logging.Logger) {
	if m == nil || m.registry == nil {
		return
	}
	if err := prometheus.WriteToTextfile(m.File, m.registry); err != nil {
		logger.Warn("Failed to write metrics to %s: %v", m.File, err)
		return
	}
	logger.Debug("Wrote metrics to %s", m.File)
}
