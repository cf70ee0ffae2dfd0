package telemetry

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes stats in the Prometheus text exposition format to
// path, for node_exporter's textfile collector. The file is replaced
// atomically by the client library.
func WriteTextfile(path string, stats CycleStats) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	planned := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tsera_plan_steps",
			Help: "Steps planned by action.",
		},
		[]string{"action"},
	)
	applied := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tsera_apply_steps",
			Help: "Steps applied successfully by action.",
		},
		[]string{"action"},
	)
	errorsTotal := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tsera_errors",
			Help: "Engine errors by code.",
		},
		[]string{"code"},
	)
	failed := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsera_apply_failed_steps",
			Help: "Steps that failed to apply.",
		},
	)
	duration := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsera_apply_duration_seconds",
			Help: "Duration of the last apply run.",
		},
	)
	runs := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsera_apply_runs",
			Help: "Apply runs recorded by this process.",
		},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsera_last_success_timestamp_seconds",
			Help: "Unix time of the last successful apply.",
		},
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(planned, applied, errorsTotal, failed, duration, runs, lastSuccess)

	for action, n := range stats.Planned {
		planned.WithLabelValues(action).Set(float64(n))
	}
	for action, n := range stats.Applied {
		applied.WithLabelValues(action).Set(float64(n))
	}
	for code, n := range stats.Errors {
		errorsTotal.WithLabelValues(code).Set(float64(n))
	}
	failed.Set(float64(stats.Failed))
	duration.Set(stats.Duration.Seconds())
	runs.Set(float64(stats.Runs))
	if !stats.LastSuccess.IsZero() {
		lastSuccess.Set(float64(stats.LastSuccess.Unix()))
	}

	return prometheus.WriteToTextfile(path, reg)
}
