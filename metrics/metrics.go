// Package metrics collects Prometheus metrics for benchmark runs. Runs are
// batch jobs, so metrics live on a private registry and are written to a
// node-exporter textfile at the end instead of being scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sparsebench"

// Metrics holds the collectors updated by the benchmark runner. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ConfigurationsTotal *prometheus.CounterVec
	FailuresTotal       *prometheus.CounterVec
	TrialSeconds        *prometheus.HistogramVec
	ArtifactBytes       *prometheus.GaugeVec
	Executions          *prometheus.GaugeVec
	SuitesTotal         *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ConfigurationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configurations_total",
			Help:      "Configurations benchmarked successfully",
		},
		[]string{"routine", "suite"},
	)

	m.FailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Configurations that aborted their suite, by stage",
		},
		[]string{"routine", "suite", "stage"},
	)

	m.TrialSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trial_seconds",
			Help:      "Elapsed time of one timing trial",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 12),
		},
		[]string{"routine", "suite"},
	)

	m.ArtifactBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Backing-store size of the last constructed artifact",
		},
		[]string{"routine", "suite"},
	)

	m.Executions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executions_per_trial",
			Help:      "Execution count used for the last configuration",
		},
		[]string{"routine", "suite"},
	)

	m.SuitesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suites_total",
			Help:      "Suites finished, by outcome",
		},
		[]string{"routine", "suite", "outcome"},
	)

	m.registry.MustRegister(
		m.ConfigurationsTotal,
		m.FailuresTotal,
		m.TrialSeconds,
		m.ArtifactBytes,
		m.Executions,
		m.SuitesTotal,
	)

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveConfiguration records one successful configuration.
func (m *Metrics) ObserveConfiguration(
	routine, suite string,
	nbytes int64,
	executions int,
	timings []float64,
) {
	if m == nil {
		return
	}

	m.ConfigurationsTotal.WithLabelValues(routine, suite).Inc()
	m.ArtifactBytes.WithLabelValues(routine, suite).Set(float64(nbytes))
	m.Executions.WithLabelValues(routine, suite).Set(float64(executions))

	hist := m.TrialSeconds.WithLabelValues(routine, suite)
	for _, v := range timings {
		hist.Observe(v)
	}
}

// ObserveFailure records the stage at which a configuration failed.
func (m *Metrics) ObserveFailure(routine, suite, stage string) {
	if m == nil {
		return
	}

	m.FailuresTotal.WithLabelValues(routine, suite, stage).Inc()
}

// ObserveSuite records a finished suite; outcome is "ok" or "failed".
func (m *Metrics) ObserveSuite(routine, suite, outcome string) {
	if m == nil {
		return
	}

	m.SuitesTotal.WithLabelValues(routine, suite, outcome).Inc()
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
