// Package metrics holds the Prometheus collectors tz-oracle exports.
//
// Every method is nil-safe so validators can run without a registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fuzz sample outcomes.
const (
	OutcomeUninhabited = "uninhabited"
	OutcomeMatch       = "match"
	OutcomeMismatch    = "mismatch"
)

// Metrics holds all collectors for one oracle run.
type Metrics struct {
	registry *prometheus.Registry

	scenarios        *prometheus.CounterVec
	scenarioDuration prometheus.Histogram
	fuzzSamples      *prometheus.CounterVec
	fuzzMismatch     prometheus.Gauge
	profileMsPerCall *prometheus.GaugeVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scenarios: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tzoracle_scenarios_total",
				Help: "Count of executed scenarios by final status",
			},
			[]string{"status"},
		),
		scenarioDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tzoracle_scenario_duration_seconds",
				Help:    "Wall-clock duration of individual scenarios",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10, 60},
			},
		),
		fuzzSamples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tzoracle_fuzz_samples_total",
				Help: "Count of fuzz samples by outcome",
			},
			[]string{"outcome"},
		),
		fuzzMismatch: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tzoracle_fuzz_mismatch_percent",
				Help: "Rounded mismatch percentage of the last fuzz run",
			},
		),
		profileMsPerCall: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tzoracle_profile_ms_per_call",
				Help: "Mean milliseconds per call for each profiled target and phase",
			},
			[]string{"target", "phase"},
		),
	}
	m.registry.MustRegister(m.scenarios, m.scenarioDuration, m.fuzzSamples, m.fuzzMismatch, m.profileMsPerCall)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveScenario records one finished scenario.
func (m *Metrics) ObserveScenario(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.scenarios.WithLabelValues(status).Inc()
	m.scenarioDuration.Observe(d.Seconds())
}

// IncFuzzSample records one fuzz sample outcome.
func (m *Metrics) IncFuzzSample(outcome string) {
	if m == nil {
		return
	}
	m.fuzzSamples.WithLabelValues(outcome).Inc()
}

// SetFuzzMismatchPercent records the final mismatch percentage.
func (m *Metrics) SetFuzzMismatchPercent(pct int) {
	if m == nil {
		return
	}
	m.fuzzMismatch.Set(float64(pct))
}

// SetProfile records mean milliseconds per call for a profiled phase.
func (m *Metrics) SetProfile(target, phase string, msPerCall float64) {
	if m == nil {
		return
	}
	m.profileMsPerCall.WithLabelValues(target, phase).Set(msPerCall)
}

// WriteTextfile writes the registry in text exposition format, for node
// exporter textfile collection.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return fmt.Errorf("metrics are not enabled")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
