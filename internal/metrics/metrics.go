package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailure  = "failure"
)

// Metrics holds the load tester's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pipelineRuns    *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	engineExits     *prometheus.CounterVec
	endpointsParsed prometheus.Gauge
	smokeRequests   *prometheus.CounterVec
}

// New creates the collectors and registers them, with Go runtime collectors, on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadtest_pipeline_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loadtest_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"stage"},
		),
		engineExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadtest_engine_exit_total",
				Help: "Load generation engine runs by result",
			},
			[]string{"result"},
		),
		endpointsParsed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "loadtest_endpoints_parsed",
				Help: "Number of endpoints in the most recently parsed specification",
			},
		),
		smokeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadtest_smoke_requests_total",
				Help: "Smoke check requests by status",
			},
			[]string{"status"},
		),
	}
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordPipeline counts a finished pipeline run
func (m *Metrics) RecordPipeline(outcome string) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a pipeline stage took
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordEngineExit counts an engine run result ("succeeded", "failed", "no_results", "not_started")
func (m *Metrics) RecordEngineExit(result string) {
	if m == nil {
		return
	}
	m.engineExits.WithLabelValues(result).Inc()
}

// SetEndpointsParsed records the endpoint count of the latest specification
func (m *Metrics) SetEndpointsParsed(n int) {
	if m == nil {
		return
	}
	m.endpointsParsed.Set(float64(n))
}

// RecordSmoke counts one smoke check request
func (m *Metrics) RecordSmoke(status string) {
	if m == nil {
		return
	}
	m.smokeRequests.WithLabelValues(status).Inc()
}
