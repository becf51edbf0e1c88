// Package telemetry holds the exporter's own counters. They live on a
// dedicated registry that is served by the status server and never pushed.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Recorder is safe for concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	reg *prometheus.Registry

	cycles        *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	cycleDuration prometheus.Histogram
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "viewpulse_cycles_total",
			Help: "Fetch-publish cycles by outcome.",
		}, []string{"outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "viewpulse_fetches_total",
			Help: "Retried fetches by endpoint and final outcome.",
		}, []string{"endpoint", "outcome"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "viewpulse_fetch_failures_total",
			Help: "Failed fetch attempts by endpoint and failure kind.",
		}, []string{"endpoint", "kind"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "viewpulse_cycle_duration_seconds",
			Help:    "Wall time of one cycle, excluding the interval wait.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
	r.reg.MustRegister(
		r.cycles, r.fetches, r.fetchFailures, r.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer exposes the registry for promhttp.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

func (r *Recorder) FetchAttemptFailed(endpoint, kind string) {
	if r == nil {
		return
	}
	r.fetchFailures.WithLabelValues(endpoint, kind).Inc()
}

func (r *Recorder) FetchDone(endpoint string, ok bool) {
	if r == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "exhausted"
	}
	r.fetches.WithLabelValues(endpoint, outcome).Inc()
}

// CycleDone records one cycle. outcome is "ok", "sink_error" or "targets_error".
func (r *Recorder) CycleDone(outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(outcome).Inc()
	r.cycleDuration.Observe(took.Seconds())
}
