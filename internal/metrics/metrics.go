// Package metrics exposes run counters for the daemon's /metrics endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dailydm"

// Run outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Recorder holds the run metrics on its own registry
type Recorder struct {
	registry *prometheus.Registry

	RunsTotal          *prometheus.CounterVec
	RunDurationSeconds prometheus.Histogram
	LastSuccess        prometheus.Gauge
	RunsInProgress     prometheus.Gauge
}

// NewRecorder creates a registry with the run metrics plus the Go and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	r := &Recorder{registry: reg}

	r.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of runs by outcome",
		},
		[]string{"outcome"},
	)

	r.RunDurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of completed runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8), // 5s to ~10min
		},
	)

	r.LastSuccess = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		},
	)

	r.RunsInProgress = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_progress",
			Help:      "Number of runs currently executing",
		},
	)

	// Expose every outcome from the first scrape
	for _, outcome := range []string{OutcomeSuccess, OutcomeFailure, OutcomeSkipped} {
		r.RunsTotal.WithLabelValues(outcome)
	}

	return r
}

// RunStarted marks a run as executing
func (r *Recorder) RunStarted() {
	r.RunsInProgress.Inc()
}

// RunFinished records a completed run
func (r *Recorder) RunFinished(success bool, duration time.Duration, finishedAt time.Time) {
	r.RunsInProgress.Dec()
	r.RunDurationSeconds.Observe(duration.Seconds())
	if success {
		r.RunsTotal.WithLabelValues(OutcomeSuccess).Inc()
		r.LastSuccess.Set(float64(finishedAt.Unix()))
		return
	}
	r.RunsTotal.WithLabelValues(OutcomeFailure).Inc()
}

// RunSkipped records a trigger that was refused without running
func (r *Recorder) RunSkipped() {
	r.RunsTotal.WithLabelValues(OutcomeSkipped).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
