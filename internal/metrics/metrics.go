// Package metrics exposes Prometheus collectors for pipeline runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pnid"

// Run outcomes recorded by RecordRun.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid_input"
	StatusError   = "error"
)

// Metrics records per-stage timings and result sizes. A nil *Metrics is
// valid and records nothing, so callers never need to guard their calls.
type Metrics struct {
	runs      *prometheus.CounterVec
	stage     *prometheus.HistogramVec
	pipes     prometheus.Histogram
	unmapped  prometheus.Counter
	skipped   *prometheus.CounterVec
	vertices  *prometheus.HistogramVec
	imageSize prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"status"}),

		stage: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9), // 1ms to ~65s
		}, []string{"stage"}),

		pipes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidate_pipes",
			Help:      "Candidate pipes emitted per run",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),

		unmapped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmapped_components_total",
			Help:      "Components that found no vertex within the snap tolerance",
		}),

		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_pairs_total",
			Help:      "Component pairs rejected by the path resolver",
		}, []string{"reason"}),

		vertices: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_vertices",
			Help:      "Skeleton graph vertices per run",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"kind"}),

		imageSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_megapixels",
			Help:      "Working image size after downscaling",
			Buckets:   []float64{0.25, 1, 4, 16, 64},
		}),
	}
}

// ObserveStage records how long a named stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stage.WithLabelValues(stage).Observe(d.Seconds())
}

// Stage starts timing a stage; call the returned func when it ends.
func (m *Metrics) Stage(stage string) func() {
	start := time.Now()
	return func() { m.ObserveStage(stage, time.Since(start)) }
}

// RecordRun counts a finished run.
func (m *Metrics) RecordRun(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

// RecordResult records the sizes of a successful run.
func (m *Metrics) RecordResult(pipes, unmapped int, skipped map[string]int) {
	if m == nil {
		return
	}
	m.pipes.Observe(float64(pipes))
	m.unmapped.Add(float64(unmapped))
	for reason, n := range skipped {
		m.skipped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordGraph records vertex counts by kind.
func (m *Metrics) RecordGraph(junctions, endpoints int) {
	if m == nil {
		return
	}
	m.vertices.WithLabelValues("junction").Observe(float64(junctions))
	m.vertices.WithLabelValues("endpoint").Observe(float64(endpoints))
}

// RecordImage records the working image dimensions.
func (m *Metrics) RecordImage(width, height int) {
	if m == nil {
		return
	}
	m.imageSize.Observe(float64(width) * float64(height) / 1e6)
}
