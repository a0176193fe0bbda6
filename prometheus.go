package arx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saetre/arx/model"
)

// PrometheusCollector exports MetricsCollector events as Prometheus metrics.
type PrometheusCollector struct {
	checks    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	classes   prometheus.Histogram
	snapshots *prometheus.CounterVec
	evictions prometheus.Counter
	spills    *prometheus.CounterVec
	spillSize *prometheus.CounterVec
}

// NewPrometheusCollector creates the collector and registers its metrics on
// reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &PrometheusCollector{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arx",
			Name:      "checks_total",
			Help:      "Transformations by mode and outcome.",
		}, []string{"mode", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arx",
			Name:      "check_duration_seconds",
			Help:      "Transformation latency by mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		classes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arx",
			Name:      "equivalence_classes",
			Help:      "Equivalence classes per transformation.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arx",
			Name:      "snapshots_total",
			Help:      "Snapshot capture decisions.",
		}, []string{"outcome"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arx",
			Name:      "snapshot_evictions_total",
			Help:      "Snapshots evicted from the memory cache.",
		}),
		spills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arx",
			Name:      "snapshot_spills_total",
			Help:      "Snapshot blob transfers by operation and outcome.",
		}, []string{"op", "status"}),
		spillSize: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arx",
			Name:      "snapshot_spill_bytes_total",
			Help:      "Bytes transferred to and from the blob store.",
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{p.checks, p.latency, p.classes, p.snapshots, p.evictions, p.spills, p.spillSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordCheck implements MetricsCollector.
func (p *PrometheusCollector) RecordCheck(mode model.Mode, classes int, d time.Duration, err error) {
	p.checks.WithLabelValues(mode.String(), status(err)).Inc()
	p.latency.WithLabelValues(mode.String()).Observe(d.Seconds())
	if err == nil {
		p.classes.Observe(float64(classes))
	}
}

// RecordSnapshot implements MetricsCollector.
func (p *PrometheusCollector) RecordSnapshot(_ int, captured bool) {
	outcome := "skipped"
	if captured {
		outcome = "captured"
	}
	p.snapshots.WithLabelValues(outcome).Inc()
}

// RecordEviction implements MetricsCollector.
func (p *PrometheusCollector) RecordEviction(int) {
	p.evictions.Inc()
}

// RecordSpill implements MetricsCollector.
func (p *PrometheusCollector) RecordSpill(op string, bytes int, err error) {
	p.spills.WithLabelValues(op, status(err)).Inc()
	if err == nil {
		p.spillSize.WithLabelValues(op).Add(float64(bytes))
	}
}
