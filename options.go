package arx

import (
	"log/slog"

	"github.com/saetre/arx/blobstore"
	"github.com/saetre/arx/history"
	"github.com/saetre/arx/snapshot"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/saetre/arx"

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	tracer           trace.Tracer

	snapshots     bool
	budget        int64
	datasetRatio  float64
	snapshotRatio float64
	compression   snapshot.Compression
	store         blobstore.Store
	runID         string

	workers       int
	ioBytesPerSec int64
}

// Option configures a Checker.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &arx.BasicMetricsCollector{}
//	c, _ := arx.New(data, hierarchies, reqs, arx.WithMetricsCollector(metrics))
//	// ... run checks ...
//	stats := metrics.GetStats()
//	fmt.Printf("Checks: %d, rollups: %d\n", stats.CheckCount, stats.RollupCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := arx.NewJSONLogger(slog.LevelDebug)
//	c, _ := arx.New(data, hierarchies, reqs, arx.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithTracer sets the tracer used for Check spans. Defaults to the global
// OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithSnapshotBudget sets the memory budget in bytes for cached snapshots.
func WithSnapshotBudget(bytes int64) Option {
	return func(o *options) {
		o.budget = bytes
	}
}

// WithSnapshotThresholds sets when a table is worth capturing: at most
// dataset * rows classes, and at most snapshot * records of the ancestor
// snapshot it could itself be replayed from.
func WithSnapshotThresholds(dataset, snapshot float64) Option {
	return func(o *options) {
		o.datasetRatio = dataset
		o.snapshotRatio = snapshot
	}
}

// WithoutSnapshots disables snapshot capture and replay.
func WithoutSnapshots() Option {
	return func(o *options) {
		o.snapshots = false
	}
}

// WithBlobStore writes every captured snapshot through to store and
// reloads evicted snapshots from it.
func WithBlobStore(store blobstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithRunID sets the blob name prefix of spilled snapshots. Defaults to a
// random UUID.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// WithCompression sets the compression of encoded snapshots.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithWorkers bounds the number of concurrent transformations in CheckAll.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithSpillRate limits blob store writes to bytesPerSec.
func WithSpillRate(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioBytesPerSec = bytesPerSec
	}
}

func applyOptions(optFns []Option) options {
	def := history.DefaultConfig()
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		tracer:           otel.Tracer(tracerName),
		snapshots:        true,
		budget:           def.Budget,
		datasetRatio:     def.DatasetRatio,
		snapshotRatio:    def.SnapshotRatio,
		compression:      def.Compression,
		workers:          1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
