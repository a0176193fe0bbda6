package arx

import (
	"sync/atomic"
	"time"

	"github.com/saetre/arx/model"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// PrometheusCollector for a ready-made Prometheus integration.
type MetricsCollector interface {
	// RecordCheck is called after each transformation.
	// classes is the number of equivalence classes produced, err is nil if
	// successful.
	RecordCheck(mode model.Mode, classes int, duration time.Duration, err error)

	// RecordSnapshot is called after each capture decision. captured is
	// false when the table was too large to be worth storing.
	RecordSnapshot(records int, captured bool)

	// RecordEviction is called when a snapshot leaves the memory cache.
	RecordEviction(bytes int)

	// RecordSpill is called after a snapshot blob was written to or read
	// from the blob store.
	RecordSpill(op string, bytes int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCheck(model.Mode, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshot(int, bool)                          {}
func (NoopMetricsCollector) RecordEviction(int)                                {}
func (NoopMetricsCollector) RecordSpill(string, int, error)                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CheckCount        atomic.Int64
	CheckErrors       atomic.Int64
	CheckTotalNanos   atomic.Int64
	FreshCount        atomic.Int64
	RollupCount       atomic.Int64
	SnapshotCount     atomic.Int64
	Classes           atomic.Int64
	SnapshotsCaptured atomic.Int64
	SnapshotsSkipped  atomic.Int64
	Evictions         atomic.Int64
	EvictedBytes      atomic.Int64
	Spills            atomic.Int64
	SpillErrors       atomic.Int64
	SpillBytes        atomic.Int64
}

// RecordCheck implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheck(mode model.Mode, classes int, duration time.Duration, err error) {
	b.CheckCount.Add(1)
	b.CheckTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CheckErrors.Add(1)
		return
	}
	b.Classes.Add(int64(classes))
	switch mode {
	case model.ModeFresh:
		b.FreshCount.Add(1)
	case model.ModeRollup:
		b.RollupCount.Add(1)
	case model.ModeSnapshot:
		b.SnapshotCount.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(_ int, captured bool) {
	if captured {
		b.SnapshotsCaptured.Add(1)
	} else {
		b.SnapshotsSkipped.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(bytes int) {
	b.Evictions.Add(1)
	b.EvictedBytes.Add(int64(bytes))
}

// RecordSpill implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSpill(_ string, bytes int, err error) {
	b.Spills.Add(1)
	if err != nil {
		b.SpillErrors.Add(1)
		return
	}
	b.SpillBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CheckCount:        b.CheckCount.Load(),
		CheckErrors:       b.CheckErrors.Load(),
		CheckAvgNanos:     b.getAvgCheckNanos(),
		FreshCount:        b.FreshCount.Load(),
		RollupCount:       b.RollupCount.Load(),
		SnapshotCount:     b.SnapshotCount.Load(),
		Classes:           b.Classes.Load(),
		SnapshotsCaptured: b.SnapshotsCaptured.Load(),
		SnapshotsSkipped:  b.SnapshotsSkipped.Load(),
		Evictions:         b.Evictions.Load(),
		EvictedBytes:      b.EvictedBytes.Load(),
		Spills:            b.Spills.Load(),
		SpillErrors:       b.SpillErrors.Load(),
		SpillBytes:        b.SpillBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgCheckNanos() int64 {
	count := b.CheckCount.Load()
	if count == 0 {
		return 0
	}
	return b.CheckTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CheckCount        int64
	CheckErrors       int64
	CheckAvgNanos     int64
	FreshCount        int64
	RollupCount       int64
	SnapshotCount     int64
	Classes           int64
	SnapshotsCaptured int64
	SnapshotsSkipped  int64
	Evictions         int64
	EvictedBytes      int64
	Spills            int64
	SpillErrors       int64
	SpillBytes        int64
}
