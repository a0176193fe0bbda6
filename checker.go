package arx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/saetre/arx/dictionary"
	"github.com/saetre/arx/groupify"
	"github.com/saetre/arx/hierarchy"
	"github.com/saetre/arx/history"
	"github.com/saetre/arx/internal/resource"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/snapshot"
	"github.com/saetre/arx/subset"
	"github.com/saetre/arx/transform"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Data is the raw input of a Checker.
type Data = transform.Data

// Candidate is one transformation to evaluate.
type Candidate struct {
	Levels     model.Levels
	Projection *model.Projection
}

// Result is the outcome of one transformation.
type Result struct {
	// Table holds the equivalence classes. It is read-only. Tables returned
	// by Check are recycled after the next Check call.
	Table    *groupify.Table
	Levels   model.Levels
	Mode     model.Mode
	Classes  int
	Scanned  int
	Duration time.Duration
	// Captured reports whether a snapshot of Table was stored.
	Captured bool
}

// Checker evaluates transformations of one dataset, reusing earlier
// results through rollup and snapshot replay.
//
// Check is serialized and keeps its result as the predecessor of the next
// call. CheckAll runs candidates concurrently on private engines and never
// touches that predecessor.
type Checker struct {
	data        *transform.Data
	hierarchies *hierarchy.Set
	reqs        model.Requirements
	opts        options

	values  *dictionary.Dictionary
	freqs   *dictionary.Dictionary
	rc      *resource.Controller
	history *history.History // nil if snapshots are disabled
	planner *history.Planner
	logger  *Logger

	// state guards against Reset while CheckAll runs
	state sync.RWMutex

	mu     sync.Mutex
	engine *transform.Engine
	live   *groupify.Table
	spare  *groupify.Table
}

// New creates a checker for data generalized by hierarchies, aggregating the
// statistics named by reqs.
func New(data *Data, hierarchies *hierarchy.Set, reqs model.Requirements, optFns ...Option) (*Checker, error) {
	if data == nil || hierarchies == nil {
		return nil, fmt.Errorf("%w: data and hierarchies are required", ErrInvalidArgument)
	}
	if !reqs.Valid() {
		return nil, translateError(&transform.ErrInvalidRequirements{Requirements: reqs})
	}
	dims := hierarchies.Dimensions()
	for i, row := range data.Rows {
		if len(row) != dims {
			return nil, &ErrDimensionMismatch{
				Expected: dims,
				Actual:   len(row),
				cause:    fmt.Errorf("row %d", i),
			}
		}
	}
	if data.Subset != nil {
		if _, ok := data.Subset.(*subset.Subset); !ok {
			// evaluate predicates once instead of per transformation
			d := *data
			d.Subset = subset.FromSelector(len(d.Rows), d.Subset)
			data = &d
		}
	}
	if err := data.Validate(hierarchies, reqs); err != nil {
		return nil, translateError(err)
	}

	o := applyOptions(optFns)
	c := &Checker{
		data:        data,
		hierarchies: hierarchies,
		reqs:        reqs,
		opts:        o,
		values:      dictionary.New(),
		freqs:       dictionary.New(),
		logger:      o.logger.WithRequirements(reqs),
		rc: resource.NewController(resource.Config{
			MemoryBudget:  o.budget,
			Workers:       int64(o.workers),
			IOBytesPerSec: o.ioBytesPerSec,
		}),
	}

	if o.snapshots {
		c.history = history.New(data.Len(), reqs, history.Config{
			DatasetRatio:  o.datasetRatio,
			SnapshotRatio: o.snapshotRatio,
			Budget:        o.budget,
			Compression:   o.compression,
			Store:         o.store,
			RunID:         o.runID,
			Resources:     c.rc,
		}, history.WithObserver(&observer{logger: c.logger, metrics: o.metricsCollector}))
		c.logger = c.logger.WithRunID(c.history.RunID())
	}
	c.planner = history.NewPlanner(c.history)

	engine, err := c.newEngine()
	if err != nil {
		return nil, err
	}
	c.engine = engine
	return c, nil
}

func (c *Checker) newEngine() (*transform.Engine, error) {
	e, err := transform.New(c.data, c.hierarchies, c.reqs, c.values, c.freqs)
	return e, translateError(err)
}

// Requirements returns the statistics the checker aggregates.
func (c *Checker) Requirements() model.Requirements { return c.reqs }

func (c *Checker) checkLevels(levels model.Levels) error {
	if dims := c.hierarchies.Dimensions(); len(levels) != dims {
		return &ErrDimensionMismatch{Expected: dims, Actual: len(levels)}
	}
	return translateError(c.hierarchies.CheckLevels(levels))
}

// Check transforms the dataset to levels under projection p. It reuses the
// previous result when that is an ancestor, or a stored snapshot, and
// falls back to a full scan otherwise.
func (c *Checker) Check(ctx context.Context, levels model.Levels, p *model.Projection) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkLevels(levels); err != nil {
		return nil, err
	}

	c.state.RLock()
	defer c.state.RUnlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.run(ctx, c.engine, c.live, c.spare, levels, p)
	if err != nil {
		return nil, err
	}
	// the old predecessor becomes the next output buffer
	c.spare, c.live = c.live, res.Table
	return res, nil
}

// CheckAll evaluates candidates concurrently, bounded by the worker limit.
// Results are returned in candidate order. Each run scans the raw rows or
// replays a stored snapshot. Once ctx is done no further candidates start;
// running scans complete.
func (c *Checker) CheckAll(ctx context.Context, candidates []Candidate) ([]*Result, error) {
	for _, cand := range candidates {
		if err := c.checkLevels(cand.Levels); err != nil {
			return nil, err
		}
	}

	c.state.RLock()
	defer c.state.RUnlock()

	results := make([]*Result, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, cand := range candidates {
		if err := c.rc.AcquireWorker(gctx); err != nil {
			break
		}
		g.Go(func() error {
			defer c.rc.ReleaseWorker()
			engine, err := c.newEngine()
			if err != nil {
				return err
			}
			res, err := c.run(gctx, engine, nil, nil, cand.Levels, cand.Projection)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// run plans and executes one transformation into out (allocated if nil).
func (c *Checker) run(ctx context.Context, e *transform.Engine, live, out *groupify.Table, levels model.Levels, p *model.Projection) (*Result, error) {
	ctx, span := c.opts.tracer.Start(ctx, "arx.Check",
		trace.WithAttributes(
			attribute.String("arx.levels", levels.String()),
			attribute.String("arx.projection", p.Key()),
			attribute.String("arx.requirements", c.reqs.String()),
		),
	)
	defer span.End()

	start := time.Now()
	plan, err := c.planner.Plan(ctx, live, c.reqs, levels, p)
	if err != nil {
		err = translateError(err)
		c.finish(ctx, span, levels, model.ModeFresh, nil, start, err)
		return nil, err
	}

	tr, err := e.Run(transform.Task{
		Mode:       plan.Mode,
		Levels:     levels,
		Projection: p,
		Source:     plan.Source,
		Snapshot:   plan.Snapshot,
	}, out)
	if err != nil {
		err = translateError(err)
		c.finish(ctx, span, levels, plan.Mode, nil, start, err)
		return nil, err
	}

	res := &Result{
		Table:   tr.Table,
		Levels:  levels.Clone(),
		Mode:    tr.Mode,
		Classes: tr.Table.Len(),
		Scanned: tr.Scanned,
	}
	res.Captured = c.capture(ctx, tr.Table)
	res.Duration = time.Since(start)
	c.finish(ctx, span, levels, plan.Mode, res, start, nil)
	return res, nil
}

// capture stores a snapshot of t when the history deems it worthwhile.
// Capture and spill failures are logged and counted, not returned.
func (c *Checker) capture(ctx context.Context, t *groupify.Table) bool {
	if c.history == nil {
		return false
	}
	levels, p := t.Levels(), t.Projection()
	if !c.history.ShouldCapture(t.Len(), levels, p) {
		c.opts.metricsCollector.RecordSnapshot(t.Len(), false)
		return false
	}
	_, ok, err := c.history.Put(ctx, snapshot.Capture(t, c.values, c.freqs))
	c.logger.LogSnapshot(ctx, levels, t.Len(), ok, err)
	c.opts.metricsCollector.RecordSnapshot(t.Len(), ok && err == nil)
	return ok && err == nil
}

func (c *Checker) finish(ctx context.Context, span trace.Span, levels model.Levels, mode model.Mode, res *Result, start time.Time, err error) {
	d := time.Since(start)
	classes, scanned := 0, 0
	if res != nil {
		classes, scanned = res.Classes, res.Scanned
	}
	c.opts.metricsCollector.RecordCheck(mode, classes, d, err)
	c.logger.LogTransform(ctx, levels, mode, classes, scanned, d, err)

	span.SetAttributes(attribute.String("arx.mode", mode.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.Int("arx.classes", classes),
		attribute.Int("arx.scanned", scanned),
	)
}

// SnapshotStats returns the snapshot history counters.
func (c *Checker) SnapshotStats() history.Stats {
	if c.history == nil {
		return history.Stats{}
	}
	return c.history.Stats()
}

// Snapshots returns the number of stored snapshots.
func (c *Checker) Snapshots() int {
	if c.history == nil {
		return 0
	}
	return c.history.Len()
}

// Reset drops the predecessor table and all snapshots, deleting the blobs
// this checker spilled. It waits for running CheckAll calls.
func (c *Checker) Reset(ctx context.Context) error {
	c.state.Lock()
	defer c.state.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.live, c.spare = nil, nil
	if c.history == nil {
		return nil
	}
	err := c.history.Clear(ctx)
	// snapshots were the only holders of dictionary codes
	c.values.Clear()
	c.freqs.Clear()
	return translateError(err)
}

// observer forwards history events to the logger and metrics collector.
type observer struct {
	logger  *Logger
	metrics MetricsCollector
}

func (o *observer) OnEvict(levels model.Levels, bytes int, spilled bool) {
	o.logger.LogEviction(levels, bytes, spilled)
	o.metrics.RecordEviction(bytes)
}

func (o *observer) OnSpill(ctx context.Context, levels model.Levels, blob string, bytes int, err error) {
	o.logger.LogSpill(ctx, "write", levels, blob, bytes, err)
	o.metrics.RecordSpill("write", bytes, err)
}

func (o *observer) OnReload(ctx context.Context, levels model.Levels, blob string, bytes int, err error) {
	o.logger.LogSpill(ctx, "reload", levels, blob, bytes, err)
	o.metrics.RecordSpill("reload", bytes, err)
}
