package transform

import (
	"fmt"

	"github.com/saetre/arx/dictionary"
	"github.com/saetre/arx/groupify"
	"github.com/saetre/arx/hierarchy"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/snapshot"
)

// Range is a half-open index range [Start, Stop). The zero value selects
// everything.
type Range struct {
	Start, Stop int
}

func (r Range) resolve(n int) (int, int, error) {
	if r.Start == 0 && r.Stop == 0 {
		return 0, n, nil
	}
	if r.Start < 0 || r.Stop < r.Start || r.Stop > n {
		return 0, 0, fmt.Errorf("%w: range [%d,%d) outside [0,%d)", ErrInvalidTask, r.Start, r.Stop, n)
	}
	return r.Start, r.Stop, nil
}

// Task describes one engine invocation.
type Task struct {
	Mode       model.Mode
	Levels     model.Levels
	Projection *model.Projection

	// Rows is the raw row range scanned in ModeFresh.
	Rows Range

	// Source is the predecessor table folded in ModeRollup, restricted to
	// the entry range Entries.
	Source  *groupify.Table
	Entries Range

	// Snapshot is replayed in ModeSnapshot.
	Snapshot *snapshot.Snapshot
}

// Result is the outcome of Run.
type Result struct {
	Table *groupify.Table
	Mode  model.Mode
	// Scanned is the number of rows, entries or records read.
	Scanned int
}

// Engine generalizes and aggregates one input per Run.
type Engine struct {
	data        *Data
	hierarchies *hierarchy.Set
	reqs        model.Requirements
	strategy    strategy

	// per-run state
	columns []int
	maps    [][]int32
	key     []int32
}

// New creates an engine. values and freqs are the dictionaries snapshots
// reference; they are only read by snapshot replay. An unsupported
// requirements combination returns *ErrInvalidRequirements.
func New(data *Data, hierarchies *hierarchy.Set, reqs model.Requirements, values, freqs *dictionary.Dictionary) (*Engine, error) {
	s, err := newStrategy(reqs, data, values, freqs)
	if err != nil {
		return nil, err
	}
	if reqs.Has(model.RequireDistribution) && (values == nil || freqs == nil) {
		return nil, fmt.Errorf("%w: distributions need value and frequency dictionaries", ErrInvalidData)
	}
	return &Engine{
		data:        data,
		hierarchies: hierarchies,
		reqs:        reqs,
		strategy:    s,
	}, nil
}

// Requirements returns the profile the engine aggregates.
func (e *Engine) Requirements() model.Requirements { return e.reqs }

// Run executes t into out, clearing it first, and returns it. A nil out
// allocates a new table. out is owned by the caller and must not be read
// concurrently while Run executes; in rollup mode it must not be t.Source.
func (e *Engine) Run(t Task, out *groupify.Table) (Result, error) {
	if err := e.prepare(t); err != nil {
		return Result{}, err
	}

	if out == nil {
		out = groupify.New(len(e.columns), e.reqs)
	} else {
		if out == t.Source {
			return Result{}, fmt.Errorf("%w: output table is the rollup source", ErrInvalidTask)
		}
		out.Reset(len(e.columns), e.reqs)
	}
	out.SetLevels(t.Levels, t.Projection)

	res := Result{Table: out, Mode: t.Mode}
	var err error
	switch t.Mode {
	case model.ModeFresh:
		res.Scanned, err = e.processRows(t, out)
	case model.ModeRollup:
		res.Scanned, err = e.processTable(t, out)
	case model.ModeSnapshot:
		res.Scanned, err = e.processSnapshot(t, out)
	default:
		err = fmt.Errorf("%w: unknown mode %d", ErrInvalidTask, t.Mode)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// prepare binds the level vector and projection for one run.
func (e *Engine) prepare(t Task) error {
	if err := e.hierarchies.CheckLevels(t.Levels); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	e.columns = append(e.columns[:0], t.Projection.Columns(e.hierarchies.Dimensions())...)
	e.maps = e.maps[:0]
	for _, col := range e.columns {
		e.maps = append(e.maps, e.hierarchies.Dimension(col).Column(t.Levels[col]))
	}
	if cap(e.key) < len(e.columns) {
		e.key = make([]int32, len(e.columns))
	}
	e.key = e.key[:len(e.columns)]
	return nil
}

// generalize writes the generalized key of raw row i into e.key.
func (e *Engine) generalize(i int) []int32 {
	row := e.data.Rows[i]
	for j, col := range e.columns {
		e.key[j] = e.maps[j][row[col]]
	}
	return e.key
}

func (e *Engine) processRows(t Task, out *groupify.Table) (int, error) {
	start, stop, err := t.Rows.resolve(len(e.data.Rows))
	if err != nil {
		return 0, err
	}
	for i := start; i < stop; i++ {
		entry := out.Upsert(e.generalize(i), i)
		e.strategy.row(entry, i)
	}
	return stop - start, nil
}

func (e *Engine) processTable(t Task, out *groupify.Table) (int, error) {
	src := t.Source
	if src == nil {
		return 0, fmt.Errorf("%w: rollup without source table", ErrInvalidTask)
	}
	if src.Requirements() != e.reqs || src.Width() != len(e.columns) {
		return 0, fmt.Errorf("%w: source table shape %s/%d, expected %s/%d",
			ErrInvalidTask, src.Requirements(), src.Width(), e.reqs, len(e.columns))
	}
	start, stop, err := t.Entries.resolve(src.Len())
	if err != nil {
		return 0, err
	}
	for i := start; i < stop; i++ {
		pred := src.Entry(i)
		entry := out.Upsert(e.generalize(pred.Representative), pred.Representative)
		e.strategy.entry(entry, pred)
	}
	return stop - start, nil
}

func (e *Engine) processSnapshot(t Task, out *groupify.Table) (int, error) {
	snap := t.Snapshot
	if snap == nil {
		return 0, fmt.Errorf("%w: replay without snapshot", ErrInvalidTask)
	}
	if snap.Requirements() != e.reqs {
		return 0, fmt.Errorf("%w: snapshot requirements %s, expected %s", ErrInvalidTask, snap.Requirements(), e.reqs)
	}
	n := snap.Len()
	for i := 0; i < n; i++ {
		r := snap.Record(i)
		entry := out.Upsert(e.generalize(r.Representative), r.Representative)
		e.strategy.record(entry, r)
	}
	return n, nil
}
