package history

import (
	"context"
	"testing"

	"github.com/saetre/arx/blobstore"
	"github.com/saetre/arx/dictionary"
	"github.com/saetre/arx/groupify"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/snapshot"
	"github.com/saetre/arx/testutil"
	"github.com/saetre/arx/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFresh(t *testing.T, f *testutil.Fixture, reqs model.Requirements, levels model.Levels, p *model.Projection) *groupify.Table {
	t.Helper()
	data := &transform.Data{Rows: f.Rows, Sensitive: f.Sensitive, Subset: f.Subset}
	e, err := transform.New(data, f.Hierarchies, reqs, dictionary.New(), dictionary.New())
	require.NoError(t, err)
	res, err := e.Run(transform.Task{Mode: model.ModeFresh, Levels: levels, Projection: p}, nil)
	require.NoError(t, err)
	return res.Table
}

func TestPlanner_Plan(t *testing.T) {
	ctx := context.Background()
	f := testutil.Adult()
	reqs := model.RequireCount

	live := runFresh(t, f, reqs, model.Levels{0, 0, 0}, nil) // 7 classes
	h := New(len(f.Rows), reqs, Config{})
	p := NewPlanner(h)

	t.Run("fresh without inputs", func(t *testing.T) {
		plan, err := p.Plan(ctx, nil, reqs, model.Levels{1, 0, 0}, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ModeFresh, plan.Mode)
	})

	t.Run("rollup from ancestor", func(t *testing.T) {
		plan, err := p.Plan(ctx, live, reqs, model.Levels{1, 0, 0}, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ModeRollup, plan.Mode)
		assert.Same(t, live, plan.Source)
	})

	t.Run("no rollup from non-ancestor", func(t *testing.T) {
		coarse := runFresh(t, f, reqs, model.Levels{1, 1, 2}, nil)
		plan, err := p.Plan(ctx, coarse, reqs, model.Levels{0, 1, 2}, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ModeFresh, plan.Mode)
	})

	t.Run("no rollup across projections", func(t *testing.T) {
		plan, err := p.Plan(ctx, live, reqs, model.Levels{1, 0, 0}, model.NewProjection(2))
		require.NoError(t, err)
		assert.Equal(t, model.ModeFresh, plan.Mode)
	})

	t.Run("no rollup across requirements", func(t *testing.T) {
		plan, err := p.Plan(ctx, live, reqs|model.RequireSecondaryCount, model.Levels{1, 0, 0}, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ModeFresh, plan.Mode)
	})

	// (*,*,819**)-style snapshot with fewer records than the live table
	small := runFresh(t, f, reqs, model.Levels{0, 1, 2}, nil)
	require.Less(t, small.Len(), live.Len())
	put(t, h, snapshot.Capture(small, nil, nil))

	t.Run("snapshot smaller than live table", func(t *testing.T) {
		plan, err := p.Plan(ctx, live, reqs, model.Levels{1, 1, 3}, nil)
		require.NoError(t, err)
		require.Equal(t, model.ModeSnapshot, plan.Mode)
		assert.Equal(t, model.Levels{0, 1, 2}, plan.Snapshot.Levels())
		assert.Equal(t, small.Len(), plan.Snapshot.Len())
	})

	t.Run("snapshot without live table", func(t *testing.T) {
		plan, err := p.Plan(ctx, nil, reqs, model.Levels{0, 1, 5}, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ModeSnapshot, plan.Mode)
	})

	t.Run("live table smaller than snapshot", func(t *testing.T) {
		tiny := runFresh(t, f, reqs, model.Levels{1, 1, 2}, nil)
		require.LessOrEqual(t, tiny.Len(), small.Len())
		plan, err := p.Plan(ctx, tiny, reqs, model.Levels{2, 1, 3}, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ModeRollup, plan.Mode)
	})
}

func TestPlanner_FallsBackWhenSnapshotVanished(t *testing.T) {
	ctx := context.Background()
	f := testutil.Adult()
	reqs := model.RequireCount
	store := blobstore.NewMemoryStore()

	tbl := runFresh(t, f, reqs, model.Levels{0, 1, 2}, nil)
	snap := snapshot.Capture(tbl, nil, nil)
	size := encodedSize(t, snap)

	h := New(len(f.Rows), reqs, Config{Budget: size + size/2, Compression: snapshot.CompressionNone, Store: store})
	m := put(t, h, snap)
	// push it out of memory, then lose the blob
	put(t, h, snapshot.Capture(runFresh(t, f, reqs, model.Levels{1, 1, 3}, nil), nil, nil))
	require.NoError(t, store.Delete(ctx, m.blob))

	plan, err := NewPlanner(h).Plan(ctx, nil, reqs, model.Levels{0, 1, 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ModeFresh, plan.Mode)
	assert.Equal(t, 1, h.Len())
}

func TestPlanner_FallsBackOnCorruptBlob(t *testing.T) {
	ctx := context.Background()
	f := testutil.Adult()
	reqs := model.RequireCount
	store := blobstore.NewMemoryStore()

	live := runFresh(t, f, reqs, model.Levels{0, 0, 0}, nil)
	snap := snapshot.Capture(runFresh(t, f, reqs, model.Levels{0, 1, 2}, nil), nil, nil)
	size := encodedSize(t, snap)

	h := New(len(f.Rows), reqs, Config{Budget: size + size/2, Compression: snapshot.CompressionNone, Store: store})
	m := put(t, h, snap)
	put(t, h, snapshot.Capture(runFresh(t, f, reqs, model.Levels{1, 1, 3}, nil), nil, nil))
	require.NoError(t, store.Put(ctx, m.blob, []byte("ARXS\x07garbage")))

	// the snapshot (6 records) would beat the live table (7 entries)
	plan, err := NewPlanner(h).Plan(ctx, live, reqs, model.Levels{0, 1, 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ModeRollup, plan.Mode)
	assert.Same(t, live, plan.Source)
	assert.Equal(t, 1, h.Len())
}

func TestPlanner_NilHistory(t *testing.T) {
	f := testutil.Adult()
	live := runFresh(t, f, model.RequireCount, model.Levels{0, 0, 0}, nil)
	plan, err := NewPlanner(nil).Plan(context.Background(), live, model.RequireCount, model.Levels{2, 1, 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ModeRollup, plan.Mode)
}
