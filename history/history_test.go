package history

import (
	"context"
	"sync"
	"testing"

	"github.com/saetre/arx/blobstore"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countSnapshot(t *testing.T, records int, levels model.Levels, p *model.Projection) *snapshot.Snapshot {
	t.Helper()
	data := make([]int32, 0, records*2)
	for i := 0; i < records; i++ {
		data = append(data, int32(i), 1)
	}
	s, err := snapshot.FromRecords(model.RequireCount, levels, p, data)
	require.NoError(t, err)
	return s
}

func encodedSize(t *testing.T, s *snapshot.Snapshot) int64 {
	t.Helper()
	b, err := snapshot.Marshal(s, snapshot.CompressionNone)
	require.NoError(t, err)
	return int64(len(b))
}

func put(t *testing.T, h *History, s *snapshot.Snapshot) Meta {
	t.Helper()
	m, ok, err := h.Put(context.Background(), s)
	require.NoError(t, err)
	require.True(t, ok)
	return m
}

func TestNew_Defaults(t *testing.T) {
	h := New(100, model.RequireCount, Config{})
	assert.Equal(t, DefaultDatasetRatio, h.cfg.DatasetRatio)
	assert.Equal(t, DefaultSnapshotRatio, h.cfg.SnapshotRatio)
	assert.Equal(t, int64(DefaultBudget), h.cfg.Budget)
	assert.NotEmpty(t, h.RunID())

	h = New(100, model.RequireCount, Config{RunID: "run-1"})
	assert.Equal(t, "run-1", h.RunID())
	assert.Equal(t, "run-1/0.2.1_1-2.snap", h.blobName(key(model.Levels{0, 2, 1}, model.NewProjection(1, 2))))
}

func TestShouldCapture(t *testing.T) {
	h := New(100, model.RequireCount, Config{DatasetRatio: 0.2, SnapshotRatio: 0.8})

	assert.True(t, h.ShouldCapture(20, model.Levels{0, 0}, nil))
	assert.False(t, h.ShouldCapture(21, model.Levels{0, 0}, nil))

	put(t, h, countSnapshot(t, 10, model.Levels{0, 0}, nil))

	// already stored
	assert.False(t, h.ShouldCapture(5, model.Levels{0, 0}, nil))

	// ancestor with 10 records caps descendants at 8 classes
	assert.True(t, h.ShouldCapture(8, model.Levels{1, 0}, nil))
	assert.False(t, h.ShouldCapture(9, model.Levels{1, 0}, nil))

	// no ancestor under a different projection
	assert.True(t, h.ShouldCapture(15, model.Levels{1, 0}, model.NewProjection(1)))

	assert.Equal(t, int64(3), h.Stats().Skipped)
}

func TestFind_SmallestAncestor(t *testing.T) {
	h := New(1000, model.RequireCount, Config{})
	put(t, h, countSnapshot(t, 10, model.Levels{0, 0}, nil))
	put(t, h, countSnapshot(t, 5, model.Levels{1, 0}, nil))
	put(t, h, countSnapshot(t, 7, model.Levels{0, 1}, nil))
	put(t, h, countSnapshot(t, 2, model.Levels{1, 1}, model.NewProjection(1)))
	require.Equal(t, 4, h.Len())

	tests := []struct {
		levels model.Levels
		proj   *model.Projection
		want   model.Levels
		found  bool
	}{
		{model.Levels{0, 0}, nil, model.Levels{0, 0}, true},
		{model.Levels{0, 1}, nil, model.Levels{0, 1}, true},
		{model.Levels{1, 1}, nil, model.Levels{1, 0}, true},
		{model.Levels{2, 3}, nil, model.Levels{1, 0}, true},
		{model.Levels{1, 1}, model.NewProjection(1), model.Levels{1, 1}, true},
		{model.Levels{1, 0}, model.NewProjection(1), nil, false},
		{model.Levels{0, 0}, model.NewProjection(0), nil, false},
	}
	for _, tt := range tests {
		m, ok := h.Find(tt.levels, tt.proj)
		require.Equal(t, tt.found, ok, "find %s", tt.levels)
		if ok {
			assert.Equal(t, tt.want, m.Levels, "find %s", tt.levels)
		}
	}
}

func TestPut_Mismatch(t *testing.T) {
	h := New(10, model.RequireCount|model.RequireSecondaryCount, Config{})
	_, _, err := h.Put(context.Background(), countSnapshot(t, 1, model.Levels{0}, nil))
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestLoad_RoundTrip(t *testing.T) {
	h := New(100, model.RequireCount, Config{Compression: snapshot.CompressionZSTD})
	s := countSnapshot(t, 50, model.Levels{1, 2}, model.NewProjection(0))
	m := put(t, h, s)
	assert.Equal(t, 50, m.Records)

	got, err := h.Load(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, s.Data(), got.Data())
	assert.Equal(t, s.Levels(), got.Levels())
	assert.True(t, s.Projection().Equal(got.Projection()))

	st := h.Stats()
	assert.Equal(t, int64(1), st.CacheHits)
	assert.Equal(t, int64(0), st.CacheMisses)
}

func TestForget_DropsCachedCopy(t *testing.T) {
	h := New(100, model.RequireCount, Config{})
	m := put(t, h, countSnapshot(t, 10, model.Levels{0, 0}, nil))
	require.Positive(t, h.CachedBytes())

	h.forget(m.key)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, int64(0), h.CachedBytes())
	assert.Equal(t, int64(1), h.Stats().Dropped)

	_, ok := h.Find(model.Levels{1, 1}, nil)
	assert.False(t, ok)
}

func TestLoad_CorruptBlobDropped(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	a := countSnapshot(t, 10, model.Levels{0, 0}, nil)
	size := encodedSize(t, a)

	h := New(1000, model.RequireCount, Config{Budget: size + size/2, Compression: snapshot.CompressionNone, Store: store, RunID: "r"})
	ma := put(t, h, a)
	put(t, h, countSnapshot(t, 10, model.Levels{1, 1}, nil)) // evicts a
	require.NoError(t, store.Put(ctx, ma.blob, []byte("garbage")))

	_, err := h.Load(ctx, ma)
	assert.ErrorIs(t, err, snapshot.ErrCorrupt)
	assert.True(t, Unusable(err))
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, int64(1), h.Stats().Dropped)
}

func TestUnusable(t *testing.T) {
	assert.True(t, Unusable(blobstore.ErrNotFound))
	assert.True(t, Unusable(snapshot.ErrIncompatibleFormat))
	assert.False(t, Unusable(context.Canceled))
	assert.False(t, Unusable(nil))
}

func TestEviction_WithoutStore(t *testing.T) {
	a := countSnapshot(t, 10, model.Levels{0, 0}, nil)
	b := countSnapshot(t, 10, model.Levels{1, 0}, nil)
	size := encodedSize(t, a)

	h := New(1000, model.RequireCount, Config{Budget: size + size/2, Compression: snapshot.CompressionNone})
	ma := put(t, h, a)
	put(t, h, b)

	assert.Equal(t, 1, h.Len())
	_, ok := h.Find(model.Levels{0, 0}, nil)
	assert.False(t, ok)

	_, err := h.Load(context.Background(), ma)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.Equal(t, int64(1), h.Stats().Evicted)
	assert.LessOrEqual(t, h.CachedBytes(), size+size/2)
}

func TestSpill_ReloadFromStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	a := countSnapshot(t, 10, model.Levels{0, 0}, nil)
	b := countSnapshot(t, 10, model.Levels{1, 0}, nil)
	size := encodedSize(t, a)

	h := New(1000, model.RequireCount, Config{
		Budget:      size + size/2,
		Compression: snapshot.CompressionNone,
		Store:       store,
		RunID:       "run",
	})
	ma := put(t, h, a)
	put(t, h, b)

	// evicted from memory but still indexed
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 2, store.Len())
	names, err := store.List(ctx, "run/")
	require.NoError(t, err)
	assert.Equal(t, []string{"run/0.0_.snap", "run/1.0_.snap"}, names)

	got, err := h.Load(ctx, ma)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), got.Data())

	st := h.Stats()
	assert.Equal(t, int64(1), st.Reloaded)
	assert.Equal(t, int64(1), st.CacheMisses)
	assert.Equal(t, int64(2), st.Spilled)
	assert.Equal(t, int64(2), st.Captured)

	require.NoError(t, h.Clear(ctx))
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int64(0), h.CachedBytes())
}

func TestSpill_VanishedBlob(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	a := countSnapshot(t, 10, model.Levels{0, 0}, nil)
	size := encodedSize(t, a)

	h := New(1000, model.RequireCount, Config{Budget: size + size/2, Compression: snapshot.CompressionNone, Store: store, RunID: "r"})
	ma := put(t, h, a)
	put(t, h, countSnapshot(t, 10, model.Levels{1, 1}, nil))
	require.NoError(t, store.Delete(ctx, ma.blob))

	_, err := h.Load(ctx, ma)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.Equal(t, 1, h.Len())
}

func TestHistory_Concurrent(t *testing.T) {
	h := New(1<<20, model.RequireCount, Config{Store: blobstore.NewMemoryStore()})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				levels := model.Levels{i, j}
				_, _, err := h.Put(ctx, countSnapshot(t, 5+j, levels, nil))
				assert.NoError(t, err)
				if m, ok := h.Find(levels, nil); ok {
					_, err := h.Load(ctx, m)
					assert.NoError(t, err)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 160, h.Len())
}

type recordingObserver struct {
	mu       sync.Mutex
	evicted  []string
	spilled  []string
	reloaded []string
}

func (o *recordingObserver) OnEvict(levels model.Levels, _ int, spilled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if spilled {
		o.evicted = append(o.evicted, levels.Key()+"+")
	} else {
		o.evicted = append(o.evicted, levels.Key())
	}
}

func (o *recordingObserver) OnSpill(_ context.Context, _ model.Levels, blob string, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		o.spilled = append(o.spilled, blob)
	}
}

func (o *recordingObserver) OnReload(_ context.Context, _ model.Levels, blob string, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		o.reloaded = append(o.reloaded, blob)
	}
}

func TestObserver(t *testing.T) {
	ctx := context.Background()
	a := countSnapshot(t, 10, model.Levels{0, 0}, nil)
	size := encodedSize(t, a)
	obs := &recordingObserver{}

	h := New(1000, model.RequireCount, Config{
		Budget:      size + size/2,
		Compression: snapshot.CompressionNone,
		Store:       blobstore.NewMemoryStore(),
		RunID:       "obs",
	}, WithObserver(obs))

	ma := put(t, h, a)
	put(t, h, countSnapshot(t, 10, model.Levels{1, 0}, nil))
	_, err := h.Load(ctx, ma)
	require.NoError(t, err)

	assert.Equal(t, []string{"obs/0.0_.snap", "obs/1.0_.snap"}, obs.spilled)
	assert.Equal(t, []string{"0.0+", "1.0+"}, obs.evicted)
	assert.Equal(t, []string{"obs/0.0_.snap"}, obs.reloaded)
}
