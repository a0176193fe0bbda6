package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/saetre/arx/blobstore"
	"github.com/saetre/arx/internal/cache"
	"github.com/saetre/arx/internal/resource"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/snapshot"
)

// Default capture thresholds.
const (
	DefaultDatasetRatio  = 0.2
	DefaultSnapshotRatio = 0.8
	DefaultBudget        = 64 << 20
)

// Config configures a History.
type Config struct {
	// DatasetRatio caps captured tables at DatasetRatio * rows classes.
	DatasetRatio float64
	// SnapshotRatio caps captured tables at SnapshotRatio * records of
	// the ancestor snapshot they could be replayed from.
	SnapshotRatio float64
	// Budget is the byte capacity of the in-memory snapshot cache.
	Budget int64
	// Compression is applied to encoded snapshots.
	Compression snapshot.Compression
	// Store receives every captured snapshot when set.
	Store blobstore.Store
	// RunID prefixes blob names. Defaults to a random UUID.
	RunID string
	// Resources accounts cache memory and paces spill IO. May be nil.
	Resources *resource.Controller
}

// DefaultConfig returns the default thresholds and budget.
func DefaultConfig() Config {
	return Config{
		DatasetRatio:  DefaultDatasetRatio,
		SnapshotRatio: DefaultSnapshotRatio,
		Budget:        DefaultBudget,
		Compression:   snapshot.CompressionLZ4,
	}
}

// Meta describes a stored snapshot without decoding it.
type Meta struct {
	Levels     model.Levels
	Projection *model.Projection
	Records    int
	Bytes      int
	key        string
	blob       string
}

// Stats are cumulative history counters.
type Stats struct {
	Captured int64
	Skipped  int64
	Evicted  int64
	Spilled  int64
	Reloaded int64
	// Dropped counts snapshots removed because their blob vanished or
	// failed to decode.
	Dropped int64

	// memory cache lookups
	CacheHits   int64
	CacheMisses int64
}

// Observer receives history events. Methods must not call back into the
// History.
type Observer interface {
	// OnEvict is called when a snapshot leaves the memory cache. spilled
	// reports whether it can still be reloaded from the blob store.
	OnEvict(levels model.Levels, bytes int, spilled bool)
	// OnSpill is called after a snapshot blob was written or failed to.
	OnSpill(ctx context.Context, levels model.Levels, blob string, bytes int, err error)
	// OnReload is called after a snapshot was read back from the blob store.
	OnReload(ctx context.Context, levels model.Levels, blob string, bytes int, err error)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) OnEvict(model.Levels, int, bool)                              {}
func (NoopObserver) OnSpill(context.Context, model.Levels, string, int, error)  {}
func (NoopObserver) OnReload(context.Context, model.Levels, string, int, error) {}

// Option configures a History.
type Option func(*History)

// WithObserver sets the receiver of history events.
func WithObserver(o Observer) Option {
	return func(h *History) {
		if o != nil {
			h.observer = o
		}
	}
}

// History stores snapshots of earlier transformations. It is safe for
// concurrent use.
type History struct {
	cfg    Config
	rows   int
	reqs     model.Requirements
	observer Observer

	mu    sync.Mutex
	index map[string]*Meta
	lru   *cache.LRU
	stats Stats
}

// ErrMismatch is returned when a snapshot does not match the history's
// requirements.
var ErrMismatch = errors.New("snapshot does not match history")

// New creates a history for a dataset of rows rows aggregated with reqs.
func New(rows int, reqs model.Requirements, cfg Config, opts ...Option) *History {
	def := DefaultConfig()
	if cfg.DatasetRatio <= 0 {
		cfg.DatasetRatio = def.DatasetRatio
	}
	if cfg.SnapshotRatio <= 0 {
		cfg.SnapshotRatio = def.SnapshotRatio
	}
	if cfg.Budget <= 0 {
		cfg.Budget = def.Budget
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	h := &History{
		cfg:      cfg,
		rows:     rows,
		reqs:     reqs,
		observer: NoopObserver{},
		index:    make(map[string]*Meta),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.lru = cache.NewLRU(cfg.Budget, cfg.Resources, h.evicted)
	return h
}

// RunID returns the prefix of blob names written by h.
func (h *History) RunID() string { return h.cfg.RunID }

func key(levels model.Levels, p *model.Projection) string {
	return levels.Key() + "/" + p.Key()
}

func (h *History) blobName(k string) string {
	name := strings.NewReplacer("/", "_", ",", "-").Replace(k)
	return h.cfg.RunID + "/" + name + ".snap"
}

// evicted runs under h.mu via lru.Set.
func (h *History) evicted(k string, value []byte) {
	h.stats.Evicted++
	m, ok := h.index[k]
	if !ok {
		return
	}
	spilled := m.blob != ""
	if !spilled {
		delete(h.index, k)
	}
	h.observer.OnEvict(m.Levels, len(value), spilled)
}

// ShouldCapture reports whether a table with the given number of classes,
// built for levels and p, is worth storing.
func (h *History) ShouldCapture(classes int, levels model.Levels, p *model.Projection) bool {
	ok := h.shouldCapture(classes, levels, p)
	if !ok {
		h.mu.Lock()
		h.stats.Skipped++
		h.mu.Unlock()
	}
	return ok
}

func (h *History) shouldCapture(classes int, levels model.Levels, p *model.Projection) bool {
	if float64(classes) > h.cfg.DatasetRatio*float64(h.rows) {
		return false
	}
	h.mu.Lock()
	_, exists := h.index[key(levels, p)]
	h.mu.Unlock()
	if exists {
		return false
	}
	if anc, ok := h.Find(levels, p); ok {
		return float64(classes) <= h.cfg.SnapshotRatio*float64(anc.Records)
	}
	return true
}

// Put encodes s and stores it. With a blob store configured the blob is
// written before the snapshot becomes visible. ok is false when the
// snapshot fit neither the cache nor a blob store.
func (h *History) Put(ctx context.Context, s *snapshot.Snapshot) (meta Meta, ok bool, err error) {
	if s.Requirements() != h.reqs {
		return Meta{}, false, fmt.Errorf("%w: requirements %s, expected %s", ErrMismatch, s.Requirements(), h.reqs)
	}
	blob, err := snapshot.Marshal(s, h.cfg.Compression)
	if err != nil {
		return Meta{}, false, err
	}

	k := key(s.Levels(), s.Projection())
	m := &Meta{
		Levels:     s.Levels().Clone(),
		Projection: s.Projection(),
		Records:    s.Len(),
		Bytes:      len(blob),
		key:        k,
	}

	if h.cfg.Store != nil {
		name := h.blobName(k)
		if err := h.cfg.Resources.WaitIO(ctx, len(blob)); err != nil {
			return Meta{}, false, err
		}
		err := h.cfg.Store.Put(ctx, name, blob)
		h.observer.OnSpill(ctx, m.Levels, name, len(blob), err)
		if err != nil {
			return Meta{}, false, fmt.Errorf("spill snapshot %s: %w", m.Levels, err)
		}
		m.blob = name
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg.Store != nil {
		h.stats.Spilled++
	}
	cached := h.lru.Set(k, blob)
	if !cached && m.blob == "" {
		h.stats.Skipped++
		return Meta{}, false, nil
	}
	h.index[k] = m
	h.stats.Captured++
	return *m, true, nil
}

// Find returns the stored snapshot with the fewest records whose level
// vector is generalized by levels under the same projection.
func (h *History) Find(levels model.Levels, p *model.Projection) (Meta, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var best *Meta
	for _, m := range h.index {
		if !m.Projection.Equal(p) || !levels.Generalizes(m.Levels) {
			continue
		}
		if best == nil || m.Records < best.Records || (m.Records == best.Records && m.key < best.key) {
			best = m
		}
	}
	if best == nil {
		return Meta{}, false
	}
	return *best, true
}

// Load decodes the snapshot described by m, reloading it from the blob
// store on cache miss. A snapshot that vanished from both, or whose blob
// fails to decode, is dropped; see Unusable.
func (h *History) Load(ctx context.Context, m Meta) (*snapshot.Snapshot, error) {
	h.mu.Lock()
	blob, ok := h.lru.Get(m.key)
	h.mu.Unlock()

	if !ok {
		if m.blob == "" {
			h.forget(m.key)
			return nil, fmt.Errorf("snapshot %s: %w", m.Levels, blobstore.ErrNotFound)
		}
		var err error
		blob, err = h.cfg.Store.Get(ctx, m.blob)
		h.observer.OnReload(ctx, m.Levels, m.blob, len(blob), err)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				h.forget(m.key)
			}
			return nil, fmt.Errorf("reload snapshot %s: %w", m.Levels, err)
		}
		h.mu.Lock()
		h.stats.Reloaded++
		h.lru.Set(m.key, blob)
		h.mu.Unlock()
	}

	s, err := snapshot.Unmarshal(blob)
	if err != nil {
		h.forget(m.key)
		return nil, fmt.Errorf("decode snapshot %s: %w", m.Levels, err)
	}
	return s, nil
}

// Unusable reports whether err from Load means the snapshot was dropped
// and another input should be tried.
func Unusable(err error) bool {
	return errors.Is(err, blobstore.ErrNotFound) ||
		errors.Is(err, snapshot.ErrCorrupt) ||
		errors.Is(err, snapshot.ErrIncompatibleFormat)
}

// forget drops k from the index and the memory cache.
func (h *History) forget(k string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.index[k]; ok {
		h.stats.Dropped++
	}
	delete(h.index, k)
	h.lru.Remove(k)
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.index)
}

// CachedBytes returns the encoded bytes held in memory.
func (h *History) CachedBytes() int64 {
	return h.lru.Size()
}

// Stats returns a copy of the counters.
func (h *History) Stats() Stats {
	h.mu.Lock()
	st := h.stats
	h.mu.Unlock()
	st.CacheHits, st.CacheMisses, _ = h.lru.Stats()
	return st
}

// Clear drops every snapshot and deletes the blobs this run wrote.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	var blobs []string
	for _, m := range h.index {
		if m.blob != "" {
			blobs = append(blobs, m.blob)
		}
	}
	clear(h.index)
	h.lru.Purge()
	h.mu.Unlock()

	var errs []error
	for _, name := range blobs {
		if err := h.cfg.Store.Delete(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
