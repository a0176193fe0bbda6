// Package groupify implements the equivalence-class hash table.
//
// A Table groups generalized tuples: one Entry per distinct key. Entries are
// created on first occurrence, mutated in place afterwards, and recycled by
// Clear, which keeps the bucket array and entry structs for the next run.
//
// A Table is not safe for concurrent use. Once populated it may be read
// concurrently (Find, Entry, Entries) as long as nobody mutates it.
package groupify

import (
	"iter"
	"slices"

	"github.com/saetre/arx/internal/hash"
	"github.com/saetre/arx/model"
)

const (
	defaultBuckets = 64
	// grow when entries exceed buckets * 3/4
	loadNum, loadDen = 3, 4
)

// Entry is one equivalence class.
type Entry struct {
	// Key is the generalized tuple restricted to unmasked dimensions.
	Key []int32
	// Representative is the index of a raw row in this class.
	Representative int
	Count          int
	SecondaryCount int
	// Distribution is nil unless the table tracks distributions.
	Distribution *Distribution

	hash uint64
	next int32 // index+1 of the next entry in the bucket chain
}

// Table is the equivalence-class table.
type Table struct {
	width int
	reqs  model.Requirements

	levels     model.Levels
	projection *model.Projection

	buckets []int32 // index+1 of the chain head, 0 = empty
	entries []*Entry
	n       int

	hasher hash.Int32Hasher // Upsert only
}

// New creates a table for keys of the given width.
func New(width int, reqs model.Requirements) *Table {
	return &Table{
		width:   width,
		reqs:    reqs,
		buckets: make([]int32, defaultBuckets),
	}
}

// Clear drops all entries. Storage is kept for reuse.
func (t *Table) Clear() {
	clear(t.buckets)
	t.n = 0
}

// Reset clears t and rebinds it to a new key width and requirements.
func (t *Table) Reset(width int, reqs model.Requirements) {
	t.Clear()
	t.width = width
	if reqs != t.reqs {
		t.reqs = reqs
		for _, e := range t.entries {
			if !reqs.Has(model.RequireDistribution) {
				e.Distribution = nil
			}
		}
	}
	t.levels = nil
	t.projection = nil
}

// SetLevels records the level vector and projection the table was built for.
func (t *Table) SetLevels(levels model.Levels, projection *model.Projection) {
	t.levels = levels.Clone()
	t.projection = projection
}

// Levels returns the level vector recorded by SetLevels.
func (t *Table) Levels() model.Levels { return t.levels }

// Projection returns the projection recorded by SetLevels.
func (t *Table) Projection() *model.Projection { return t.projection }

// Width returns the key width.
func (t *Table) Width() int { return t.width }

// Requirements returns the statistics tracked per entry.
func (t *Table) Requirements() model.Requirements { return t.reqs }

// Len returns the number of equivalence classes.
func (t *Table) Len() int { return t.n }

// Entry returns the i-th entry in insertion order.
func (t *Table) Entry(i int) *Entry { return t.entries[i] }

// Entries iterates entries in insertion order.
func (t *Table) Entries() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range t.entries[:t.n] {
			if !yield(e) {
				return
			}
		}
	}
}

// TotalCount returns the sum of Count over all entries.
func (t *Table) TotalCount() int {
	sum := 0
	for _, e := range t.entries[:t.n] {
		sum += e.Count
	}
	return sum
}

// Find returns the entry for key, or nil. It does not modify t and may run
// concurrently with other readers.
func (t *Table) Find(key []int32) *Entry {
	h := hash.Int32s(key)
	for i := t.buckets[h&uint64(len(t.buckets)-1)]; i != 0; {
		e := t.entries[i-1]
		if e.hash == h && slices.Equal(e.Key, key) {
			return e
		}
		i = e.next
	}
	return nil
}

// Upsert returns the entry for key, inserting a zeroed one with the given
// representative if key is new. key is copied; the caller may reuse it.
func (t *Table) Upsert(key []int32, representative int) *Entry {
	h := t.hasher.Sum64(key)
	b := h & uint64(len(t.buckets)-1)
	for i := t.buckets[b]; i != 0; {
		e := t.entries[i-1]
		if e.hash == h && slices.Equal(e.Key, key) {
			return e
		}
		i = e.next
	}

	e := t.alloc()
	e.Key = append(e.Key[:0], key...)
	e.Representative = representative
	e.hash = h
	e.next = t.buckets[b]
	t.buckets[b] = int32(t.n)

	if t.n*loadDen > len(t.buckets)*loadNum {
		t.rehash(len(t.buckets) * 2)
	}
	return e
}

// alloc hands out the next recycled or fresh entry and bumps n.
func (t *Table) alloc() *Entry {
	var e *Entry
	if t.n < len(t.entries) {
		e = t.entries[t.n]
		e.Count = 0
		e.SecondaryCount = 0
		if e.Distribution != nil {
			e.Distribution.Reset()
		}
	} else {
		e = &Entry{Key: make([]int32, 0, t.width)}
		t.entries = append(t.entries, e)
	}
	if e.Distribution == nil && t.reqs.Has(model.RequireDistribution) {
		e.Distribution = NewDistribution()
	}
	t.n++
	return e
}

func (t *Table) rehash(size int) {
	t.buckets = make([]int32, size)
	mask := uint64(size - 1)
	for i, e := range t.entries[:t.n] {
		b := e.hash & mask
		e.next = t.buckets[b]
		t.buckets[b] = int32(i + 1)
	}
}
