// Package dictionary interns small int32 arrays.
//
// Snapshots reference distribution arrays by code instead of embedding them,
// so equal distributions across equivalence classes and snapshots are stored
// once. Intern and Get are safe for concurrent use; Get is cheap enough to sit
// on the snapshot replay path.
package dictionary

import (
	"fmt"
	"slices"
	"sync"

	"github.com/saetre/arx/internal/hash"
)

// Dictionary maps int32 arrays to dense codes and back.
type Dictionary struct {
	mu      sync.RWMutex
	arrays  [][]int32
	buckets map[uint64][]int32 // hash -> codes
}

// New creates an empty dictionary.
func New() *Dictionary {
	return &Dictionary{buckets: make(map[uint64][]int32)}
}

// Intern returns the code for a, registering a copy of a if it is new.
// Interning an equal array twice yields the same code. Arrays already
// registered are found under the read lock.
func (d *Dictionary) Intern(a []int32) int32 {
	h := hash.Int32s(a)

	d.mu.RLock()
	code, ok := d.lookup(h, a)
	d.mu.RUnlock()
	if ok {
		return code
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if code, ok := d.lookup(h, a); ok {
		return code
	}
	code = int32(len(d.arrays))
	d.arrays = append(d.arrays, slices.Clone(a))
	d.buckets[h] = append(d.buckets[h], code)
	return code
}

// lookup requires d.mu.
func (d *Dictionary) lookup(h uint64, a []int32) (int32, bool) {
	for _, code := range d.buckets[h] {
		if slices.Equal(d.arrays[code], a) {
			return code, true
		}
	}
	return 0, false
}

// Get returns the array registered under code. The result is shared and
// must not be modified. An unknown code panics.
func (d *Dictionary) Get(code int32) []int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if code < 0 || int(code) >= len(d.arrays) {
		panic(fmt.Sprintf("dictionary: unknown code %d", code))
	}
	return d.arrays[code]
}

// Len returns the number of distinct arrays.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.arrays)
}

// Clear drops all arrays. Codes handed out before are invalidated.
func (d *Dictionary) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.arrays = nil
	d.buckets = make(map[uint64][]int32)
}
