// Package subset holds the row membership consumed for secondary counts.
//
// The selection itself is produced elsewhere (typically by evaluating a row
// predicate); the engine only asks IsSelected per row.
package subset

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Selector reports whether a row belongs to the designated subset.
type Selector interface {
	IsSelected(row int) bool
}

// Func adapts a predicate to Selector.
type Func func(row int) bool

// IsSelected implements Selector.
func (f Func) IsSelected(row int) bool { return f(row) }

// Subset is a set of row indices backed by a roaring bitmap.
// It is safe for concurrent reads once built.
type Subset struct {
	rb *roaring.Bitmap
}

// New creates a subset containing rows.
func New(rows ...int) *Subset {
	s := &Subset{rb: roaring.New()}
	for _, r := range rows {
		s.rb.Add(uint32(r))
	}
	return s
}

// FromSelector materializes sel over rows [0, n).
func FromSelector(n int, sel Selector) *Subset {
	s := &Subset{rb: roaring.New()}
	for r := 0; r < n; r++ {
		if sel.IsSelected(r) {
			s.rb.Add(uint32(r))
		}
	}
	s.rb.RunOptimize()
	return s
}

// Add inserts row.
func (s *Subset) Add(row int) {
	s.rb.Add(uint32(row))
}

// IsSelected implements Selector.
func (s *Subset) IsSelected(row int) bool {
	return s.rb.Contains(uint32(row))
}

// Size returns the number of selected rows.
func (s *Subset) Size() int {
	return int(s.rb.GetCardinality())
}

// Max returns the highest selected row, or -1 if the subset is empty.
func (s *Subset) Max() int {
	if s.rb.IsEmpty() {
		return -1
	}
	return int(s.rb.Maximum())
}
