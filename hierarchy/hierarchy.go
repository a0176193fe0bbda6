// Package hierarchy provides read-only generalization lookup tables.
//
// A Hierarchy maps (code, level) to the generalized code of one
// quasi-identifying dimension. A Set bundles one Hierarchy per dimension.
// Both are immutable after construction and safe for concurrent use.
//
// Lookups with an out-of-range dimension, code or level panic: every call
// site is derived from configuration validated at construction.
package hierarchy

import (
	"errors"
	"fmt"
)

// ErrInvalidHierarchy is returned for malformed hierarchy definitions.
var ErrInvalidHierarchy = errors.New("invalid hierarchy")

// Hierarchy is the lookup table of a single dimension.
type Hierarchy struct {
	height int
	codes  int
	// columns[level][code]
	columns [][]int32
}

// New builds a hierarchy from rows[code][level]. Every row must have the
// same, non-zero height and rows[code][0] must equal code.
func New(rows [][]int32) (*Hierarchy, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no codes", ErrInvalidHierarchy)
	}
	height := len(rows[0])
	if height == 0 {
		return nil, fmt.Errorf("%w: zero height", ErrInvalidHierarchy)
	}

	columns := make([][]int32, height)
	for lvl := range columns {
		columns[lvl] = make([]int32, len(rows))
	}
	for code, row := range rows {
		if len(row) != height {
			return nil, fmt.Errorf("%w: code %d has height %d, expected %d", ErrInvalidHierarchy, code, len(row), height)
		}
		if row[0] != int32(code) {
			return nil, fmt.Errorf("%w: code %d maps to %d at level 0", ErrInvalidHierarchy, code, row[0])
		}
		for lvl, v := range row {
			columns[lvl][code] = v
		}
	}

	return &Hierarchy{height: height, codes: len(rows), columns: columns}, nil
}

// MustNew is like New but panics on error.
func MustNew(rows [][]int32) *Hierarchy {
	h, err := New(rows)
	if err != nil {
		panic(err)
	}
	return h
}

// Generalize returns the code of value at the given level.
func (h *Hierarchy) Generalize(code int32, level int) int32 {
	return h.columns[level][code]
}

// Height returns the number of levels, including level 0.
func (h *Hierarchy) Height() int { return h.height }

// Codes returns the number of distinct level-0 codes.
func (h *Hierarchy) Codes() int { return h.codes }

// Column returns the generalized codes of all values at level, indexed by
// code. The slice is shared and must not be modified.
func (h *Hierarchy) Column(level int) []int32 {
	return h.columns[level]
}

// Set holds one hierarchy per quasi-identifying dimension.
type Set struct {
	dims []*Hierarchy
}

// NewSet bundles hierarchies in dimension order.
func NewSet(dims ...*Hierarchy) (*Set, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no dimensions", ErrInvalidHierarchy)
	}
	for i, h := range dims {
		if h == nil {
			return nil, fmt.Errorf("%w: dimension %d is nil", ErrInvalidHierarchy, i)
		}
	}
	return &Set{dims: dims}, nil
}

// Generalize returns the generalized code of code in dimension dim at level.
func (s *Set) Generalize(dim int, code int32, level int) int32 {
	return s.dims[dim].Generalize(code, level)
}

// Dimension returns the hierarchy of dimension dim.
func (s *Set) Dimension(dim int) *Hierarchy { return s.dims[dim] }

// Dimensions returns the number of dimensions.
func (s *Set) Dimensions() int { return len(s.dims) }

// MaxLevels returns the most general level vector of the set.
func (s *Set) MaxLevels() []int {
	out := make([]int, len(s.dims))
	for i, h := range s.dims {
		out[i] = h.height - 1
	}
	return out
}

// CheckLevels validates a level vector against the set.
func (s *Set) CheckLevels(levels []int) error {
	if len(levels) != len(s.dims) {
		return fmt.Errorf("%w: %d levels for %d dimensions", ErrInvalidHierarchy, len(levels), len(s.dims))
	}
	for i, l := range levels {
		if l < 0 || l >= s.dims[i].height {
			return fmt.Errorf("%w: level %d out of range [0,%d) for dimension %d", ErrInvalidHierarchy, l, s.dims[i].height, i)
		}
	}
	return nil
}
