package model

import (
	"strconv"
	"strings"
)

// Tuple is one row of dictionary codes, one per quasi-identifying dimension.
type Tuple []int32

// Levels holds the generalization level applied to each dimension.
// Level 0 leaves a dimension ungeneralized.
type Levels []int

// Generalizes reports whether l is at least as general as other in every
// dimension. A vector generalizes itself.
func (l Levels) Generalizes(other Levels) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] < other[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both vectors are identical.
func (l Levels) Equal(other Levels) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Sum returns the total generalization degree.
func (l Levels) Sum() int {
	s := 0
	for _, v := range l {
		s += v
	}
	return s
}

// Clone returns a copy of l.
func (l Levels) Clone() Levels {
	if l == nil {
		return nil
	}
	out := make(Levels, len(l))
	copy(out, l)
	return out
}

// Key returns a stable string form, e.g. "0.2.1".
func (l Levels) Key() string {
	var sb strings.Builder
	for i, v := range l {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (l Levels) String() string {
	return "[" + l.Key() + "]"
}
