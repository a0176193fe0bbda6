package model

import (
	"github.com/bits-and-blooms/bitset"
)

// Projection marks dimensions excluded from a run. A set bit excludes the
// dimension. The zero value and a nil *Projection exclude nothing.
type Projection struct {
	bits *bitset.BitSet
}

// NewProjection returns a projection excluding the given dimensions.
func NewProjection(excluded ...int) *Projection {
	p := &Projection{bits: bitset.New(0)}
	for _, d := range excluded {
		p.bits.Set(uint(d))
	}
	return p
}

// Excludes reports whether dimension d is masked.
func (p *Projection) Excludes(d int) bool {
	if p == nil || p.bits == nil {
		return false
	}
	return p.bits.Test(uint(d))
}

// Columns returns the unmasked dimensions out of dims, in order.
func (p *Projection) Columns(dims int) []int {
	cols := make([]int, 0, dims)
	for d := 0; d < dims; d++ {
		if !p.Excludes(d) {
			cols = append(cols, d)
		}
	}
	return cols
}

// Len returns the number of excluded dimensions.
func (p *Projection) Len() int {
	if p == nil || p.bits == nil {
		return 0
	}
	return int(p.bits.Count())
}

// Equal reports whether both projections exclude the same dimensions.
func (p *Projection) Equal(other *Projection) bool {
	if p.Len() != other.Len() {
		return false
	}
	if p.Len() == 0 {
		return true
	}
	return p.bits.SymmetricDifferenceCardinality(other.bits) == 0
}

// Key returns a stable string form of the excluded set, e.g. "1,2".
func (p *Projection) Key() string {
	if p.Len() == 0 {
		return ""
	}
	buf := make([]uint, p.bits.Count())
	_, buf = p.bits.NextSetMany(0, buf)
	out := make([]byte, 0, len(buf)*3)
	for i, d := range buf {
		if i > 0 {
			out = append(out, ',')
		}
		out = appendUint(out, d)
	}
	return string(out)
}

func appendUint(b []byte, v uint) []byte {
	if v >= 10 {
		b = appendUint(b, v/10)
	}
	return append(b, byte('0'+v%10))
}
