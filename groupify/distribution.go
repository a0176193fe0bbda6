package groupify

import (
	"maps"
	"slices"
)

// Distribution is a frequency table over sensitive-attribute codes.
type Distribution struct {
	freq  map[int32]int32
	total int
}

// NewDistribution creates an empty distribution.
func NewDistribution() *Distribution {
	return &Distribution{freq: make(map[int32]int32)}
}

// Add records one occurrence of value.
func (d *Distribution) Add(value int32) {
	d.freq[value]++
	d.total++
}

// AddN records n occurrences of value.
func (d *Distribution) AddN(value, n int32) {
	if n == 0 {
		return
	}
	d.freq[value] += n
	d.total += int(n)
}

// Merge folds other into d.
func (d *Distribution) Merge(other *Distribution) {
	if other == nil {
		return
	}
	for v, n := range other.freq {
		d.freq[v] += n
	}
	d.total += other.total
}

// MergePacked folds a packed distribution into d. values and freqs are
// parallel arrays as produced by Pack.
func (d *Distribution) MergePacked(values, freqs []int32) {
	for i, v := range values {
		d.AddN(v, freqs[i])
	}
}

// Pack returns the distribution as parallel arrays sorted by value.
// Equal distributions always pack to equal arrays.
func (d *Distribution) Pack() (values, freqs []int32) {
	values = slices.Sorted(maps.Keys(d.freq))
	freqs = make([]int32, len(values))
	for i, v := range values {
		freqs[i] = d.freq[v]
	}
	return values, freqs
}

// Frequency returns how often value occurs.
func (d *Distribution) Frequency(value int32) int {
	return int(d.freq[value])
}

// Len returns the number of distinct values.
func (d *Distribution) Len() int { return len(d.freq) }

// Total returns the sum of all frequencies.
func (d *Distribution) Total() int { return d.total }

// Reset empties d, keeping its storage.
func (d *Distribution) Reset() {
	clear(d.freq)
	d.total = 0
}

// Equal reports whether both distributions hold the same frequencies.
func (d *Distribution) Equal(other *Distribution) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.total == other.total && maps.Equal(d.freq, other.freq)
}
