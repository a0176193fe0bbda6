// Package snapshot captures equivalence-class tables as flat, fixed-width
// record sequences so that aggregation can resume without raw data or a live
// predecessor table.
//
// Record layout by requirements:
//
//	count                          rep, count
//	count+secondary                rep, count, secondary
//	count+distribution             rep, count, values, freqs
//	distribution                   rep, count, values, freqs
//	count+secondary+distribution   rep, count, secondary, values, freqs
//
// values and freqs are codes into two interned-array dictionaries holding the
// packed distribution (sorted values, matching frequencies). A snapshot is
// only meaningful together with the dictionaries it was captured against.
package snapshot

import (
	"fmt"

	"github.com/saetre/arx/dictionary"
	"github.com/saetre/arx/groupify"
	"github.com/saetre/arx/model"
)

const (
	offRep   = 0
	offCount = 1
)

// Layout describes where fields sit inside one record.
type Layout struct {
	Step      int
	Secondary int // -1 if absent
	Values    int // -1 if absent
	Freqs     int // -1 if absent
}

// LayoutFor returns the record layout for reqs.
func LayoutFor(reqs model.Requirements) Layout {
	l := Layout{Step: 2, Secondary: -1, Values: -1, Freqs: -1}
	if reqs.Has(model.RequireSecondaryCount) {
		l.Secondary = l.Step
		l.Step++
	}
	if reqs.Has(model.RequireDistribution) {
		l.Values = l.Step
		l.Freqs = l.Step + 1
		l.Step += 2
	}
	return l
}

// Snapshot is an immutable capture of one table.
type Snapshot struct {
	requirements model.Requirements
	levels       model.Levels
	projection   *model.Projection
	layout       Layout
	data         []int32
}

// Record is one decoded snapshot record.
type Record struct {
	Representative int
	Count          int
	SecondaryCount int
	ValuesCode     int32
	FreqsCode      int32
}

// Capture snapshots every entry of t. Distributions are interned into values
// and freqs, which may be nil when t tracks no distribution.
func Capture(t *groupify.Table, values, freqs *dictionary.Dictionary) *Snapshot {
	reqs := t.Requirements()
	layout := LayoutFor(reqs)
	data := make([]int32, 0, t.Len()*layout.Step)

	for e := range t.Entries() {
		data = append(data, int32(e.Representative), int32(e.Count))
		if layout.Secondary >= 0 {
			data = append(data, int32(e.SecondaryCount))
		}
		if layout.Values >= 0 {
			v, f := e.Distribution.Pack()
			data = append(data, values.Intern(v), freqs.Intern(f))
		}
	}

	return &Snapshot{
		requirements: reqs,
		levels:       t.Levels().Clone(),
		projection:   t.Projection(),
		layout:       layout,
		data:         data,
	}
}

// FromRecords builds a snapshot from raw record data, e.g. after decoding.
func FromRecords(reqs model.Requirements, levels model.Levels, projection *model.Projection, data []int32) (*Snapshot, error) {
	layout := LayoutFor(reqs)
	if len(data)%layout.Step != 0 {
		return nil, fmt.Errorf("%w: %d values do not divide into records of %d", ErrCorrupt, len(data), layout.Step)
	}
	return &Snapshot{
		requirements: reqs,
		levels:       levels.Clone(),
		projection:   projection,
		layout:       layout,
		data:         data,
	}, nil
}

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.data) / s.layout.Step }

// Requirements returns the requirements the snapshot was captured with.
func (s *Snapshot) Requirements() model.Requirements { return s.requirements }

// Levels returns the level vector of the captured table.
func (s *Snapshot) Levels() model.Levels { return s.levels }

// Projection returns the projection of the captured table.
func (s *Snapshot) Projection() *model.Projection { return s.projection }

// Layout returns the record layout.
func (s *Snapshot) Layout() Layout { return s.layout }

// Data returns the raw record data. It must not be modified.
func (s *Snapshot) Data() []int32 { return s.data }

// SizeBytes returns the in-memory payload size.
func (s *Snapshot) SizeBytes() int64 { return int64(len(s.data)) * 4 }

// Record decodes the i-th record.
func (s *Snapshot) Record(i int) Record {
	base := i * s.layout.Step
	r := Record{
		Representative: int(s.data[base+offRep]),
		Count:          int(s.data[base+offCount]),
	}
	if s.layout.Secondary >= 0 {
		r.SecondaryCount = int(s.data[base+s.layout.Secondary])
	}
	if s.layout.Values >= 0 {
		r.ValuesCode = s.data[base+s.layout.Values]
		r.FreqsCode = s.data[base+s.layout.Freqs]
	}
	return r
}
