package transform

import (
	"github.com/saetre/arx/dictionary"
	"github.com/saetre/arx/groupify"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/snapshot"
	"github.com/saetre/arx/subset"
)

// strategy folds one input item into an equivalence class. There is one
// implementation per legal requirements profile.
type strategy interface {
	// row folds raw row i.
	row(e *groupify.Entry, i int)
	// entry folds an entry of a predecessor table.
	entry(e *groupify.Entry, pred *groupify.Entry)
	// record folds a decoded snapshot record.
	record(e *groupify.Entry, r snapshot.Record)
}

func newStrategy(reqs model.Requirements, data *Data, values, freqs *dictionary.Dictionary) (strategy, error) {
	switch reqs {
	case model.RequireCount:
		return counter{}, nil
	case model.RequireCount | model.RequireSecondaryCount:
		return counterSecondary{subset: data.Subset}, nil
	case model.RequireCount | model.RequireSecondaryCount | model.RequireDistribution:
		return counterSecondaryDistribution{
			subset:    data.Subset,
			sensitive: data.Sensitive,
			values:    values,
			freqs:     freqs,
		}, nil
	case model.RequireCount | model.RequireDistribution:
		return counterDistribution{sensitive: data.Sensitive, values: values, freqs: freqs}, nil
	case model.RequireDistribution:
		return distribution{sensitive: data.Sensitive, values: values, freqs: freqs}, nil
	default:
		return nil, &ErrInvalidRequirements{Requirements: reqs}
	}
}

type counter struct{}

func (counter) row(e *groupify.Entry, _ int) {
	e.Count++
}

func (counter) entry(e *groupify.Entry, pred *groupify.Entry) {
	e.Count += pred.Count
}

func (counter) record(e *groupify.Entry, r snapshot.Record) {
	e.Count += r.Count
}

type counterSecondary struct {
	subset subset.Selector
}

func (s counterSecondary) row(e *groupify.Entry, i int) {
	e.Count++
	if s.subset.IsSelected(i) {
		e.SecondaryCount++
	}
}

func (counterSecondary) entry(e *groupify.Entry, pred *groupify.Entry) {
	e.Count += pred.Count
	e.SecondaryCount += pred.SecondaryCount
}

func (counterSecondary) record(e *groupify.Entry, r snapshot.Record) {
	e.Count += r.Count
	e.SecondaryCount += r.SecondaryCount
}

type counterDistribution struct {
	sensitive []int32
	values    *dictionary.Dictionary
	freqs     *dictionary.Dictionary
}

func (s counterDistribution) row(e *groupify.Entry, i int) {
	e.Count++
	e.Distribution.Add(s.sensitive[i])
}

func (counterDistribution) entry(e *groupify.Entry, pred *groupify.Entry) {
	e.Count += pred.Count
	e.Distribution.Merge(pred.Distribution)
}

func (s counterDistribution) record(e *groupify.Entry, r snapshot.Record) {
	e.Count += r.Count
	e.Distribution.MergePacked(s.values.Get(r.ValuesCode), s.freqs.Get(r.FreqsCode))
}

type counterSecondaryDistribution struct {
	subset    subset.Selector
	sensitive []int32
	values    *dictionary.Dictionary
	freqs     *dictionary.Dictionary
}

func (s counterSecondaryDistribution) row(e *groupify.Entry, i int) {
	e.Count++
	if s.subset.IsSelected(i) {
		e.SecondaryCount++
	}
	e.Distribution.Add(s.sensitive[i])
}

func (counterSecondaryDistribution) entry(e *groupify.Entry, pred *groupify.Entry) {
	e.Count += pred.Count
	e.SecondaryCount += pred.SecondaryCount
	e.Distribution.Merge(pred.Distribution)
}

func (s counterSecondaryDistribution) record(e *groupify.Entry, r snapshot.Record) {
	e.Count += r.Count
	e.SecondaryCount += r.SecondaryCount
	e.Distribution.MergePacked(s.values.Get(r.ValuesCode), s.freqs.Get(r.FreqsCode))
}

// distribution is the profile without an explicit count requirement. Count
// is still carried so that snapshot records and class sizes stay complete.
type distribution struct {
	sensitive []int32
	values    *dictionary.Dictionary
	freqs     *dictionary.Dictionary
}

func (s distribution) row(e *groupify.Entry, i int) {
	e.Count++
	e.Distribution.Add(s.sensitive[i])
}

func (distribution) entry(e *groupify.Entry, pred *groupify.Entry) {
	e.Count += pred.Count
	e.Distribution.Merge(pred.Distribution)
}

func (s distribution) record(e *groupify.Entry, r snapshot.Record) {
	e.Count += r.Count
	e.Distribution.MergePacked(s.values.Get(r.ValuesCode), s.freqs.Get(r.FreqsCode))
}
