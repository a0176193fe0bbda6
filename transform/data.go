package transform

import (
	"fmt"

	"github.com/saetre/arx/hierarchy"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/subset"
)

// Data is the raw input shared read-only by all engines of a run.
type Data struct {
	// Rows holds the level-0 quasi-identifier codes of every row.
	Rows []model.Tuple
	// Sensitive holds the sensitive-attribute code per row. Required when
	// distributions are tracked.
	Sensitive []int32
	// Subset selects rows counted in SecondaryCount. Required when secondary
	// counts are tracked.
	Subset subset.Selector
}

// Len returns the number of rows.
func (d *Data) Len() int { return len(d.Rows) }

// Validate checks d against the hierarchies and requirements: row width,
// code ranges and presence of the inputs reqs needs.
func (d *Data) Validate(h *hierarchy.Set, reqs model.Requirements) error {
	dims := h.Dimensions()
	for i, row := range d.Rows {
		if len(row) != dims {
			return fmt.Errorf("%w: row %d has %d values, expected %d", ErrInvalidData, i, len(row), dims)
		}
		for dim, code := range row {
			if code < 0 || int(code) >= h.Dimension(dim).Codes() {
				return fmt.Errorf("%w: row %d dimension %d code %d outside hierarchy", ErrInvalidData, i, dim, code)
			}
		}
	}
	if reqs.Has(model.RequireDistribution) && len(d.Sensitive) != len(d.Rows) {
		return fmt.Errorf("%w: %d sensitive values for %d rows", ErrInvalidData, len(d.Sensitive), len(d.Rows))
	}
	if reqs.Has(model.RequireSecondaryCount) && d.Subset == nil {
		return fmt.Errorf("%w: secondary counts need a subset", ErrInvalidData)
	}
	if s, ok := d.Subset.(*subset.Subset); ok && s != nil && s.Max() >= len(d.Rows) {
		return fmt.Errorf("%w: subset selects row %d of %d", ErrInvalidData, s.Max(), len(d.Rows))
	}
	return nil
}
