package history

import (
	"context"

	"github.com/saetre/arx/groupify"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/snapshot"
)

// Plan is the input chosen for one transformation.
type Plan struct {
	Mode model.Mode
	// Source is the predecessor table for ModeRollup.
	Source *groupify.Table
	// Snapshot is the decoded ancestor for ModeSnapshot.
	Snapshot *snapshot.Snapshot
}

// Planner chooses between rollup, snapshot replay and a fresh scan.
type Planner struct {
	history *History
}

// NewPlanner creates a planner over h. h may be nil, in which case only
// rollup and fresh scans are planned.
func NewPlanner(h *History) *Planner {
	return &Planner{history: h}
}

// Plan picks the smallest exact input for levels under p. live is the most
// recent table, or nil. It is eligible for rollup when its level vector is
// generalized by levels under the same projection and requirements; a
// stored snapshot wins over it only when it has fewer records.
func (p *Planner) Plan(ctx context.Context, live *groupify.Table, reqs model.Requirements, levels model.Levels, proj *model.Projection) (Plan, error) {
	rollup := live != nil &&
		live.Requirements() == reqs &&
		live.Projection().Equal(proj) &&
		len(live.Levels()) == len(levels) &&
		levels.Generalizes(live.Levels())

	if p.history != nil {
		for {
			meta, ok := p.history.Find(levels, proj)
			if !ok || (rollup && meta.Records >= live.Len()) {
				break
			}
			snap, err := p.history.Load(ctx, meta)
			if Unusable(err) {
				// dropped from the index by Load; try the next candidate
				continue
			}
			if err != nil {
				return Plan{}, err
			}
			return Plan{Mode: model.ModeSnapshot, Snapshot: snap}, nil
		}
	}

	if rollup {
		return Plan{Mode: model.ModeRollup, Source: live}, nil
	}
	return Plan{Mode: model.ModeFresh}, nil
}
