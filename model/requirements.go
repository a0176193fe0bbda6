package model

import "strings"

// Requirements selects the statistics accumulated per equivalence class.
type Requirements uint8

const (
	// RequireCount tracks the number of tuples per class.
	RequireCount Requirements = 1 << iota
	// RequireSecondaryCount tracks tuples that are also members of the subset.
	RequireSecondaryCount
	// RequireDistribution tracks a frequency table over the sensitive attribute.
	RequireDistribution
)

// Valid reports whether r is one of the five supported combinations.
func (r Requirements) Valid() bool {
	switch r {
	case RequireCount,
		RequireCount | RequireDistribution,
		RequireCount | RequireSecondaryCount,
		RequireCount | RequireSecondaryCount | RequireDistribution,
		RequireDistribution:
		return true
	default:
		return false
	}
}

// Has reports whether all flags in f are set.
func (r Requirements) Has(f Requirements) bool {
	return r&f == f
}

func (r Requirements) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	if r.Has(RequireCount) {
		parts = append(parts, "count")
	}
	if r.Has(RequireSecondaryCount) {
		parts = append(parts, "secondary")
	}
	if r.Has(RequireDistribution) {
		parts = append(parts, "distribution")
	}
	if rest := r &^ (RequireCount | RequireSecondaryCount | RequireDistribution); rest != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// Mode selects where a transformation reads its input from.
type Mode uint8

const (
	// ModeFresh scans raw rows.
	ModeFresh Mode = iota
	// ModeRollup folds the entries of a live predecessor table.
	ModeRollup
	// ModeSnapshot replays a captured snapshot.
	ModeSnapshot
)

func (m Mode) String() string {
	switch m {
	case ModeFresh:
		return "fresh"
	case ModeRollup:
		return "rollup"
	case ModeSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}
