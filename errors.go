package arx

import (
	"errors"
	"fmt"

	"github.com/saetre/arx/blobstore"
	"github.com/saetre/arx/hierarchy"
	"github.com/saetre/arx/model"
	"github.com/saetre/arx/snapshot"
	"github.com/saetre/arx/transform"
)

var (
	// ErrInvalidArgument is returned for malformed inputs: level vectors out of
	// range, inconsistent data or unusable configuration.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCorrupt is returned when a stored snapshot fails verification.
	ErrCorrupt = errors.New("corrupt snapshot")

	// ErrIncompatibleFormat is returned for snapshots of an unknown format version.
	ErrIncompatibleFormat = errors.New("incompatible snapshot format")

	// ErrNotFound is returned when a stored snapshot has disappeared.
	ErrNotFound = errors.New("not found")
)

// ErrInvalidRequirements indicates a requirements combination without an
// aggregation strategy.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidRequirements struct {
	Requirements model.Requirements
	cause        error
}

func (e *ErrInvalidRequirements) Error() string {
	return fmt.Sprintf("invalid requirements: %s", e.Requirements)
}

func (e *ErrInvalidRequirements) Unwrap() error { return e.cause }

// ErrDimensionMismatch indicates a level vector or row whose length differs
// from the number of hierarchies.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ir *transform.ErrInvalidRequirements
	if errors.As(err, &ir) {
		return &ErrInvalidRequirements{Requirements: ir.Requirements, cause: err}
	}

	// Snapshot integrity.
	if errors.Is(err, snapshot.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if errors.Is(err, snapshot.ErrIncompatibleFormat) {
		return fmt.Errorf("%w: %w", ErrIncompatibleFormat, err)
	}
	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Argument normalization.
	if errors.Is(err, transform.ErrInvalidTask) ||
		errors.Is(err, transform.ErrInvalidData) ||
		errors.Is(err, hierarchy.ErrInvalidHierarchy) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return err
}
