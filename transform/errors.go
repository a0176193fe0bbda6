package transform

import (
	"errors"
	"fmt"

	"github.com/saetre/arx/model"
)

var (
	// ErrInvalidTask is returned for tasks whose shape does not match the engine.
	ErrInvalidTask = errors.New("invalid task")

	// ErrInvalidData is returned for input data inconsistent with the hierarchies
	// or requirements.
	ErrInvalidData = errors.New("invalid data")
)

// ErrInvalidRequirements indicates a requirements combination without a
// registered aggregation strategy.
type ErrInvalidRequirements struct {
	Requirements model.Requirements
}

func (e *ErrInvalidRequirements) Error() string {
	return fmt.Sprintf("invalid requirements: %s (%d)", e.Requirements, uint8(e.Requirements))
}
