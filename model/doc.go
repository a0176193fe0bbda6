// Package model defines the core value types shared by the engine.
//
// # Types
//
//   - Tuple: one row of quasi-identifier codes
//   - Levels: generalization level per dimension
//   - Projection: dimensions excluded from the current run
//   - Requirements: which statistics each equivalence class carries
//   - Mode: how a transformation obtains its input
package model
