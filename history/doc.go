// Package history keeps snapshots of earlier transformations and plans how
// the next one is computed.
//
// A History stores encoded snapshots keyed by level vector and projection.
// A table is captured only when it is small enough to pay off: at most
// DatasetRatio times the number of rows, and at most SnapshotRatio times
// the records of the ancestor snapshot it would be replayed from. Encoded
// snapshots live in a byte-bounded LRU. With a blob store configured they
// are written through on capture and reloaded on cache miss, so eviction
// never loses a snapshot.
//
// The Planner picks the cheapest exact input for a target level vector:
// the live predecessor table (rollup), a stored ancestor snapshot (replay)
// or the raw rows (fresh).
package history
