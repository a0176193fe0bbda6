// Package transform implements the transformation engine: given a target
// level vector it generalizes its input and aggregates it into an
// equivalence-class table.
//
// # Modes
//
// The engine reads one of three inputs:
//
//   - Fresh: a contiguous range of raw rows
//   - Rollup: the entries of a live predecessor table
//   - Snapshot: the records of a captured snapshot
//
// Rollup and snapshot replay fold already aggregated statistics per entry
// instead of per row. That is valid because generalization is monotonic:
// rows merged at a level vector stay merged at every more general one. The
// caller must hand in a predecessor or snapshot that was built for a level
// vector generalized by the target (componentwise <=) under the same
// projection. This is not checked; violating it yields a wrong table.
//
// # Aggregation strategies
//
// What is accumulated per entry is fixed by the requirements profile. The
// five legal profiles each get their own strategy, bound once by New:
//
//	profile                        row            entry / record
//	count                          count+1        count+=n
//	count+distribution             + sensitive    + merge distribution
//	count+secondary                + subset bit   + secondary+=n
//	count+secondary+distribution   both           both
//	distribution                   + sensitive    + merge distribution
//
// Count is tracked in every profile.
//
// # Concurrency
//
// An Engine is not safe for concurrent use. Run one engine per goroutine;
// they may share Data, hierarchies and dictionaries.
package transform
