// Package arx evaluates generalizations of a tabular dataset.
//
// A Checker groups the rows of a dataset into equivalence classes for a
// level vector, one generalization level per quasi-identifying dimension,
// and aggregates per class the statistics a privacy model needs: row count,
// secondary count over a research subset, and the distribution of a
// sensitive attribute.
//
// # Quick Start
//
//	age := hierarchy.NewBuilder()
//	age.Add("34", "<50", "*")
//	age.Add("70", ">=50", "*")
//	ageH, labels, _ := age.Build()
//	// ... one hierarchy per dimension
//	set, _ := hierarchy.NewSet(ageH, genderH, zipH)
//
//	data := &arx.Data{Rows: rows, Sensitive: sensitive, Subset: subset.New(0, 3)}
//	c, _ := arx.New(data, set, model.RequireCount|model.RequireSecondaryCount)
//
//	res, _ := c.Check(ctx, model.Levels{1, 0, 2}, nil)
//	for e := range res.Table.Entries() {
//	    fmt.Println(e.Key, e.Count, e.SecondaryCount)
//	}
//
// # Reuse Between Transformations
//
// Check picks the cheapest input for every transformation:
//
//   - Rollup folds the classes of the previous result when its level
//     vector is componentwise lower under the same projection.
//   - Snapshot replays a compact capture of an earlier result.
//   - Fresh scans the raw rows.
//
// Snapshots are kept in memory under a byte budget (WithSnapshotBudget).
// With WithBlobStore they are written through to a blob store (local
// directory, MinIO, S3) and reloaded after eviction.
//
// # Concurrency
//
// Check is serialized. CheckAll evaluates candidates concurrently, each on
// its own engine, bounded by WithWorkers. Dataset, hierarchies and the
// distribution dictionaries are shared read-only.
//
// # Observability
//
// Logging uses log/slog (WithLogger), metrics a MetricsCollector such as
// PrometheusCollector (WithMetricsCollector), and every transformation runs
// inside an OpenTelemetry span (WithTracer).
package arx
