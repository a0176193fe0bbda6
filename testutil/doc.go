// Package testutil provides fixtures for tests and benchmarks.
//
// # Fixtures
//
//	f := testutil.Adult()                 // the 7-row age/gender/zipcode table
//	f := testutil.Random(rng, 1000, 3, 4) // random rows over random hierarchies
//
// # Comparing tables
//
// Canonical renders a table as a sorted list of entry strings, so tables
// produced by different modes compare as multisets:
//
//	assert.Equal(t, testutil.Canonical(fresh), testutil.Canonical(rolled))
package testutil
