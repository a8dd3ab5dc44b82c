// Package testutil provides testing utilities for flatvec.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random vectors, computing exact
// nearest neighbors by full sort, and comparing result sets.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	base := rng.UniformVectors(100000, 128)
//	queries := rng.UniformVectors(1000, 128)
//
// # Ground Truth
//
//	truth := testutil.BruteForceSearch(base, query, k)
//
// # Result Comparison
//
//	recall := testutil.ComputeRecall(truth, results)
package testutil
