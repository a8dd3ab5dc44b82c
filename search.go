// Package flatvec provides an embedded exact nearest-neighbor search engine.
//
// This file implements a fluent search API for querying Flatvec instances.
package flatvec

import (
	"context"
	"iter"
)

// Search creates a new fluent search builder for the given query vector.
//
// Example:
//
//	results, err := db.Search(query).
//	    KNN(10).
//	    Execute(ctx)
func (fv *Flatvec) Search(query []float32) *SearchBuilder {
	return &SearchBuilder{
		fv:    fv,
		query: query,
		k:     10, // Default k
	}
}

// SearchBuilder is a fluent builder for constructing search queries.
type SearchBuilder struct {
	fv    *Flatvec
	query []float32
	k     int

	filterFunc func(id uint32) bool
}

// KNN sets the number of nearest neighbors to return.
func (sb *SearchBuilder) KNN(k int) *SearchBuilder {
	sb.k = k
	return sb
}

// Filter sets a filter function for search results.
// Only vectors where filter(id) returns true are considered.
func (sb *SearchBuilder) Filter(fn func(id uint32) bool) *SearchBuilder {
	sb.filterFunc = fn
	return sb
}

// Execute runs the search and returns the results.
func (sb *SearchBuilder) Execute(ctx context.Context) ([]SearchResult, error) {
	return sb.fv.KNNSearch(ctx, sb.query, sb.k, func(o *KNNSearchOptions) {
		if sb.filterFunc != nil {
			o.FilterFunc = sb.filterFunc
		}
	})
}

// MustExecute runs the search, panicking on error.
// Use this only in tests or when you're certain the query is valid.
func (sb *SearchBuilder) MustExecute(ctx context.Context) []SearchResult {
	results, err := sb.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return results
}

// Stream returns an iterator over search results for memory-efficient
// processing. Results are yielded in order from nearest to farthest.
// The iterator supports early termination by breaking from the loop.
//
// Example:
//
//	for result, err := range db.Search(query).KNN(100).Stream(ctx) {
//	    if err != nil { break }
//	    if result.Distance > 100.0 { break } // Early termination
//	    process(result)
//	}
func (sb *SearchBuilder) Stream(ctx context.Context) iter.Seq2[SearchResult, error] {
	return func(yield func(SearchResult, error) bool) {
		results, err := sb.Execute(ctx)
		if err != nil {
			yield(SearchResult{}, err)
			return
		}
		for _, result := range results {
			if !yield(result, nil) {
				return
			}
		}
	}
}

// First returns only the nearest result, or ErrNotFound if the index is
// empty.
func (sb *SearchBuilder) First(ctx context.Context) (SearchResult, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return SearchResult{}, err
	}
	if len(results) == 0 {
		return SearchResult{}, ErrNotFound
	}
	return results[0], nil
}

// Count executes the search and returns the number of results.
func (sb *SearchBuilder) Count(ctx context.Context) (int, error) {
	results, err := sb.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// Exists checks if at least one result matches the search.
func (sb *SearchBuilder) Exists(ctx context.Context) (bool, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
