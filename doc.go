// Package flatvec provides an embedded exact nearest-neighbor search engine
// for Go.
//
// Flatvec keeps fixed-dimension float32 vectors in an append-only columnar
// store and answers k-nearest-neighbor queries by exhaustive (flat) scan, so
// every result is exact: no approximate structures, no pruning, 100% recall.
// Distances are squared L2 throughout; take the square root yourself if you
// need true Euclidean distances.
//
// # Quick Start
//
//	ctx := context.Background()
//	db, err := flatvec.New(128) // 128-dimensional vectors
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
//	id, err := db.Insert(ctx, vec)
//
//	results, err := db.Search(query).KNN(10).Execute(ctx)
//
// Batch operations amortize locking across many vectors:
//
//	res := db.BatchInsert(ctx, vectors)
//	all, err := db.SearchBatch(ctx, queries, 5)
//
// # Concurrency
//
// Any number of searches may run concurrently; an insert waits for in-flight
// searches to finish and vice versa. The store is therefore immutable for the
// whole duration of a search, and returned results never alias internal
// memory. Within a single query, large scans are split into contiguous
// blocks across worker goroutines and the per-block top-k sets are merged.
package flatvec
