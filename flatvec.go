package flatvec

import (
	"context"
	"time"

	"github.com/flatvec/flatvec/index"
	"github.com/flatvec/flatvec/index/flat"
	"github.com/flatvec/flatvec/resource"
)

// SearchResult represents a single neighbor found by a search.
type SearchResult = index.SearchResult

// BatchInsertResult holds per-item results for a batch insert.
type BatchInsertResult = index.BatchInsertResult

// Flatvec is an exact nearest-neighbor search engine over an append-only
// in-memory vector store.
type Flatvec struct {
	index      *flat.Flat
	logger     *Logger
	metrics    MetricsCollector
	controller *resource.Controller
}

// New creates a Flatvec engine for vectors of the given dimension.
func New(dimension int, optFns ...Option) (*Flatvec, error) {
	opts := applyOptions(optFns)

	idx, err := flat.New(func(o *flat.Options) {
		o.Dimension = dimension
		o.NumWorkers = opts.numWorkers
		o.BlockSize = opts.blockSize
		o.InitialCapacity = opts.initialCapacity
		if opts.controller != nil {
			o.Acquirer = opts.controller
		}
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &Flatvec{
		index:      idx,
		logger:     opts.logger,
		metrics:    opts.metrics,
		controller: opts.controller,
	}, nil
}

// Dimension returns the fixed vector dimensionality of the engine.
func (fv *Flatvec) Dimension() int {
	return fv.index.Dimension()
}

// Count returns the number of stored vectors.
func (fv *Flatvec) Count() int {
	return fv.index.Count()
}

// Insert appends a vector and returns its id (its insertion position,
// sequential from 0). The vector is copied; the caller may reuse the slice.
func (fv *Flatvec) Insert(ctx context.Context, v []float32) (uint32, error) {
	start := time.Now()

	id, err := fv.index.Insert(ctx, v)
	err = translateError(err)

	fv.metrics.RecordInsert(time.Since(start), err)
	fv.logger.LogInsert(ctx, id, len(v), err)
	return id, err
}

// BatchInsert appends multiple vectors in one operation. Failures are
// reported per item; valid items are still inserted.
func (fv *Flatvec) BatchInsert(ctx context.Context, vectors [][]float32) BatchInsertResult {
	start := time.Now()

	result := fv.index.BatchInsert(ctx, vectors)

	failed := 0
	for i, err := range result.Errors {
		if err != nil {
			result.Errors[i] = translateError(err)
			failed++
		}
	}

	fv.metrics.RecordBatchInsert(len(vectors), failed, time.Since(start))
	fv.logger.LogBatchInsert(ctx, len(vectors), failed)
	return result
}

// Get returns a copy of the stored vector with the given id.
func (fv *Flatvec) Get(ctx context.Context, id uint32) ([]float32, error) {
	v, err := fv.index.VectorByID(ctx, id)
	return v, translateError(err)
}

// KNNSearch returns the k nearest stored vectors to q, sorted by ascending
// (distance, id). Distances are squared L2. If fewer than k vectors are
// stored all of them are returned; an empty index yields an empty result.
func (fv *Flatvec) KNNSearch(ctx context.Context, q []float32, k int, optFns ...func(o *KNNSearchOptions)) ([]SearchResult, error) {
	opts := KNNSearchOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	start := time.Now()

	results, err := fv.knnSearch(ctx, q, k, &opts)

	fv.metrics.RecordSearch(k, time.Since(start), err)
	fv.logger.LogSearch(ctx, k, len(results), err)
	return results, err
}

func (fv *Flatvec) knnSearch(ctx context.Context, q []float32, k int, opts *KNNSearchOptions) ([]SearchResult, error) {
	if err := fv.controller.AcquireSearchSlot(ctx); err != nil {
		return nil, err
	}
	defer fv.controller.ReleaseSearchSlot()

	results, err := fv.index.KNNSearch(ctx, q, k, &index.SearchOptions{
		Filter: opts.FilterFunc,
	})
	return results, translateError(err)
}

// SearchBatch runs one exact scan per query and returns one result slice per
// query, preserving input order. Queries are independent and are fanned out
// across workers.
func (fv *Flatvec) SearchBatch(ctx context.Context, queries [][]float32, k int) ([][]SearchResult, error) {
	start := time.Now()

	results, err := fv.searchBatch(ctx, queries, k)

	fv.metrics.RecordSearch(k, time.Since(start), err)
	fv.logger.LogBatchSearch(ctx, len(queries), k, err)
	return results, err
}

func (fv *Flatvec) searchBatch(ctx context.Context, queries [][]float32, k int) ([][]SearchResult, error) {
	if err := fv.controller.AcquireSearchSlot(ctx); err != nil {
		return nil, err
	}
	defer fv.controller.ReleaseSearchSlot()

	results, err := fv.index.Search(ctx, queries, k)
	return results, translateError(err)
}

// KNNSearchOptions contains optional parameters for a KNN search.
type KNNSearchOptions struct {
	// FilterFunc restricts the scan to ids for which it returns true.
	FilterFunc func(id uint32) bool
}

// Stats reports engine statistics.
type Stats struct {
	Dimension   int
	Count       int
	MemoryBytes int64
}

// Stats returns current engine statistics.
func (fv *Flatvec) Stats() Stats {
	return Stats{
		Dimension:   fv.index.Dimension(),
		Count:       fv.index.Count(),
		MemoryBytes: fv.index.MemoryBytes(),
	}
}

// Close releases resources held by the engine, returning any memory
// accounted with the resource controller.
func (fv *Flatvec) Close() error {
	return fv.index.Close()
}
