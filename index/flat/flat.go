// Package flat provides an exact (exhaustive) L2 nearest-neighbor index.
//
// Every search scans all stored vectors, so results are always exact. The
// scan walks the columnar store in contiguous blocks and keeps the running
// top-k in a bounded collector, which costs O(n log k) instead of the
// O(n log n) of sorting all distances. Large scans are split across workers,
// each producing a local top-k that is merged at the end.
package flat

import (
	"context"
	"errors"
	"iter"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/flatvec/flatvec/distance"
	"github.com/flatvec/flatvec/index"
	"github.com/flatvec/flatvec/internal/queue"
	"github.com/flatvec/flatvec/vectorstore"
)

// Compile-time check to ensure Flat satisfies the index interface.
var _ index.Index = (*Flat)(nil)

// DefaultBlockSize is the number of vectors per scan block. Blocks of this
// size keep the working set (block plus query plus distance buffer) inside
// the L2 cache for typical dimensions.
const DefaultBlockSize = 4096

// parallelThreshold is the minimum store size before a single-query scan is
// split across workers. Below this the goroutine fan-out costs more than the
// scan itself.
const parallelThreshold = 4 * DefaultBlockSize

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	// It must be > 0 and is enforced for all inserts and searches.
	Dimension int

	// NumWorkers is the number of goroutines used for parallel scans and
	// batch queries. Zero means runtime.GOMAXPROCS(0).
	NumWorkers int

	// BlockSize is the number of vectors processed per scan block.
	// Zero means DefaultBlockSize.
	BlockSize int

	// InitialCapacity is the number of vectors to pre-allocate space for.
	InitialCapacity int

	// Acquirer accounts vector storage against a shared memory budget.
	Acquirer vectorstore.MemoryAcquirer
}

// DefaultOptions contains the default configuration options for the flat
// index.
var DefaultOptions = Options{
	Dimension:       0,
	BlockSize:       DefaultBlockSize,
	InitialCapacity: 1024,
}

// Flat represents a flat index for exact vector search.
//
// Concurrency model: searches take the read lock and may run concurrently
// with each other; inserts take the write lock and wait for in-flight
// searches (and vice versa). The store is therefore immutable for the whole
// duration of any search.
type Flat struct {
	mu    sync.RWMutex
	opts  Options
	store *vectorstore.Store
}

// New creates a new instance of the flat index.
// Dimension is required and must be set at creation time.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &index.ErrInvalidDimension{Dimension: opts.Dimension}
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = runtime.GOMAXPROCS(0)
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}

	store, err := vectorstore.New(opts.Dimension, func(o *vectorstore.Options) {
		o.InitialCapacity = opts.InitialCapacity
		o.Acquirer = opts.Acquirer
	})
	if err != nil {
		return nil, translateStoreError(err, opts.Dimension, 0)
	}

	return &Flat{
		opts:  opts,
		store: store,
	}, nil
}

func (*Flat) Name() string { return "Flat" }

// Dimension returns the configured vector dimensionality.
func (f *Flat) Dimension() int {
	return f.store.Dimension()
}

// Count returns the number of stored vectors.
func (f *Flat) Count() int {
	return f.store.Count()
}

// MemoryBytes returns the size of the backing vector storage in bytes.
func (f *Flat) MemoryBytes() int64 {
	return f.store.MemoryBytes()
}

// Insert appends a vector to the index and returns its id.
// Ids are sequential insertion positions starting at 0.
func (f *Flat) Insert(ctx context.Context, v []float32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, index.ErrEmptyVector
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id, err := f.store.Append(ctx, v)
	if err != nil {
		return 0, translateStoreError(err, f.store.Dimension(), len(v))
	}
	return id, nil
}

// BatchInsert appends multiple vectors in a single operation, acquiring the
// write lock once. Failures are reported per item; valid items are still
// inserted.
func (f *Flat) BatchInsert(ctx context.Context, vectors [][]float32) index.BatchInsertResult {
	result := index.BatchInsertResult{
		IDs:    make([]uint32, len(vectors)),
		Errors: make([]error, len(vectors)),
	}

	if len(vectors) == 0 {
		return result
	}

	if err := ctx.Err(); err != nil {
		for i := range result.Errors {
			result.Errors[i] = err
		}
		return result
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dim := f.store.Dimension()
	for i, v := range vectors {
		if len(v) == 0 {
			result.Errors[i] = index.ErrEmptyVector
			continue
		}
		if len(v) != dim {
			result.Errors[i] = &index.ErrDimensionMismatch{Expected: dim, Actual: len(v)}
			continue
		}

		id, err := f.store.Append(ctx, v)
		if err != nil {
			result.Errors[i] = translateStoreError(err, dim, len(v))
			continue
		}
		result.IDs[i] = id
	}

	return result
}

// VectorByID returns a copy of the vector stored at the given id.
func (f *Flat) VectorByID(ctx context.Context, id uint32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	v, err := f.store.Get(id)
	if err != nil {
		if errors.Is(err, vectorstore.ErrOutOfBounds) {
			return nil, &index.ErrIndexOutOfRange{Index: id, Size: f.store.Count()}
		}
		return nil, err
	}
	return v, nil
}

// KNNSearch returns the k nearest stored vectors to q, sorted by ascending
// (distance, id). If fewer than k vectors are stored, all of them are
// returned; searching an empty index yields an empty result, not an error.
func (f *Flat) KNNSearch(ctx context.Context, q []float32, k int, opts *index.SearchOptions) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, index.ErrInvalidK
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if dim := f.store.Dimension(); len(q) != dim {
		return nil, &index.ErrDimensionMismatch{Expected: dim, Actual: len(q)}
	}

	var filter func(id uint32) bool
	if opts != nil {
		filter = opts.Filter
	}

	return f.searchLocked(ctx, q, k, filter)
}

// KNNSearchStream returns an iterator over K-nearest neighbor search
// results, yielded in order from nearest to farthest. Stop iterating to
// terminate early.
func (f *Flat) KNNSearchStream(ctx context.Context, q []float32, k int, opts *index.SearchOptions) iter.Seq2[index.SearchResult, error] {
	return func(yield func(index.SearchResult, error) bool) {
		results, err := f.KNNSearch(ctx, q, k, opts)
		if err != nil {
			yield(index.SearchResult{}, err)
			return
		}

		for _, result := range results {
			if !yield(result, nil) {
				return
			}
		}
	}
}

// Search runs one exact scan per query and returns one result slice per
// query, in input order. Queries are independent; they are fanned out across
// workers since each scan only reads the store.
func (f *Flat) Search(ctx context.Context, queries [][]float32, k int) ([][]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, index.ErrInvalidK
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	dim := f.store.Dimension()
	for _, q := range queries {
		if len(q) != dim {
			return nil, &index.ErrDimensionMismatch{Expected: dim, Actual: len(q)}
		}
	}

	results := make([][]index.SearchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.NumWorkers)

	for i, q := range queries {
		g.Go(func() error {
			res, err := f.scanSerial(gctx, q, k, nil)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// searchLocked runs a single-query scan. The caller holds the read lock.
func (f *Flat) searchLocked(ctx context.Context, q []float32, k int, filter func(id uint32) bool) ([]index.SearchResult, error) {
	_, count := f.store.Raw()
	if count >= parallelThreshold && f.opts.NumWorkers > 1 {
		return f.scanParallel(ctx, q, k, filter)
	}
	return f.scanSerial(ctx, q, k, filter)
}

// scanSerial scans the whole store on the calling goroutine.
func (f *Flat) scanSerial(ctx context.Context, q []float32, k int, filter func(id uint32) bool) ([]index.SearchResult, error) {
	data, count := f.store.Raw()
	if count == 0 {
		return []index.SearchResult{}, nil
	}

	if k > count {
		k = count
	}

	tk := queue.New(k)
	if err := f.scanRange(ctx, data, q, 0, count, filter, tk); err != nil {
		return nil, err
	}
	return drainToResults(tk), nil
}

// scanParallel splits the store into contiguous per-worker ranges, collects a
// local top-k per range, and merges the local winners into the global top-k.
// The merge is associative and commutative, so the outcome is identical to a
// sequential scan.
func (f *Flat) scanParallel(ctx context.Context, q []float32, k int, filter func(id uint32) bool) ([]index.SearchResult, error) {
	data, count := f.store.Raw()
	if count == 0 {
		return []index.SearchResult{}, nil
	}

	if k > count {
		k = count
	}

	workers := f.opts.NumWorkers
	if workers > count {
		workers = count
	}

	locals := make([]*queue.TopK, workers)
	chunk := (count + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > count {
			hi = count
		}
		if lo >= hi {
			locals[w] = queue.New(k)
			continue
		}

		g.Go(func() error {
			local := queue.New(k)
			if err := f.scanRange(gctx, data, q, lo, hi, filter, local); err != nil {
				return err
			}
			locals[w] = local
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	global := queue.New(k)
	for _, local := range locals {
		global.Merge(local)
	}
	return drainToResults(global), nil
}

// scanRange feeds the distances of stored vectors [lo, hi) into tk, one
// block at a time. Without a filter the whole block goes through the batch
// kernel; with a filter vectors are scored individually.
func (f *Flat) scanRange(ctx context.Context, data []float32, q []float32, lo, hi int, filter func(id uint32) bool, tk *queue.TopK) error {
	dim := f.store.Dimension()
	blockSize := f.opts.BlockSize

	if filter == nil {
		buf := make([]float32, blockSize)
		for start := lo; start < hi; start += blockSize {
			if err := ctx.Err(); err != nil {
				return err
			}

			end := start + blockSize
			if end > hi {
				end = hi
			}
			n := end - start

			distance.SquaredL2Batch(q, data[start*dim:end*dim], dim, buf[:n])
			for i := 0; i < n; i++ {
				tk.Offer(buf[i], uint32(start+i))
			}
		}
		return nil
	}

	for i := lo; i < hi; i++ {
		if i%blockSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		id := uint32(i)
		if !filter(id) {
			continue
		}
		tk.Offer(distance.SquaredL2(q, data[i*dim:(i+1)*dim]), id)
	}
	return nil
}

func drainToResults(tk *queue.TopK) []index.SearchResult {
	candidates := tk.Drain()
	results := make([]index.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = index.SearchResult{ID: c.ID, Distance: c.Distance}
	}
	return results
}

// translateStoreError maps vectorstore sentinels onto the index error types.
func translateStoreError(err error, dim, actual int) error {
	switch {
	case errors.Is(err, vectorstore.ErrWrongDimension):
		return &index.ErrDimensionMismatch{Expected: dim, Actual: actual}
	case errors.Is(err, vectorstore.ErrInvalidDimension):
		return &index.ErrInvalidDimension{Dimension: dim}
	default:
		return err
	}
}

// Close releases the underlying store resources.
func (f *Flat) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store.Close()
}
