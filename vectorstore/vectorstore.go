package vectorstore

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrWrongDimension is returned when a vector's length does not match
	// the store dimension.
	ErrWrongDimension = errors.New("vectorstore: wrong vector dimension")

	// ErrOutOfBounds is returned when an id is outside the stored range.
	ErrOutOfBounds = errors.New("vectorstore: id out of bounds")

	// ErrInvalidDimension is returned when a store is created with a
	// non-positive dimension.
	ErrInvalidDimension = errors.New("vectorstore: dimension must be positive")
)

// MemoryAcquirer reserves and releases memory against a global budget.
// It is implemented by resource.Controller.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, bytes int64) error
	ReleaseMemory(bytes int64)
}

// Options contains configuration options for the store.
type Options struct {
	// InitialCapacity is the number of vectors to pre-allocate space for.
	InitialCapacity int

	// Acquirer accounts allocations against a shared memory budget.
	// Nil disables accounting.
	Acquirer MemoryAcquirer
}

// DefaultOptions contains the default configuration options for the store.
var DefaultOptions = Options{
	InitialCapacity: 1024,
}

// Store is an append-only columnar vector store.
//
// Reads and appends are guarded by an RWMutex: any number of concurrent
// readers may proceed together, while an append waits for in-flight readers
// and vice versa. The flat index additionally holds the read lock across a
// whole scan so the Raw view stays stable for its duration.
type Store struct {
	mu    sync.RWMutex
	dim   int
	data  []float32 // vectors[id] = data[id*dim : (id+1)*dim]
	count int

	acquirer MemoryAcquirer
	reserved int64 // bytes currently accounted with the acquirer
}

// New creates an empty store for vectors of the given dimension.
func New(dim int, optFns ...func(o *Options)) (*Store, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.InitialCapacity < 0 {
		opts.InitialCapacity = 0
	}

	s := &Store{
		dim:      dim,
		acquirer: opts.Acquirer,
	}

	initialCap := opts.InitialCapacity * dim
	if initialCap > 0 {
		if s.acquirer != nil {
			bytes := int64(initialCap) * 4
			if err := s.acquirer.AcquireMemory(context.Background(), bytes); err != nil {
				return nil, err
			}
			s.reserved = bytes
		}
		s.data = make([]float32, 0, initialCap)
	}

	return s, nil
}

// Dimension returns the vector dimensionality.
func (s *Store) Dimension() int {
	return s.dim
}

// Count returns the number of stored vectors.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// MemoryBytes returns the capacity of the backing array in bytes.
func (s *Store) MemoryBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(cap(s.data)) * 4
}

// Append copies v into the store and returns its new id.
// Ids are sequential starting at 0.
func (s *Store) Append(ctx context.Context, v []float32) (uint32, error) {
	if len(v) != s.dim {
		return 0, ErrWrongDimension
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.growLocked(ctx, 1); err != nil {
		return 0, err
	}

	id := uint32(s.count)
	s.data = append(s.data, v...)
	s.count++
	return id, nil
}

// AppendBatch copies all vectors into the store under a single lock
// acquisition and returns their ids. The batch is all-or-nothing: if any
// vector has the wrong dimension, nothing is appended.
func (s *Store) AppendBatch(ctx context.Context, vectors [][]float32) ([]uint32, error) {
	for _, v := range vectors {
		if len(v) != s.dim {
			return nil, ErrWrongDimension
		}
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.growLocked(ctx, len(vectors)); err != nil {
		return nil, err
	}

	ids := make([]uint32, len(vectors))
	for i, v := range vectors {
		ids[i] = uint32(s.count)
		s.data = append(s.data, v...)
		s.count++
	}
	return ids, nil
}

// Get returns a copy of the vector at id. The copy never aliases internal
// memory, so later appends cannot affect it.
func (s *Store) Get(id uint32) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(id) >= s.count {
		return nil, ErrOutOfBounds
	}

	start := int(id) * s.dim
	out := make([]float32, s.dim)
	copy(out, s.data[start:start+s.dim])
	return out, nil
}

// Raw returns the flattened vector data and the current count.
//
// The returned slice aliases internal memory and is only stable while no
// appends run; callers must hold off appends (the flat index does this by
// holding its read lock across the scan) and must not modify the data.
func (s *Store) Raw() ([]float32, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[:s.count*s.dim], s.count
}

// Close releases any memory accounted with the acquirer.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acquirer != nil && s.reserved > 0 {
		s.acquirer.ReleaseMemory(s.reserved)
		s.reserved = 0
	}
	s.acquirer = nil
	return nil
}

// growLocked ensures capacity for n more vectors, accounting any new
// allocation with the acquirer before it happens.
func (s *Store) growLocked(ctx context.Context, n int) error {
	required := (s.count + n) * s.dim
	if required <= cap(s.data) {
		return nil
	}

	newCap := 2 * cap(s.data)
	if newCap < required {
		newCap = required
	}

	if s.acquirer != nil {
		delta := int64(newCap)*4 - s.reserved
		if delta > 0 {
			if err := s.acquirer.AcquireMemory(ctx, delta); err != nil {
				return err
			}
			s.reserved += delta
		}
	}

	newData := make([]float32, len(s.data), newCap)
	copy(newData, s.data)
	s.data = newData
	return nil
}
