// Package index provides the shared types and errors for vector search
// indexes.
//
// Only the exact flat index exists today. The Index interface is the seam a
// future index variant (for example an approximate one) would implement
// alongside it, rather than subclassing the flat implementation.
package index

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when a non-positive k is requested.
	ErrInvalidK = errors.New("k must be positive")

	// ErrEmptyVector is returned when an empty vector is inserted or queried.
	ErrEmptyVector = errors.New("vector must not be empty")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension is a named error type for an invalid configured
// dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrIndexOutOfRange is a named error type for an id lookup beyond the
// current store size.
type ErrIndexOutOfRange struct {
	Index uint32 // Requested id
	Size  int    // Current store size
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("index %d out of range (size %d)", e.Index, e.Size)
}

// SearchResult represents a single neighbor found by a search.
type SearchResult struct {
	// ID is the identifier of the stored vector (its insertion position).
	ID uint32

	// Distance is the squared L2 distance between the query vector and the
	// result vector.
	Distance float32
}

// SearchOptions carries optional per-search parameters.
type SearchOptions struct {
	// Filter restricts the scan to ids for which it returns true.
	// Nil means no filtering.
	Filter func(id uint32) bool
}

// BatchInsertResult holds per-item results for a batch insert.
// IDs[i] is only meaningful when Errors[i] is nil.
type BatchInsertResult struct {
	IDs    []uint32
	Errors []error
}

// Index represents an index for vector search.
type Index interface {
	// Insert adds a vector to the index and returns its id.
	Insert(ctx context.Context, v []float32) (uint32, error)

	// KNNSearch returns the k nearest stored vectors to q, sorted by
	// ascending (distance, id).
	KNNSearch(ctx context.Context, q []float32, k int, opts *SearchOptions) ([]SearchResult, error)
}
