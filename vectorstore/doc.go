// Package vectorstore provides append-only columnar storage for
// fixed-dimension float32 vectors.
//
// Vectors are stored contiguously in a single []float32 slice, so vector id
// occupies data[id*dim : (id+1)*dim]. The SOA layout gives the flat index a
// cache-friendly sequential scan and lets the distance kernels run over whole
// blocks without per-vector pointer chasing.
//
// The store is append-only: a vector's id is its insertion position and never
// changes, and stored vectors are never updated or deleted. Appends copy the
// input, so callers may reuse their buffers.
package vectorstore
