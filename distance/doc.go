// Package distance provides the squared L2 distance kernels used by the
// flat index scan.
//
// All distances in this module are squared Euclidean (L2) distances.
// Squared L2 is monotonic with true Euclidean distance and avoids a square
// root per comparison; callers that need true Euclidean distance take the
// square root themselves.
//
// Kernels accumulate in float64 even though vectors are stored as float32.
// A single-precision accumulator loses roughly one bit of precision per
// doubling of the dimension; the double-precision accumulator keeps the
// rounding error of a d=128 or d=1024 scan negligible. The sum is rounded
// to float32 exactly once, on return.
package distance
