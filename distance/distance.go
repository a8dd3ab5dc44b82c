package distance

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
//
// The accumulation runs in float64 and is rounded to float32 once at the end.
//
// SAFETY: This function assumes len(a) == len(b).
// It does NOT perform bounds checks for performance reasons.
// Callers MUST ensure lengths match to avoid buffer over-reads.
func SquaredL2(a, b []float32) float32 {
	return squaredL2(a, b)
}

func squaredL2(a, b []float32) float32 {
	// Four independent accumulators keep the FP dependency chains short.
	var s0, s1, s2, s3 float64

	i := 0
	for ; i+4 <= len(a); i += 4 {
		d0 := float64(a[i]) - float64(b[i])
		d1 := float64(a[i+1]) - float64(b[i+1])
		d2 := float64(a[i+2]) - float64(b[i+2])
		d3 := float64(a[i+3]) - float64(b[i+3])
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < len(a); i++ {
		d := float64(a[i]) - float64(b[i])
		s0 += d * d
	}

	return float32(s0 + s1 + s2 + s3)
}

// SquaredL2Batch calculates squared L2 distances for a batch of vectors.
// targets is a flattened array of N vectors, each of dimension dim:
// vector i occupies targets[i*dim : (i+1)*dim]. out must have length N
// (len(targets) / dim); one distance is written per target vector.
//
// Walking the flattened array front to back keeps the scan sequential and
// cache-friendly; the flat index feeds it one contiguous block at a time.
func SquaredL2Batch(query []float32, targets []float32, dim int, out []float32) {
	if dim <= 0 || len(out) == 0 {
		return
	}
	if len(query) < dim {
		return
	}

	q := query[:dim]
	n := len(targets) / dim
	if n > len(out) {
		n = len(out)
	}

	for i := 0; i < n; i++ {
		offset := i * dim
		out[i] = squaredL2(q, targets[offset:offset+dim])
	}
}
