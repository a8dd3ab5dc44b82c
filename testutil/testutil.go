package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/flatvec/flatvec/distance"
)

// SearchResult represents a search result.
type SearchResult struct {
	ID       uint32
	Distance float32
}

// RNG encapsulates a seeded random number generator.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a uniform random int in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a uniform random float32 in [0, 1).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// FillGaussian fills dst with standard normal random values.
func (r *RNG) FillGaussian(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = float32(r.rand.NormFloat64())
	}
}

// UniformVectors generates num vectors of the given dimension with
// components uniform in [0, 1).
func (r *RNG) UniformVectors(num, dimensions int) [][]float32 {
	vectors := make([][]float32, num)
	for i := range vectors {
		v := make([]float32, dimensions)
		r.FillUniform(v)
		vectors[i] = v
	}
	return vectors
}

// GaussianVectors generates num vectors of the given dimension with
// standard normal components.
func (r *RNG) GaussianVectors(num, dimensions int) [][]float32 {
	vectors := make([][]float32, num)
	for i := range vectors {
		v := make([]float32, dimensions)
		r.FillGaussian(v)
		vectors[i] = v
	}
	return vectors
}

// BruteForceSearch computes the exact k nearest neighbors of query by
// scoring every vector and fully sorting, with the same (distance, id)
// tie-break the engine uses. It is the ground-truth reference the bounded
// collector is checked against.
func BruteForceSearch(vectors [][]float32, query []float32, k int) []SearchResult {
	all := make([]SearchResult, len(vectors))
	for i, v := range vectors {
		all[i] = SearchResult{
			ID:       uint32(i),
			Distance: distance.SquaredL2(query, v),
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].ID < all[j].ID
	})

	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

// ComputeRecall computes recall@k: the fraction of ground-truth ids present
// in the approximate result set.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 {
		return 1.0
	}

	truth := make(map[uint32]struct{}, len(groundTruth))
	for _, r := range groundTruth {
		truth[r.ID] = struct{}{}
	}

	hits := 0
	for _, r := range approximate {
		if _, ok := truth[r.ID]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(groundTruth))
}

// MaxDistanceDelta returns the largest absolute difference between the
// distances of two result lists, compared position by position. Both lists
// must be in the same units (squared L2); comparing squared distances
// against true Euclidean ones produces a spurious large delta.
func MaxDistanceDelta(a, b []SearchResult) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var maxDelta float64
	for i := 0; i < n; i++ {
		d := math.Abs(float64(a[i].Distance) - float64(b[i].Distance))
		if d > maxDelta {
			maxDelta = d
		}
	}
	return maxDelta
}
