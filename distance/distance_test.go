package distance

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceSquaredL2 is the obvious one-pass float64 implementation the
// kernel must agree with.
func referenceSquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func TestSquaredL2(t *testing.T) {
	t.Run("Simple", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{4, 6, 8}
		// (3)^2 + (4)^2 + (5)^2 = 50
		assert.Equal(t, float32(50), SquaredL2(a, b))
	})

	t.Run("Identical", func(t *testing.T) {
		v := []float32{0.25, -1.5, 3.75, 100}
		assert.Equal(t, float32(0), SquaredL2(v, v))
	})

	t.Run("TailLengths", func(t *testing.T) {
		// Exercise the unrolled loop remainder for every tail size.
		rng := rand.New(rand.NewSource(1))
		for dim := 1; dim <= 9; dim++ {
			a := make([]float32, dim)
			b := make([]float32, dim)
			for i := range a {
				a[i] = rng.Float32()
				b[i] = rng.Float32()
			}
			want := referenceSquaredL2(a, b)
			got := SquaredL2(a, b)
			assert.InDelta(t, want, float64(got), 1e-4, "dim=%d", dim)
		}
	})

	t.Run("MatchesReference", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		dims := []int{4, 32, 128, 1000}
		for _, dim := range dims {
			a := make([]float32, dim)
			b := make([]float32, dim)
			for i := range a {
				a[i] = rng.Float32()*200 - 100
				b[i] = rng.Float32()*200 - 100
			}
			want := referenceSquaredL2(a, b)
			got := float64(SquaredL2(a, b))
			// The kernel sum differs from the reference only by the final
			// float32 rounding step.
			assert.InEpsilon(t, want, got, 1e-6, "dim=%d", dim)
		}
	})

	t.Run("NonNegative", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		a := make([]float32, 64)
		b := make([]float32, 64)
		for i := range a {
			a[i] = rng.Float32() - 0.5
			b[i] = rng.Float32() - 0.5
		}
		assert.GreaterOrEqual(t, SquaredL2(a, b), float32(0))
		assert.False(t, math.IsNaN(float64(SquaredL2(a, b))))
	})
}

func TestSquaredL2Batch(t *testing.T) {
	t.Run("MatchesSinglePair", func(t *testing.T) {
		const dim = 16
		const n = 100

		rng := rand.New(rand.NewSource(3))
		query := make([]float32, dim)
		targets := make([]float32, n*dim)
		for i := range query {
			query[i] = rng.Float32()
		}
		for i := range targets {
			targets[i] = rng.Float32()
		}

		out := make([]float32, n)
		SquaredL2Batch(query, targets, dim, out)

		for i := 0; i < n; i++ {
			vec := targets[i*dim : (i+1)*dim]
			require.Equal(t, SquaredL2(query, vec), out[i], "vector %d", i)
		}
	})

	t.Run("EmptyTargets", func(t *testing.T) {
		out := make([]float32, 4)
		SquaredL2Batch([]float32{1, 2}, nil, 2, out)
		assert.Equal(t, []float32{0, 0, 0, 0}, out)
	})

	t.Run("OutShorterThanTargets", func(t *testing.T) {
		// Only len(out) distances are written.
		query := []float32{0, 0}
		targets := []float32{1, 0, 2, 0, 3, 0}
		out := make([]float32, 2)
		SquaredL2Batch(query, targets, 2, out)
		assert.Equal(t, []float32{1, 4}, out)
	})

	t.Run("InvalidDim", func(t *testing.T) {
		out := make([]float32, 1)
		SquaredL2Batch([]float32{1}, []float32{1}, 0, out)
		assert.Equal(t, float32(0), out[0])
	})
}

func BenchmarkSquaredL2(b *testing.B) {
	const dim = 128

	rng := rand.New(rand.NewSource(1))
	x := make([]float32, dim)
	y := make([]float32, dim)
	for i := range x {
		x[i] = rng.Float32()
		y[i] = rng.Float32()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = SquaredL2(x, y)
	}
}

func BenchmarkSquaredL2Batch(b *testing.B) {
	const dim = 128
	const n = 1024

	rng := rand.New(rand.NewSource(1))
	query := make([]float32, dim)
	targets := make([]float32, n*dim)
	for i := range query {
		query[i] = rng.Float32()
	}
	for i := range targets {
		targets[i] = rng.Float32()
	}
	out := make([]float32, n)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SquaredL2Batch(query, targets, dim, out)
	}
}
