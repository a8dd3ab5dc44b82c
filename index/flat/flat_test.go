package flat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flatvec/flatvec/index"
	"github.com/flatvec/flatvec/testutil"
)

func newTestIndex(t *testing.T, dim int, optFns ...func(o *Options)) *Flat {
	t.Helper()

	fns := append([]func(o *Options){func(o *Options) { o.Dimension = dim }}, optFns...)
	f, err := New(fns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFlatNew(t *testing.T) {
	t.Run("InvalidDimension", func(t *testing.T) {
		_, err := New()
		var ide *index.ErrInvalidDimension
		require.ErrorAs(t, err, &ide)
		assert.Equal(t, 0, ide.Dimension)

		_, err = New(func(o *Options) { o.Dimension = -5 })
		assert.ErrorAs(t, err, &ide)
	})
}

func TestFlatInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("SequentialIDs", func(t *testing.T) {
		f := newTestIndex(t, 3)

		id, err := f.Insert(ctx, []float32{1.0, 2.0, 3.0})
		require.NoError(t, err)
		assert.Equal(t, uint32(0), id)

		id, err = f.Insert(ctx, []float32{4.0, 5.0, 6.0})
		require.NoError(t, err)
		assert.Equal(t, uint32(1), id)

		assert.Equal(t, 2, f.Count())
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		f := newTestIndex(t, 3)

		_, err := f.Insert(ctx, []float32{1.0, 2.0})
		var dm *index.ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 3, dm.Expected)
		assert.Equal(t, 2, dm.Actual)
	})

	t.Run("EmptyVector", func(t *testing.T) {
		f := newTestIndex(t, 3)

		_, err := f.Insert(ctx, nil)
		assert.ErrorIs(t, err, index.ErrEmptyVector)
	})
}

func TestFlatBatchInsert(t *testing.T) {
	ctx := context.Background()

	f := newTestIndex(t, 2)

	result := f.BatchInsert(ctx, [][]float32{
		{1, 2},
		{3, 4, 5}, // wrong dimension
		{5, 6},
	})

	require.NoError(t, result.Errors[0])
	require.Error(t, result.Errors[1])
	require.NoError(t, result.Errors[2])

	assert.Equal(t, uint32(0), result.IDs[0])
	assert.Equal(t, uint32(1), result.IDs[2])
	assert.Equal(t, 2, f.Count())
}

func TestFlatVectorByID(t *testing.T) {
	ctx := context.Background()

	f := newTestIndex(t, 2)

	id, err := f.Insert(ctx, []float32{1, 2})
	require.NoError(t, err)

	v, err := f.VectorByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)

	_, err = f.VectorByID(ctx, 5)
	var oor *index.ErrIndexOutOfRange
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, uint32(5), oor.Index)
	assert.Equal(t, 1, oor.Size)
}

func TestFlatKNNSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("Basic", func(t *testing.T) {
		f := newTestIndex(t, 3)

		_, _ = f.Insert(ctx, []float32{1.0, 2.0, 3.0})
		_, _ = f.Insert(ctx, []float32{4.0, 5.0, 6.0})
		_, _ = f.Insert(ctx, []float32{7.0, 8.0, 9.0})

		results, err := f.KNNSearch(ctx, []float32{0.0, 0.0, 0.0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, uint32(0), results[0].ID)
		assert.Equal(t, uint32(1), results[1].ID)
		assert.Equal(t, float32(14), results[0].Distance)
	})

	t.Run("InvalidK", func(t *testing.T) {
		f := newTestIndex(t, 3)

		_, err := f.KNNSearch(ctx, []float32{0, 0, 0}, 0, nil)
		assert.ErrorIs(t, err, index.ErrInvalidK)

		_, err = f.KNNSearch(ctx, []float32{0, 0, 0}, -1, nil)
		assert.ErrorIs(t, err, index.ErrInvalidK)
	})

	t.Run("QueryDimensionMismatch", func(t *testing.T) {
		f := newTestIndex(t, 3)
		_, _ = f.Insert(ctx, []float32{1, 2, 3})

		_, err := f.KNNSearch(ctx, []float32{0, 0}, 1, nil)
		var dm *index.ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm)
	})

	t.Run("KLargerThanCount", func(t *testing.T) {
		f := newTestIndex(t, 2)
		_, _ = f.Insert(ctx, []float32{1, 0})
		_, _ = f.Insert(ctx, []float32{2, 0})

		results, err := f.KNNSearch(ctx, []float32{0, 0}, 10, nil)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("EmptyIndex", func(t *testing.T) {
		f := newTestIndex(t, 2)

		results, err := f.KNNSearch(ctx, []float32{0, 0}, 5, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("ExactMatchIsFirst", func(t *testing.T) {
		f := newTestIndex(t, 2)

		_, _ = f.Insert(ctx, []float32{5, 5})
		_, _ = f.Insert(ctx, []float32{1, 2}) // id 1
		_, _ = f.Insert(ctx, []float32{9, 9})
		_, _ = f.Insert(ctx, []float32{1, 2}) // id 3, duplicate

		results, err := f.KNNSearch(ctx, []float32{1, 2}, 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)

		// Distance 0 for both duplicates; the smaller id comes first.
		assert.Equal(t, uint32(1), results[0].ID)
		assert.Equal(t, float32(0), results[0].Distance)
		assert.Equal(t, uint32(3), results[1].ID)
		assert.Equal(t, float32(0), results[1].Distance)
	})

	t.Run("SortedNonDecreasing", func(t *testing.T) {
		f := newTestIndex(t, 4)

		rng := testutil.NewRNG(5)
		for _, v := range rng.UniformVectors(200, 4) {
			_, err := f.Insert(ctx, v)
			require.NoError(t, err)
		}

		query := rng.UniformVectors(1, 4)[0]
		results, err := f.KNNSearch(ctx, query, 20, nil)
		require.NoError(t, err)
		require.Len(t, results, 20)

		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
		}
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Distance, float32(0))
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		f := newTestIndex(t, 8)

		rng := testutil.NewRNG(9)
		for _, v := range rng.UniformVectors(500, 8) {
			_, err := f.Insert(ctx, v)
			require.NoError(t, err)
		}

		query := rng.UniformVectors(1, 8)[0]
		first, err := f.KNNSearch(ctx, query, 10, nil)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			again, err := f.KNNSearch(ctx, query, 10, nil)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("Filter", func(t *testing.T) {
		f := newTestIndex(t, 2)

		for i := 0; i < 10; i++ {
			_, _ = f.Insert(ctx, []float32{float32(i), 0})
		}

		even := func(id uint32) bool { return id%2 == 0 }
		results, err := f.KNNSearch(ctx, []float32{0, 0}, 3, &index.SearchOptions{Filter: even})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, uint32(0), results[0].ID)
		assert.Equal(t, uint32(2), results[1].ID)
		assert.Equal(t, uint32(4), results[2].ID)
	})
}

// TestFlatMatchesBruteForce checks the collector-based scan against the
// full-sort reference on random data: the bounded selector is an
// optimization, not an approximation, so the results must be identical.
func TestFlatMatchesBruteForce(t *testing.T) {
	ctx := context.Background()

	const dim = 16
	const n = 2000
	const k = 25

	rng := testutil.NewRNG(1234)
	base := rng.UniformVectors(n, dim)
	queries := rng.UniformVectors(20, dim)

	// Small blocks force many block boundaries in the scan.
	f := newTestIndex(t, dim, func(o *Options) { o.BlockSize = 64 })
	res := f.BatchInsert(ctx, base)
	for _, err := range res.Errors {
		require.NoError(t, err)
	}

	for qi, q := range queries {
		want := testutil.BruteForceSearch(base, q, k)

		got, err := f.KNNSearch(ctx, q, k, nil)
		require.NoError(t, err)
		require.Len(t, got, k, "query %d", qi)

		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID, "query %d rank %d", qi, i)
			assert.Equal(t, want[i].Distance, got[i].Distance, "query %d rank %d", qi, i)
		}
	}
}

// TestFlatParallelMatchesSerial forces the block-parallel scan path and
// checks it against the serial path.
func TestFlatParallelMatchesSerial(t *testing.T) {
	ctx := context.Background()

	const dim = 8
	const n = parallelThreshold + 500
	const k = 13

	rng := testutil.NewRNG(77)
	base := rng.UniformVectors(n, dim)
	queries := rng.UniformVectors(5, dim)

	serial := newTestIndex(t, dim, func(o *Options) { o.NumWorkers = 1 })
	parallel := newTestIndex(t, dim, func(o *Options) { o.NumWorkers = 4 })

	for _, f := range []*Flat{serial, parallel} {
		res := f.BatchInsert(ctx, base)
		for _, err := range res.Errors {
			require.NoError(t, err)
		}
	}

	for qi, q := range queries {
		wantRes, err := serial.KNNSearch(ctx, q, k, nil)
		require.NoError(t, err)

		gotRes, err := parallel.KNNSearch(ctx, q, k, nil)
		require.NoError(t, err)

		assert.Equal(t, wantRes, gotRes, "query %d", qi)
	}
}

func TestFlatSearchBatch(t *testing.T) {
	ctx := context.Background()

	const dim = 4
	const k = 3

	rng := testutil.NewRNG(3)
	base := rng.UniformVectors(300, dim)
	queries := rng.UniformVectors(25, dim)

	f := newTestIndex(t, dim, func(o *Options) { o.NumWorkers = 4 })
	res := f.BatchInsert(ctx, base)
	for _, err := range res.Errors {
		require.NoError(t, err)
	}

	t.Run("OrderPreserved", func(t *testing.T) {
		results, err := f.Search(ctx, queries, k)
		require.NoError(t, err)
		require.Len(t, results, len(queries))

		for i, q := range queries {
			want, err := f.KNNSearch(ctx, q, k, nil)
			require.NoError(t, err)
			assert.Equal(t, want, results[i], "query %d", i)
		}
	})

	t.Run("InvalidK", func(t *testing.T) {
		_, err := f.Search(ctx, queries, 0)
		assert.ErrorIs(t, err, index.ErrInvalidK)
	})

	t.Run("BadQueryDimension", func(t *testing.T) {
		_, err := f.Search(ctx, [][]float32{{1, 2}}, k)
		var dm *index.ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm)
	})

	t.Run("NoQueries", func(t *testing.T) {
		results, err := f.Search(ctx, nil, k)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

// TestFlatResultsSurviveAppends checks that results returned by a search do
// not change when vectors are appended afterwards.
func TestFlatResultsSurviveAppends(t *testing.T) {
	ctx := context.Background()

	f := newTestIndex(t, 2)
	_, _ = f.Insert(ctx, []float32{1, 1})
	_, _ = f.Insert(ctx, []float32{2, 2})

	results, err := f.KNNSearch(ctx, []float32{0, 0}, 2, nil)
	require.NoError(t, err)

	snapshot := make([]index.SearchResult, len(results))
	copy(snapshot, results)

	for i := 0; i < 100; i++ {
		_, err := f.Insert(ctx, []float32{0, 0})
		require.NoError(t, err)
	}

	assert.Equal(t, snapshot, results)
}

func TestFlatStream(t *testing.T) {
	ctx := context.Background()

	f := newTestIndex(t, 2)
	for i := 0; i < 10; i++ {
		_, _ = f.Insert(ctx, []float32{float32(i), 0})
	}

	t.Run("YieldsInOrder", func(t *testing.T) {
		var ids []uint32
		for result, err := range f.KNNSearchStream(ctx, []float32{0, 0}, 5, nil) {
			require.NoError(t, err)
			ids = append(ids, result.ID)
		}
		assert.Equal(t, []uint32{0, 1, 2, 3, 4}, ids)
	})

	t.Run("EarlyTermination", func(t *testing.T) {
		seen := 0
		for _, err := range f.KNNSearchStream(ctx, []float32{0, 0}, 5, nil) {
			require.NoError(t, err)
			seen++
			if seen == 2 {
				break
			}
		}
		assert.Equal(t, 2, seen)
	})

	t.Run("PropagatesError", func(t *testing.T) {
		for _, err := range f.KNNSearchStream(ctx, []float32{0, 0}, 0, nil) {
			assert.ErrorIs(t, err, index.ErrInvalidK)
		}
	})
}

// TestFlatConcurrentSearchAndInsert exercises the read/write exclusion under
// the race detector: many concurrent searches with interleaved appends.
func TestFlatConcurrentSearchAndInsert(t *testing.T) {
	ctx := context.Background()

	const dim = 8

	f := newTestIndex(t, dim)
	rng := testutil.NewRNG(55)
	for _, v := range rng.UniformVectors(1000, dim) {
		_, err := f.Insert(ctx, v)
		require.NoError(t, err)
	}

	queries := rng.UniformVectors(50, dim)
	extra := rng.UniformVectors(200, dim)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for _, q := range queries {
				results, err := f.KNNSearch(ctx, q, 5, nil)
				assert.NoError(t, err)
				assert.Len(t, results, 5)
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, v := range extra {
			_, err := f.Insert(ctx, v)
			assert.NoError(t, err)
		}
	}()

	wg.Wait()
	assert.Equal(t, 1200, f.Count())
}
