// Command flatvec-bench benchmarks the exact search engine on synthetic data
// and verifies its results against a full-sort reference.
//
// Usage:
//
//	flatvec-bench -vectors 100000 -dim 128 -queries 1000 -k 10
//	flatvec-bench -vectors 100000 -dim 128 -qps 500
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/flatvec/flatvec"
	"github.com/flatvec/flatvec/testutil"
)

func main() {
	numVectors := flag.Int("vectors", 100000, "Number of base vectors")
	dim := flag.Int("dim", 128, "Vector dimension")
	numQueries := flag.Int("queries", 1000, "Number of queries")
	k := flag.Int("k", 10, "Number of neighbors per query")
	workers := flag.Int("workers", 0, "Worker goroutines (0 = GOMAXPROCS)")
	seed := flag.Int64("seed", 42, "Random seed for data generation")
	qps := flag.Float64("qps", 0, "Paced query rate (0 = unpaced)")
	verify := flag.Int("verify", 100, "Queries to verify against full sort (0 = skip)")
	euclidean := flag.Bool("euclidean", false, "Report Euclidean instead of squared distances")
	flag.Parse()

	if *k <= 0 || *numVectors <= 0 || *dim <= 0 || *numQueries <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()

	fmt.Printf("flatvec bench: %d vectors, dim %d, %d queries, k=%d\n",
		*numVectors, *dim, *numQueries, *k)

	fmt.Println("Generating data...")
	rng := testutil.NewRNG(*seed)
	base := rng.UniformVectors(*numVectors, *dim)
	queries := rng.UniformVectors(*numQueries, *dim)

	fmt.Println("Building index...")
	buildStart := time.Now()

	db, err := flatvec.New(*dim,
		flatvec.WithNumWorkers(*workers),
		flatvec.WithInitialCapacity(*numVectors),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	result := db.BatchInsert(ctx, base)
	for i, err := range result.Errors {
		if err != nil {
			log.Fatalf("insert %d: %v", i, err)
		}
	}
	buildTime := time.Since(buildStart)

	// Warmup
	for i := 0; i < 10 && i < len(queries); i++ {
		if _, err := db.KNNSearch(ctx, queries[i], *k); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println("Benchmarking search...")
	var limiter *rate.Limiter
	if *qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(*qps), 1)
	}

	searchStart := time.Now()
	for _, q := range queries {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				log.Fatal(err)
			}
		}
		if _, err := db.KNNSearch(ctx, q, *k); err != nil {
			log.Fatal(err)
		}
	}
	searchTime := time.Since(searchStart)

	fmt.Println("Benchmarking batch search...")
	batchStart := time.Now()
	if _, err := db.SearchBatch(ctx, queries, *k); err != nil {
		log.Fatal(err)
	}
	batchTime := time.Since(batchStart)

	stats := db.Stats()

	fmt.Println("\n=== Benchmark Results ===")
	fmt.Printf("Vectors: %d, Dimension: %d\n", stats.Count, stats.Dimension)
	fmt.Printf("Memory: %.2f MB\n", float64(stats.MemoryBytes)/(1024*1024))
	fmt.Printf("Build Time: %.2f ms\n", float64(buildTime.Milliseconds()))
	fmt.Printf("Avg Query Time: %.4f ms\n",
		float64(searchTime.Microseconds())/float64(*numQueries)/1000)
	fmt.Printf("Queries Per Second: %.2f\n",
		float64(*numQueries)/searchTime.Seconds())
	fmt.Printf("Batch Queries Per Second: %.2f\n",
		float64(*numQueries)/batchTime.Seconds())

	if *verify > 0 {
		verifyResults(ctx, db, base, queries, *k, *verify, *euclidean)
	}
}

// verifyResults checks engine output against the full-sort reference on a
// sample of queries. An exact engine must report recall 1.0 and a zero
// distance delta; anything else is a bug.
func verifyResults(ctx context.Context, db *flatvec.Flatvec, base, queries [][]float32, k, sample int, euclidean bool) {
	if sample > len(queries) {
		sample = len(queries)
	}

	fmt.Printf("\nVerifying %d queries against full sort...\n", sample)

	var recallSum float64
	var maxDelta float64
	var worst float32

	for _, q := range queries[:sample] {
		truth := testutil.BruteForceSearch(base, q, k)

		results, err := db.KNNSearch(ctx, q, k)
		if err != nil {
			log.Fatal(err)
		}

		got := make([]testutil.SearchResult, len(results))
		for i, r := range results {
			got[i] = testutil.SearchResult{ID: r.ID, Distance: r.Distance}
			if r.Distance > worst {
				worst = r.Distance
			}
		}

		recallSum += testutil.ComputeRecall(truth, got)
		if d := testutil.MaxDistanceDelta(truth, got); d > maxDelta {
			maxDelta = d
		}
	}

	unit := "squared L2"
	worstOut := float64(worst)
	if euclidean {
		unit = "L2"
		worstOut = math.Sqrt(worstOut)
	}

	fmt.Println("\n=== Verification ===")
	fmt.Printf("Recall@%d: %.4f\n", k, recallSum/float64(sample))
	fmt.Printf("Max Distance Delta: %g\n", maxDelta)
	fmt.Printf("Worst Reported Distance: %.4f (%s)\n", worstOut, unit)

	if recallSum/float64(sample) < 1.0 || maxDelta != 0 {
		log.Fatal("verification failed: results differ from full sort")
	}
	fmt.Println("OK: engine results identical to full sort")
}
