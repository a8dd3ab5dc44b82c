package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/flatvec/flatvec"
	"github.com/flatvec/flatvec/testutil"
)

func main() {
	seed := int64(4711)
	dim := 32
	size := 50000
	k := 10

	ctx := context.Background()

	db, err := flatvec.New(dim, flatvec.WithInitialCapacity(size))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rng := testutil.NewRNG(seed)
	vectors := rng.UniformVectors(size, dim)
	query := rng.UniformVectors(1, dim)[0]

	fmt.Println("--- Insert ---")
	fmt.Println("Dimension:", dim)
	fmt.Println("Size:", size)

	start := time.Now()

	result := db.BatchInsert(ctx, vectors)
	for _, err := range result.Errors {
		if err != nil {
			log.Fatal(err)
		}
	}

	fmt.Printf("Seconds: %.2f\n\n", time.Since(start).Seconds())

	stats := db.Stats()
	fmt.Printf("Stats: %d vectors, %.2f MB\n\n", stats.Count, float64(stats.MemoryBytes)/(1024*1024))

	fmt.Println("--- Exact KNN ---")

	start = time.Now()

	results, err := db.KNNSearch(ctx, query, k)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Milliseconds: %.2f\n\n", float64(time.Since(start).Microseconds())/1000)

	for i, r := range results {
		fmt.Printf("%2d. id=%6d distance=%.6f\n", i+1, r.ID, r.Distance)
	}
}
