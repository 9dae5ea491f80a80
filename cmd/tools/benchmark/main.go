package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/db"
	"github.com/myuser/kvgate/internal/status"
	_ "github.com/myuser/kvgate/internal/storage/all"
)

type counters struct {
	ops    atomic.Int64
	errors atomic.Int64
}

func main() {
	concurrency := flag.Int("concurrency", 10, "Number of concurrent workers")
	duration := flag.Duration("duration", 10*time.Second, "Test duration")
	engine := flag.String("engine", "btree", "Storage engine under test")
	path := flag.String("path", "", "Engine path for persistent engines")
	keys := flag.Int("keys", 10000, "Key space size")
	readRatio := flag.Float64("reads", 0.5, "Fraction of operations that are reads")
	flag.Parse()

	cfg := config.New()
	if *path != "" {
		cfg.PutString("path", *path)
	}
	d, st := db.Open(*engine, cfg)
	if st != status.OK {
		fmt.Fprintf(os.Stderr, "open %s: %s\n", *engine, st)
		os.Exit(1)
	}
	defer d.Close()

	fmt.Printf("Starting Benchmark: %d workers, %v duration, engine %s\n", *concurrency, *duration, *engine)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var c counters
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *concurrency; i++ {
		rng := rand.New(rand.NewSource(int64(i)))
		g.Go(func() error {
			return worker(ctx, d, rng, *keys, *readRatio, &c)
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
	}
	elapsed := time.Since(start)

	fmt.Println("Benchmark Finished.")
	fmt.Printf("Total Ops: %d\n", c.ops.Load())
	fmt.Printf("Errors: %d\n", c.errors.Load())
	fmt.Printf("Duration: %v\n", elapsed)
	fmt.Printf("OPS: %.2f\n", float64(c.ops.Load())/elapsed.Seconds())
	if n, st := d.CountAll(); st == status.OK {
		fmt.Printf("Keys: %d\n", n)
	}
}

// worker issues a mixed put/get load until ctx ends. A read of a key that
// was never written is a NOT_FOUND and counts as a successful op. Any
// other non-OK status is an error; the first few are printed.
func worker(ctx context.Context, d *db.DB, rng *rand.Rand, keys int, readRatio float64, c *counters) error {
	for ctx.Err() == nil {
		key := []byte("user" + strconv.Itoa(rng.Intn(keys)))

		var st status.Status
		if rng.Float64() < readRatio {
			st = d.Get(key, func([]byte) {})
			if st == status.NotFound {
				st = status.OK
			}
		} else {
			st = d.Put(key, []byte("val"+strconv.Itoa(rng.Intn(1000))))
		}

		if st != status.OK {
			if n := c.errors.Add(1); n <= 5 {
				fmt.Printf("Error: %s (key %s)\n", st, key)
			}
			continue
		}
		c.ops.Add(1)
	}
	return nil
}
