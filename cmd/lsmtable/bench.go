package main

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/bsm/lsmtable"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	minLatency = time.Microsecond
	maxLatency = 10 * time.Second
)

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatency.Nanoseconds(), maxLatency.Nanoseconds(), 2)
}

func (t *toolT) runBench(cmd *cobra.Command, args []string) error {
	table, err := t.openTable(args[0])
	if err != nil {
		return err
	}
	defer table.Close()

	keys, err := collectKeys(table)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	hist := newHistogram()

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < t.concurrency; w++ {
		seed := int64(w)
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(seed))
			local := newHistogram()
			buf := make([]byte, 0, 256)

			for i := 0; i < t.seeks; i++ {
				key := keys[rnd.Intn(len(keys))]
				began := time.Now()
				val, err := table.Append(buf[:0], key)
				if err != nil {
					return err
				}
				buf = val
				_ = local.RecordValue(clampLatency(time.Since(began)).Nanoseconds())
			}

			mu.Lock()
			defer mu.Unlock()
			hist.Merge(local)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "_elapsed____ops(total)_ops/sec(cum)__avg(µs)__p50(µs)__p95(µs)__p99(µs)_pMax(µs)\n")
	fmt.Fprintf(out, "%7.1fs %12d %14.1f %8.1f %8.1f %8.1f %8.1f %8.1f\n",
		elapsed.Seconds(),
		hist.TotalCount(),
		float64(hist.TotalCount())/elapsed.Seconds(),
		hist.Mean()/1e3,
		float64(hist.ValueAtQuantile(50))/1e3,
		float64(hist.ValueAtQuantile(95))/1e3,
		float64(hist.ValueAtQuantile(99))/1e3,
		float64(hist.Max())/1e3,
	)

	m := t.cache.Metrics()
	fmt.Fprintf(out, "block cache: %d hits, %d misses, %d blocks, %d bytes\n", m.Hits, m.Misses, m.Count, m.Size)
	return nil
}

func clampLatency(d time.Duration) time.Duration {
	if d < minLatency {
		return minLatency
	}
	if d > maxLatency {
		return maxLatency
	}
	return d
}

// collectKeys returns a copy of all keys in the table.
func collectKeys(table *lsmtable.SsTable) ([]lsmtable.KeySlice, error) {
	iter, err := lsmtable.NewSsTableIterator(table)
	if err != nil {
		return nil, err
	}

	var keys []lsmtable.KeySlice
	for iter.IsValid() {
		keys = append(keys, append(lsmtable.KeySlice(nil), iter.Key()...))
		if err := iter.Next(); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
