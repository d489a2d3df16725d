package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/lsmsample/lsmsample/pkg/lsm"
)

func main() {
	writes := flag.Int("writes", 100000, "Number of appends")
	reads := flag.Int("reads", 10000, "Number of point lookups")
	samples := flag.Int("samples", 1000, "Number of range-sample draws")
	sampleK := flag.Int("sample-k", 50, "Records requested per range sample")
	memtableCap := flag.Int("memtable-cap", 8192, "Per-memtable record capacity")
	scaleFactor := flag.Int("scale-factor", 4, "Level scale factor")
	flag.Parse()

	fmt.Printf("LSM Range-Sampling Engine Benchmark\n")
	fmt.Printf("====================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Writes:       %d\n", *writes)
	fmt.Printf("  Reads:        %d\n", *reads)
	fmt.Printf("  Samples:      %d (k=%d)\n", *samples, *sampleK)
	fmt.Printf("  Memtable cap: %d\n", *memtableCap)
	fmt.Printf("  Scale factor: %d\n\n", *scaleFactor)

	opts := lsm.DefaultEngineOptions()
	opts.MemtableCap = *memtableCap
	opts.ScaleFactor = *scaleFactor
	e := lsm.NewEngine(opts, nil, nil)
	defer e.Close()

	fmt.Printf("Benchmark 1: Sequential Appends\n")
	start := time.Now()
	for i := 0; i < *writes; i++ {
		if err := e.Append(int64(i), int64(i), 1.0+rand.Float64()*9.0, false); err != nil {
			fmt.Printf("  append %d failed: %v\n", i, err)
			break
		}
		if (i+1)%50000 == 0 {
			fmt.Printf("  appended %d records...\n", i+1)
		}
	}
	duration := time.Since(start)
	fmt.Printf("Completed %d appends in %v (%.0f ops/sec)\n\n",
		*writes, duration, float64(*writes)/duration.Seconds())

	fmt.Printf("Waiting for background compaction to settle...\n")
	deadline := time.Now().Add(5 * time.Second)
	for e.RecordCount() != *writes && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	fmt.Printf("Settled: records=%d height=%d\n\n", e.RecordCount(), e.Height())

	fmt.Printf("Benchmark 2: Random Point Lookups\n")
	found := 0
	start = time.Now()
	for i := 0; i < *reads; i++ {
		key := int64(rand.Intn(*writes))
		if _, ok := e.Get(key); ok {
			found++
		}
	}
	duration = time.Since(start)
	fmt.Printf("Completed %d reads in %v (%.0f ops/sec), found %d/%d\n\n",
		*reads, duration, float64(*reads)/duration.Seconds(), found, *reads)

	fmt.Printf("Benchmark 3: Range Samples\n")
	start = time.Now()
	total := 0
	for i := 0; i < *samples; i++ {
		lower := int64(rand.Intn(*writes / 2))
		upper := lower + int64(*writes/2)
		out, err := e.RangeSample(lower, upper, *sampleK)
		if err != nil {
			fmt.Printf("  sample %d failed: %v\n", i, err)
			continue
		}
		total += len(out)
	}
	duration = time.Since(start)
	fmt.Printf("Completed %d range samples in %v (%.0f samples/sec), drew %d records total\n",
		*samples, duration, float64(*samples)/duration.Seconds(), total)
}
