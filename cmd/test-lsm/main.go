package main

import (
	"fmt"
	"log"
	"time"

	"github.com/lsmsample/lsmsample/pkg/lsm"
)

func main() {
	fmt.Println("Creating LSM engine...")
	opts := lsm.DefaultEngineOptions()
	opts.MemtableCap = 4 // very small, so a handful of appends forces a flush
	opts.MemtableCount = 2

	e := lsm.NewEngine(opts, nil, nil)
	defer e.Close()

	fmt.Println("Writing data...")
	for i := int64(0); i < 10; i++ {
		if err := e.Append(i, i*100, 1.0, false); err != nil {
			log.Fatalf("failed to write: %v", err)
		}
		fmt.Printf("  wrote key=%d value=%d\n", i, i*100)
	}

	fmt.Println("\nReading back immediately (may still be in a memtable)...")
	for i := int64(0); i < 10; i++ {
		if rec, ok := e.Get(i); ok {
			fmt.Printf("  get(%d) = %d ✓\n", i, rec.Value)
		} else {
			fmt.Printf("  get(%d) = NOT FOUND ✗\n", i)
		}
	}

	fmt.Println("\nDeleting key 5...")
	if err := e.Append(5, 500, 1.0, true); err != nil {
		log.Fatalf("failed to delete: %v", err)
	}

	fmt.Println("\nWaiting for background flush to settle...")
	deadline := time.Now().Add(2 * time.Second)
	for e.RecordCount() < 9 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("\nStats: records=%d tombstones=%d height=%d utilization=%.2f\n",
		e.RecordCount(), e.TombstoneCount(), e.Height(), e.MemoryUtilization())

	fmt.Println("\nRange-sampling [0,9]...")
	out, err := e.RangeSample(0, 9, 5)
	if err != nil {
		log.Fatalf("range sample failed: %v", err)
	}
	for _, r := range out {
		fmt.Printf("  sampled key=%d value=%d\n", r.Key, r.Value)
	}

	if _, ok := e.Get(5); ok {
		fmt.Println("\n✗ key 5 should have been deleted")
	} else {
		fmt.Println("\n✅ key 5 correctly hidden after delete")
	}
}
