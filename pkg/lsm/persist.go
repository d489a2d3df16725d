package lsm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/lsmsample/lsmsample/pkg/pagestore"
)

// recordByteSize is the fixed on-disk width of one Record: Key, Value,
// Weight, and Header each take 8 bytes.
const recordByteSize = 32

// RunManifest locates a persisted SortedRun within a PageStore: the level
// it was written for, its first page, and how many records it holds. A
// Compactor appends one of these every time it writes a run through a
// configured PageStore; LoadRun turns one back into a SortedRun.
type RunManifest struct {
	Level       int
	FirstPage   int64
	RecordCount int
}

// persistRun writes sr's records through store page by page, zero padding
// the final partial page. Only the raw records survive the trip: the
// Bloom filter, locator index, and WIRS alias are rebuilt by LoadRun
// rather than serialized, since they're cheap to recompute and expensive
// to keep in sync with a hand-rolled format.
func persistRun(sr *SortedRun, store pagestore.PageStore) (RunManifest, error) {
	n := len(sr.records)
	recordsPerPage := pagestore.PageSize / recordByteSize
	pages := (n + recordsPerPage - 1) / recordsPerPage
	if pages == 0 {
		pages = 1
	}

	first, err := store.Allocate(pages)
	if err != nil {
		return RunManifest{}, fmt.Errorf("lsm: allocate %d pages for run %s: %w", pages, sr.ID, err)
	}

	buf := make([]byte, pagestore.PageSize)
	for p := 0; p < pages; p++ {
		for i := range buf {
			buf[i] = 0
		}
		for i := 0; i < recordsPerPage; i++ {
			idx := p*recordsPerPage + i
			if idx >= n {
				break
			}
			encodeRecord(buf[i*recordByteSize:(i+1)*recordByteSize], sr.records[idx])
		}
		if err := store.WritePage(first+int64(p), buf); err != nil {
			return RunManifest{}, fmt.Errorf("lsm: write page %d for run %s: %w", p, sr.ID, err)
		}
	}

	return RunManifest{FirstPage: first, RecordCount: n}, nil
}

// LoadRun reads n records back from store starting at firstPage and
// rebuilds a SortedRun over them the same way buildSortedRun does for
// data freshly merged in memory, giving the reconstructed run a fresh
// Bloom filter, locator index, and (for WIRS) weight alias.
func LoadRun(store pagestore.PageStore, firstPage int64, n int, opts EngineOptions) (*SortedRun, error) {
	recordsPerPage := pagestore.PageSize / recordByteSize
	pages := (n + recordsPerPage - 1) / recordsPerPage
	if pages == 0 {
		pages = 1
	}

	records := make([]Record, 0, n)
	buf := make([]byte, pagestore.PageSize)
	for p := 0; p < pages; p++ {
		if err := store.ReadPage(firstPage+int64(p), buf); err != nil {
			return nil, fmt.Errorf("lsm: read page %d: %w", p, err)
		}
		for i := 0; i < recordsPerPage && len(records) < n; i++ {
			records = append(records, decodeRecord(buf[i*recordByteSize:(i+1)*recordByteSize]))
		}
	}

	return buildSortedRun(records, opts), nil
}

func encodeRecord(buf []byte, r Record) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.Key))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.Value))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(r.Weight))
	binary.LittleEndian.PutUint64(buf[24:32], r.Header)
}

func decodeRecord(buf []byte) Record {
	return Record{
		Key:    int64(binary.LittleEndian.Uint64(buf[0:8])),
		Value:  int64(binary.LittleEndian.Uint64(buf[8:16])),
		Weight: math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24])),
		Header: binary.LittleEndian.Uint64(buf[24:32]),
	}
}
