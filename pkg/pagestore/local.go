package pagestore

import (
	"fmt"
	"os"
	"sync"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"
)

// LocalStore is a PageStore backed by a single local file: writes go
// through an *os.File opened for read/write, and reads go through a
// golang.org/x/exp/mmap.ReaderAt reopened each time the file grows.
// Pages are optionally snappy compressed; PageSize always refers to the
// uncompressed page.
type LocalStore struct {
	path     string
	compress bool

	mu     sync.Mutex
	file   *os.File
	pages  int64
	reader *mmap.ReaderAt // nil until at least one page has been synced
}

// OpenLocalStore opens or creates path as a LocalStore. When compress is
// true, every page is snappy-encoded before being written and decoded on
// read; the on-disk slot remains PageSize bytes regardless, so a page
// that doesn't compress well is stored with a one-byte format tag and
// left larger than its encoded payload, never smaller than decodable.
func OpenLocalStore(path string, compress bool) (*LocalStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pagestore: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pagestore: stat %s: %w", path, err)
	}

	ls := &LocalStore{
		path:     path,
		compress: compress,
		file:     f,
		pages:    info.Size() / PageSize,
	}

	if ls.pages > 0 {
		if err := ls.remapLocked(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return ls, nil
}

func (ls *LocalStore) remapLocked() error {
	if ls.reader != nil {
		ls.reader.Close()
		ls.reader = nil
	}
	r, err := mmap.Open(ls.path)
	if err != nil {
		return fmt.Errorf("pagestore: mmap %s: %w", ls.path, err)
	}
	ls.reader = r
	return nil
}

// Allocate reserves n contiguous pages at the end of the file, zero
// filling them, and returns the first page number.
func (ls *LocalStore) Allocate(n int) (int64, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	first := ls.pages
	zero := make([]byte, PageSize*n)
	if _, err := ls.file.WriteAt(zero, first*PageSize); err != nil {
		return 0, fmt.Errorf("pagestore: allocate %d pages: %w", n, err)
	}
	ls.pages += int64(n)

	if err := ls.remapLocked(); err != nil {
		return 0, err
	}
	return first, nil
}

// WritePage writes buf (len == PageSize) to page, syncing a fresh mmap
// reader afterward so concurrent ReadPage calls observe it.
func (ls *LocalStore) WritePage(page int64, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("pagestore: write page %d: buffer is %d bytes, want %d", page, len(buf), PageSize)
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if page < 0 || page >= ls.pages {
		return ErrOutOfRange
	}

	payload := buf
	formatTag := byte(0)
	if ls.compress {
		encoded := snappy.Encode(nil, buf)
		if len(encoded)+1 <= PageSize {
			payload = encoded
			formatTag = 1
		}
	}

	slot := make([]byte, PageSize)
	slot[0] = formatTag
	copy(slot[1:], payload)

	if _, err := ls.file.WriteAt(slot, page*PageSize); err != nil {
		return fmt.Errorf("pagestore: write page %d: %w", page, err)
	}
	return ls.remapLocked()
}

// ReadPage reads page into buf (len == PageSize) through the mmap
// reader, decompressing it first if it was written with compression.
func (ls *LocalStore) ReadPage(page int64, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("pagestore: read page %d: buffer is %d bytes, want %d", page, len(buf), PageSize)
	}

	ls.mu.Lock()
	reader := ls.reader
	inRange := page >= 0 && page < ls.pages
	ls.mu.Unlock()

	if !inRange {
		return ErrOutOfRange
	}
	if reader == nil {
		return ErrOutOfRange
	}

	slot := make([]byte, PageSize)
	if _, err := reader.ReadAt(slot, page*PageSize); err != nil {
		return fmt.Errorf("pagestore: read page %d: %w", page, err)
	}

	switch slot[0] {
	case 0:
		copy(buf, slot[1:])
	case 1:
		decoded, err := snappy.Decode(nil, slot[1:PageSize])
		if err != nil {
			return fmt.Errorf("pagestore: decode page %d: %w", page, err)
		}
		copy(buf, decoded)
	default:
		return fmt.Errorf("pagestore: page %d has unknown format tag %d", page, slot[0])
	}
	return nil
}

// PageCount reports the number of pages currently allocated.
func (ls *LocalStore) PageCount() (int64, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.pages, nil
}

// RemoveFile closes the store and deletes its backing file.
func (ls *LocalStore) RemoveFile() error {
	if err := ls.Close(); err != nil {
		return err
	}
	return os.Remove(ls.path)
}

// Close releases the mmap reader and the underlying file descriptor.
func (ls *LocalStore) Close() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	var err error
	if ls.reader != nil {
		err = ls.reader.Close()
		ls.reader = nil
	}
	if cerr := ls.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
