package lsm

import "math"

// isamIndex is a classical multi-level ISAM fanout directory over a sorted
// record array: the leaf level stores one key per fixed-size page of
// records, and each directory level above stores one key per page of the
// level below it, until a single root page remains. lowerBound/upperBound
// walk the directory top-down to find the leaf page, then binary search
// within the page's record window.
type isamIndex struct {
	pageSize int
	leaf     []int64 // first key of each leaf page
	dirs     [][]int64
}

// buildISAMIndex constructs a fanout directory over already-sorted keys.
// pageSize is the number of records per leaf page (and per directory
// page at higher levels).
func buildISAMIndex(keys []int64, pageSize int) *isamIndex {
	if pageSize < 1 {
		pageSize = 1
	}
	idx := &isamIndex{pageSize: pageSize}

	leaf := make([]int64, 0, (len(keys)+pageSize-1)/pageSize)
	for i := 0; i < len(keys); i += pageSize {
		leaf = append(leaf, keys[i])
	}
	idx.leaf = leaf

	level := leaf
	for len(level) > 1 {
		next := make([]int64, 0, (len(level)+pageSize-1)/pageSize)
		for i := 0; i < len(level); i += pageSize {
			next = append(next, level[i])
		}
		idx.dirs = append(idx.dirs, next)
		level = next
	}
	return idx
}

// leafPageFor returns the index of the leaf page that may contain key,
// i.e. the last page whose first key is <= key (or page 0 if key is
// smaller than every first key).
func (idx *isamIndex) leafPageFor(key int64) int {
	// Walk from the root directory level down to the leaf, narrowing the
	// candidate page at each level. Each directory level's page i covers
	// pageSize entries of the level below starting at i*pageSize.
	page := 0
	for l := len(idx.dirs) - 1; l >= 0; l-- {
		dir := idx.dirs[l]
		base := page * idx.pageSize
		end := base + idx.pageSize
		if end > len(dir) {
			end = len(dir)
		}
		page = base + searchLastLE(dir[base:end], key)
	}
	base := page * idx.pageSize
	end := base + idx.pageSize
	if end > len(idx.leaf) {
		end = len(idx.leaf)
	}
	return base + searchLastLE(idx.leaf[base:end], key)
}

// searchLastLE returns the index of the last element <= key within a
// small sorted slice, or 0 if every element is greater than key.
func searchLastLE(s []int64, key int64) int {
	lo, hi := 0, len(s)-1
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if s[mid] <= key {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// window returns the [begin, end) record-index range that a lookup for
// key must binary search within.
func (idx *isamIndex) window(key int64, total int) (int, int) {
	if len(idx.leaf) == 0 {
		return 0, total
	}
	// Equal keys can straddle a page boundary, so start at the last page
	// whose first key is < key and end after the last page whose first
	// key is <= key.
	first := 0
	if key != math.MinInt64 {
		first = idx.leafPageFor(key - 1)
	}
	begin := first * idx.pageSize
	end := (idx.leafPageFor(key) + 1) * idx.pageSize
	if end > total {
		end = total
	}
	return begin, end
}
