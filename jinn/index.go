package jinn

import (
	"github.com/google/btree"
)

// itemLocation is the per-record bookkeeping the index carries: where the
// record lives on disk, and where (if anywhere) it lives in the cache.
type itemLocation struct {
	block      uint64
	cached     bool
	cacheIndex int64 // -1 when !cached
}

// indexEntry is what the ordered index stores; ordering by ID gives a
// deterministic order for the in-cache phase of scans, matching the
// "implementations may choose ... ordered maps" latitude in the
// id->location index.
type indexEntry struct {
	id  string
	loc itemLocation
}

func indexLess(a, b *indexEntry) bool {
	return a.id < b.id
}

// recordIndex is the id -> itemLocation map (C4), backed by a B-tree
// instead of a Go map so iteration order is stable.
type recordIndex struct {
	tree *btree.BTreeG[*indexEntry]
}

func newRecordIndex() *recordIndex {
	return &recordIndex{tree: btree.NewG(32, indexLess)}
}

func (ix *recordIndex) get(id string) (itemLocation, bool) {
	e, ok := ix.tree.Get(&indexEntry{id: id})
	if !ok {
		return itemLocation{}, false
	}
	return e.loc, true
}

func (ix *recordIndex) set(id string, loc itemLocation) {
	ix.tree.ReplaceOrInsert(&indexEntry{id: id, loc: loc})
}

func (ix *recordIndex) delete(id string) {
	ix.tree.Delete(&indexEntry{id: id})
}

func (ix *recordIndex) len() int {
	return ix.tree.Len()
}

// forEach visits every (id, location) pair in id order. Returning false
// from f stops iteration early.
func (ix *recordIndex) forEach(f func(id string, loc itemLocation) bool) {
	ix.tree.Ascend(func(e *indexEntry) bool {
		return f(e.id, e.loc)
	})
}

// cache is the ordered vector of decoded records mirroring the
// lowest-indexed blocks. cache[loc.cacheIndex] is the canonical live copy
// whenever loc.cached.
type cache struct {
	records     []Record
	maxCacheSize uint64
}

func newCache(maxCacheSize uint64) *cache {
	return &cache{maxCacheSize: maxCacheSize}
}

func (c *cache) len() int {
	return len(c.records)
}

// capacity returns how many records of blockSize bytes the cache may hold.
func (c *cache) capacity(blockSize uint64) int {
	if blockSize == 0 {
		return 0
	}
	return int(c.maxCacheSize / blockSize)
}

func (c *cache) hasSpareCapacity(blockSize uint64) bool {
	return len(c.records) < c.capacity(blockSize)
}

// append adds r to the tail and returns its new cacheIndex, matching the
// "appending sets cacheIndex = len-1 before the push" rule.
func (c *cache) append(r Record) int64 {
	idx := int64(len(c.records))
	c.records = append(c.records, r)
	return idx
}

func (c *cache) get(i int64) Record {
	return c.records[i]
}

func (c *cache) set(i int64, r Record) {
	c.records[i] = r
}

// popTail removes the last record and returns it.
func (c *cache) popTail() Record {
	last := len(c.records) - 1
	r := c.records[last]
	c.records = c.records[:last]
	return r
}

func (c *cache) truncate(n int) {
	c.records = c.records[:n]
}
