package jinn

import "fmt"

// fillHolesLocked is the compaction pass run after every successful
// Remove. It physically moves the highest-index live blocks into the
// lowest-index holes, truncates the file, then repairs the cache the same
// way, one-to-one (the safer reformulation from spec §4.7/§9 — filling
// with tail-most live entries rather than the source's hole-overwriting
// inner loop).
func (db *Database) fillHolesLocked() error {
	h := db.blockHoles.sorted()
	if len(h) == 0 {
		db.cacheHoles.clear()
		return nil
	}

	sLen := uint64(db.cacheHoles.len())

	d := db.getLastNLiveBlocks(len(h))
	buf := make([]byte, db.blockSize)
	for i := 0; i < len(h) && i < len(d); i++ {
		hIdx, dIdx := h[i], d[i]
		if dIdx <= hIdx {
			// Donor already lies within the tail being truncated away;
			// nothing to copy.
			continue
		}

		if err := db.file.readBlock(dIdx, db.blockSize, buf); err != nil {
			return err
		}
		if err := db.file.writeBlock(hIdx, db.blockSize, buf); err != nil {
			return err
		}

		rec, err := decodeBlock(buf, db.compressed)
		if err != nil {
			return err
		}
		id, ok := getID(rec)
		if !ok {
			return fmt.Errorf("%w: moved block has no _id", ErrCorruptBlock)
		}
		loc, ok := db.index.get(id)
		if !ok {
			return fmt.Errorf("%w: moved record %s missing from index", ErrCorruptBlock, id)
		}
		loc.block = hIdx

		if !loc.cached && db.cacheHoles.len() > 0 {
			slot := db.cacheHoles.sorted()[0]
			db.cacheHoles.remove(slot)
			db.cache.set(int64(slot), rec)
			loc.cached = true
			loc.cacheIndex = int64(slot)
		}

		db.index.set(id, loc)
	}

	db.blocks -= uint64(len(h))
	if err := db.file.truncateTo(db.blocks, db.blockSize); err != nil {
		return err
	}
	db.blockHoles.clear()

	shrunkCacheLen := uint64(0)
	if cl := uint64(db.cache.len()); cl > sLen {
		shrunkCacheLen = cl - sLen
	}
	newCacheLen := db.blocks
	if shrunkCacheLen < newCacheLen {
		newCacheLen = shrunkCacheLen
	}

	remainingHoles := make([]uint64, 0, db.cacheHoles.len())
	for _, c := range db.cacheHoles.sorted() {
		if c < newCacheLen {
			remainingHoles = append(remainingHoles, c)
		}
	}
	donors := db.getLastNLiveCacheIndicesFrom(int64(newCacheLen))

	for i, c := range remainingHoles {
		if i >= len(donors) {
			break
		}
		d := donors[i]
		rec := db.cache.get(d)
		db.cache.set(int64(c), rec)
		if id, ok := getID(rec); ok {
			if loc, ok := db.index.get(id); ok {
				loc.cacheIndex = int64(c)
				db.index.set(id, loc)
			}
		}
	}

	// Slots at or past newCacheLen are about to be sliced off. A slot may
	// hold a record the block-hole pass above just promoted into it (from
	// out-of-core), one that never got relocated by the donor loop, or one
	// already superseded by a relocation (cacheIndex now points elsewhere,
	// in which case it's left alone here). Anything still pointing at the
	// slot being cut needs its index entry brought back to out-of-core.
	for i := int64(newCacheLen); i < int64(db.cache.len()); i++ {
		rec := db.cache.get(i)
		id, ok := getID(rec)
		if !ok {
			continue
		}
		loc, ok := db.index.get(id)
		if !ok || loc.cacheIndex != i {
			continue
		}
		loc.cached = false
		loc.cacheIndex = -1
		db.index.set(id, loc)
	}

	db.cache.truncate(int(newCacheLen))
	db.cacheHoles.clear()

	return nil
}

// getLastNLiveBlocks returns, ascending, the n highest-index blocks in
// [0, db.blocks) that are not in blockHoles.
func (db *Database) getLastNLiveBlocks(n int) []uint64 {
	out := make([]uint64, 0, n)
	for i := db.blocks; i > 0 && len(out) < n; i-- {
		idx := i - 1
		if db.blockHoles.has(idx) {
			continue
		}
		out = append(out, idx)
	}
	reverseUint64(out)
	return out
}

// getLastNLiveCacheIndicesFrom returns, descending, every cache index >=
// start that isn't in cacheHoles — the pool of tail entries that migrate
// into lower holes before the cache is truncated to its new length.
func (db *Database) getLastNLiveCacheIndicesFrom(start int64) []int64 {
	var out []int64
	for i := int64(db.cache.len()) - 1; i >= start; i-- {
		if db.cacheHoles.has(uint64(i)) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func reverseUint64(s []uint64) {
	for l, r := 0, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
}
