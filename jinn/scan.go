package jinn

// Signal is what a Handler returns to tell Iterate whether to keep going.
type Signal int

const (
	Continue Signal = iota
	Stop
)

// Handler is invoked once per live record during a scan.
type Handler func(record Record) Signal

// Iterate yields every live record exactly once: in-cache records first
// (no defined order among them beyond the index's own order), then, if the
// on-disk block count exceeds the cache length, out-of-core records in
// block-index order. A Handler returning Stop cancels further delivery;
// completed reports whether the scan ran to exhaustion.
func (db *Database) Iterate(handler Handler) (completed bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return false, ErrClosed
	}
	return db.iterateLocked(handler)
}

// iterateLocked is Iterate's body, callable by other locked public methods
// (Find, Remove, Update, Resize) without re-entering the mutex.
func (db *Database) iterateLocked(handler Handler) (completed bool, err error) {
	stopped := false

	db.index.forEach(func(id string, loc itemLocation) bool {
		if !loc.cached {
			return true
		}
		if handler(db.cache.get(loc.cacheIndex)) == Stop {
			stopped = true
			return false
		}
		return true
	})
	if stopped {
		return false, nil
	}

	if db.blocks > uint64(db.cache.len()) {
		return db.iterateOutOfCore(uint64(db.cache.len()), handler)
	}
	return true, nil
}

// iterateOutOfCore reads blocks [startBlock, db.blocks) in block-index
// order, skipping holes, decoding each via the block codec. A real
// concurrent implementation may prefetch several blocks ahead, but must
// buffer and reorder so the handler still observes block-index order
// (spec §5); this implementation reads and decodes serially, which trivially
// satisfies that ordering guarantee.
func (db *Database) iterateOutOfCore(startBlock uint64, handler Handler) (completed bool, err error) {
	buf := make([]byte, db.blockSize)
	for i := startBlock; i < db.blocks; i++ {
		if db.blockHoles.has(i) {
			continue
		}
		if err := db.file.readBlock(i, db.blockSize, buf); err != nil {
			return false, err
		}
		rec, err := decodeBlock(buf, db.compressed)
		if err != nil {
			return false, err
		}
		if handler(rec) == Stop {
			return false, nil
		}
	}
	return true, nil
}
