package jinn

import "fmt"

// Resize changes the block size from the current value to newBlockSize.
// Idempotent if newBlockSize already equals the current block size.
func (db *Database) Resize(newBlockSize uint64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	return db.resizeLocked(newBlockSize)
}

func (db *Database) resizeLocked(newBlockSize uint64) error {
	old := db.blockSize
	if newBlockSize == old {
		return nil
	}
	if newBlockSize == 0 {
		return fmt.Errorf("%w: block size must be > 0", ErrInvalidArgument)
	}

	if newBlockSize < old {
		if err := db.assertFits(newBlockSize); err != nil {
			return err
		}
	}

	cacheLen := uint64(db.cache.len())

	if db.blocks > cacheLen {
		oldBuf := make([]byte, old)
		newBuf := make([]byte, newBlockSize)

		if newBlockSize > old {
			// Tail-first: block i's new offset i*new is never below its old
			// offset i*old, and every block still to be read (smaller i)
			// lies wholly below i*old, so no move can clobber data a later
			// move still needs to read.
			for i := db.blocks; i > cacheLen; i-- {
				idx := i - 1
				if err := db.file.readBlock(idx, old, oldBuf); err != nil {
					return err
				}
				copy(newBuf, oldBuf)
				for j := old; j < newBlockSize; j++ {
					newBuf[j] = ' '
				}
				if err := db.file.writeBlock(idx, newBlockSize, newBuf); err != nil {
					return err
				}
			}
		} else {
			for idx := cacheLen; idx < db.blocks; idx++ {
				if err := db.file.readBlock(idx, old, oldBuf); err != nil {
					return err
				}
				copy(newBuf, oldBuf[:newBlockSize])
				if err := db.file.writeBlock(idx, newBlockSize, newBuf); err != nil {
					return err
				}
			}
			if err := db.file.truncateTo(db.blocks, newBlockSize); err != nil {
				return err
			}
		}
	}

	// In-memory pass: every cached record is re-encoded and rewritten at
	// its own block*newBlockSize offset.
	for i := int64(0); i < int64(db.cache.len()); i++ {
		rec := db.cache.get(i)
		id, ok := getID(rec)
		if !ok {
			return fmt.Errorf("%w: cached record has no _id", ErrCorruptBlock)
		}
		loc, ok := db.index.get(id)
		if !ok {
			return fmt.Errorf("%w: cached record %s missing from index", ErrCorruptBlock, id)
		}
		buf, err := encodeBlock(rec, newBlockSize, db.compressed)
		if err != nil {
			return err
		}
		if err := db.file.writeBlock(loc.block, newBlockSize, buf); err != nil {
			return err
		}
	}

	db.blockSize = newBlockSize

	for newBlockSize*uint64(db.cache.len()) > db.cache.maxCacheSize {
		popped := db.cache.popTail()
		id, ok := getID(popped)
		if !ok {
			continue
		}
		if loc, ok := db.index.get(id); ok {
			loc.cached = false
			loc.cacheIndex = -1
			db.index.set(id, loc)
		}
	}

	return nil
}

// assertFits verifies every live record still fits in newBlockSize before
// a shrinking resize is allowed to touch the file.
func (db *Database) assertFits(newBlockSize uint64) error {
	var tooBig error
	db.iterateLocked(func(rec Record) Signal {
		length, err := encodedLength(rec, db.compressed)
		if err != nil {
			tooBig = err
			return Stop
		}
		if uint64(length) > newBlockSize {
			tooBig = fmt.Errorf("%w: a record needs %d bytes, requested block size is %d", ErrInvalidArgument, length, newBlockSize)
			return Stop
		}
		return Continue
	})
	return tooBig
}
