package jinn

import (
	"fmt"

	"github.com/google/uuid"
)

// Insert inserts or overwrites (by _id) one record.
func (db *Database) Insert(record Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertLocked(record)
}

// InsertMany inserts a sequence of records serially — concurrency 1, per
// spec §4.7, since interleaving inserts would need to interleave resizes
// too.
func (db *Database) InsertMany(records []Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, r := range records {
		if err := db.insertLocked(r); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return nil
}

func (db *Database) insertLocked(record Record) error {
	if db.closed {
		return ErrClosed
	}

	record = cloneRecord(record)
	id, ok := getID(record)
	if !ok {
		newID, err := uuid.NewUUID() // time-ordered (v1), per spec §3
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		id = newID.String()
		record[idField] = id
	}

	loc, exists := db.index.get(id)
	if !exists {
		loc = itemLocation{block: db.blocks, cacheIndex: -1}
		db.blocks++
	}

	length, err := encodedLength(record, db.compressed)
	if err != nil {
		return err
	}
	if uint64(length) > db.blockSize {
		newSize := nextPow2(uint64(length))
		// db.blocks may already count the block just reserved for this
		// record above; that block is not on disk yet, so resize must only
		// see the blocks that actually exist.
		existingBlocks := db.blocks
		if !exists {
			existingBlocks--
		}
		if existingBlocks > 0 {
			db.blocks = existingBlocks
			err := db.resizeLocked(newSize)
			db.blocks = existingBlocks
			if !exists {
				db.blocks++
			}
			if err != nil {
				return fmt.Errorf("resize for oversize record: %w", err)
			}
		} else {
			// Cold database: nothing valid to rewrite yet.
			db.blockSize = newSize
		}
	}

	if loc.cached {
		db.cache.set(loc.cacheIndex, record)
	} else if db.blocks <= uint64(db.cache.len())+1 && db.cache.hasSpareCapacity(db.blockSize) {
		loc.cacheIndex = db.cache.append(record)
		loc.cached = true
	}

	buf, err := encodeBlock(record, db.blockSize, db.compressed)
	if err != nil {
		return err
	}
	if err := db.file.writeBlock(loc.block, db.blockSize, buf); err != nil {
		return err
	}

	db.index.set(id, loc)
	return nil
}

// nextPow2 returns the smallest power of two >= n (n >= 1).
func nextPow2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}
