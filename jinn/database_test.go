package jinn

import (
	"os"
	"testing"

	. "github.com/fulldump/biff"
)

func TestDatabase_HelloWorldLoad(t *testing.T) {
	environment(func(filename string) {
		db, err := Open(filename)
		AssertNil(err)

		AssertNil(db.Insert(Record{"_id": "1", "name": "Pepe"}))
		AssertNil(db.Insert(Record{"_id": "2", "name": "Wendy"}))
		AssertNil(db.Close())

		db2, err := Open(filename)
		AssertNil(err)
		defer db2.Close()

		stats := db2.Stats()
		AssertEqual(stats.Records, 2)
		AssertEqual(stats.CacheLen, 2)

		rec, found, err := db2.getByIDLocked("1")
		AssertNil(err)
		AssertTrue(found)
		AssertEqual(rec["name"], "Pepe")
	})
}

func TestDatabase_OutOfCoreFallback(t *testing.T) {
	environment(func(filename string) {
		// A tiny cache budget forces most records out-of-core.
		db, err := Open(filename, WithMaxCacheSize(3*defaultBlockSize))
		AssertNil(err)
		defer db.Close()

		for i := 0; i < 10; i++ {
			id := string(rune('a' + i))
			AssertNil(db.Insert(Record{"_id": id, "n": float64(i)}))
		}

		stats := db.Stats()
		AssertEqual(stats.Records, 10)
		AssertTrue(stats.CacheLen < 10)

		found := map[string]bool{}
		completed, err := db.Iterate(func(rec Record) Signal {
			id, _ := getID(rec)
			found[id] = true
			return Continue
		})
		AssertNil(err)
		AssertTrue(completed)
		AssertEqual(len(found), 10)
	})
}

func TestDatabase_RemoveAndCompact(t *testing.T) {
	environment(func(filename string) {
		db, err := Open(filename)
		AssertNil(err)
		defer db.Close()

		for i := 0; i < 5; i++ {
			id := string(rune('a' + i))
			AssertNil(db.Insert(Record{"_id": id, "n": float64(i)}))
		}
		blocksBefore := db.Stats().Blocks

		n, err := db.Remove([]Query{{"n": Query{"$lt": float64(2)}}}, RemoveOptions{})
		AssertNil(err)
		AssertEqual(n, 2)

		stats := db.Stats()
		AssertEqual(stats.Records, 3)
		AssertTrue(stats.Blocks < blocksBefore)

		_, found, err := db.getByIDLocked("a")
		AssertNil(err)
		AssertFalse(found)

		rec, found, err := db.getByIDLocked("c")
		AssertNil(err)
		AssertTrue(found)
		AssertEqual(rec["n"], float64(2))
	})
}

func TestDatabase_InsertOversizeTriggersResize(t *testing.T) {
	environment(func(filename string) {
		db, err := Open(filename)
		AssertNil(err)
		defer db.Close()

		AssertNil(db.Insert(Record{"_id": "1", "n": float64(1)}))
		AssertNil(db.Insert(Record{"_id": "2", "n": float64(2)}))
		initialSize := db.Stats().BlockSize

		big := Record{"_id": "3"}
		padding := ""
		for i := 0; i < 100; i++ {
			padding += "0123456789"
		}
		big["blob"] = padding
		AssertNil(db.Insert(big))

		newSize := db.Stats().BlockSize
		AssertTrue(newSize > initialSize)
		AssertTrue(newSize&(newSize-1) == 0) // power of two

		rec, found, err := db.getByIDLocked("1")
		AssertNil(err)
		AssertTrue(found)
		AssertEqual(rec["n"], float64(1))

		rec, found, err = db.getByIDLocked("3")
		AssertNil(err)
		AssertTrue(found)
		AssertEqual(rec["blob"], padding)
	})
}

func TestDatabase_ResizeMovesOutOfCoreBlocks(t *testing.T) {
	environment(func(filename string) {
		// Cache room for 2 records only, so blocks 2+ land out-of-core.
		db, err := Open(filename, WithMaxCacheSize(2*defaultBlockSize))
		AssertNil(err)
		defer db.Close()

		for i := 1; i <= 5; i++ {
			id := string(rune('0' + i))
			AssertNil(db.Insert(Record{"_id": id, "n": float64(i)}))
		}
		stats := db.Stats()
		AssertEqual(stats.Blocks, uint64(5))
		AssertEqual(stats.CacheLen, 2)
		AssertTrue(stats.Blocks > uint64(stats.CacheLen))

		// An oversize 6th record forces resizeLocked with db.blocks (5)
		// greater than cache.len() (2), driving the on-disk block-move pass.
		padding := ""
		for i := 0; i < 100; i++ {
			padding += "0123456789"
		}
		AssertNil(db.Insert(Record{"_id": "6", "blob": padding}))

		newStats := db.Stats()
		AssertTrue(newStats.BlockSize > stats.BlockSize)
		AssertTrue(newStats.BlockSize&(newStats.BlockSize-1) == 0)

		// Records that lived out-of-core through the resize must have
		// survived the block-move pass intact.
		for i := 1; i <= 5; i++ {
			id := string(rune('0' + i))
			rec, found, err := db.getByIDLocked(id)
			AssertNil(err)
			AssertTrue(found)
			AssertEqual(rec["n"], float64(i))
		}

		rec, found, err := db.getByIDLocked("6")
		AssertNil(err)
		AssertTrue(found)
		AssertEqual(rec["blob"], padding)
	})
}

func TestDatabase_RemoveAcrossCachedAndOutOfCore(t *testing.T) {
	environment(func(filename string) {
		// Cache room for 4 records; ids "4".."9" land out-of-core.
		db, err := Open(filename, WithMaxCacheSize(4*defaultBlockSize))
		AssertNil(err)
		defer db.Close()

		for i := 0; i < 10; i++ {
			id := string(rune('0' + i))
			AssertNil(db.Insert(Record{"_id": id, "n": float64(i)}))
		}
		AssertEqual(db.Stats().CacheLen, 4)

		// "2","3" are cached; "4","5" are out-of-core: a single remove
		// spans both regions, forcing the block-hole and cache-hole
		// donor-pairing paths in fillHolesLocked to interact.
		n, err := db.Remove([]Query{{"n": Query{"$in": []interface{}{
			float64(2), float64(3), float64(4), float64(5),
		}}}}, RemoveOptions{})
		AssertNil(err)
		AssertEqual(n, 4)

		stats := db.Stats()
		AssertEqual(stats.Records, 6)
		AssertEqual(stats.Blocks, uint64(6))

		for _, removed := range []string{"2", "3", "4", "5"} {
			_, found, err := db.getByIDLocked(removed)
			AssertNil(err)
			AssertFalse(found)
		}

		survivors := map[string]float64{"0": 0, "1": 1, "6": 6, "7": 7, "8": 8, "9": 9}
		for id, want := range survivors {
			rec, found, err := db.getByIDLocked(id)
			AssertNil(err)
			AssertTrue(found)
			AssertEqual(rec["n"], want)
		}

		// Invariant 3: cache slots are exactly a contiguous prefix of the
		// surviving block sequence, and every index entry pointing into
		// the cache agrees with where the record actually sits.
		cacheLen := db.cache.len()
		AssertTrue(cacheLen > 0)
		AssertTrue(cacheLen < int(stats.Blocks))
		for i := 0; i < cacheLen; i++ {
			rec := db.cache.get(int64(i))
			id, ok := getID(rec)
			AssertTrue(ok)
			loc, ok := db.index.get(id)
			AssertTrue(ok)
			AssertTrue(loc.cached)
			AssertEqual(loc.cacheIndex, int64(i))
			AssertEqual(loc.block, uint64(i))
		}
		// Every out-of-core record's index entry must not dangle into a
		// now-truncated cache slot.
		db.index.forEach(func(id string, loc itemLocation) bool {
			if !loc.cached {
				AssertEqual(loc.cacheIndex, int64(-1))
			} else {
				AssertTrue(loc.cacheIndex < int64(cacheLen))
			}
			return true
		})
	})
}

func TestDatabase_LogicalOperatorsQuery(t *testing.T) {
	environment(func(filename string) {
		db, err := Open(filename)
		AssertNil(err)
		defer db.Close()

		AssertNil(db.Insert(Record{"_id": "1", "role": "admin", "age": float64(40)}))
		AssertNil(db.Insert(Record{"_id": "2", "role": "guest", "age": float64(20)}))
		AssertNil(db.Insert(Record{"_id": "3", "role": "admin", "age": float64(15)}))

		results, err := db.Find(Query{"$and": []interface{}{
			Query{"role": "admin"},
			Query{"age": Query{"$gte": float64(18)}},
		}}, FindOptions{})
		AssertNil(err)
		AssertEqual(len(results), 1)
		AssertEqual(results[0]["_id"], "1")

		results, err = db.Find(Query{"$or": []interface{}{
			Query{"role": "guest"},
			Query{"age": Query{"$lt": float64(18)}},
		}}, FindOptions{})
		AssertNil(err)
		AssertEqual(len(results), 2)
	})
}

func TestDatabase_UpdateWithInc(t *testing.T) {
	environment(func(filename string) {
		db, err := Open(filename)
		AssertNil(err)
		defer db.Close()

		AssertNil(db.Insert(Record{"_id": "1", "visits": float64(0)}))
		AssertNil(db.Insert(Record{"_id": "2", "visits": float64(3)}))

		n, err := db.Update(Query{}, Update{"$inc": map[string]interface{}{"visits": float64(1)}}, UpdateOptions{})
		AssertNil(err)
		AssertEqual(n, 2)

		rec, found, err := db.getByIDLocked("1")
		AssertNil(err)
		AssertTrue(found)
		AssertEqual(rec["visits"], float64(1))

		rec, found, err = db.getByIDLocked("2")
		AssertNil(err)
		AssertTrue(found)
		AssertEqual(rec["visits"], float64(4))
	})
}

func TestDatabase_OpenPersistsAcrossClose(t *testing.T) {
	filename := "temp-persist-test.jinn"
	defer os.Remove(filename)

	db, err := Open(filename)
	AssertNil(err)
	AssertNil(db.Insert(Record{"_id": "1", "v": float64(1)}))
	AssertNil(db.Close())

	db2, err := Open(filename)
	AssertNil(err)
	defer db2.Close()

	rec, found, err := db2.getByIDLocked("1")
	AssertNil(err)
	AssertTrue(found)
	AssertEqual(rec["v"], float64(1))
}

func TestDatabase_InsertGeneratesID(t *testing.T) {
	environment(func(filename string) {
		db, err := Open(filename)
		AssertNil(err)
		defer db.Close()

		AssertNil(db.Insert(Record{"name": "anon"}))
		stats := db.Stats()
		AssertEqual(stats.Records, 1)
	})
}

func TestDatabase_ClosedDatabaseRejectsOps(t *testing.T) {
	environment(func(filename string) {
		db, err := Open(filename)
		AssertNil(err)
		AssertNil(db.Close())

		err = db.Insert(Record{"_id": "1"})
		AssertNotNil(err)
	})
}
