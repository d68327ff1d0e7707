package jinn

import (
	"sort"
	"strings"
)

// FindOptions bounds and shapes a Find call.
type FindOptions struct {
	Limit       int // 0 means unlimited
	Sort        func(a, b Record) bool
	Projections map[string]bool
}

// Find returns records matching query, applying projection, limit, and
// sort per spec §4.8.
func (db *Database) Find(query Query, opts FindOptions) ([]Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}
	return db.findLocked(query, opts)
}

func (db *Database) findLocked(query Query, opts FindOptions) ([]Record, error) {
	if id, ok := fastPathID(query); ok {
		rec, found, err := db.getByIDLocked(id)
		if err != nil {
			return nil, err
		}
		if !found {
			return []Record{}, nil
		}
		return []Record{applyProjection(rec, opts.Projections)}, nil
	}

	results := make([]Record, 0)
	var scanErr error

	db.iterateLocked(func(rec Record) Signal {
		matched, err := Match(query, rec)
		if err != nil {
			scanErr = err
			return Stop
		}
		if !matched {
			return Continue
		}

		clone := applyProjection(rec, opts.Projections)

		if opts.Sort == nil {
			results = append(results, clone)
			if opts.Limit > 0 && len(results) >= opts.Limit {
				return Stop
			}
			return Continue
		}

		results = append(results, clone)
		if opts.Limit > 0 && len(results) > opts.Limit {
			sort.Slice(results, func(i, j int) bool { return opts.Sort(results[i], results[j]) })
			results = results[:opts.Limit]
		}
		return Continue
	})

	if scanErr != nil {
		return nil, scanErr
	}
	if opts.Sort != nil {
		sort.Slice(results, func(i, j int) bool { return opts.Sort(results[i], results[j]) })
	}
	return results, nil
}

// fastPathID reports whether query is exactly {_id: "<id-without-$>"}.
func fastPathID(query Query) (string, bool) {
	if len(query) != 1 {
		return "", false
	}
	v, ok := query[idField]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.Contains(s, "$") {
		return "", false
	}
	return s, true
}

func (db *Database) getByIDLocked(id string) (Record, bool, error) {
	loc, ok := db.index.get(id)
	if !ok {
		return nil, false, nil
	}
	if loc.cached {
		return db.cache.get(loc.cacheIndex), true, nil
	}
	buf := make([]byte, db.blockSize)
	if err := db.file.readBlock(loc.block, db.blockSize, buf); err != nil {
		return nil, false, err
	}
	rec, err := decodeBlock(buf, db.compressed)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// applyProjection returns a fresh record with projections applied: a key
// survives only if explicitly included, except _id, which survives unless
// explicitly excluded.
func applyProjection(rec Record, proj map[string]bool) Record {
	if len(proj) == 0 {
		return cloneRecord(rec)
	}

	out := Record{}
	keepID := true
	if v, ok := proj[idField]; ok {
		keepID = v
	}
	for field, include := range proj {
		if field == idField || !include {
			continue
		}
		if v, exists := rec[field]; exists {
			out[field] = v
		}
	}
	if keepID {
		if v, exists := rec[idField]; exists {
			out[idField] = v
		}
	}
	return out
}
