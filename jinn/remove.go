package jinn

// RemoveOptions bounds a Remove call. Limit 0 means unlimited. Sort, when
// set, routes through the sorted path (delegating to Find) instead of the
// plain scan.
type RemoveOptions struct {
	Limit int
	Sort  func(a, b Record) bool
}

// Remove deletes every record matched by any of queries (OR-combined),
// bounded by opts.Limit, then compacts. Returns the number removed.
func (db *Database) Remove(queries []Query, opts RemoveOptions) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return 0, ErrClosed
	}

	query := combineQueriesOr(queries)

	var ids []string
	var err error
	if opts.Sort != nil {
		ids, err = db.sortedMatchIDsLocked(query, opts)
	} else {
		ids, err = db.scanMatchIDsLocked(query, opts.Limit)
	}
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		loc, ok := db.index.get(id)
		if !ok {
			continue
		}
		db.blockHoles.add(loc.block)
		if loc.cached {
			db.cacheHoles.add(uint64(loc.cacheIndex))
		}
		db.index.delete(id)
	}

	if err := db.fillHolesLocked(); err != nil {
		return len(ids), err
	}

	return len(ids), nil
}

// combineQueriesOr folds a slice of queries into one, OR-combined, exactly
// matching a bare query when there's only one.
func combineQueriesOr(queries []Query) Query {
	if len(queries) == 1 {
		return queries[0]
	}
	list := make([]interface{}, len(queries))
	for i, q := range queries {
		list[i] = q
	}
	return Query{"$or": list}
}

// scanMatchIDsLocked is the unsorted remove path: a single scan that
// collects matching ids, stopping once limit is reached. Deletions happen
// in a second pass (in Remove) so the index isn't mutated mid-scan.
func (db *Database) scanMatchIDsLocked(query Query, limit int) ([]string, error) {
	var ids []string
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
		if id, ok := getID(rec); ok {
			ids = append(ids, id)
		}
		if limit > 0 && len(ids) >= limit {
			return Stop
		}
		return Continue
	})

	return ids, scanErr
}

// sortedMatchIDsLocked delegates to Find to get the correctly-ordered,
// correctly-bounded set of matches, then extracts their ids.
func (db *Database) sortedMatchIDsLocked(query Query, opts RemoveOptions) ([]string, error) {
	records, err := db.findLocked(query, FindOptions{Limit: opts.Limit, Sort: opts.Sort})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if id, ok := getID(r); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
