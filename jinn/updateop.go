package jinn

// UpdateOptions bounds an Update call. Limit 0 means unlimited.
type UpdateOptions struct {
	Limit int
}

// Update finds records matching query, applies directive to a fresh copy
// of each, and re-inserts them (overwrite semantics by _id). Returns the
// count updated.
func (db *Database) Update(query Query, directive Update, opts UpdateOptions) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return 0, ErrClosed
	}

	records, err := db.findLocked(query, FindOptions{Limit: opts.Limit})
	if err != nil {
		return 0, err
	}

	count := 0
	for _, rec := range records {
		updated, err := applyUpdate(rec, directive)
		if err != nil {
			return count, err
		}
		if err := db.insertLocked(updated); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
