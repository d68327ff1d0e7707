package jinn

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Update is an update directive tree: $set/$unset/$inc/... map to
// field->argument objects; any other top-level key is a plain field name
// whose value fully replaces that field (spec §4.5).
type Update = map[string]interface{}

// applyUpdate returns a new record with directive applied to a copy of
// record. Field paths are resolved with gjson/sjson against the record's
// JSON text, which gives dotted-path access for free and keeps the
// directive implementation a thin layer over two small, well-tested
// libraries rather than a hand-rolled tree walker.
func applyUpdate(record Record, update Update) (Record, error) {
	raw, err := canonicalJSON(record)
	if err != nil {
		return nil, err
	}
	b := []byte(raw)

	for key, val := range update {
		fields, isFieldMap := val.(map[string]interface{})

		switch key {
		case "$set":
			if !isFieldMap {
				return nil, fmt.Errorf("%w: $set requires an object", ErrInvalidArgument)
			}
			for field, v := range fields {
				if b, err = sjson.SetBytes(b, field, v); err != nil {
					return nil, fmt.Errorf("$set %s: %w", field, err)
				}
			}
		case "$unset":
			if !isFieldMap {
				return nil, fmt.Errorf("%w: $unset requires an object", ErrInvalidArgument)
			}
			for field := range fields {
				if b, err = sjson.DeleteBytes(b, field); err != nil {
					return nil, fmt.Errorf("$unset %s: %w", field, err)
				}
			}
		case "$inc":
			if !isFieldMap {
				return nil, fmt.Errorf("%w: $inc requires an object", ErrInvalidArgument)
			}
			for field, v := range fields {
				delta, ok := upcastNumber(v)
				if !ok {
					return nil, fmt.Errorf("%w: $inc %s requires a number", ErrInvalidArgument, field)
				}
				cur, _ := upcastNumber(gjson.GetBytes(b, field).Value())
				if b, err = sjson.SetBytes(b, field, cur+delta); err != nil {
					return nil, fmt.Errorf("$inc %s: %w", field, err)
				}
			}
		case "$min", "$max":
			if !isFieldMap {
				return nil, fmt.Errorf("%w: %s requires an object", ErrInvalidArgument, key)
			}
			for field, v := range fields {
				cur := gjson.GetBytes(b, field)
				next := v
				if cur.Exists() {
					cmp, comparable := compareOrdered(cur.Value(), v)
					if comparable {
						if key == "$min" && cmp <= 0 {
							next = cur.Value()
						} else if key == "$max" && cmp >= 0 {
							next = cur.Value()
						}
					}
				}
				if b, err = sjson.SetBytes(b, field, next); err != nil {
					return nil, fmt.Errorf("%s %s: %w", key, field, err)
				}
			}
		case "$push":
			if !isFieldMap {
				return nil, fmt.Errorf("%w: $push requires an object", ErrInvalidArgument)
			}
			for field, v := range fields {
				if b, err = applyPush(b, field, v, false); err != nil {
					return nil, err
				}
			}
		case "$addToSet":
			if !isFieldMap {
				return nil, fmt.Errorf("%w: $addToSet requires an object", ErrInvalidArgument)
			}
			for field, v := range fields {
				if b, err = applyPush(b, field, v, true); err != nil {
					return nil, err
				}
			}
		case "$pop":
			if !isFieldMap {
				return nil, fmt.Errorf("%w: $pop requires an object", ErrInvalidArgument)
			}
			for field, v := range fields {
				n, _ := upcastNumber(v)
				arr := arrayOf(gjson.GetBytes(b, field))
				if len(arr) > 0 {
					if n > 0 {
						arr = arr[:len(arr)-1]
					} else if n < 0 {
						arr = arr[1:]
					}
				}
				if b, err = sjson.SetBytes(b, field, arr); err != nil {
					return nil, fmt.Errorf("$pop %s: %w", field, err)
				}
			}
		case "$pull":
			if !isFieldMap {
				return nil, fmt.Errorf("%w: $pull requires an object", ErrInvalidArgument)
			}
			for field, subquery := range fields {
				arr := arrayOf(gjson.GetBytes(b, field))
				kept := make([]interface{}, 0, len(arr))
				for _, elem := range arr {
					m, merr := valueMatchesQuery(subquery, elem)
					if merr != nil {
						return nil, merr
					}
					if !m {
						kept = append(kept, elem)
					}
				}
				if b, err = sjson.SetBytes(b, field, kept); err != nil {
					return nil, fmt.Errorf("$pull %s: %w", field, err)
				}
			}
		default:
			// Unrecognized top-level key: plain field replacement.
			if b, err = sjson.SetBytes(b, key, val); err != nil {
				return nil, fmt.Errorf("set %s: %w", key, err)
			}
		}
	}

	out := Record{}
	if err := unmarshalJSON(b, &out); err != nil {
		return nil, fmt.Errorf("decode updated record: %w", err)
	}
	return out, nil
}

func arrayOf(r gjson.Result) []interface{} {
	if !r.Exists() {
		return nil
	}
	arr, _ := r.Value().([]interface{})
	return arr
}

// applyPush implements $push (setSemantics=false) and $addToSet
// (setSemantics=true, which skips values already present by deep-equality).
func applyPush(b []byte, field string, arg interface{}, setSemantics bool) ([]byte, error) {
	arr := arrayOf(gjson.GetBytes(b, field))

	opts, isOpts := arg.(map[string]interface{})
	var items []interface{}
	var doSort bool
	var slice int
	hasSlice := false

	if isOpts {
		if each, ok := opts["$each"]; ok {
			list, ok := each.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: $each requires an array", ErrInvalidArgument)
			}
			items = list
			if s, ok := opts["$sort"]; ok {
				if b, ok := s.(bool); ok {
					doSort = b
				} else {
					doSort = true
				}
			}
			if s, ok := opts["$slice"]; ok {
				if n, ok := upcastNumber(s); ok {
					slice = int(n)
					hasSlice = true
				}
			}
		} else {
			items = []interface{}{arg}
		}
	} else {
		items = []interface{}{arg}
	}

	for _, item := range items {
		if setSemantics {
			found := false
			for _, existing := range arr {
				if deepEqualValue(existing, item) {
					found = true
					break
				}
			}
			if found {
				continue
			}
		}
		arr = append(arr, item)
	}

	if doSort {
		sort.SliceStable(arr, func(i, j int) bool {
			cmp, comparable := compareOrdered(arr[i], arr[j])
			return comparable && cmp < 0
		})
	}

	if hasSlice && slice > 0 {
		if slice > len(arr) {
			slice = len(arr)
		}
		arr = arr[slice:]
	}

	return sjson.SetBytes(b, field, arr)
}
