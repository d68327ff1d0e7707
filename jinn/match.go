package jinn

import (
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"
)

// Regex marks a query-tree leaf as a pattern rather than a literal.
// Queries are handed to Match as trees already built by the caller (the
// DSL parser that would produce them is out of scope here, per spec); a
// caller wanting field-matches-pattern semantics wraps the pattern in
// Regex.
type Regex struct {
	*regexp.Regexp
}

// Query is one node of a query tree: field names (or $or/$and/$not) map to
// literals, Regex, leaf-operator objects, or nested sub-queries.
type Query = map[string]interface{}

// Match evaluates query against record and reports whether it matches, per
// the per-field rules in spec §4.5. Field lookups use gjson against the
// record's canonical JSON so dotted paths reach into nested objects for
// free.
func Match(query Query, record Record) (bool, error) {
	raw, err := canonicalJSON(record)
	if err != nil {
		return false, err
	}
	return matchObject(query, []byte(raw))
}

func matchObject(query Query, raw []byte) (bool, error) {
	for key, val := range query {
		var ok bool
		var err error
		switch key {
		case "$or":
			ok, err = matchLogical(val, raw, false)
		case "$and":
			ok, err = matchLogical(val, raw, true)
		case "$not":
			sub, isMap := val.(Query)
			if !isMap {
				return false, fmt.Errorf("%w: $not requires a sub-query object", ErrInvalidArgument)
			}
			m, merr := matchObject(sub, raw)
			err = merr
			ok = !m
		default:
			ok, err = matchField(key, val, raw)
		}
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchLogical(val interface{}, raw []byte, all bool) (bool, error) {
	list, ok := val.([]interface{})
	if !ok {
		return false, fmt.Errorf("%w: $and/$or requires an array of sub-queries", ErrInvalidArgument)
	}
	for _, item := range list {
		sub, ok := item.(Query)
		if !ok {
			return false, fmt.Errorf("%w: $and/$or element is not a sub-query", ErrInvalidArgument)
		}
		m, err := matchObject(sub, raw)
		if err != nil {
			return false, err
		}
		if all && !m {
			return false, nil
		}
		if !all && m {
			return true, nil
		}
	}
	return all, nil
}

func matchField(field string, queryVal interface{}, raw []byte) (bool, error) {
	result := gjson.GetBytes(raw, field)
	exists := result.Exists()

	switch qv := queryVal.(type) {
	case Regex:
		return qv.MatchString(result.String()), nil
	case Query:
		return evalOps(qv, result.Value(), exists, result.String)
	default:
		return deepEqualValue(queryVal, result.Value()), nil
	}
}

// evalOps evaluates the leaf operators present in ops against value. If
// none of ops's keys are recognized leaf operators, it falls back to
// deep-equality between ops (as a plain object) and value, per spec §4.5
// rule 3. stringOf coerces value to a string for $regex; pass
// func() string { return fmt.Sprint(value) } when there's no cheaper
// coercion available (e.g. evaluating against a bare array element).
func evalOps(ops Query, value interface{}, exists bool, stringOf func() string) (bool, error) {
	matchedAny := false
	ok := true

	for opName, arg := range ops {
		switch opName {
		case "$lt", "$lte", "$gt", "$gte":
			matchedAny = true
			cmp, comparable := compareOrdered(value, arg)
			if !comparable {
				ok = false
				continue
			}
			switch opName {
			case "$lt":
				ok = ok && cmp < 0
			case "$lte":
				ok = ok && cmp <= 0
			case "$gt":
				ok = ok && cmp > 0
			case "$gte":
				ok = ok && cmp >= 0
			}
		case "$in":
			matchedAny = true
			list, _ := arg.([]interface{})
			found := false
			for _, v := range list {
				if deepEqualValue(v, value) {
					found = true
					break
				}
			}
			ok = ok && found
		case "$nin":
			matchedAny = true
			list, _ := arg.([]interface{})
			found := false
			for _, v := range list {
				if deepEqualValue(v, value) {
					found = true
					break
				}
			}
			ok = ok && !found
		case "$ne":
			matchedAny = true
			ok = ok && !deepEqualValue(arg, value)
		case "$exists":
			matchedAny = true
			testValue, _ := arg.(bool)
			// Preserved verbatim from the source: (field undefined) == testValue,
			// so $exists:true matches records where the field is MISSING.
			ok = ok && (!exists) == testValue
		case "$regex":
			matchedAny = true
			re, err := regexFromArg(arg)
			if err != nil {
				return false, err
			}
			ok = ok && re.MatchString(stringOf())
		}
	}

	if !matchedAny {
		return deepEqualValue(ops, value), nil
	}
	return ok, nil
}

// valueMatchesQuery applies the same per-field rules §4.5 describes, but
// against a bare value rather than a named record field. Used by $pull,
// whose sub-query tests array elements directly.
func valueMatchesQuery(queryVal interface{}, value interface{}) (bool, error) {
	switch qv := queryVal.(type) {
	case Regex:
		return qv.MatchString(fmt.Sprint(value)), nil
	case Query:
		return evalOps(qv, value, true, func() string { return fmt.Sprint(value) })
	default:
		return deepEqualValue(queryVal, value), nil
	}
}

func regexFromArg(arg interface{}) (*regexp.Regexp, error) {
	switch v := arg.(type) {
	case Regex:
		return v.Regexp, nil
	case *regexp.Regexp:
		return v, nil
	case string:
		return regexp.Compile(v)
	default:
		return nil, fmt.Errorf("%w: $regex requires a string or Regex", ErrInvalidArgument)
	}
}
