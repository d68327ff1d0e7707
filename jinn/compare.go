package jinn

import "reflect"

// upcastNumber widens any of Go's numeric kinds to float64 so values typed
// differently in Go source (int, int64, ...) compare equal to the float64
// gjson hands back for JSON numbers. Mirrors the upcast helper the
// teacher's (dropped) query-matcher dependency used internally for the
// same reason.
func upcastNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func normalizeValue(v interface{}) interface{} {
	switch n := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, e := range n {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, e := range n {
			out[k] = normalizeValue(e)
		}
		return out
	default:
		if f, ok := upcastNumber(v); ok {
			return f
		}
		return v
	}
}

// deepEqualValue is the permissive deep-equality the match/update
// operators use: incompatible variants never panic, they just compare
// unequal.
func deepEqualValue(a, b interface{}) bool {
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

// compareOrdered orders a against b. comparable is false when the two
// variants cannot be ordered (spec: ordering across incompatible variants
// is simply false, never an error).
func compareOrdered(a, b interface{}) (cmp int, comparable bool) {
	if af, aok := upcastNumber(a); aok {
		if bf, bok := upcastNumber(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			switch {
			case as < bs:
				return -1, true
			case as > bs:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	return 0, false
}
