package jinn

import (
	"fmt"
	"strings"

	json2 "github.com/go-json-experiment/json"
)

// Record is a decoded document. The only structural requirement is the
// mandatory string field "_id"; everything else is caller-defined JSON.
type Record = map[string]interface{}

const idField = "_id"

func getID(r Record) (string, bool) {
	v, ok := r[idField]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// canonicalJSON serializes r deterministically (stable key order) via the
// v2 experimental encoder, which is what the rest of the teacher's stack
// already depends on for predictable wire output.
func canonicalJSON(r Record) (string, error) {
	b, err := json2.Marshal(r, json2.Deterministic(true))
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(b), nil
}

// encodedLength returns the pre-padding length of the encoded record: the
// size it would occupy in a block before padding, used to decide whether a
// resize is required.
func encodedLength(r Record, compressed bool) (int, error) {
	s, err := canonicalJSON(r)
	if err != nil {
		return 0, err
	}
	if !compressed {
		return len(s), nil
	}
	return len(smazCompress(s)), nil
}

// encodeBlock serializes r into a buffer of exactly blockSize bytes,
// padding the remainder with ASCII spaces. Fails if the encoded record
// (compressed or not) doesn't fit.
func encodeBlock(r Record, blockSize uint64, compressed bool) ([]byte, error) {
	s, err := canonicalJSON(r)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if compressed {
		payload = smazCompress(s)
	} else {
		payload = []byte(s)
	}

	if uint64(len(payload)) > blockSize {
		return nil, fmt.Errorf("%w: encoded record is %d bytes, block size is %d", ErrInvalidArgument, len(payload), blockSize)
	}

	buf := make([]byte, blockSize)
	copy(buf, payload)
	for i := len(payload); i < len(buf); i++ {
		buf[i] = ' '
	}
	return buf, nil
}

// decodeBlock reverses encodeBlock. If compressed, decompress first, then
// trim to the substring spanning the first '{' through the last '}'
// inclusive (padding and any decompression slack live outside that span),
// then parse as JSON.
func decodeBlock(buf []byte, compressed bool) (Record, error) {
	var s string
	if compressed {
		decoded, err := smazDecompress(buf)
		if err != nil {
			return nil, err
		}
		s = decoded
	} else {
		s = string(buf)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object braces found", ErrCorruptBlock)
	}
	s = s[start : end+1]

	r := Record{}
	if err := json2.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
	}
	return r, nil
}

// unmarshalJSON decodes b into v with the same JSON codec as the blocks.
func unmarshalJSON(b []byte, v interface{}) error {
	return json2.Unmarshal(b, v)
}

// cloneRecord returns a shallow copy, adequate for projection (which only
// drops top-level keys).
func cloneRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// deepCloneRecord round-trips through JSON to get a fully independent copy,
// needed before applying update directives that mutate nested values.
func deepCloneRecord(r Record) (Record, error) {
	s, err := canonicalJSON(r)
	if err != nil {
		return nil, err
	}
	out := Record{}
	if err := json2.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("deep clone: %w", err)
	}
	return out, nil
}
