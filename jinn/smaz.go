package jinn

// Short-string dictionary compression, SMAZ-compatible: a table of common
// English substrings addressed by a single output byte, plus two escape
// codes for bytes that don't appear in the table. Good on JSON records
// because field names and small-integer-ish punctuation repeat constantly.
//
// Escape codes (matching the reference SMAZ scheme):
//   0xFE (254) <byte>        verbatim single byte
//   0xFF (255) <n> <n bytes> verbatim run of n bytes (n in 1..255)
// Codes 0..len(smazCodebook)-1 address the dictionary directly.

const (
	smazVerbatimByte = 0xFE
	smazVerbatimRun  = 0xFF
)

// smazCodebook holds the common-substring dictionary. Order does not
// affect matching: the encoder looks entries up by text, trying the
// longest candidate length first. Kept well under the 254-entry ceiling the format reserves
// (codes 0xFE/0xFF are never dictionary entries).
var smazCodebook = []string{
	" the", "the ", " and", "and ", "tion", "ing ", " to ", " of ",
	"ment", "able", "ound", "ight", "http", "https", "://", "www.",
	".com", "null", "true", "fals", "alse", "name", "type", "data",
	"id\":", "\":\"", "\":[", "\":{", "},\"", "\",\"", "\"},",
	"}]", "[]", "{}", "\"}", "{\"", "\":", ",\"", "\",",
	" ", "e", "t", "a", "o", "i", "n", "s",
	"h", "r", "d", "l", "c", "u", "m", "w",
	"f", "g", "y", "p", "b", ".", ",", "\"",
	":", "{", "}", "[", "]", "0", "1", "2",
	"3", "4", "5", "6", "7", "8", "9", "-",
	"er", "in", "on", "an", "re", "ed", "en", "es",
	"of", "to", "at", "or", "is", "it", "al", "ar",
	"st", "ch", "th", "ea", "le", "de", "se", "ve",
	"te", "ti", "nd", "ll", "ne", "co", "ra", "ro",
}

var smazEncodeIndex map[string]byte

func init() {
	if len(smazCodebook) >= smazVerbatimByte {
		panic("jinn: smaz codebook too large")
	}
	smazEncodeIndex = make(map[string]byte, len(smazCodebook))
	for i, s := range smazCodebook {
		smazEncodeIndex[s] = byte(i)
	}
}

const smazMaxEntryLen = 5

// smazCompress encodes s greedily: at each position, try the longest
// dictionary entry that matches; fall back to a verbatim run otherwise.
func smazCompress(s string) []byte {
	out := make([]byte, 0, len(s))
	i := 0
	var verbatim []byte
	flushVerbatim := func() {
		for len(verbatim) > 0 {
			n := len(verbatim)
			if n > 255 {
				n = 255
			}
			out = append(out, smazVerbatimRun, byte(n))
			out = append(out, verbatim[:n]...)
			verbatim = verbatim[n:]
		}
	}
	for i < len(s) {
		matched := false
		max := smazMaxEntryLen
		if i+max > len(s) {
			max = len(s) - i
		}
		for l := max; l >= 1; l-- {
			if code, ok := smazEncodeIndex[s[i:i+l]]; ok {
				flushVerbatim()
				out = append(out, code)
				i += l
				matched = true
				break
			}
		}
		if !matched {
			verbatim = append(verbatim, s[i])
			i++
		}
	}
	flushVerbatim()
	return out
}

// smazDecompress reverses smazCompress. Returns ErrCorruptBlock if the
// stream ends mid-escape-sequence.
func smazDecompress(b []byte) (string, error) {
	out := make([]byte, 0, len(b)*3)
	i := 0
	for i < len(b) {
		switch b[i] {
		case smazVerbatimByte:
			if i+1 >= len(b) {
				return "", ErrCorruptBlock
			}
			out = append(out, b[i+1])
			i += 2
		case smazVerbatimRun:
			if i+1 >= len(b) {
				return "", ErrCorruptBlock
			}
			n := int(b[i+1])
			if i+2+n > len(b) {
				return "", ErrCorruptBlock
			}
			out = append(out, b[i+2:i+2+n]...)
			i += 2 + n
		default:
			if int(b[i]) >= len(smazCodebook) {
				return "", ErrCorruptBlock
			}
			out = append(out, smazCodebook[b[i]]...)
			i++
		}
	}
	return string(out), nil
}
