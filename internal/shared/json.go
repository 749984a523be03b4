package shared

import "bytes"

var nonFiniteTokens = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// SanitizeJSON replaces the bare NaN, Infinity and -Infinity tokens some backends emit with null so the
// payload can be decoded by encoding/json. Occurrences inside string literals are left untouched.
func SanitizeJSON(body []byte) []byte {
	if !bytes.Contains(body, []byte("NaN")) && !bytes.Contains(body, []byte("Infinity")) {
		return body
	}

	out := make([]byte, 0, len(body))
	inString := false
	escaped := false

	for i := 0; i < len(body); {
		c := body[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			i++
			continue
		}

		if c == '"' {
			inString = true
			out = append(out, c)
			i++
			continue
		}

		replaced := false
		for _, tok := range nonFiniteTokens {
			if bytes.HasPrefix(body[i:], tok) {
				out = append(out, "null"...)
				i += len(tok)
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, c)
			i++
		}
	}

	return out
}
