package value

import (
	"math"
	"strconv"
	"unicode/utf8"
)

// CompactJSON renders v on a single line with no insignificant whitespace.
// Encoding is total over the closed Value model and never fails.
func (v Value) CompactJSON() []byte {
	return appendJSON(make([]byte, 0, 64), v, false, 0)
}

// IndentJSON renders v with two-space indentation, the format used for
// .json files in materialized trees.
func (v Value) IndentJSON() []byte {
	return appendJSON(make([]byte, 0, 256), v, true, 0)
}

const indentUnit = "  "

func appendJSON(dst []byte, v Value, indent bool, depth int) []byte {
	switch v.Kind {
	case Null:
		return append(dst, "null"...)
	case Bool:
		if v.B {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case Int:
		return strconv.AppendInt(dst, v.I, 10)
	case Float:
		return appendFloat(dst, v.F)
	case Str:
		return appendString(dst, v.S)
	case Mapping:
		if len(v.Members) == 0 {
			return append(dst, "{}"...)
		}
		dst = append(dst, '{')
		for i, m := range v.Members {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendNewlineIndent(dst, indent, depth+1)
			dst = appendString(dst, m.Key)
			dst = append(dst, ':')
			if indent {
				dst = append(dst, ' ')
			}
			dst = appendJSON(dst, m.Val, indent, depth+1)
		}
		dst = appendNewlineIndent(dst, indent, depth)
		return append(dst, '}')
	case Sequence:
		if len(v.Items) == 0 {
			return append(dst, "[]"...)
		}
		dst = append(dst, '[')
		for i, item := range v.Items {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendNewlineIndent(dst, indent, depth+1)
			dst = appendJSON(dst, item, indent, depth+1)
		}
		dst = appendNewlineIndent(dst, indent, depth)
		return append(dst, ']')
	}
	return append(dst, "null"...)
}

func appendNewlineIndent(dst []byte, indent bool, depth int) []byte {
	if !indent {
		return dst
	}
	dst = append(dst, '\n')
	for range depth {
		dst = append(dst, indentUnit...)
	}
	return dst
}

// appendFloat follows the encoding/json convention of using exponent
// notation only outside [1e-6, 1e21). Non-finite floats cannot come from a
// JSON decode but encode as null so the function stays total.
func appendFloat(dst []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(dst, "null"...)
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	dst = strconv.AppendFloat(dst, f, format, -1, 64)
	if format == 'e' {
		// strconv zero-pads single-digit exponents; rewrite e-09 as e-9.
		if n := len(dst); n >= 4 && dst[n-4] == 'e' && dst[n-3] == '-' && dst[n-2] == '0' {
			dst[n-2] = dst[n-1]
			dst = dst[:n-1]
		}
	}
	return dst
}

const hexDigits = "0123456789abcdef"

// appendString writes a JSON string literal. Only the characters JSON
// requires escaping for are escaped; non-ASCII text and HTML-significant
// characters pass through verbatim.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		b := s[i]
		if b < utf8.RuneSelf {
			if b >= 0x20 && b != '"' && b != '\\' {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch b {
			case '"':
				dst = append(dst, '\\', '"')
			case '\\':
				dst = append(dst, '\\', '\\')
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, `�`...)
			i++
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
