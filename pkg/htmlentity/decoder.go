// Package htmlentity decodes named and numeric HTML character references
package htmlentity

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxEntityLength = 36 // longest known entity is &CounterClockwiseContourIntegral;

// Decode replaces character references in s. If nothing was decoded, s itself is returned.
// A malformed or unknown reference leaves its '&' in place and decoding resumes with the next byte.
func Decode(s string) string {
	if strings.IndexByte(s, '&') < 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	decoded := false

	for i := 0; i < len(s); {
		if s[i] != '&' {
			next := strings.IndexByte(s[i:], '&')
			if next < 0 {
				sb.WriteString(s[i:])
				break
			}
			sb.WriteString(s[i : i+next])
			i += next
			continue
		}

		if name, end, ok := scanEntity(s, i); ok {
			if val, ok := resolve(name); ok {
				sb.WriteString(val)
				decoded = true
				i = end
				continue
			}
		}
		sb.WriteByte('&')
		i++
	}

	if !decoded {
		return s
	}
	return sb.String()
}

// DecodeBytes is Decode for byte slices, b is returned as is if there is nothing to decode
func DecodeBytes(b []byte) []byte {
	if bytes.IndexByte(b, '&') < 0 {
		return b
	}
	s := string(b)
	res := Decode(s)
	if res == s {
		return b
	}
	return []byte(res)
}

// scanEntity reads the reference name after the '&' at pos. It returns the name and the position
// right after the terminating ';'.
func scanEntity(s string, pos int) (name string, end int, ok bool) {
	for i := pos + 1; i < len(s); i++ {
		if i-pos-1 >= maxEntityLength {
			return "", 0, false
		}
		c := s[i]
		if c == ';' {
			if i == pos+1 {
				return "", 0, false
			}
			return s[pos+1 : i], i + 1, true
		}
		if !isEntityChar(c) {
			return "", 0, false
		}
	}
	return "", 0, false
}

func isEntityChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '#'
}

// resolve looks up a named entity first, then tries a numeric reference
func resolve(name string) (string, bool) {
	if v, ok := namedEntities[name]; ok {
		return v, true
	}
	if !strings.HasPrefix(name, "#") || len(name) < 2 {
		return "", false
	}

	var (
		num uint64
		err error
	)
	if name[1] == 'x' || name[1] == 'X' {
		num, err = strconv.ParseUint(name[2:], 16, 32)
	} else {
		num, err = strconv.ParseUint(name[1:], 10, 32)
	}
	if err != nil || num == 0 || num > utf8.MaxRune {
		return "", false
	}
	return runeString(rune(num)), true
}

// runeString converts a code point, remapping the windows-1252 range 0x80-0x9F the way browsers do
func runeString(r rune) string {
	if r >= 0x80 && r < 0xA0 {
		r = windowsLatin1[r-0x80]
	}
	return string(r)
}

var windowsLatin1 = [32]rune{
	0x20AC, 0x0081, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021, // 80-87
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0x008D, 0x017D, 0x008F, // 88-8F
	0x0090, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014, // 90-97
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0x009D, 0x017E, 0x0178, // 98-9F
}
