// Package dateparser parses dates found in feeds: W3C (ISO 8601 subset) dates like
// 2010-11-17T08:40:07-05:00 and RFC 822 pubDates like "Wed, 17 Nov 2010 08:40:07 EST".
// It scans bytes directly and never allocates for the common cases.
package dateparser

import (
	"time"
)

const (
	minLength = 6
	maxLength = 150
)

// ParseString is a convenience wrapper around Parse
func ParseString(s string) (time.Time, bool) {
	return Parse([]byte(s))
}

// Parse parses a W3C or pubDate date. Returns false if year, month and day can't be found
// or the input is too short or too long to be a date.
func Parse(b []byte) (time.Time, bool) {
	if len(b) < minLength || len(b) > maxLength {
		return time.Time{}, false
	}

	switch {
	case isW3CDate(b):
		return parseW3CDate(b)
	case isPubDate(b):
		return parsePubDate(b)
	}
	return parseW3CDate(b) // detection is not strict, try anyway
}

// isW3CDate checks if the first non-whitespace characters look like "2010-"
func isW3CDate(b []byte) bool {
	for i := 0; i < len(b)-4; i++ {
		switch b[i] {
		case ' ', '\r', '\n', '\t':
			continue
		}
		return isDigit(b[i]) && isDigit(b[i+1]) && isDigit(b[i+2]) && isDigit(b[i+3]) && b[i+4] == '-'
	}
	return false
}

func isPubDate(b []byte) bool {
	for _, c := range b {
		if c == ' ' || c == ',' {
			return true
		}
	}
	return false
}

func parseW3CDate(b []byte) (time.Time, bool) {
	n := len(b)
	pos := 0

	year, pos, ok := nextNumericValue(b, 0, 4, pos)
	if !ok {
		return time.Time{}, false
	}
	month, pos, ok := nextNumericValue(b, pos+1, 2, pos)
	if !ok {
		return time.Time{}, false
	}
	day, pos, ok := nextNumericValue(b, pos+1, 2, pos)
	if !ok {
		return time.Time{}, false
	}
	hour, pos, _ := nextNumericValue(b, pos+1, 2, pos)
	minute, pos, _ := nextNumericValue(b, pos+1, 2, pos)
	second, pos, _ := nextNumericValue(b, pos+1, 2, pos)

	cur := pos + 1
	ms := 0
	if cur < n && b[cur] == '.' {
		ms, pos, _ = nextNumericValue(b, cur, 3, pos)
		cur = pos + 1
	}
	// precision beyond milliseconds is ignored
	for cur < n && isDigit(b[cur]) {
		cur++
	}

	offset := timeZoneOffset(b, cur)
	return makeDate(year, month, day, hour, minute, second, ms, offset)
}

func parsePubDate(b []byte) (time.Time, bool) {
	n := len(b)
	pos := 0

	day, pos, ok := nextNumericValue(b, 0, 2, pos)
	if !ok {
		day = 1
	}
	month, pos, ok := nextMonthValue(b, pos+1, pos)
	if !ok {
		month = time.January
	}
	year, pos, ok := nextNumericValue(b, pos+1, 4, pos)
	if !ok {
		return time.Time{}, false
	}
	hour, pos, _ := nextNumericValue(b, pos+1, 2, pos)
	minute, pos, _ := nextNumericValue(b, pos+1, 2, pos)

	cur := pos + 1
	second := 0
	if cur < n && b[cur] == ':' {
		second, pos, _ = nextNumericValue(b, cur, 2, pos)
	}

	cur = pos + 1
	offset := 0
	if cur < n && b[cur] == ' ' {
		offset = timeZoneOffset(b, cur)
	}

	return makeDate(year, int(month), day, hour, minute, second, 0, offset)
}

// makeDate builds the date in UTC and normalizes it by the zone offset.
// time.Date works on the calendar for any year, so there is no 2038 overflow to guard against.
func makeDate(year, month, day, hour, minute, second, ms, offsetSeconds int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, ms*int(time.Millisecond), time.UTC)
	return t.Add(-time.Duration(offsetSeconds) * time.Second), true
}

// nextNumericValue reads up to maxDigits digits starting at start, skipping leading non-digits.
// It returns the value, the index of the last examined byte and false if no digit was found.
// The last examined index is prev when nothing was examined.
func nextNumericValue(b []byte, start, maxDigits, prev int) (value, last int, ok bool) {
	last = prev
	digits := 0
	for i := start; i < len(b); i++ {
		last = i
		c := b[i]
		if !isDigit(c) {
			if digits == 0 {
				continue
			}
			break
		}
		value = value*10 + int(c-'0')
		digits++
		if digits >= maxDigits {
			break
		}
	}
	return value, last, digits > 0
}

// nextMonthValue matches a month name with as few letters as it takes to tell months apart
func nextMonthValue(b []byte, start, prev int) (month time.Month, last int, ok bool) {
	last = prev
	var chars [3]byte
	found := 0

	for i := start; i < len(b); i++ {
		last = i
		c := b[i]
		if !isAlpha(c) {
			if found == 0 {
				continue
			}
			break
		}

		found++
		if found == 1 {
			switch lower(c) {
			case 'f':
				return time.February, last, true
			case 's':
				return time.September, last, true
			case 'o':
				return time.October, last, true
			case 'n':
				return time.November, last, true
			case 'd':
				return time.December, last, true
			}
		}
		chars[found-1] = lower(c)
		if found >= 3 {
			break
		}
	}

	if found < 2 {
		return 0, last, false
	}

	switch chars[0] {
	case 'j':
		if chars[1] == 'a' {
			return time.January, last, true
		}
		if chars[1] == 'u' {
			if chars[2] == 'n' {
				return time.June, last, true
			}
			return time.July, last, true
		}
	case 'm':
		if chars[2] == 'y' {
			return time.May, last, true
		}
		return time.March, last, true
	case 'a':
		if chars[1] == 'u' {
			return time.August, last, true
		}
		return time.April, last, true
	}
	return time.January, last, true
}

// timeZoneOffset scans up to 5 zone characters from start and returns the offset in seconds
func timeZoneOffset(b []byte, start int) int {
	var tz [5]byte
	found := 0
	hasAlpha := false

	for i := start; i < len(b); i++ {
		c := b[i]
		if c == ':' || c == ' ' {
			continue
		}
		alpha := isAlpha(c)
		if alpha {
			hasAlpha = true
		}
		if alpha || isDigit(c) || c == '+' || c == '-' {
			tz[found] = c
			found++
		}
		if found >= 5 {
			break
		}
	}

	if found < 1 || tz[0] == 'Z' || tz[0] == 'z' {
		return 0
	}
	if hasAlpha {
		return zoneAbbreviations[string(tz[:found])] // unknown zones are treated as UTC
	}
	return numericOffset(tz[:found])
}

// numericOffset parses +HHMM, -HHMM, +HH and similar
func numericOffset(tz []byte) int {
	hours, last, _ := nextNumericValue(tz, 0, 2, 0)
	minutes, _, _ := nextNumericValue(tz, last+1, 2, last)
	if hours == 0 && minutes == 0 {
		return 0
	}
	seconds := hours*60*60 + minutes*60
	if tz[0] != '+' {
		seconds = -seconds
	}
	return seconds
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
