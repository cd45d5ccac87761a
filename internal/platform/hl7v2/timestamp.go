package hl7v2

import (
	"fmt"
	"strings"
	"time"
)

// Precision selects how many digits of an HL7 TS value are written.
type Precision int

const (
	PrecisionDay     Precision = 8
	PrecisionHours   Precision = 10
	PrecisionMinutes Precision = 12
	PrecisionSeconds Precision = 14
)

const timestampLayout = "20060102150405"

// FormatTimestamp renders t in HL7 TS format truncated to p digits.
func FormatTimestamp(t time.Time, p Precision) string {
	s := t.Format(timestampLayout)
	if int(p) > 0 && int(p) < len(s) {
		return s[:p]
	}
	return s
}

// ParseTimestamp parses an HL7 TS value: YYYY[MM[DD[HH[MM[SS[.S+]]]]]]
// with an optional +/-ZZZZ offset. Values without an offset are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := time.UTC
	if i := strings.IndexAny(s, "+-"); i >= 0 {
		off, err := time.Parse("-0700", s[i:])
		if err != nil {
			return time.Time{}, fmt.Errorf("hl7v2: bad timestamp offset in %q", s)
		}
		loc = off.Location()
		s = s[:i]
	}

	var frac string
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s, frac = s[:i], s[i:]
	}

	switch len(s) {
	case 4, 6, 8, 10, 12, 14:
	default:
		return time.Time{}, fmt.Errorf("hl7v2: unrecognized timestamp format: %q", s)
	}
	if frac != "" && len(s) != 14 {
		return time.Time{}, fmt.Errorf("hl7v2: fractional seconds need full precision: %q", s+frac)
	}

	t, err := time.ParseInLocation(timestampLayout[:len(s)]+frac0(frac), s+frac, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("hl7v2: parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// frac0 returns a layout fragment for a fractional second suffix.
func frac0(frac string) string {
	if frac == "" {
		return ""
	}
	return "." + strings.Repeat("0", len(frac)-1)
}
