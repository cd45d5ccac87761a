package hl7v2

import (
	"strings"
)

// Escape mnemonics, in the order they are tried when decoding.
const (
	escSubcomponent = 'T'
	escComponent    = 'S'
	escRepetition   = 'R'
	escField        = 'F'
	escEscape       = 'E'
)

// Escape replaces every reserved delimiter character in s with its
// escape sequence under d (\F\ \S\ \R\ \T\ \E\ for the default set).
func Escape(d Delimiters, s string) string {
	if s == "" || !strings.ContainsAny(s, string(d[:])) {
		return s
	}

	e := d.Escape()
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		var m byte
		switch c {
		case e:
			m = escEscape
		case d.Field():
			m = escField
		case d.Repetition():
			m = escRepetition
		case d.Component():
			m = escComponent
		case d.Subcomponent():
			m = escSubcomponent
		default:
			b.WriteByte(c)
			continue
		}
		b.WriteByte(e)
		b.WriteByte(m)
		b.WriteByte(e)
	}
	return b.String()
}

// Unescape is the inverse of Escape. Sequences it does not know (\H\,
// \X0D\ and friends) are passed through untouched.
func Unescape(d Delimiters, s string) string {
	e := d.Escape()
	if strings.IndexByte(s, e) < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != e || i+2 >= len(s) || s[i+2] != e {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case escSubcomponent:
			b.WriteByte(d.Subcomponent())
		case escComponent:
			b.WriteByte(d.Component())
		case escRepetition:
			b.WriteByte(d.Repetition())
		case escField:
			b.WriteByte(d.Field())
		case escEscape:
			b.WriteByte(e)
		default:
			b.WriteByte(c)
			continue
		}
		i += 2
	}
	return b.String()
}

// reencode moves an escaped payload from one delimiter set to another.
func reencode(from, to Delimiters, raw string) string {
	if from == to {
		return raw
	}
	return Escape(to, Unescape(from, raw))
}
