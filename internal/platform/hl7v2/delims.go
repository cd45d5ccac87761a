package hl7v2

import (
	"fmt"
)

// Delimiters is the five-character alphabet declared in the MSH segment:
// field, component, repetition, escape and subcomponent separators.
type Delimiters [5]byte

// DefaultDelimiters is the conventional |^~\& alphabet.
var DefaultDelimiters = Delimiters{'|', '^', '~', '\\', '&'}

// SegmentTerminator separates segments on the wire.
const SegmentTerminator = '\r'

// ParseDelimiters builds a delimiter set from a five-character string in
// field, component, repetition, escape, subcomponent order.
func ParseDelimiters(s string) (Delimiters, error) {
	var d Delimiters
	if len(s) != len(d) {
		return d, fmt.Errorf("%w: expected 5 characters, got %d in %q", ErrInvalidDelimiters, len(s), s)
	}
	copy(d[:], s)
	if err := d.Validate(); err != nil {
		return Delimiters{}, err
	}
	return d, nil
}

// Validate reports whether the five characters are distinct and usable.
func (d Delimiters) Validate() error {
	for i, c := range d {
		if c == SegmentTerminator || c == '\n' || c == 0 {
			return fmt.Errorf("%w: character %d is not allowed (%q)", ErrInvalidDelimiters, i, c)
		}
		for j := i + 1; j < len(d); j++ {
			if d[j] == c {
				return fmt.Errorf("%w: %q appears more than once in %q", ErrInvalidDelimiters, c, string(d[:]))
			}
		}
	}
	return nil
}

func (d Delimiters) Field() byte        { return d[0] }
func (d Delimiters) Component() byte    { return d[1] }
func (d Delimiters) Repetition() byte   { return d[2] }
func (d Delimiters) Escape() byte       { return d[3] }
func (d Delimiters) Subcomponent() byte { return d[4] }

// Encoding returns the four non-field characters, which form the MSH-2
// payload.
func (d Delimiters) Encoding() string {
	return string(d[1:])
}

func (d Delimiters) String() string {
	return string(d[:])
}
