package hl7v2

import (
	"fmt"
	"strconv"
	"strings"
)

// separatorSlot is the internal slot of MSH-1. The field separator is not
// stored in the tree; the index exposes it as a detached element.
const separatorSlot = -1

// fieldSlot maps an HL7 field position to the internal repeating-field
// slot. MSH counts its field separator as MSH-1, so MSH-N for N>1 lives in
// slot N-1.
func fieldSlot(segment string, position int) int {
	if segment != HeaderSegment || position == 0 {
		return position
	}
	if position == 1 {
		return separatorSlot
	}
	return position - 1
}

func fieldPosition(segment string, slot int) int {
	if segment != HeaderSegment || slot == 0 {
		return slot
	}
	if slot == separatorSlot {
		return 1
	}
	return slot + 1
}

// Location addresses a segment, repeating field, field repetition,
// component or subcomponent. Its textual form is SEG[i]-N[j].c.s where the
// bracketed occurrences are 0-based and optional, and component and
// subcomponent numbers are 1-based. An omitted occurrence is implied and
// matches any occurrence.
type Location struct {
	segment      string
	segmentIndex int
	slot         int
	repetition   int
	component    int
	subcomponent int

	hasField        bool
	hasComponent    bool
	hasSubcomponent bool

	segmentImplied    bool
	repetitionImplied bool
}

// NewLocation returns a fully qualified segment location.
func NewLocation(segment string, segmentIndex int) Location {
	return Location{segment: segment, segmentIndex: segmentIndex}
}

// WithField addresses repetition of the field at HL7 position.
func (l Location) WithField(position, repetition int) Location {
	l.hasField = true
	l.slot = fieldSlot(l.segment, position)
	l.repetition = repetition
	l.repetitionImplied = false
	return l
}

// WithComponent addresses the 1-based component c.
func (l Location) WithComponent(c int) Location {
	l.hasComponent = true
	l.component = c
	return l
}

// WithSubcomponent addresses the 1-based subcomponent s.
func (l Location) WithSubcomponent(s int) Location {
	l.hasSubcomponent = true
	l.subcomponent = s
	return l
}

func slotLocation(segment string, segmentIndex, slot, repetition int) Location {
	return Location{
		segment:      segment,
		segmentIndex: segmentIndex,
		slot:         slot,
		repetition:   repetition,
		hasField:     true,
	}
}

func (l Location) SegmentName() string     { return l.segment }
func (l Location) SegmentIndex() int       { return l.segmentIndex }
func (l Location) Repetition() int         { return l.repetition }
func (l Location) Component() int          { return l.component }
func (l Location) Subcomponent() int       { return l.subcomponent }
func (l Location) HasField() bool          { return l.hasField }
func (l Location) HasComponent() bool      { return l.hasComponent }
func (l Location) HasSubcomponent() bool   { return l.hasSubcomponent }
func (l Location) SegmentImplied() bool    { return l.segmentImplied }
func (l Location) RepetitionImplied() bool { return l.repetitionImplied }

// Position is the HL7 field number (MSH-aware).
func (l Location) Position() int { return fieldPosition(l.segment, l.slot) }

// Slot is the internal repeating-field index inside the segment.
func (l Location) Slot() int { return l.slot }

// IsFullyQualified reports whether no occurrence is implied.
func (l Location) IsFullyQualified() bool {
	return !l.segmentImplied && (!l.hasField || !l.repetitionImplied)
}

// SegmentOnly drops everything below the segment.
func (l Location) SegmentOnly() Location {
	return Location{
		segment:        l.segment,
		segmentIndex:   l.segmentIndex,
		segmentImplied: l.segmentImplied,
	}
}

// Short formats l without any occurrence brackets.
func (l Location) Short() string { return l.format(false, false) }

// String formats l with only the brackets that were given explicitly.
func (l Location) String() string {
	return l.format(!l.segmentImplied, !l.repetitionImplied)
}

// FullyQualified formats l with every bracket.
func (l Location) FullyQualified() string { return l.format(true, true) }

func (l Location) format(segIdx, repIdx bool) string {
	var b strings.Builder
	b.WriteString(l.segment)
	if segIdx {
		fmt.Fprintf(&b, "[%d]", l.segmentIndex)
	}
	if !l.hasField {
		return b.String()
	}
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(l.Position()))
	if repIdx {
		fmt.Fprintf(&b, "[%d]", l.repetition)
	}
	if l.hasComponent {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(l.component))
		if l.hasSubcomponent {
			b.WriteByte('.')
			b.WriteString(strconv.Itoa(l.subcomponent))
		}
	}
	return b.String()
}

// Equal compares the fully qualified forms.
func (l Location) Equal(o Location) bool {
	return l.FullyQualified() == o.FullyQualified()
}

// Matches reports whether l, normally a concrete location from the index,
// is addressed by q. An implied occurrence on either side matches any
// occurrence.
func (l Location) Matches(q Location) bool {
	if l.segment != q.segment {
		return false
	}
	if l.hasField != q.hasField || l.hasComponent != q.hasComponent || l.hasSubcomponent != q.hasSubcomponent {
		return false
	}
	if !l.segmentImplied && !q.segmentImplied && l.segmentIndex != q.segmentIndex {
		return false
	}
	if q.hasField {
		if l.slot != q.slot {
			return false
		}
		if !l.repetitionImplied && !q.repetitionImplied && l.repetition != q.repetition {
			return false
		}
	}
	if q.hasComponent && l.component != q.component {
		return false
	}
	if q.hasSubcomponent && l.subcomponent != q.subcomponent {
		return false
	}
	return true
}

// MatchesLeaf is Matches for a location holding a leaf. A leaf field also
// answers for its first component and first subcomponent, and a leaf
// component for its first subcomponent.
func (l Location) MatchesLeaf(q Location) bool {
	if l.Matches(q) {
		return true
	}
	r, ok := rollup(q, l)
	return ok && l.Matches(r)
}

// rollup trims q to the level of leaf when q names only first children
// below it.
func rollup(q, leaf Location) (Location, bool) {
	switch {
	case leaf.hasField && !leaf.hasComponent && q.hasComponent:
		if q.component != 1 || (q.hasSubcomponent && q.subcomponent != 1) {
			return q, false
		}
		q.hasComponent, q.component = false, 0
		q.hasSubcomponent, q.subcomponent = false, 0
		return q, true
	case leaf.hasComponent && !leaf.hasSubcomponent && q.hasSubcomponent:
		if q.subcomponent != 1 {
			return q, false
		}
		q.hasSubcomponent, q.subcomponent = false, 0
		return q, true
	}
	return q, false
}

func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Location) UnmarshalText(text []byte) error {
	parsed, err := ParseLocation(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MustParseLocation is ParseLocation that panics on error. It is meant for
// package-level path constants.
func MustParseLocation(s string) Location {
	l, err := ParseLocation(s)
	if err != nil {
		panic(err)
	}
	return l
}

// ParseLocation parses a path expression such as "PID-3", "PID-3[1].5",
// "OBX[2]-5", "NK1[0]7.1.3" or "ZZZ".
func ParseLocation(s string) (Location, error) {
	sc := locationScanner{in: s}
	return sc.parse()
}

type locationScanner struct {
	in  string
	pos int
}

func (sc *locationScanner) fail(format string, args ...any) error {
	return &LocationError{Input: sc.in, Reason: fmt.Sprintf(format, args...)}
}

func (sc *locationScanner) done() bool { return sc.pos >= len(sc.in) }

func (sc *locationScanner) peek() byte {
	if sc.done() {
		return 0
	}
	return sc.in[sc.pos]
}

func (sc *locationScanner) parse() (Location, error) {
	if len(sc.in) < 3 {
		return Location{}, sc.fail("segment name must be three characters")
	}
	name := sc.in[:3]
	for i := 0; i < 3; i++ {
		c := name[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return Location{}, sc.fail("segment name must be upper-case letters or digits")
		}
	}
	sc.pos = 3

	loc := Location{segment: name, segmentImplied: true, repetitionImplied: true}
	idx, ok, err := sc.occurrence()
	if err != nil {
		return Location{}, err
	}
	if ok {
		loc.segmentIndex, loc.segmentImplied = idx, false
	}
	if sc.done() {
		return loc, nil
	}

	switch c := sc.peek(); {
	case c == '-':
		sc.pos++
	case isDigit(c):
		// SEGN and SEG[i]N are read as SEG-N.
	default:
		return Location{}, sc.fail("unexpected %q after segment", c)
	}

	n, ok := sc.number()
	if !ok {
		return Location{}, sc.fail("expected field position at offset %d", sc.pos)
	}
	loc.hasField = true
	loc.slot = fieldSlot(name, n)

	idx, ok, err = sc.occurrence()
	if err != nil {
		return Location{}, err
	}
	if ok {
		loc.repetition, loc.repetitionImplied = idx, false
	}

	if sc.peek() == '.' {
		sc.pos++
		if loc.component, err = sc.ordinal("component"); err != nil {
			return Location{}, err
		}
		loc.hasComponent = true
		if sc.peek() == '.' {
			sc.pos++
			if loc.subcomponent, err = sc.ordinal("subcomponent"); err != nil {
				return Location{}, err
			}
			loc.hasSubcomponent = true
		}
	}

	if !sc.done() {
		return Location{}, sc.fail("unexpected %q at offset %d", sc.in[sc.pos:], sc.pos)
	}
	return loc, nil
}

// occurrence reads an optional [n].
func (sc *locationScanner) occurrence() (int, bool, error) {
	if sc.peek() != '[' {
		return 0, false, nil
	}
	sc.pos++
	n, ok := sc.number()
	if !ok {
		return 0, false, sc.fail("expected occurrence index at offset %d", sc.pos)
	}
	if sc.peek() != ']' {
		return 0, false, sc.fail("unmatched bracket")
	}
	sc.pos++
	return n, true, nil
}

func (sc *locationScanner) ordinal(what string) (int, error) {
	n, ok := sc.number()
	if !ok {
		return 0, sc.fail("expected %s number at offset %d", what, sc.pos)
	}
	if n < 1 {
		return 0, sc.fail("%s numbers start at 1", what)
	}
	return n, nil
}

func (sc *locationScanner) number() (int, bool) {
	start := sc.pos
	for !sc.done() && isDigit(sc.peek()) {
		sc.pos++
	}
	if sc.pos == start {
		return 0, false
	}
	n, err := strconv.Atoi(sc.in[start:sc.pos])
	if err != nil {
		sc.pos = start
		return 0, false
	}
	return n, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
