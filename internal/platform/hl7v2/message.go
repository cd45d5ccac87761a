package hl7v2

import (
	"fmt"
	"strings"
)

// Message is the root of a parsed HL7 v2 tree. It owns the delimiter set
// and the lazily rebuilt path index.
//
// A Message is not safe for concurrent use.
type Message struct {
	delims   Delimiters
	segments []*Segment
	dirty    bool
	idx      *index
}

// Parse discovers the delimiter set declared in the MSH header and parses
// raw into a message tree. LF and CRLF segment terminators are accepted
// and normalised to CR.
func Parse(raw []byte) (*Message, error) {
	return ParseString(string(raw))
}

// ParseString is Parse for string input.
func ParseString(raw string) (*Message, error) {
	d, err := discoverDelimiters(raw)
	if err != nil {
		return nil, err
	}
	return parseMessage(d, raw), nil
}

// ParseWithDelimiters parses raw using d without reading the header.
func ParseWithDelimiters(raw string, d Delimiters) (*Message, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return parseMessage(d, raw), nil
}

func discoverDelimiters(raw string) (Delimiters, error) {
	if len(raw) < 8 {
		return Delimiters{}, malformed(raw, "shorter than 8 bytes")
	}
	if !strings.HasPrefix(raw, HeaderSegment) {
		return Delimiters{}, malformed(raw, "does not start with MSH")
	}
	var d Delimiters
	copy(d[:], raw[3:8])
	if err := d.Validate(); err != nil {
		return Delimiters{}, malformed(raw, err.Error())
	}
	return d, nil
}

func parseMessage(d Delimiters, raw string) *Message {
	m := &Message{delims: d}
	m.unmarshal(raw)
	return m
}

func (m *Message) unmarshal(raw string) {
	raw = normalizeTerminators(raw)
	m.segments = m.segments[:0]
	for _, line := range strings.Split(raw, "\r") {
		if line == "" {
			continue
		}
		seg := parseSegment(m.delims, line)
		seg.msg = m
		m.segments = append(m.segments, seg)
	}
	m.dirty = true
}

func normalizeTerminators(raw string) string {
	if strings.IndexByte(raw, '\n') < 0 {
		return raw
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\r")
	return strings.ReplaceAll(raw, "\n", "\r")
}

// Unmarshal replaces the whole tree. When raw starts with MSH its declared
// delimiters are adopted; otherwise the current set is kept.
func (m *Message) Unmarshal(raw string) error {
	d := m.delims
	if strings.HasPrefix(raw, HeaderSegment) {
		var err error
		if d, err = discoverDelimiters(raw); err != nil {
			return err
		}
	}
	for _, s := range m.segments {
		s.msg = nil
	}
	m.segments = nil
	m.delims = d
	m.unmarshal(raw)
	return nil
}

// Marshal serializes the tree. Every segment, including the last, is
// followed by a carriage return.
func (m *Message) Marshal() string {
	var b strings.Builder
	for _, s := range m.segments {
		b.WriteString(s.Marshal())
		b.WriteByte(SegmentTerminator)
	}
	return b.String()
}

func (m *Message) String() string { return m.Marshal() }

// Bytes is Marshal as a byte slice.
func (m *Message) Bytes() []byte { return []byte(m.Marshal()) }

func (m *Message) Delimiters() Delimiters { return m.delims }

func (m *Message) Len() int { return len(m.segments) }

func (m *Message) Segments() []*Segment { return clone(m.segments) }

// Segment returns the i-th (0-based) segment or nil.
func (m *Message) Segment(i int) *Segment {
	if i < 0 || i >= len(m.segments) {
		return nil
	}
	return m.segments[i]
}

// SegmentsNamed returns every segment called name, in message order.
func (m *Message) SegmentsNamed(name string) []*Segment {
	var out []*Segment
	for _, s := range m.segments {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func (m *Message) Append(s *Segment) error {
	return m.Insert(len(m.segments), s)
}

func (m *Message) Insert(i int, s *Segment) error {
	if err := m.checkAttachable(s); err != nil {
		return err
	}
	segs, err := insertAt(m.segments, i, s)
	if err != nil {
		return err
	}
	m.segments = segs
	s.msg = m
	s.setDelimiters(m.delims)
	m.dirty = true
	return nil
}

func (m *Message) Remove(i int) (*Segment, error) {
	segs, s, err := removeAt(m.segments, i)
	if err != nil {
		return nil, err
	}
	m.segments = segs
	s.msg = nil
	m.dirty = true
	return s, nil
}

func (m *Message) RemoveRef(s *Segment) bool {
	i := indexOf(m.segments, s)
	if i < 0 {
		return false
	}
	_, err := m.Remove(i)
	return err == nil
}

func (m *Message) Replace(i int, s *Segment) (*Segment, error) {
	if err := m.checkAttachable(s); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(m.segments) {
		return nil, outOfRange(i, len(m.segments))
	}
	old := m.segments[i]
	old.msg = nil
	m.segments[i] = s
	s.msg = m
	s.setDelimiters(m.delims)
	m.dirty = true
	return old, nil
}

func (m *Message) checkAttachable(s *Segment) error {
	if s == nil {
		return ErrNilNode
	}
	if s.msg != nil {
		return ErrAttached
	}
	return nil
}

// ChangeDelimiters moves the whole tree to d. Leaf data is decoded under
// the old set and re-escaped under the new one; the MSH encoding
// characters are never re-escaped. When rewriteHeader is set, MSH-2 is
// replaced with d's encoding characters.
func (m *Message) ChangeDelimiters(d Delimiters, rewriteHeader bool) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if rewriteHeader {
		for _, s := range m.segments {
			if f := s.delimiterField(); f != nil {
				f.raw = d.Encoding()
			}
		}
	}
	for _, s := range m.segments {
		s.setDelimiters(d)
	}
	m.delims = d
	m.dirty = true
	return nil
}

// Copy returns an independent message. With retainData false every leaf
// is emptied except segment names and the MSH encoding characters.
func (m *Message) Copy(retainData bool) *Message {
	c := parseMessage(m.delims, m.Marshal())
	if !retainData {
		for _, s := range c.segments {
			s.clearData()
		}
	}
	return c
}

// Compress trims trailing empty repeating fields from every segment.
func (m *Message) Compress() {
	for _, s := range m.segments {
		s.Compress()
	}
}

// Set stores value at the first element matching path.
func (m *Message) Set(path, value string) error {
	e, err := m.Get(path)
	if err != nil {
		return err
	}
	if IsNull(e) {
		return fmt.Errorf("%w: %s", ErrNoMatch, path)
	}
	return e.SetData(value)
}

// delimiterField returns the MSH-2 field of a header segment.
func (s *Segment) delimiterField() *Field {
	if !s.IsHeader() || len(s.fields) < 2 || len(s.fields[1].fields) == 0 {
		return nil
	}
	return s.fields[1].fields[0]
}
