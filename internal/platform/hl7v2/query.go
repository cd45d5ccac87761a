package hl7v2

// Match pairs an element with the concrete location it was found at.
type Match struct {
	Location Location
	Element  Element
}

func (m *Message) lookup() *index {
	if m.dirty || m.idx == nil {
		m.idx = buildIndex(m)
		m.dirty = false
	}
	return m.idx
}

// Get returns the first element addressed by path, or Null.
func (m *Message) Get(path string) (Element, error) {
	q, err := ParseLocation(path)
	if err != nil {
		return Null, err
	}
	return m.GetAt(q), nil
}

// GetAt returns the first element matching q in pre-order, or Null.
func (m *Message) GetAt(q Location) Element {
	if !q.hasField {
		return Null
	}
	e, ok := m.lookup().first(q)
	if !ok {
		return Null
	}
	return e.elem
}

// GetAll returns every element addressed by path, in pre-order.
func (m *Message) GetAll(path string) ([]Element, error) {
	q, err := ParseLocation(path)
	if err != nil {
		return nil, err
	}
	return m.GetAllAt(q), nil
}

func (m *Message) GetAllAt(q Location) []Element {
	matches := m.Find(q)
	out := make([]Element, len(matches))
	for i, mt := range matches {
		out[i] = mt.Element
	}
	return out
}

// Find is GetAllAt that also reports where each element was found.
func (m *Message) Find(q Location) []Match {
	if !q.hasField {
		return nil
	}
	entries := m.lookup().all(q)
	out := make([]Match, len(entries))
	for i, e := range entries {
		out[i] = Match{Location: e.loc, Element: e.elem}
	}
	return out
}

// Has reports whether path addresses a segment or element that exists.
func (m *Message) Has(path string) (bool, error) {
	q, err := ParseLocation(path)
	if err != nil {
		return false, err
	}
	return m.HasAt(q), nil
}

func (m *Message) HasAt(q Location) bool {
	if !q.hasField {
		return m.SegmentAt(q) != nil
	}
	_, ok := m.lookup().first(q)
	return ok
}

// Value returns the decoded data at path, or "" when the path is
// malformed or matches nothing.
func (m *Message) Value(path string) string {
	e, err := m.Get(path)
	if err != nil {
		return ""
	}
	return e.Data()
}

// GetSegment returns the first segment addressed by the segment part of
// path, or nil.
func (m *Message) GetSegment(path string) (*Segment, error) {
	q, err := ParseLocation(path)
	if err != nil {
		return nil, err
	}
	return m.SegmentAt(q), nil
}

func (m *Message) SegmentAt(q Location) *Segment {
	segs := m.segmentsAt(q, true)
	if len(segs) == 0 {
		return nil
	}
	return segs[0]
}

// GetAllSegments returns every segment addressed by the segment part of
// path.
func (m *Message) GetAllSegments(path string) ([]*Segment, error) {
	q, err := ParseLocation(path)
	if err != nil {
		return nil, err
	}
	return m.SegmentsAt(q), nil
}

func (m *Message) SegmentsAt(q Location) []*Segment {
	return m.segmentsAt(q, false)
}

func (m *Message) segmentsAt(q Location, firstOnly bool) []*Segment {
	var out []*Segment
	occ := 0
	for _, s := range m.segments {
		if s.Name() != q.segment {
			continue
		}
		if q.segmentImplied || occ == q.segmentIndex {
			out = append(out, s)
			if firstOnly {
				break
			}
		}
		occ++
	}
	return out
}
