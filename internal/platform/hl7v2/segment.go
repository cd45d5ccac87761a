package hl7v2

import (
	"strings"
)

// HeaderSegment is the name of the message header segment.
const HeaderSegment = "MSH"

// Segment is one terminator-delimited record of a message. Slot 0 holds
// the segment name; for MSH, slot 1 holds the encoding characters.
type Segment struct {
	msg    *Message
	delims Delimiters
	fields []*RepeatingField
}

func parseSegment(d Delimiters, raw string) *Segment {
	s := &Segment{delims: d}
	s.unmarshal(raw)
	return s
}

func (s *Segment) unmarshal(raw string) {
	pieces := strings.Split(raw, string(s.delims.Field()))
	s.fields = make([]*RepeatingField, len(pieces))
	for i, p := range pieces {
		rf := parseRepeatingField(s.delims, p)
		rf.seg = s
		s.fields[i] = rf
	}
}

// Message returns the owning message, or nil when detached.
func (s *Segment) Message() *Message { return s.msg }

func (s *Segment) Delimiters() Delimiters { return s.delims }

// Name returns the segment identifier held in slot 0.
func (s *Segment) Name() string {
	if len(s.fields) == 0 || len(s.fields[0].fields) == 0 {
		return ""
	}
	return s.fields[0].fields[0].Marshal()
}

// IsHeader reports whether s is an MSH segment.
func (s *Segment) IsHeader() bool { return s.Name() == HeaderSegment }

func (s *Segment) Marshal() string {
	parts := make([]string, len(s.fields))
	for i, rf := range s.fields {
		parts[i] = rf.Marshal()
	}
	return strings.Join(parts, string(s.delims.Field()))
}

// Unmarshal replaces the segment's content with raw, a single segment
// without its terminator.
func (s *Segment) Unmarshal(raw string) {
	s.detachAll()
	s.unmarshal(raw)
	s.markDirty()
}

func (s *Segment) String() string { return s.Marshal() }

func (s *Segment) Len() int { return len(s.fields) }

func (s *Segment) RepeatingFields() []*RepeatingField { return clone(s.fields) }

// RepeatingField returns the slot at internal index i or nil.
func (s *Segment) RepeatingField(i int) *RepeatingField {
	if i < 0 || i >= len(s.fields) {
		return nil
	}
	return s.fields[i]
}

// Field returns the repeating field at HL7 position n (PID-3 is n=3,
// MSH-3 is n=3). MSH-1 is not a stored node and yields nil.
func (s *Segment) Field(n int) *RepeatingField {
	slot := fieldSlot(s.Name(), n)
	if slot == separatorSlot {
		return nil
	}
	return s.RepeatingField(slot)
}

func (s *Segment) Append(rf *RepeatingField) error {
	return s.Insert(len(s.fields), rf)
}

func (s *Segment) Insert(i int, rf *RepeatingField) error {
	if err := s.checkAttachable(rf); err != nil {
		return err
	}
	fields, err := insertAt(s.fields, i, rf)
	if err != nil {
		return err
	}
	s.fields = fields
	rf.seg = s
	rf.setDelimiters(s.delims)
	s.markDirty()
	return nil
}

func (s *Segment) Remove(i int) (*RepeatingField, error) {
	fields, rf, err := removeAt(s.fields, i)
	if err != nil {
		return nil, err
	}
	s.fields = fields
	rf.seg = nil
	s.markDirty()
	return rf, nil
}

func (s *Segment) RemoveRef(rf *RepeatingField) bool {
	i := indexOf(s.fields, rf)
	if i < 0 {
		return false
	}
	_, err := s.Remove(i)
	return err == nil
}

func (s *Segment) Replace(i int, rf *RepeatingField) (*RepeatingField, error) {
	if err := s.checkAttachable(rf); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(s.fields) {
		return nil, outOfRange(i, len(s.fields))
	}
	old := s.fields[i]
	old.seg = nil
	s.fields[i] = rf
	rf.seg = s
	rf.setDelimiters(s.delims)
	s.markDirty()
	return old, nil
}

// Compress drops trailing repeating fields that serialize to nothing.
// Slot 0 and slots with composite content are kept.
func (s *Segment) Compress() {
	n := len(s.fields)
	for n > 1 {
		rf := s.fields[n-1]
		if rf.isComposite() || rf.Marshal() != "" {
			break
		}
		rf.seg = nil
		s.fields[n-1] = nil
		n--
	}
	if n != len(s.fields) {
		s.fields = s.fields[:n]
		s.markDirty()
	}
}

func (s *Segment) checkAttachable(rf *RepeatingField) error {
	if rf == nil {
		return ErrNilNode
	}
	if rf.seg != nil {
		return ErrAttached
	}
	return nil
}

func (s *Segment) detachAll() {
	for _, rf := range s.fields {
		rf.seg = nil
	}
}

func (s *Segment) setDelimiters(d Delimiters) {
	s.delims = d
	for _, rf := range s.fields {
		rf.setDelimiters(d)
	}
}

// clearData empties every leaf except the segment name and, for MSH, the
// encoding characters.
func (s *Segment) clearData() {
	header := s.IsHeader()
	for i, rf := range s.fields {
		if i == 0 || (header && i == 1) {
			continue
		}
		rf.clearData()
	}
}

func (s *Segment) markDirty() {
	if s.msg != nil {
		s.msg.dirty = true
	}
}
