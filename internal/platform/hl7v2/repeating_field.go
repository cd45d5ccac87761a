package hl7v2

import (
	"strings"
)

// RepeatingField is a positional slot in a Segment holding one or more
// repetitions of a Field.
type RepeatingField struct {
	seg    *Segment
	delims Delimiters
	fields []*Field
}

func parseRepeatingField(d Delimiters, raw string) *RepeatingField {
	rf := &RepeatingField{delims: d}
	rf.unmarshal(raw)
	return rf
}

func (r *RepeatingField) unmarshal(raw string) {
	pieces := []string{raw}
	if raw != r.delims.Encoding() {
		pieces = strings.Split(raw, string(r.delims.Repetition()))
	}
	r.fields = make([]*Field, len(pieces))
	for i, p := range pieces {
		f := parseField(r.delims, p)
		f.rf = r
		r.fields[i] = f
	}
}

// Segment returns the parent segment, or nil when detached.
func (r *RepeatingField) Segment() *Segment { return r.seg }

func (r *RepeatingField) Delimiters() Delimiters { return r.delims }

func (r *RepeatingField) Marshal() string {
	parts := make([]string, len(r.fields))
	for i, f := range r.fields {
		parts[i] = f.Marshal()
	}
	return strings.Join(parts, string(r.delims.Repetition()))
}

// Unmarshal replaces every repetition with the content of raw.
func (r *RepeatingField) Unmarshal(raw string) {
	r.detachAll()
	r.unmarshal(raw)
	r.markDirty()
}

func (r *RepeatingField) String() string { return r.Marshal() }

func (r *RepeatingField) Len() int { return len(r.fields) }

func (r *RepeatingField) Fields() []*Field { return clone(r.fields) }

// Field returns the i-th (0-based) repetition or nil.
func (r *RepeatingField) Field(i int) *Field {
	if i < 0 || i >= len(r.fields) {
		return nil
	}
	return r.fields[i]
}

func (r *RepeatingField) Append(f *Field) error {
	return r.Insert(len(r.fields), f)
}

func (r *RepeatingField) Insert(i int, f *Field) error {
	if err := r.checkAttachable(f); err != nil {
		return err
	}
	fields, err := insertAt(r.fields, i, f)
	if err != nil {
		return err
	}
	r.fields = fields
	f.rf = r
	f.setDelimiters(r.delims)
	r.markDirty()
	return nil
}

func (r *RepeatingField) Remove(i int) (*Field, error) {
	fields, f, err := removeAt(r.fields, i)
	if err != nil {
		return nil, err
	}
	r.fields = fields
	f.rf = nil
	r.markDirty()
	return f, nil
}

func (r *RepeatingField) RemoveRef(f *Field) bool {
	i := indexOf(r.fields, f)
	if i < 0 {
		return false
	}
	_, err := r.Remove(i)
	return err == nil
}

func (r *RepeatingField) Replace(i int, f *Field) (*Field, error) {
	if err := r.checkAttachable(f); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(r.fields) {
		return nil, outOfRange(i, len(r.fields))
	}
	old := r.fields[i]
	old.rf = nil
	r.fields[i] = f
	f.rf = r
	f.setDelimiters(r.delims)
	r.markDirty()
	return old, nil
}

func (r *RepeatingField) checkAttachable(f *Field) error {
	if f == nil {
		return ErrNilNode
	}
	if f.rf != nil {
		return ErrAttached
	}
	return nil
}

// isComposite reports whether the slot carries more than a single leaf.
func (r *RepeatingField) isComposite() bool {
	return len(r.fields) > 1 || (len(r.fields) == 1 && !r.fields[0].leaf)
}

func (r *RepeatingField) indexOf(f *Field) int { return indexOf(r.fields, f) }

func (r *RepeatingField) detachAll() {
	for _, f := range r.fields {
		f.rf = nil
	}
}

func (r *RepeatingField) setDelimiters(d Delimiters) {
	r.delims = d
	for _, f := range r.fields {
		f.setDelimiters(d)
	}
}

func (r *RepeatingField) clearData() {
	for _, f := range r.fields {
		f.clearData()
	}
}

func (r *RepeatingField) markDirty() {
	if r.seg != nil {
		r.seg.markDirty()
	}
}
