package hl7v2

import (
	"strings"
)

// Field is one repetition inside a RepeatingField. It is either a leaf
// holding an escaped payload or a composite of Components.
type Field struct {
	rf         *RepeatingField
	delims     Delimiters
	leaf       bool
	raw        string
	components []*Component
}

func parseField(d Delimiters, raw string) *Field {
	f := &Field{delims: d}
	f.unmarshal(raw)
	return f
}

func (f *Field) unmarshal(raw string) {
	if raw == f.delims.Encoding() {
		f.leaf, f.raw, f.components = true, raw, nil
		return
	}
	pieces := strings.Split(raw, string(f.delims.Component()))
	if len(pieces) == 1 && strings.IndexByte(raw, f.delims.Subcomponent()) < 0 {
		f.leaf, f.raw, f.components = true, raw, nil
		return
	}
	f.leaf, f.raw = false, ""
	f.components = make([]*Component, len(pieces))
	for i, p := range pieces {
		c := parseComponent(f.delims, p)
		c.field = f
		f.components[i] = c
	}
}

// RepeatingField returns the parent, or nil when detached.
func (f *Field) RepeatingField() *RepeatingField { return f.rf }

func (f *Field) Delimiters() Delimiters { return f.delims }

func (f *Field) IsLeaf() bool { return f.leaf }

// IsDelimiterField reports whether f is the MSH-2 encoding characters
// declaration.
func (f *Field) IsDelimiterField() bool {
	if f.rf == nil || f.rf.seg == nil || !f.leaf {
		return false
	}
	seg := f.rf.seg
	return seg.IsHeader() && len(seg.fields) > 1 && seg.fields[1] == f.rf && f.rf.indexOf(f) == 0
}

func (f *Field) Marshal() string {
	if f.leaf {
		return f.raw
	}
	parts := make([]string, len(f.components))
	for i, c := range f.components {
		parts[i] = c.Marshal()
	}
	return strings.Join(parts, string(f.delims.Component()))
}

// Unmarshal replaces the field's content with raw.
func (f *Field) Unmarshal(raw string) {
	f.detachAll()
	f.unmarshal(raw)
	f.markDirty()
}

func (f *Field) String() string { return f.Marshal() }

// Data returns the decoded payload. The MSH-2 declaration is returned
// literally.
func (f *Field) Data() string {
	if f.IsDelimiterField() {
		return f.raw
	}
	return Unescape(f.delims, f.Marshal())
}

func (f *Field) SetData(v string) error {
	if f.IsDelimiterField() {
		return ErrDelimiterField
	}
	if !f.leaf && len(f.components) > 0 {
		return ErrCompositeNode
	}
	f.leaf, f.raw, f.components = true, Escape(f.delims, v), nil
	f.markDirty()
	return nil
}

func (f *Field) Len() int {
	if f.leaf {
		return 0
	}
	return len(f.components)
}

func (f *Field) Components() []*Component { return clone(f.components) }

// Component returns the i-th (0-based) component or nil.
func (f *Field) Component(i int) *Component {
	if i < 0 || i >= len(f.components) {
		return nil
	}
	return f.components[i]
}

func (f *Field) Append(c *Component) error {
	return f.Insert(f.prospectiveLen(), c)
}

// Insert places c at position i. A leaf field becomes composite; a
// non-empty payload is kept as the first component.
func (f *Field) Insert(i int, c *Component) error {
	if err := f.checkAttachable(c); err != nil {
		return err
	}
	if n := f.prospectiveLen(); i < 0 || i > n {
		return outOfRange(i, n)
	}
	f.becomeComposite()
	f.components, _ = insertAt(f.components, i, c)
	c.field = f
	c.setDelimiters(f.delims)
	f.markDirty()
	return nil
}

func (f *Field) Remove(i int) (*Component, error) {
	comps, c, err := removeAt(f.components, i)
	if err != nil {
		return nil, err
	}
	f.components = comps
	c.field = nil
	f.markDirty()
	return c, nil
}

func (f *Field) RemoveRef(c *Component) bool {
	i := indexOf(f.components, c)
	if i < 0 {
		return false
	}
	_, err := f.Remove(i)
	return err == nil
}

func (f *Field) Replace(i int, c *Component) (*Component, error) {
	if err := f.checkAttachable(c); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(f.components) {
		return nil, outOfRange(i, len(f.components))
	}
	old := f.components[i]
	old.field = nil
	f.components[i] = c
	c.field = f
	c.setDelimiters(f.delims)
	f.markDirty()
	return old, nil
}

func (f *Field) checkAttachable(c *Component) error {
	if c == nil {
		return ErrNilNode
	}
	if c.field != nil {
		return ErrAttached
	}
	if f.IsDelimiterField() {
		return ErrDelimiterField
	}
	return nil
}

func (f *Field) prospectiveLen() int {
	if f.leaf {
		if f.raw == "" {
			return 0
		}
		return 1
	}
	return len(f.components)
}

func (f *Field) becomeComposite() {
	if !f.leaf {
		return
	}
	f.leaf = false
	f.components = nil
	if f.raw != "" {
		seed := &Component{field: f, delims: f.delims, leaf: true, raw: f.raw}
		f.components = []*Component{seed}
	}
	f.raw = ""
}

func (f *Field) detachAll() {
	for _, c := range f.components {
		c.field = nil
	}
}

func (f *Field) setDelimiters(d Delimiters) {
	if f.leaf && !f.IsDelimiterField() {
		f.raw = reencode(f.delims, d, f.raw)
	}
	f.delims = d
	for _, c := range f.components {
		c.setDelimiters(d)
	}
}

func (f *Field) clearData() {
	if f.leaf {
		f.raw = ""
		return
	}
	for _, c := range f.components {
		c.clearData()
	}
}

func (f *Field) markDirty() {
	if f.rf != nil {
		f.rf.markDirty()
	}
}
