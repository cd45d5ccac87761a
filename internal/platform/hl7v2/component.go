package hl7v2

import (
	"strings"
)

// Component is one component-separated piece of a Field. It is either a
// leaf holding an escaped payload or a composite of Subcomponents.
type Component struct {
	field  *Field
	delims Delimiters
	leaf   bool
	raw    string
	subs   []*Subcomponent
}

func parseComponent(d Delimiters, raw string) *Component {
	c := &Component{delims: d}
	c.unmarshal(raw)
	return c
}

func (c *Component) unmarshal(raw string) {
	pieces := strings.Split(raw, string(c.delims.Subcomponent()))
	if len(pieces) == 1 {
		c.leaf, c.raw, c.subs = true, raw, nil
		return
	}
	c.leaf, c.raw = false, ""
	c.subs = make([]*Subcomponent, len(pieces))
	for i, p := range pieces {
		c.subs[i] = &Subcomponent{component: c, delims: c.delims, raw: p}
	}
}

// Field returns the parent field, or nil when detached.
func (c *Component) Field() *Field { return c.field }

func (c *Component) Delimiters() Delimiters { return c.delims }

func (c *Component) IsLeaf() bool { return c.leaf }

func (c *Component) Marshal() string {
	if c.leaf {
		return c.raw
	}
	parts := make([]string, len(c.subs))
	for i, s := range c.subs {
		parts[i] = s.Marshal()
	}
	return strings.Join(parts, string(c.delims.Subcomponent()))
}

// Unmarshal replaces the component's content with raw, splitting on the
// subcomponent separator.
func (c *Component) Unmarshal(raw string) {
	c.detachAll()
	c.unmarshal(raw)
	c.markDirty()
}

func (c *Component) String() string { return c.Marshal() }

func (c *Component) Data() string {
	return Unescape(c.delims, c.Marshal())
}

func (c *Component) SetData(v string) error {
	if !c.leaf && len(c.subs) > 0 {
		return ErrCompositeNode
	}
	c.leaf, c.raw, c.subs = true, Escape(c.delims, v), nil
	c.markDirty()
	return nil
}

func (c *Component) Len() int {
	if c.leaf {
		return 0
	}
	return len(c.subs)
}

// Subcomponents returns a copy of the child list. It is empty for leaves.
func (c *Component) Subcomponents() []*Subcomponent { return clone(c.subs) }

// Subcomponent returns the i-th (0-based) subcomponent or nil.
func (c *Component) Subcomponent(i int) *Subcomponent {
	if i < 0 || i >= len(c.subs) {
		return nil
	}
	return c.subs[i]
}

func (c *Component) Append(s *Subcomponent) error {
	return c.Insert(c.prospectiveLen(), s)
}

// Insert places s at position i. A leaf component becomes composite; a
// non-empty payload is kept as the first subcomponent.
func (c *Component) Insert(i int, s *Subcomponent) error {
	if err := c.checkAttachable(s); err != nil {
		return err
	}
	if n := c.prospectiveLen(); i < 0 || i > n {
		return outOfRange(i, n)
	}
	c.becomeComposite()
	c.subs, _ = insertAt(c.subs, i, s)
	s.component = c
	s.setDelimiters(c.delims)
	c.markDirty()
	return nil
}

func (c *Component) Remove(i int) (*Subcomponent, error) {
	subs, s, err := removeAt(c.subs, i)
	if err != nil {
		return nil, err
	}
	c.subs = subs
	s.component = nil
	c.markDirty()
	return s, nil
}

// RemoveRef detaches s if it is a child of c.
func (c *Component) RemoveRef(s *Subcomponent) bool {
	i := indexOf(c.subs, s)
	if i < 0 {
		return false
	}
	_, err := c.Remove(i)
	return err == nil
}

// Replace swaps the i-th subcomponent for s and returns the detached one.
func (c *Component) Replace(i int, s *Subcomponent) (*Subcomponent, error) {
	if err := c.checkAttachable(s); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.subs) {
		return nil, outOfRange(i, len(c.subs))
	}
	old := c.subs[i]
	old.component = nil
	c.subs[i] = s
	s.component = c
	s.setDelimiters(c.delims)
	c.markDirty()
	return old, nil
}

func (c *Component) checkAttachable(s *Subcomponent) error {
	if s == nil {
		return ErrNilNode
	}
	if s.component != nil {
		return ErrAttached
	}
	return nil
}

func (c *Component) prospectiveLen() int {
	if c.leaf {
		if c.raw == "" {
			return 0
		}
		return 1
	}
	return len(c.subs)
}

func (c *Component) becomeComposite() {
	if !c.leaf {
		return
	}
	c.leaf = false
	c.subs = nil
	if c.raw != "" {
		c.subs = []*Subcomponent{{component: c, delims: c.delims, raw: c.raw}}
	}
	c.raw = ""
}

func (c *Component) detachAll() {
	for _, s := range c.subs {
		s.component = nil
	}
}

func (c *Component) setDelimiters(d Delimiters) {
	if c.leaf {
		c.raw = reencode(c.delims, d, c.raw)
	}
	c.delims = d
	for _, s := range c.subs {
		s.setDelimiters(d)
	}
}

func (c *Component) clearData() {
	if c.leaf {
		c.raw = ""
		return
	}
	for _, s := range c.subs {
		s.clearData()
	}
}

func (c *Component) markDirty() {
	if c.field != nil {
		c.field.markDirty()
	}
}
