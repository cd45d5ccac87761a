package hl7v2

// Subcomponent is the deepest level of the tree. It is always a leaf.
type Subcomponent struct {
	component *Component
	delims    Delimiters
	raw       string
}

// Component returns the parent component, or nil when detached.
func (s *Subcomponent) Component() *Component { return s.component }

func (s *Subcomponent) Delimiters() Delimiters { return s.delims }

func (s *Subcomponent) IsLeaf() bool { return true }

func (s *Subcomponent) Data() string {
	return Unescape(s.delims, s.raw)
}

func (s *Subcomponent) SetData(v string) error {
	s.raw = Escape(s.delims, v)
	s.markDirty()
	return nil
}

func (s *Subcomponent) Marshal() string { return s.raw }

// Unmarshal stores raw as the escaped payload.
func (s *Subcomponent) Unmarshal(raw string) {
	s.raw = raw
	s.markDirty()
}

func (s *Subcomponent) String() string { return s.Marshal() }

func (s *Subcomponent) setDelimiters(d Delimiters) {
	s.raw = reencode(s.delims, d, s.raw)
	s.delims = d
}

func (s *Subcomponent) clearData() { s.raw = "" }

func (s *Subcomponent) markDirty() {
	if s.component != nil {
		s.component.markDirty()
	}
}
