package hl7v2

import (
	"fmt"
	"strings"
)

// NewMessage returns a message holding a single MSH segment that declares
// d, followed by additionalFields empty fields (MSH-3 onwards).
func NewMessage(d Delimiters, additionalFields int) (*Message, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if additionalFields < 0 {
		additionalFields = 0
	}
	raw := HeaderSegment + d.String() + strings.Repeat(string(d.Field()), additionalFields)
	return parseMessage(d, raw), nil
}

// NewSegment returns a detached segment called name with fieldCount empty
// fields after the name.
func NewSegment(d Delimiters, name string, fieldCount int) (*Segment, error) {
	if len(name) != 3 {
		return nil, fmt.Errorf("hl7v2: segment name %q must be three characters", name)
	}
	if name == HeaderSegment {
		return nil, fmt.Errorf("hl7v2: use NewMessage to create an MSH segment")
	}
	if fieldCount < 0 {
		fieldCount = 0
	}
	return parseSegment(d, Escape(d, name)+strings.Repeat(string(d.Field()), fieldCount)), nil
}

// NewRepeatingField returns a detached repeating field with one empty
// repetition.
func NewRepeatingField(d Delimiters) *RepeatingField {
	return parseRepeatingField(d, "")
}

// NewQuickField returns a detached repeating field whose single
// repetition holds data.
func NewQuickField(d Delimiters, data string) *RepeatingField {
	rf := NewRepeatingField(d)
	_ = rf.fields[0].SetData(data)
	return rf
}

// NewField returns a detached leaf field holding data.
func NewField(d Delimiters, data string) *Field {
	return &Field{delims: d, leaf: true, raw: Escape(d, data)}
}

// NewComponent returns a detached leaf component holding data.
func NewComponent(d Delimiters, data string) *Component {
	return &Component{delims: d, leaf: true, raw: Escape(d, data)}
}

// NewSubcomponent returns a detached subcomponent holding data.
func NewSubcomponent(d Delimiters, data string) *Subcomponent {
	return &Subcomponent{delims: d, raw: Escape(d, data)}
}

// NewCompositeField returns a detached field with one leaf component per
// part.
func NewCompositeField(d Delimiters, parts ...string) *Field {
	f := &Field{delims: d}
	for _, p := range parts {
		c := NewComponent(d, p)
		c.field = f
		f.components = append(f.components, c)
	}
	if len(f.components) == 0 {
		f.leaf = true
	}
	return f
}
