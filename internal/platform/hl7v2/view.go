package hl7v2

// MessageView is a JSON-friendly rendering of a message tree with decoded
// values.
type MessageView struct {
	Delimiters string        `json:"delimiters"`
	Header     Header        `json:"header"`
	Segments   []SegmentView `json:"segments"`
}

type SegmentView struct {
	Name       string      `json:"name"`
	Occurrence int         `json:"occurrence"`
	Fields     []FieldView `json:"fields"`
}

// FieldView is one repeating field. Position is the HL7 field number.
type FieldView struct {
	Position    int              `json:"position"`
	Repetitions []RepetitionView `json:"repetitions"`
}

type RepetitionView struct {
	Value      string          `json:"value"`
	Components []ComponentView `json:"components,omitempty"`
}

type ComponentView struct {
	Value         string   `json:"value"`
	Subcomponents []string `json:"subcomponents,omitempty"`
}

// View renders m. Slot 0 (the segment name) is not repeated as a field;
// MSH-1 is included for header segments.
func (m *Message) View() MessageView {
	v := MessageView{
		Delimiters: m.delims.String(),
		Header:     m.Header(),
		Segments:   make([]SegmentView, 0, len(m.segments)),
	}
	seen := make(map[string]int)
	for _, s := range m.segments {
		name := s.Name()
		sv := SegmentView{Name: name, Occurrence: seen[name]}
		seen[name]++
		if s.IsHeader() {
			sv.Fields = append(sv.Fields, FieldView{
				Position:    1,
				Repetitions: []RepetitionView{{Value: string(s.delims.Field())}},
			})
		}
		for slot := 1; slot < len(s.fields); slot++ {
			sv.Fields = append(sv.Fields, viewRepeatingField(fieldPosition(name, slot), s.fields[slot]))
		}
		v.Segments = append(v.Segments, sv)
	}
	return v
}

func viewRepeatingField(position int, rf *RepeatingField) FieldView {
	fv := FieldView{Position: position, Repetitions: make([]RepetitionView, len(rf.fields))}
	for i, f := range rf.fields {
		rv := RepetitionView{Value: f.Data()}
		if !f.leaf {
			for _, c := range f.components {
				cv := ComponentView{Value: c.Data()}
				for _, sub := range c.subs {
					cv.Subcomponents = append(cv.Subcomponents, sub.Data())
				}
				rv.Components = append(rv.Components, cv)
			}
		}
		fv.Repetitions[i] = rv
	}
	return fv
}
