package hl7v2

import (
	"errors"
	"testing"
)

// =========== Parent Link Tests ===========

func TestParentLinks(t *testing.T) {
	msg := mustParse(t, sampleFlowcast)
	zzz := msg.Segment(4)
	rf := zzz.Field(3)
	f := rf.Field(0)
	c := f.Component(2)
	s := c.Subcomponent(0)

	if s.Component() != c || c.Field() != f || f.RepeatingField() != rf || rf.Segment() != zzz || zzz.Message() != msg {
		t.Error("expected parent links up to the message")
	}
}

func TestDetach_ClearsParentAndIndex(t *testing.T) {
	msg := mustParse(t, sampleFlowcast)
	nk1 := msg.Segment(3)

	removed, err := msg.Remove(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != nk1 || removed.Message() != nil {
		t.Error("expected removed segment to be detached")
	}
	if has, _ := msg.Has("NK1[1]"); has {
		t.Error("expected NK1[1] to be gone")
	}
	// Still reachable directly and mutable without touching msg.
	before := msg.Marshal()
	_ = removed.Field(2).Field(0).Component(0).SetData("DETACHED")
	if msg.Marshal() != before {
		t.Error("expected detached edits not to affect the message")
	}
	if removed.Field(2).Field(0).Component(0).Data() != "DETACHED" {
		t.Error("expected detached node to keep its own edits")
	}
}

// =========== Child List Tests ===========

func TestMessage_SegmentListOperations(t *testing.T) {
	msg := mustParse(t, "MSH|^~\\&|A\rPID|1\r")
	d := msg.Delimiters()

	evn, _ := NewSegment(d, "EVN", 1)
	if err := msg.Insert(1, evn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pv1, _ := NewSegment(d, "PV1", 2)
	if err := msg.Append(pv1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := msg.Marshal(); got != "MSH|^~\\&|A\rEVN|\rPID|1\rPV1||\r" {
		t.Fatalf("unexpected message %q", got)
	}
	if has, _ := msg.Has("EVN"); !has {
		t.Error("expected EVN to be indexed after insert")
	}

	obx, _ := NewSegment(d, "OBX", 0)
	old, err := msg.Replace(1, obx)
	if err != nil || old != evn || evn.Message() != nil {
		t.Fatalf("expected EVN to be replaced and detached, err=%v", err)
	}
	if !msg.RemoveRef(pv1) {
		t.Error("expected RemoveRef to find PV1")
	}
	if msg.RemoveRef(pv1) {
		t.Error("expected second RemoveRef to report false")
	}
	if got := msg.Marshal(); got != "MSH|^~\\&|A\rOBX\rPID|1\r" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestListOperations_Errors(t *testing.T) {
	msg := mustParse(t, sampleADT)
	d := msg.Delimiters()
	pid := msg.Segment(2)

	if err := msg.Insert(99, &Segment{delims: d}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := msg.Remove(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := msg.Append(pid); !errors.Is(err, ErrAttached) {
		t.Errorf("expected ErrAttached, got %v", err)
	}
	if err := msg.Append(nil); !errors.Is(err, ErrNilNode) {
		t.Errorf("expected ErrNilNode, got %v", err)
	}
	if err := pid.Append(msg.Segment(1).Field(1)); !errors.Is(err, ErrAttached) {
		t.Errorf("expected ErrAttached for a repeating field, got %v", err)
	}
	if _, err := pid.Field(3).Replace(5, NewField(d, "x")); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := msg.Segment(0).Field(2).Field(0).Append(NewComponent(d, "x")); !errors.Is(err, ErrDelimiterField) {
		t.Errorf("expected ErrDelimiterField, got %v", err)
	}
}

func TestRepeatingField_Operations(t *testing.T) {
	msg := mustParse(t, "MSH|^~\\&\rPID|1||A~B\r")
	d := msg.Delimiters()
	rf := msg.Segment(1).Field(3)

	if err := rf.Insert(1, NewField(d, "X")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rf.Marshal() != "A~X~B" {
		t.Errorf("expected 'A~X~B', got %q", rf.Marshal())
	}
	old, err := rf.Replace(0, NewField(d, "Z"))
	if err != nil || old.Data() != "A" || old.RepeatingField() != nil {
		t.Fatalf("expected detached 'A', err=%v", err)
	}
	if _, err := rf.Remove(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := msg.Value("PID-3[1]"); got != "X" {
		t.Errorf("expected 'X', got %q", got)
	}
	if got := len(rf.Fields()); got != 2 {
		t.Errorf("expected 2 repetitions, got %d", got)
	}
}

func TestField_LeafBecomesComposite(t *testing.T) {
	msg := mustParse(t, "MSH|^~\\&\rPID|1||12345\r")
	d := msg.Delimiters()
	f := msg.Segment(1).Field(3).Field(0)

	if !f.IsLeaf() {
		t.Fatal("expected leaf field")
	}
	if err := f.Append(NewComponent(d, "MRN")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.IsLeaf() || f.Len() != 2 {
		t.Fatalf("expected composite with 2 components, got leaf=%v len=%d", f.IsLeaf(), f.Len())
	}
	if got := msg.Value("PID-3.2"); got != "MRN" {
		t.Errorf("expected 'MRN', got %q", got)
	}
	if got := msg.Marshal(); got != "MSH|^~\\&\rPID|1||12345^MRN\r" {
		t.Errorf("unexpected message %q", got)
	}

	// Empty leaves are not seeded.
	empty := NewField(d, "")
	if err := empty.Append(NewComponent(d, "only")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.Len() != 1 || empty.Marshal() != "only" {
		t.Errorf("expected single component 'only', got %q", empty.Marshal())
	}
}

func TestComponent_Subcomponents(t *testing.T) {
	msg := mustParse(t, "MSH|^~\\&\rPV1||I|8-3600^^8-3604&4&1\r")
	d := msg.Delimiters()
	c := msg.Segment(1).Field(3).Field(0).Component(2)

	if err := c.Insert(0, NewSubcomponent(d, "B&C")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Marshal() != `B\T\C&8-3604&4&1` {
		t.Errorf("expected escaped subcomponent, got %q", c.Marshal())
	}
	if got := msg.Value("PV1-3.3.1"); got != "B&C" {
		t.Errorf("expected decoded 'B&C', got %q", got)
	}
	if !c.RemoveRef(c.Subcomponent(0)) {
		t.Error("expected RemoveRef to succeed")
	}
	old, err := c.Replace(2, NewSubcomponent(d, "9"))
	if err != nil || old.Data() != "1" || old.Component() != nil {
		t.Fatalf("expected detached '1', err=%v", err)
	}
	if got := msg.Marshal(); got != "MSH|^~\\&\rPV1||I|8-3600^^8-3604&4&9\r" {
		t.Errorf("unexpected message %q", got)
	}
	if err := c.SetData("x"); !errors.Is(err, ErrCompositeNode) {
		t.Errorf("expected ErrCompositeNode, got %v", err)
	}
}

func TestAttach_ReencodesForeignDelimiters(t *testing.T) {
	msg := mustParse(t, sampleADT)
	foreign := Delimiters{'|', '*', '~', '\\', '&'}

	// Built under '*' as component separator; '^' is plain data there.
	f := NewField(foreign, "A^B")
	if f.Marshal() != "A^B" {
		t.Fatalf("expected unescaped '^' under foreign set, got %q", f.Marshal())
	}
	if err := msg.Segment(2).Field(4).Append(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Delimiters() != msg.Delimiters() {
		t.Error("expected attached field to adopt the message delimiters")
	}
	if f.Marshal() != `A\S\B` {
		t.Errorf("expected re-escaped payload, got %q", f.Marshal())
	}
	if f.Data() != "A^B" {
		t.Errorf("expected data preserved, got %q", f.Data())
	}
}

// =========== Unmarshal Tests ===========

func TestUnmarshal_Levels(t *testing.T) {
	msg := mustParse(t, sampleADT)
	pid := msg.Segment(2)

	pid.Field(5).Field(0).Unmarshal("Roe^Jane")
	if got := msg.Value("PID-5.2"); got != "Jane" {
		t.Errorf("expected 'Jane', got %q", got)
	}

	pid.Field(3).Unmarshal("A~B~C")
	if all, _ := msg.GetAll("PID-3"); len(all) != 3 {
		t.Errorf("expected 3 repetitions, got %d", len(all))
	}

	pid.Unmarshal("PID|9")
	if got := msg.Value("PID-1"); got != "9" {
		t.Errorf("expected '9', got %q", got)
	}
	if has, _ := msg.Has("PID-3"); has {
		t.Error("expected PID-3 to be gone")
	}

	c := msg.Segment(3).Field(3).Field(0).Component(0)
	c.Unmarshal("ICU&EAST")
	if got := msg.Value("PV1-3.1.2"); got != "EAST" {
		t.Errorf("expected 'EAST', got %q", got)
	}
	c.Subcomponent(1).Unmarshal(`W\T\X`)
	if got := msg.Value("PV1-3.1.2"); got != "W&X" {
		t.Errorf("expected 'W&X', got %q", got)
	}
}

func TestMessage_Unmarshal(t *testing.T) {
	msg := mustParse(t, sampleADT)
	old := msg.Segment(0)

	if err := msg.Unmarshal("MSH|*~\\&|OTHER\rPID|1||A*B\r"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if old.Message() != nil {
		t.Error("expected previous segments to be detached")
	}
	if msg.Delimiters().Component() != '*' {
		t.Errorf("expected adopted component separator '*', got %q", msg.Delimiters().Component())
	}
	if got := msg.Value("PID-3.2"); got != "B" {
		t.Errorf("expected 'B', got %q", got)
	}

	if err := msg.Unmarshal("MSH|"); err == nil {
		t.Error("expected error for a truncated header")
	}
}
