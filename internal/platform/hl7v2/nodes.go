package hl7v2

// Node is implemented by every level of the message tree.
type Node interface {
	Marshal() string
	Delimiters() Delimiters
}

// Element is a node that can be addressed by a path query: a Field, a
// Component, a Subcomponent, or a detached read-only value such as Null.
type Element interface {
	Node
	// Data returns the decoded payload. For composite nodes this is the
	// decoded join of the children.
	Data() string
	// SetData escapes and stores v, turning the node into a leaf.
	SetData(v string) error
	IsLeaf() bool
}

// detachedElement is a parent-less, read-only leaf.
type detachedElement struct {
	value string
}

// Null is returned by Get when a path matches nothing. Writes to it are
// dropped.
var Null Element = &detachedElement{}

// IsNull reports whether e is the Null sentinel.
func IsNull(e Element) bool {
	return e == nil || e == Null
}

func (n *detachedElement) Data() string           { return n.value }
func (n *detachedElement) SetData(string) error   { return nil }
func (n *detachedElement) Marshal() string        { return n.value }
func (n *detachedElement) IsLeaf() bool           { return true }
func (n *detachedElement) Delimiters() Delimiters { return DefaultDelimiters }

// child list helpers shared by the composite levels.

func insertAt[T any](s []T, i int, v T) ([]T, error) {
	if i < 0 || i > len(s) {
		return s, outOfRange(i, len(s))
	}
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s, nil
}

func removeAt[T any](s []T, i int) ([]T, T, error) {
	var zero T
	if i < 0 || i >= len(s) {
		return s, zero, outOfRange(i, len(s))
	}
	v := s[i]
	copy(s[i:], s[i+1:])
	s[len(s)-1] = zero
	return s[:len(s)-1], v, nil
}

func indexOf[T comparable](s []T, v T) int {
	for i := range s {
		if s[i] == v {
			return i
		}
	}
	return -1
}

func clone[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
