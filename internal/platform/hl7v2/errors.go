package hl7v2

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMessage is returned when the delimiter set or the MSH
	// header cannot be discovered.
	ErrMalformedMessage = errors.New("hl7v2: malformed message")
	// ErrMalformedLocation is returned for path expressions that do not
	// follow the SEG[i]-N[j].c.s grammar.
	ErrMalformedLocation = errors.New("hl7v2: malformed location")
	ErrInvalidDelimiters = errors.New("hl7v2: invalid delimiters")

	// Structural misuse.
	ErrCompositeNode   = errors.New("hl7v2: node has children")
	ErrDelimiterField  = errors.New("hl7v2: MSH delimiter field is only changed through ChangeDelimiters")
	ErrIndexOutOfRange = errors.New("hl7v2: index out of range")
	ErrAttached        = errors.New("hl7v2: node is already attached to a parent")
	ErrNilNode         = errors.New("hl7v2: nil node")

	// ErrNoMatch is returned by Set when a path addresses nothing.
	ErrNoMatch = errors.New("hl7v2: no element at location")
)

// LocationError describes a path expression that could not be parsed.
type LocationError struct {
	Input  string
	Reason string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("hl7v2: malformed location %q: %s", e.Input, e.Reason)
}

func (e *LocationError) Unwrap() error { return ErrMalformedLocation }

// MessageError describes raw input that could not be parsed as a message.
type MessageError struct {
	Reason string
	Prefix string
}

func (e *MessageError) Error() string {
	if e.Prefix == "" {
		return "hl7v2: malformed message: " + e.Reason
	}
	return fmt.Sprintf("hl7v2: malformed message starting %q: %s", e.Prefix, e.Reason)
}

func (e *MessageError) Unwrap() error { return ErrMalformedMessage }

func malformed(raw, reason string) error {
	prefix := raw
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	return &MessageError{Reason: reason, Prefix: prefix}
}

func outOfRange(i, n int) error {
	return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, n)
}
