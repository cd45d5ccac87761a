package spool

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/URMC/urHL7/internal/platform/hl7v2"
)

// Writer appends serialized messages, each followed by a terminator. It is
// safe for concurrent use.
type Writer struct {
	mu         sync.Mutex
	w          io.Writer
	terminator string
}

// NewWriter wraps w. An empty terminator means DefaultTerminator.
func NewWriter(w io.Writer, terminator string) *Writer {
	if terminator == "" {
		terminator = DefaultTerminator
	}
	return &Writer{w: w, terminator: terminator}
}

// OpenFile opens path for appending, creating it when needed.
func OpenFile(path, terminator string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open spool file: %w", err)
	}
	return NewWriter(f, terminator), nil
}

// Write appends msg and the terminator.
func (w *Writer) Write(msg *hl7v2.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, msg.Marshal()+w.terminator); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// WriteAll writes msgs in order, stopping at the first failure.
func (w *Writer) WriteAll(msgs []*hl7v2.Message) error {
	for _, m := range msgs {
		if err := w.Write(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying writer when it is an io.Closer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
