// Package spool reads and writes files holding several HL7 v2 messages
// separated by a terminator, and watches spool directories for new files.
package spool

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/URMC/urHL7/internal/platform/hl7v2"
)

// DefaultTerminator separates messages in a spool file.
const DefaultTerminator = "\r\n"

const (
	defaultBufferSize = 4096
	maxMessageSize    = 64 << 20
)

// MessageFunc receives each parsed message. Returning an error stops the
// read.
type MessageFunc func(msg *hl7v2.Message) error

// Reader splits a byte stream into messages.
type Reader struct {
	// Terminator separates messages. Empty means DefaultTerminator.
	Terminator string

	// BufferSize is the initial read buffer. Zero means 4 KiB.
	BufferSize int
}

func (r Reader) terminator() string {
	if r.Terminator == "" {
		return DefaultTerminator
	}
	return r.Terminator
}

// Read parses every message in src and passes it to fn, returning how
// many messages were delivered. Blank chunks are skipped and a trailing
// chunk without a terminator is parsed as the last message.
func (r Reader) Read(ctx context.Context, src io.Reader, fn MessageFunc) (int, error) {
	size := r.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, size), maxMessageSize)
	sc.Split(splitOn([]byte(r.terminator())))

	n := 0
	ordinal := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		chunk := sc.Text()
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		ordinal++
		msg, err := hl7v2.ParseString(strings.TrimLeft(chunk, "\r\n"))
		if err != nil {
			return n, fmt.Errorf("message %d: %w", ordinal, err)
		}
		if err := fn(msg); err != nil {
			return n, err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read spool: %w", err)
	}
	return n, nil
}

// ReadFile is Read over the file at path.
func (r Reader) ReadFile(ctx context.Context, path string, fn MessageFunc) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.Read(ctx, f, fn)
}

// ReadAll collects every message in src.
func (r Reader) ReadAll(ctx context.Context, src io.Reader) ([]*hl7v2.Message, error) {
	var out []*hl7v2.Message
	_, err := r.Read(ctx, src, func(msg *hl7v2.Message) error {
		out = append(out, msg)
		return nil
	})
	return out, err
}

func splitOn(sep []byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.Index(data, sep); i >= 0 {
			return i + len(sep), data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
