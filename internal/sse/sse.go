// Package sse decodes the agent's server-sent event stream into text deltas.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"Agent311/internal/backend"
)

const dataPrefix = "data: "

// Decoder splits a byte stream into lines. Bytes of an unfinished line,
// including a partial UTF-8 sequence, stay buffered until the next Feed.
type Decoder struct {
	buf []byte
}

// Feed appends chunk and returns every line it completed, without the
// trailing "\n" or "\r\n".
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimSuffix(d.buf[:i], []byte{'\r'})))
		d.buf = d.buf[i+1:]
	}
	// Release the consumed prefix once the buffer drains
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return lines
}

// Flush returns the trailing line left at end of body, if any.
func (d *Decoder) Flush() (string, bool) {
	if len(d.buf) == 0 {
		return "", false
	}
	line := string(bytes.TrimSuffix(d.buf, []byte{'\r'}))
	d.buf = nil
	return line, true
}

// LineKind classifies one stream line
type LineKind int

const (
	LineIgnored LineKind = iota
	LineDelta
	LineDone
)

// ParseLine interprets one line. Only "data: " lines carrying a text-delta
// event with a string delta yield LineDelta; malformed payloads are ignored.
func ParseLine(line string) (LineKind, string) {
	if !strings.HasPrefix(line, dataPrefix) {
		return LineIgnored, ""
	}
	payload := line[len(dataPrefix):]
	if strings.TrimSpace(payload) == backend.StreamDone {
		return LineDone, ""
	}

	var event backend.StreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return LineIgnored, ""
	}
	if event.Type != backend.EventTextDelta || event.Delta == nil {
		return LineIgnored, ""
	}
	return LineDelta, *event.Delta
}

// Read consumes r until end of body or [DONE], calling onDelta for each text
// delta in receipt order. The returned error is ctx.Err() after cancellation.
func Read(ctx context.Context, r io.Reader, onDelta func(string)) error {
	var dec Decoder
	chunk := make([]byte, 4*1024)

	handle := func(line string) bool {
		kind, delta := ParseLine(line)
		switch kind {
		case LineDelta:
			onDelta(delta)
		case LineDone:
			return true
		}
		return false
	}

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			for _, line := range dec.Feed(chunk[:n]) {
				if handle(line) {
					return nil
				}
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, io.EOF) {
				if line, ok := dec.Flush(); ok {
					handle(line)
				}
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
}
