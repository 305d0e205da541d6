// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
)

// MaxLineBytes bounds a single unterminated line.
// SECURITY: A peer that never sends a newline cannot grow the buffer forever.
const MaxLineBytes = 1 << 20

// Decoder reassembles event lines across arbitrary chunk boundaries.
// It owns a single buffer holding the incomplete tail of the last chunk.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	buf     []byte
	extract Extractor
	done    bool
}

// NewDecoder creates a decoder using extract for data payloads.
func NewDecoder(extract Extractor) *Decoder {
	return &Decoder{extract: extract}
}

// Done reports whether the terminal sentinel has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// Ingest appends chunk, decodes every complete line and keeps the trailing
// fragment for the next call. Frames are returned in stream order. After a
// terminal frame, Ingest returns nothing.
func (d *Decoder) Ingest(chunk []byte) []Frame {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]

		if f, ok := d.line(line); ok {
			frames = append(frames, f)
			if f.Kind == KindTerminal {
				d.buf = nil
				return frames
			}
		}
	}

	if len(d.buf) > MaxLineBytes {
		frames = append(frames, Frame{Kind: KindMalformed, Payload: "line exceeds maximum length"})
		d.buf = nil
	}

	// Compact so the backing array does not keep every consumed line alive.
	if len(d.buf) == 0 {
		d.buf = nil
	} else if cap(d.buf) > 4*len(d.buf) && cap(d.buf) > 64*1024 {
		d.buf = append([]byte(nil), d.buf...)
	}
	return frames
}

// Flush decodes a final line left without a trailing newline at end of
// input. It is safe to call more than once.
func (d *Decoder) Flush() []Frame {
	if d.done || len(d.buf) == 0 {
		d.buf = nil
		return nil
	}
	line := d.buf
	d.buf = nil
	if f, ok := d.line(line); ok {
		return []Frame{f}
	}
	return nil
}

// line decodes one complete line. ok is false for lines that yield no frame.
func (d *Decoder) line(raw []byte) (Frame, bool) {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	if !bytes.HasPrefix(raw, []byte(Prefix)) {
		return Frame{}, false
	}
	payload := bytes.TrimSpace(raw[len(Prefix):])
	if len(payload) == 0 {
		return Frame{}, false
	}

	if string(payload) == Sentinel {
		d.done = true
		return Frame{Kind: KindTerminal}, true
	}

	delta, ok, err := d.extract(payload)
	if err != nil {
		return Frame{Kind: KindMalformed, Payload: string(raw)}, true
	}
	if !ok {
		return Frame{}, false
	}
	return Frame{Kind: KindDelta, Payload: delta}, true
}
