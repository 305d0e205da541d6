// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Encoder writes the gateway's outgoing event stream:
//
//	data: {"content":"..."}\n\n
//
// Each event is flushed immediately when w supports http.Flusher.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder creates an encoder over w.
func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// Delta emits one content event.
func (e *Encoder) Delta(content string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Content is rendered as text, never as HTML, so keep & < > readable.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(relayPayload{Content: &content}); err != nil {
		return fmt.Errorf("failed to encode delta: %w", err)
	}
	return e.write(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Done emits the terminal sentinel.
func (e *Encoder) Done() error {
	return e.write([]byte(Sentinel))
}

func (e *Encoder) write(payload []byte) error {
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
