// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// readChunkSize is the read buffer for upstream bodies.
const readChunkSize = 4096

// ErrStop may be returned by an Each callback to end iteration without error.
var ErrStop = errors.New("stop")

// Each reads r to the end, feeding every chunk through dec, and calls fn for
// each frame in stream order. It returns nil at end of input or after the
// terminal frame. A callback error other than ErrStop is returned as is.
// Read errors are wrapped.
func Each(ctx context.Context, r io.Reader, dec *Decoder, fn func(Frame) error) error {
	buf := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			stop, err := dispatch(dec.Ingest(buf[:n]), fn)
			if err != nil {
				return err
			}
			if stop || dec.Done() {
				return nil
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				// Graceful close: no sentinel is required.
				_, err := dispatch(dec.Flush(), fn)
				return err
			}
			return fmt.Errorf("stream read failed: %w", readErr)
		}
	}
}

func dispatch(frames []Frame, fn func(Frame) error) (stop bool, err error) {
	for _, f := range frames {
		if err := fn(f); err != nil {
			if errors.Is(err, ErrStop) {
				return true, nil
			}
			return false, err
		}
	}
	return false, nil
}

// Stats summarises one relayed stream.
type Stats struct {
	Deltas    int
	Malformed int
	Terminal  bool
	Chars     int
}

// Relay copies content deltas from an upstream body to enc in order,
// skipping malformed frames. On the terminal sentinel it forwards the
// sentinel and returns. Natural end of body returns without a sentinel.
func Relay(ctx context.Context, body io.Reader, dec *Decoder, enc *Encoder) (Stats, error) {
	var st Stats
	err := Each(ctx, body, dec, func(f Frame) error {
		switch f.Kind {
		case KindDelta:
			st.Deltas++
			st.Chars += len([]rune(f.Payload))
			return enc.Delta(f.Payload)
		case KindTerminal:
			st.Terminal = true
			return enc.Done()
		default:
			st.Malformed++
			return nil
		}
	})
	return st, err
}
