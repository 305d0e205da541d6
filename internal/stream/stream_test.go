// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstreamLine(content string) string {
	return `data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":` +
		quote(content) + `}}]}` + "\n\n"
}

func quote(s string) string {
	var b bytes.Buffer
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func deltas(frames []Frame) []string {
	var out []string
	for _, f := range frames {
		if f.Kind == KindDelta {
			out = append(out, f.Payload)
		}
	}
	return out
}

// =============================================================================
// DECODER TESTS
// =============================================================================

func TestDecoder_PayloadSplitAcrossChunks(t *testing.T) {
	line := upstreamLine("Hello there")
	cut := strings.Index(line, "Hello") + 3

	dec := NewDecoder(UpstreamDelta)
	first := dec.Ingest([]byte(line[:cut]))
	second := dec.Ingest([]byte(line[cut:]))

	assert.Empty(t, first)
	assert.Equal(t, []Frame{{Kind: KindDelta, Payload: "Hello there"}}, second)
}

func TestDecoder_EverySplitPointYieldsSameFrames(t *testing.T) {
	input := upstreamLine("héllo ") + ": keep-alive\n\n" + upstreamLine("wörld") + "data: [DONE]\n\n"

	for cut := 0; cut <= len(input); cut++ {
		dec := NewDecoder(UpstreamDelta)
		var frames []Frame
		frames = append(frames, dec.Ingest([]byte(input[:cut]))...)
		frames = append(frames, dec.Ingest([]byte(input[cut:]))...)
		frames = append(frames, dec.Flush()...)

		require.Equal(t, []Frame{
			{Kind: KindDelta, Payload: "héllo "},
			{Kind: KindDelta, Payload: "wörld"},
			{Kind: KindTerminal},
		}, frames, "cut=%d", cut)
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	input := upstreamLine("a") + upstreamLine("b") + upstreamLine("c")

	dec := NewDecoder(UpstreamDelta)
	var frames []Frame
	for i := 0; i < len(input); i++ {
		frames = append(frames, dec.Ingest([]byte{input[i]})...)
	}
	assert.Equal(t, []string{"a", "b", "c"}, deltas(frames))
}

func TestDecoder_MalformedLineSkipped(t *testing.T) {
	input := upstreamLine("one") + "data: {\"choices\": [{\"delta\": \n\n" + upstreamLine("two")

	frames := NewDecoder(UpstreamDelta).Ingest([]byte(input))

	assert.Equal(t, []string{"one", "two"}, deltas(frames))
	var malformed int
	for _, f := range frames {
		if f.Kind == KindMalformed {
			malformed++
		}
	}
	assert.Equal(t, 1, malformed)
}

func TestDecoder_IgnoresNonDataLines(t *testing.T) {
	input := ": OPENROUTER PROCESSING\n" +
		"event: message\n" +
		"id: 7\n" +
		"data:\n" +
		"data: " + `{"choices":[{"delta":{"role":"assistant"}}]}` + "\n" +
		"data: " + `{"choices":[]}` + "\n" +
		upstreamLine("x")

	frames := NewDecoder(UpstreamDelta).Ingest([]byte(input))
	assert.Equal(t, []Frame{{Kind: KindDelta, Payload: "x"}}, frames)
}

func TestDecoder_CRLFAndNoSpaceAfterPrefix(t *testing.T) {
	input := "data:{\"content\":\"a\"}\r\n\r\ndata:  {\"content\":\"b\"}\r\n"
	frames := NewDecoder(RelayDelta).Ingest([]byte(input))
	assert.Equal(t, []string{"a", "b"}, deltas(frames))
}

func TestDecoder_TerminalStopsDecoding(t *testing.T) {
	dec := NewDecoder(UpstreamDelta)
	frames := dec.Ingest([]byte(upstreamLine("before") + "data: [DONE]\n\n" + upstreamLine("after")))

	assert.Equal(t, []Frame{{Kind: KindDelta, Payload: "before"}, {Kind: KindTerminal}}, frames)
	assert.True(t, dec.Done())
	assert.Empty(t, dec.Ingest([]byte(upstreamLine("later"))))
	assert.Empty(t, dec.Flush())
}

func TestDecoder_FlushUnterminatedLine(t *testing.T) {
	dec := NewDecoder(RelayDelta)
	assert.Empty(t, dec.Ingest([]byte(`data: {"content":"tail"}`)))
	assert.Equal(t, []Frame{{Kind: KindDelta, Payload: "tail"}}, dec.Flush())
	assert.Empty(t, dec.Flush())
}

func TestDecoder_OversizedLineDropped(t *testing.T) {
	dec := NewDecoder(RelayDelta)
	frames := dec.Ingest(bytes.Repeat([]byte("x"), MaxLineBytes+1))
	require.Len(t, frames, 1)
	assert.Equal(t, KindMalformed, frames[0].Kind)

	frames = dec.Ingest([]byte("\n" + `data: {"content":"ok"}` + "\n"))
	assert.Equal(t, []string{"ok"}, deltas(frames))
}

// =============================================================================
// ENTITY TESTS
// =============================================================================

func TestDecodeEntities(t *testing.T) {
	tests := map[string]string{
		"5 &amp; 3 &lt; 10":             "5 & 3 < 10",
		"a &gt; b":                      "a > b",
		"&quot;hi&quot;":                `"hi"`,
		"it&#39;s it&#x27;s it&#039;s":  "it's it's it's",
		"non&nbsp;breaking":             "non breaking",
		"&amp;lt; stays single-decoded": "&lt; stays single-decoded",
		"no entities here":              "no entities here",
		"&unknown; &":                   "&unknown; &",
	}
	for in, want := range tests {
		assert.Equal(t, want, DecodeEntities(in), in)
	}
}

func TestUpstreamDelta_DecodesEntities(t *testing.T) {
	frames := NewDecoder(UpstreamDelta).Ingest([]byte(upstreamLine("5 &amp; 3 &lt; 10")))
	assert.Equal(t, []string{"5 & 3 < 10"}, deltas(frames))
}

func TestRelayDelta_LeavesEntities(t *testing.T) {
	frames := NewDecoder(RelayDelta).Ingest([]byte(`data: {"content":"&amp;"}` + "\n"))
	assert.Equal(t, []string{"&amp;"}, deltas(frames))
}

// =============================================================================
// ENCODER AND RELAY TESTS
// =============================================================================

func TestEncoder_Format(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Delta(`say "hi"` + "\n"))
	require.NoError(t, enc.Done())

	assert.Equal(t, "data: {\"content\":\"say \\\"hi\\\"\\n\"}\n\ndata: [DONE]\n\n", buf.String())
}

func TestEncoder_FlushesResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, NewEncoder(rec).Delta("x"))
	assert.True(t, rec.Flushed)
}

func TestRelay_RoundTripThroughClientDecoder(t *testing.T) {
	upstream := upstreamLine("Tom &amp; Jerry") +
		"data: {not json}\n\n" +
		upstreamLine(" are friends") +
		"data: [DONE]\n\n"

	var out bytes.Buffer
	st, err := Relay(context.Background(), strings.NewReader(upstream), NewDecoder(UpstreamDelta), NewEncoder(&out))
	require.NoError(t, err)
	assert.Equal(t, Stats{Deltas: 2, Malformed: 1, Terminal: true, Chars: 23}, st)

	var got []string
	var terminal bool
	err = Each(context.Background(), &out, NewDecoder(RelayDelta), func(f Frame) error {
		switch f.Kind {
		case KindDelta:
			got = append(got, f.Payload)
		case KindTerminal:
			terminal = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tom & Jerry", " are friends"}, got)
	assert.True(t, terminal)
}

func TestRelay_EOFWithoutSentinelIsGraceful(t *testing.T) {
	var out bytes.Buffer
	st, err := Relay(context.Background(), strings.NewReader(upstreamLine("partial")), NewDecoder(UpstreamDelta), NewEncoder(&out))
	require.NoError(t, err)
	assert.False(t, st.Terminal)
	assert.Equal(t, 1, st.Deltas)
	assert.NotContains(t, out.String(), Sentinel)
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) > 0 {
		n := copy(p, r.data)
		r.data = r.data[n:]
		return n, nil
	}
	return 0, r.err
}

func TestEach_ReadErrorAfterDeltas(t *testing.T) {
	r := &failingReader{data: []byte(`data: {"content":"a"}` + "\n\n"), err: io.ErrUnexpectedEOF}

	var got []string
	err := Each(context.Background(), r, NewDecoder(RelayDelta), func(f Frame) error {
		got = append(got, f.Payload)
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, []string{"a"}, got)
}

func TestEach_StopAndCallbackError(t *testing.T) {
	input := `data: {"content":"a"}` + "\n" + `data: {"content":"b"}` + "\n"

	var n int
	err := Each(context.Background(), strings.NewReader(input), NewDecoder(RelayDelta), func(Frame) error {
		n++
		return ErrStop
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	boom := errors.New("client gone")
	err = Each(context.Background(), strings.NewReader(input), NewDecoder(RelayDelta), func(Frame) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestEach_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Each(ctx, strings.NewReader("data: {}\n"), NewDecoder(RelayDelta), func(Frame) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncoder_DoesNotHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Delta("5 & 3 < 10"))
	assert.Equal(t, "data: {\"content\":\"5 & 3 < 10\"}\n\n", buf.String())
}
