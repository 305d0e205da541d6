// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Kind tags a decoded frame.
type Kind int

const (
	KindDelta Kind = iota
	KindTerminal
	KindMalformed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDelta:
		return "delta"
	case KindTerminal:
		return "terminal"
	default:
		return "malformed"
	}
}

// Frame is one decoded event. Payload is the content for KindDelta and the
// offending line for KindMalformed.
type Frame struct {
	Kind    Kind
	Payload string
}

const (
	// Prefix marks a relevant event line.
	Prefix = "data:"
	// Sentinel is the terminal payload.
	Sentinel = "[DONE]"
)

// Extractor pulls a content delta out of one JSON payload. ok is false when
// the payload is valid but carries no content. A non-nil error marks the
// frame malformed.
type Extractor func(payload []byte) (delta string, ok bool, err error)

// UpstreamDelta reads choices[0].delta.content from an OpenAI-compatible
// chunk and decodes over-escaped HTML entities.
func UpstreamDelta(payload []byte) (string, bool, error) {
	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return "", false, err
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return "", false, nil
	}
	return DecodeEntities(chunk.Choices[0].Delta.Content), true, nil
}

// relayPayload is the gateway's outgoing event body.
type relayPayload struct {
	Content *string `json:"content"`
}

// RelayDelta reads {"content": "..."} as emitted by Encoder. Entities were
// already decoded upstream and are left alone.
func RelayDelta(payload []byte) (string, bool, error) {
	var p relayPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", false, err
	}
	if p.Content == nil || *p.Content == "" {
		return "", false, nil
	}
	return *p.Content, true, nil
}

// entityReplacer decodes in a single pass, so "&amp;lt;" becomes "&lt;"
// rather than "<".
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#34;", `"`,
	"&#39;", "'",
	"&#039;", "'",
	"&#x27;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
	"&#160;", " ",
)

// DecodeEntities replaces the HTML entities models commonly over-escape.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityReplacer.Replace(s)
}
