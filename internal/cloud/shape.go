// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/jedsmith2004/folio/internal/model"
)

// =============================================================================
// REQUEST SHAPES
// =============================================================================

// Shape selects how a request body is built for a candidate.
type Shape int

const (
	// ShapeStandard uses max_tokens and temperature.
	ShapeStandard Shape = iota
	// ShapeExtended uses max_completion_tokens and reasoning_effort.
	ShapeExtended
)

// String returns the shape name used in logs and metrics.
func (s Shape) String() string {
	if s == ShapeExtended {
		return "extended"
	}
	return "standard"
}

// reasoningFamilies identify extended-reasoning models by substring.
var reasoningFamilies = []string{"gpt-oss", "deepseek-r1", "qwen3", "qwq"}

// ShapeFor infers the request shape from a model identifier.
func ShapeFor(id string) Shape {
	lower := strings.ToLower(id)
	for _, f := range reasoningFamilies {
		if strings.Contains(lower, f) {
			return ShapeExtended
		}
	}
	return ShapeStandard
}

// Candidate is one upstream model the orchestrator may address.
type Candidate struct {
	ID    string
	Shape Shape
}

// NewCandidate builds a candidate with its shape inferred from id.
func NewCandidate(id string) Candidate {
	return Candidate{ID: id, Shape: ShapeFor(id)}
}

// Shaping holds the per-shape request parameters.
type Shaping struct {
	ExtendedMaxTokens   int
	ExtendedEffort      string
	StandardMaxTokens   int
	StandardTemperature float32
}

// DefaultShaping returns the built-in request parameters.
func DefaultShaping() Shaping {
	return Shaping{
		ExtendedMaxTokens:   1500,
		ExtendedEffort:      "medium",
		StandardMaxTokens:   300,
		StandardTemperature: 0.7,
	}
}

// Build returns the streaming request body for c.
func (s Shaping) Build(c Candidate, msgs []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    c.ID,
		Messages: msgs,
		Stream:   true,
	}
	switch c.Shape {
	case ShapeExtended:
		req.MaxCompletionTokens = s.ExtendedMaxTokens
		req.ReasoningEffort = s.ExtendedEffort
	default:
		req.MaxTokens = s.StandardMaxTokens
		req.Temperature = s.StandardTemperature
	}
	return req
}

// Messages prepends the system instruction to a conversation.
// An empty instruction is omitted.
func Messages(system string, entries []model.Entry) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(entries)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, e := range entries {
		role := openai.ChatMessageRoleUser
		if e.Role == model.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: e.Content})
	}
	return out
}
