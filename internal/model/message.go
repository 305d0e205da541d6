// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// ENTRY TYPE
// =============================================================================

// Entry is a single history item as sent between client and gateway.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message in a chat transcript.
type Turn struct {
	ID        string
	Role      Role
	CreatedAt time.Time

	// Content is only meaningful once the turn is no longer streaming.
	Content string

	// Streaming state
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	Streaming bool
	stream    strings.Builder
}

// NewTurn creates a completed turn with a fresh ID.
func NewTurn(role Role, content string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewStreamingTurn creates an empty assistant turn that accepts deltas.
func NewStreamingTurn() *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Streaming: true,
	}
}

// Append adds a delta to a streaming turn. Finalized turns ignore it.
func (t *Turn) Append(delta string) {
	if t.Streaming {
		t.stream.WriteString(delta)
	}
}

// Finalize freezes the accumulated text. Calling it twice is a no-op.
func (t *Turn) Finalize() {
	if !t.Streaming {
		return
	}
	t.Content = t.stream.String()
	t.stream.Reset()
	t.Streaming = false
}

// Replace discards any streamed text and finalizes the turn with content.
func (t *Turn) Replace(content string) {
	t.stream.Reset()
	t.Streaming = false
	t.Content = content
}

// Text returns the content to display, streamed or final.
func (t *Turn) Text() string {
	if t.Streaming {
		return t.stream.String()
	}
	return t.Content
}

// Entry converts the turn to its wire form.
func (t *Turn) Entry() Entry {
	return Entry{Role: t.Role, Content: t.Text()}
}
