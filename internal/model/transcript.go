// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Transcript holds the ordered turns of one chat session, oldest first.
// It is not safe for concurrent use; owners guard it themselves.
type Transcript struct {
	turns []*Turn
}

// AddUser appends a completed user turn.
func (t *Transcript) AddUser(content string) *Turn {
	turn := NewTurn(RoleUser, content)
	t.turns = append(t.turns, turn)
	return turn
}

// BeginAssistant appends an empty streaming assistant turn.
func (t *Transcript) BeginAssistant() *Turn {
	turn := NewStreamingTurn()
	t.turns = append(t.turns, turn)
	return turn
}

// Last returns the newest turn, or nil.
func (t *Transcript) Last() *Turn {
	if len(t.turns) == 0 {
		return nil
	}
	return t.turns[len(t.turns)-1]
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns the turns in order. The slice is a copy; the turns are not.
func (t *Transcript) Turns() []*Turn {
	out := make([]*Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Entries returns the wire form of every completed turn, skipping any turn
// still streaming and any with empty text.
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, 0, len(t.turns))
	for _, turn := range t.turns {
		if turn.Streaming || turn.Content == "" {
			continue
		}
		out = append(out, turn.Entry())
	}
	return out
}

// Clear drops all turns.
func (t *Transcript) Clear() {
	t.turns = nil
}
