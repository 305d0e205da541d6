// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"github.com/jedsmith2004/folio/internal/session"
)

// FromSession builds a transcript from a session view. Turns still
// streaming are left out.
func FromSession(title, modelName string, turns []session.TurnView) *Transcript {
	t := &Transcript{
		Title:   title,
		Model:   modelName,
		Entries: make([]Entry, 0, len(turns)),
	}
	for _, turn := range turns {
		if turn.Streaming {
			continue
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = turn.CreatedAt
		}
		t.Entries = append(t.Entries, Entry{
			Role:    turn.Role,
			Content: turn.Text,
			Time:    turn.CreatedAt,
		})
	}
	return t
}
