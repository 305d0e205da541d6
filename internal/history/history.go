// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history turns untrusted client-supplied conversation history into a
// bounded window that is safe to forward upstream.
//
// Normalization never fails. Anything that cannot be read as a role/content
// pair is dropped, so malformed input degrades to a shorter history.
package history

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jedsmith2004/folio/internal/model"
	"github.com/jedsmith2004/folio/internal/util"
)

const (
	// DefaultMaxTurns is the number of prior entries kept.
	DefaultMaxTurns = 10
	// DefaultMaxChars is the per-entry content limit in runes.
	DefaultMaxChars = 2000
)

// Limits bounds a history window.
type Limits struct {
	MaxTurns int
	MaxChars int
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{MaxTurns: DefaultMaxTurns, MaxChars: DefaultMaxChars}
}

func (l Limits) sanitized() Limits {
	if l.MaxTurns <= 0 {
		l.MaxTurns = DefaultMaxTurns
	}
	if l.MaxChars <= 0 {
		l.MaxChars = DefaultMaxChars
	}
	return l
}

// Window is the projection of a request's history plus its new message.
// It is rebuilt for every request and never stored.
type Window struct {
	History []model.Entry
	Message model.Entry
}

// Entries returns the history followed by the new message.
func (w Window) Entries() []model.Entry {
	out := make([]model.Entry, 0, len(w.History)+1)
	out = append(out, w.History...)
	return append(out, w.Message)
}

// Normalize builds a Window from raw JSON history and the new user message.
//
// Entries are dropped unless they are objects with string "role" and
// "content" fields and non-blank content. Any role other than "assistant"
// becomes "user". Content is NFC-normalized and clamped to MaxChars runes,
// then only the newest MaxTurns entries are kept in their original order.
// raw may be nil, null, or any JSON value.
func Normalize(raw json.RawMessage, message string, lim Limits) Window {
	lim = lim.sanitized()

	var items []json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			items = nil
		}
	}

	kept := make([]model.Entry, 0, len(items))
	for _, item := range items {
		entry, ok := decodeEntry(item, lim.MaxChars)
		if ok {
			kept = append(kept, entry)
		}
	}

	if len(kept) > lim.MaxTurns {
		kept = kept[len(kept)-lim.MaxTurns:]
	}

	return Window{
		History: kept,
		Message: model.Entry{Role: model.RoleUser, Content: clean(message, lim.MaxChars)},
	}
}

// FromEntries is Normalize for history that is already typed, as the chat
// client holds it. The same drop, coerce and clamp rules apply.
func FromEntries(entries []model.Entry, message string, lim Limits) Window {
	raw, err := json.Marshal(entries)
	if err != nil {
		raw = nil
	}
	return Normalize(raw, message, lim)
}

func decodeEntry(item json.RawMessage, maxChars int) (model.Entry, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return model.Entry{}, false
	}

	var role, content string
	if err := json.Unmarshal(fields["role"], &role); err != nil {
		return model.Entry{}, false
	}
	if err := json.Unmarshal(fields["content"], &content); err != nil {
		return model.Entry{}, false
	}
	if strings.TrimSpace(content) == "" {
		return model.Entry{}, false
	}

	r := model.RoleUser
	if role == string(model.RoleAssistant) {
		r = model.RoleAssistant
	}
	return model.Entry{Role: r, Content: clean(content, maxChars)}, true
}

func clean(s string, maxChars int) string {
	return util.ClampRunes(norm.NFC.String(s), maxChars)
}
