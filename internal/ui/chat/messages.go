// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jedsmith2004/folio/internal/session"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// StateMsg carries new session flags.
type StateMsg struct {
	State session.State
}

// TurnsMsg signals that the transcript changed.
type TurnsMsg struct{}

// ScrollMsg asks the transcript to show its newest line.
type ScrollMsg struct{}

// ReplyMsg is the result of one submit.
type ReplyMsg struct {
	Reply session.Reply
	Err   error
}

// =============================================================================
// SINK
// =============================================================================

// Sink forwards session callbacks to a running program. Callbacks that
// arrive before Attach are dropped.
type Sink struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

var _ session.Sink = (*Sink)(nil)

// NewSink creates a detached sink.
func NewSink() *Sink {
	return &Sink{}
}

// Attach routes messages to p.
func (s *Sink) Attach(p *tea.Program) {
	s.AttachFunc(p.Send)
}

// AttachFunc routes messages to send.
func (s *Sink) AttachFunc(send func(tea.Msg)) {
	s.mu.Lock()
	s.send = send
	s.mu.Unlock()
}

func (s *Sink) emit(msg tea.Msg) {
	s.mu.RLock()
	send := s.send
	s.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

// StateChanged implements session.Sink.
func (s *Sink) StateChanged(st session.State) { s.emit(StateMsg{State: st}) }

// TurnsChanged implements session.Sink.
func (s *Sink) TurnsChanged() { s.emit(TurnsMsg{}) }

// Scroll implements session.Sink.
func (s *Sink) Scroll() { s.emit(ScrollMsg{}) }
