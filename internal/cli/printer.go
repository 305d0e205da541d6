// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jedsmith2004/folio/internal/model"
	"github.com/jedsmith2004/folio/internal/session"
)

// streamPrinter is a session.Sink that writes the newest assistant turn to
// w as it grows. When a turn is replaced rather than extended (the apology
// after a failed stream) the replacement is printed on a new line.
type streamPrinter struct {
	w io.Writer

	mu      sync.Mutex
	sess    *session.Session
	turnID  string
	printed string
}

func newStreamPrinter(w io.Writer) *streamPrinter {
	return &streamPrinter{w: w}
}

func (p *streamPrinter) attach(s *session.Session) {
	p.mu.Lock()
	p.sess = s
	p.mu.Unlock()
}

func (p *streamPrinter) StateChanged(session.State) {}

func (p *streamPrinter) Scroll() {}

func (p *streamPrinter) TurnsChanged() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return
	}

	turns := p.sess.View()
	if len(turns) == 0 {
		return
	}
	last := turns[len(turns)-1]
	if last.Role != model.RoleAssistant {
		return
	}
	if last.ID != p.turnID {
		p.turnID = last.ID
		p.printed = ""
	}

	switch {
	case last.Text == p.printed:
	case strings.HasPrefix(last.Text, p.printed):
		fmt.Fprint(p.w, last.Text[len(p.printed):])
	default:
		if p.printed != "" {
			fmt.Fprintln(p.w)
		}
		fmt.Fprint(p.w, last.Text)
	}
	p.printed = last.Text
}

// reset forgets the current turn so the next reply starts fresh.
func (p *streamPrinter) reset() {
	p.mu.Lock()
	p.turnID = ""
	p.printed = ""
	p.mu.Unlock()
}
