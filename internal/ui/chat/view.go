// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jedsmith2004/folio/internal/model"
	"github.com/jedsmith2004/folio/internal/session"
	"github.com/jedsmith2004/folio/internal/ui/styles"
	"github.com/jedsmith2004/folio/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	parts := []string{m.renderHeader(), m.viewport.View()}
	if line := m.renderActivity(); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, m.theme.Input.Width(max(m.width-2, 10)).Render(m.input.View()), m.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// chromeHeight is the number of rows used by everything except the
// transcript.
func (m Model) chromeHeight() int {
	// header (2) + activity (1) + input box (3) + status (1)
	return 7
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render(m.opts.Title)
	if m.opts.Tagline == "" {
		return m.theme.Header.Width(m.width).Render(title)
	}
	room := m.width - util.Width(m.opts.Title) - 5
	tagline := m.theme.Tagline.Render(util.Ellipsize(m.opts.Tagline, max(room, 0)))
	return m.theme.Header.Width(m.width).Render(title + "  " + tagline)
}

func (m Model) renderActivity() string {
	switch {
	case m.spinner.IsActive():
		return m.spinner.View()
	case m.lastErr != "":
		return styles.RenderError(util.Ellipsize(m.lastErr, max(m.width-2, 10)))
	case m.notice != "":
		return styles.RenderMuted(util.Ellipsize(m.notice, max(m.width-2, 10)))
	default:
		return ""
	}
}

func (m Model) renderStatus() string {
	left := m.keys.ShortHelp()
	if m.model != "" {
		left = "model " + m.model + " · " + left
	}
	return m.theme.StatusBar.Render(util.Ellipsize(left, max(m.width-2, 10)))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript() string {
	turns := m.session.View()
	if len(turns) == 0 {
		return m.renderWelcome()
	}

	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		blocks = append(blocks, m.renderTurn(t))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderWelcome() string {
	lines := []string{m.theme.AssistantLabel.Render("Assistant")}
	greeting := "Hi! Ask me anything"
	if m.opts.Title != "" {
		greeting += " about " + m.opts.Title
	}
	lines = append(lines, m.theme.AssistantText.Render(greeting+"."))
	return strings.Join(lines, "\n")
}

func (m Model) renderTurn(t session.TurnView) string {
	if !t.Streaming {
		if out, ok := m.rendered[t.ID]; ok {
			return out
		}
	}

	var label, body string
	switch t.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(t.Role.DisplayName())
		body = m.theme.UserText.Width(m.theme.ContentWidth()).Render(t.Text)
	default:
		label = m.theme.AssistantLabel.Render(t.Role.DisplayName())
		body = m.renderer.RenderText(t.Text)
		if t.Streaming {
			body += styles.TypingCursor
		}
	}

	label += " " + m.theme.Timestamp.Render(t.CreatedAt.Format("15:04"))
	out := label + "\n" + body
	if !t.Streaming {
		m.rendered[t.ID] = out
	}
	return out
}
