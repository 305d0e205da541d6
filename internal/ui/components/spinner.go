// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/jedsmith2004/folio/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner is the waiting indicator shown between sending a question and the
// first streamed delta.
type Spinner struct {
	spinner spinner.Model
	theme   *styles.Theme

	message   string
	startTime time.Time
	isActive  bool

	now func() time.Time
}

// NewSpinner creates a spinner. ASCII terminals get the line animation.
func NewSpinner(theme *styles.Theme) Spinner {
	cfg := styles.DotsSpinner
	if theme.ColorProfile == termenv.Ascii {
		cfg = styles.LineSpinner
	}
	return Spinner{
		spinner: spinner.New(spinner.WithSpinner(cfg.Spinner()), spinner.WithStyle(theme.Spinner)),
		theme:   theme,
		message: "Thinking",
		now:     time.Now,
	}
}

// SetMessage sets the text displayed next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// Start activates the spinner and records the start time.
func (s *Spinner) Start() tea.Cmd {
	s.isActive = true
	s.startTime = s.now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive returns whether the spinner is running.
func (s *Spinner) IsActive() bool {
	return s.isActive
}

// Elapsed returns the time since Start.
func (s *Spinner) Elapsed() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return s.now().Sub(s.startTime)
}

// Update advances the animation while active.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner, its message and the elapsed time.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}
	return s.spinner.View() + " " +
		s.theme.AssistantText.Render(s.message) +
		s.theme.Timestamp.Render(" ("+formatElapsed(s.Elapsed())+")")
}

func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
