// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the chat client.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// CHROME
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	Tagline     lipgloss.Style
	StatusBar   lipgloss.Style
	Error       lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	AssistantText  lipgloss.Style
	Timestamp      lipgloss.Style
	Spinner        lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	Input       lipgloss.Style
	InputPrompt lipgloss.Style
	Placeholder lipgloss.Style

	// ==========================================================================
	// MARKUP
	// ==========================================================================

	Bold       lipgloss.Style
	Italic     lipgloss.Style
	InlineCode lipgloss.Style
	Link       lipgloss.Style
	Bullet     lipgloss.Style
	CodeBlock  lipgloss.Style
	CodeLang   lipgloss.Style
	Card       lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	return NewThemeForProfile(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewThemeForProfile creates a theme for an explicit color profile.
func NewThemeForProfile(profile termenv.Profile, dark bool) *Theme {
	t := &Theme{IsDark: dark, ColorProfile: profile, Width: 80, Height: 24}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Border).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Indigo)
	t.Tagline = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)
	t.Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Sky)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Indigo)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.AssistantText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().Foreground(Indigo)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Sky).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Sky).Bold(true)
	t.Placeholder = lipgloss.NewStyle().Foreground(TextMuted)

	t.Bold = lipgloss.NewStyle().Bold(true)
	t.Italic = lipgloss.NewStyle().Italic(true)
	t.InlineCode = lipgloss.NewStyle().Foreground(Teal).Background(SurfaceDim)
	t.Link = lipgloss.NewStyle().Foreground(LinkColor).Underline(true)
	t.Bullet = lipgloss.NewStyle().Foreground(Indigo)
	t.CodeBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	t.CodeLang = lipgloss.NewStyle().Foreground(TextMuted).Bold(true)
	t.Card = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Indigo).
		Padding(0, 1)
}

// SetSize updates the layout dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// ContentWidth is the usable text width inside the transcript.
func (t *Theme) ContentWidth() int {
	w := t.Width - 4
	if w < 20 {
		return 20
	}
	return w
}
