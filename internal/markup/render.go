// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/jedsmith2004/folio/internal/ui/styles"
)

// Renderer draws blocks for the terminal.
type Renderer struct {
	theme   *styles.Theme
	width   int
	profile termenv.Profile
	card    string

	// Rendered card, cached per width.
	cardOut   string
	cardWidth int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWidth sets the wrap width.
func WithWidth(width int) Option {
	return func(r *Renderer) { r.width = width }
}

// WithProfile overrides the theme's color profile.
func WithProfile(p termenv.Profile) Option {
	return func(r *Renderer) { r.profile = p }
}

// WithCard sets the markdown shown in place of the card marker.
func WithCard(markdown string) Option {
	return func(r *Renderer) { r.card = markdown }
}

// NewRenderer creates a renderer using theme.
func NewRenderer(theme *styles.Theme, opts ...Option) *Renderer {
	r := &Renderer{
		theme:   theme,
		width:   theme.ContentWidth(),
		profile: theme.ColorProfile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetWidth changes the wrap width.
func (r *Renderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.width = width
}

// SetCard replaces the card markdown.
func (r *Renderer) SetCard(markdown string) {
	if markdown != r.card {
		r.card = markdown
		r.cardOut = ""
	}
}

// RenderText parses and renders text.
func (r *Renderer) RenderText(text string) string {
	return r.Render(Parse(text))
}

// Render draws blocks, one after another.
func (r *Renderer) Render(blocks []Block) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case KindParagraph:
			out = append(out, r.wrap(r.inlines(b.Inlines), r.width))
		case KindList:
			out = append(out, r.list(b))
		case KindCode:
			out = append(out, r.codeBlock(b))
		case KindSpacer:
			out = append(out, "")
		case KindCard:
			out = append(out, r.renderCard())
		}
	}
	return strings.Join(out, "\n")
}

// =============================================================================
// INLINE
// =============================================================================

func (r *Renderer) inlines(runs []Inline) string {
	var b strings.Builder
	for _, in := range runs {
		switch in.Kind {
		case InlineCode:
			b.WriteString(r.theme.InlineCode.Render(in.Text))
		case InlineBold:
			b.WriteString(r.theme.Bold.Render(in.Text))
		case InlineItalic:
			b.WriteString(r.theme.Italic.Render(in.Text))
		case InlineLink:
			b.WriteString(r.theme.Link.Render(in.Text))
			if target := strings.TrimPrefix(in.Href, "mailto:"); target != in.Text {
				b.WriteString(styles.RenderMuted(" (" + in.Href + ")"))
			}
		case InlineURL:
			b.WriteString(r.theme.Link.Render(in.Text))
		default:
			b.WriteString(in.Text)
		}
	}
	return b.String()
}

func (r *Renderer) wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// =============================================================================
// LISTS
// =============================================================================

func (r *Renderer) list(b Block) string {
	prefixes := make([]string, len(b.Items))
	pad := 0
	for i := range b.Items {
		if b.Ordered {
			prefixes[i] = fmt.Sprintf("%d.", b.Start+i)
		} else {
			prefixes[i] = "•"
		}
		pad = max(pad, runewidth.StringWidth(prefixes[i]))
	}

	lines := make([]string, len(b.Items))
	for i, item := range b.Items {
		prefix := r.theme.Bullet.Render(runewidth.FillLeft(prefixes[i], pad) + " ")
		body := r.wrap(r.inlines(item), max(r.width-pad-1, 10))
		lines[i] = lipgloss.JoinHorizontal(lipgloss.Top, prefix, body)
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// CODE
// =============================================================================

func (r *Renderer) codeBlock(b Block) string {
	body := r.highlight(b.Code, b.Lang)
	if body == "" {
		body = " "
	}
	box := r.theme.CodeBlock.MaxWidth(r.width).Render(body)

	label := b.Lang
	if !b.Closed {
		label = strings.TrimSpace(label + " ...")
	}
	if label == "" {
		return box
	}
	return r.theme.CodeLang.Render(label) + "\n" + box
}

// highlight colors code for the renderer's profile. ASCII terminals get the
// code back unchanged.
func (r *Renderer) highlight(code, lang string) string {
	var name string
	switch r.profile {
	case termenv.TrueColor:
		name = "terminal16m"
	case termenv.ANSI256:
		name = "terminal256"
	case termenv.ANSI:
		name = "terminal"
	default:
		return code
	}

	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get("monokai")
	if style == nil {
		style = chromastyles.Fallback
	}
	formatter := formatters.Get(name)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// =============================================================================
// CARD
// =============================================================================

func (r *Renderer) renderCard() string {
	if r.cardOut != "" && r.cardWidth == r.width {
		return r.cardOut
	}

	if strings.TrimSpace(r.card) == "" {
		return styles.RenderMuted("[profile card]")
	}

	body := strings.TrimSpace(r.card)
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.glamourStyle()),
		glamour.WithWordWrap(max(r.width-6, 20)),
	)
	if err == nil {
		if out, err := tr.Render(r.card); err == nil {
			body = strings.Trim(out, "\n")
		}
	}

	r.cardOut = r.theme.Card.Render(body)
	r.cardWidth = r.width
	return r.cardOut
}

func (r *Renderer) glamourStyle() string {
	switch {
	case r.profile == termenv.Ascii:
		return "notty"
	case r.theme.IsDark:
		return "dark"
	default:
		return "light"
	}
}
