// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jedsmith2004/folio/internal/export"
	"github.com/jedsmith2004/folio/internal/markup"
	"github.com/jedsmith2004/folio/internal/session"
	"github.com/jedsmith2004/folio/internal/ui/components"
	"github.com/jedsmith2004/folio/internal/ui/styles"
)

// maxInput bounds a single question.
const maxInput = 2000

// Options configures the chat screen.
type Options struct {
	Title   string
	Tagline string
	Card    string // markdown shown for the card marker
	Phrases []string
	Timing  components.PlaceholderTiming
	Logger  zerolog.Logger

	// ExportDir receives transcripts saved with ctrl+s.
	ExportDir string
}

// draft mirrors the input value for the placeholder's idle check, which
// runs outside Update.
type draft struct {
	value string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	theme *styles.Theme
	keys  KeyMap
	opts  Options
	log   zerolog.Logger

	session     *session.Session
	renderer    *markup.Renderer
	placeholder *components.Placeholder
	spinner     components.Spinner
	input       textinput.Model
	viewport    viewport.Model
	cancel      *cancelManager
	draft       *draft

	// Rendered finished turns keyed by id; cleared on resize.
	rendered map[string]string

	state   session.State
	model   string
	lastErr string
	notice  string

	width  int
	height int
	ready  bool
}

// New creates the chat screen over sess.
func New(theme *styles.Theme, sess *session.Session, opts Options) Model {
	in := textinput.New()
	in.Prompt = "> "
	in.PromptStyle = theme.InputPrompt
	in.PlaceholderStyle = theme.Placeholder
	in.CharLimit = maxInput
	in.Focus()

	d := &draft{}
	idle := func() bool { return d.value == "" && !sess.Active() }

	m := Model{
		theme:       theme,
		keys:        DefaultKeyMap(),
		opts:        opts,
		log:         opts.Logger,
		session:     sess,
		renderer:    markup.NewRenderer(theme, markup.WithCard(opts.Card)),
		placeholder: components.NewPlaceholder(opts.Phrases, opts.Timing, idle),
		spinner:     components.NewSpinner(theme),
		input:       in,
		viewport:    viewport.New(theme.Width, theme.Height),
		cancel:      newCancelManager(),
		draft:       d,
		rendered:    make(map[string]string),
		width:       theme.Width,
		height:      theme.Height,
	}
	if sess.Active() {
		m.placeholder.Activate()
	}
	m.input.Placeholder = m.placeholder.View()
	return m
}

// Init starts the cursor blink and, for a fresh conversation, the
// placeholder loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.placeholder.Start())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		return m.handleState(msg.State)

	case TurnsMsg:
		m.refresh()
		return m, nil

	case ScrollMsg:
		m.viewport.GotoBottom()
		return m, nil

	case ReplyMsg:
		return m.handleReply(msg)

	case components.PlaceholderStepMsg, components.PlaceholderRestartMsg:
		cmd := m.placeholder.Update(msg)
		m.input.Placeholder = m.placeholder.View()
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel.cancel()
		m.placeholder.Teardown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.state.Busy() {
			m.cancel.cancel()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Clear):
		return m.clear()

	case key.Matches(msg, m.keys.Export):
		return m.save()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, tea.Batch(cmd, m.inputChanged())
}

// inputChanged feeds the current value to the placeholder.
func (m *Model) inputChanged() tea.Cmd {
	value := m.input.Value()
	if value == m.draft.value {
		return nil
	}
	m.draft.value = value
	cmd := m.placeholder.InputChanged(value)
	m.input.Placeholder = m.placeholder.View()
	return cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if text == "" || m.state.Busy() {
		return m, nil
	}

	m.input.Reset()
	m.draft.value = ""
	m.lastErr = ""
	m.notice = ""
	m.placeholder.Activate()
	m.input.Placeholder = m.placeholder.View()

	// Show the question and spinner before the first delta arrives.
	m.state = session.State{Loading: true, Streaming: true}
	spin := m.spinner.Start()

	ctx := m.cancel.begin(context.Background())
	sess := m.session
	run := func() tea.Msg {
		reply, err := sess.Submit(ctx, text)
		return ReplyMsg{Reply: reply, Err: err}
	}
	return m, tea.Batch(spin, run)
}

func (m Model) clear() (tea.Model, tea.Cmd) {
	if err := m.session.Reset(); err != nil {
		m.lastErr = err.Error()
		return m, nil
	}
	m.lastErr = ""
	m.notice = ""
	m.model = ""
	m.rendered = make(map[string]string)
	m.placeholder.Reset()
	m.refresh()
	cmd := m.placeholder.Start()
	m.input.Placeholder = m.placeholder.View()
	return m, cmd
}

// save writes the finished turns to a Markdown file.
func (m Model) save() (tea.Model, tea.Cmd) {
	t := export.FromSession(m.opts.Title, m.model, m.session.View())
	if len(t.Entries) == 0 {
		m.notice = "Nothing to save yet"
		return m, nil
	}

	opts := export.DefaultOptions()
	opts.Card = m.opts.Card
	if m.opts.ExportDir != "" {
		opts.OutputDir = m.opts.ExportDir
	}
	path, err := export.ExportToFile(t, export.NewMarkdownExporter(opts), opts)
	if err != nil {
		m.lastErr = err.Error()
		m.log.Error().Err(err).Msg("EXPORT_FAILED")
		return m, nil
	}
	m.lastErr = ""
	m.notice = "Saved " + path
	m.log.Info().Str("path", path).Int("turns", len(t.Entries)).Msg("TRANSCRIPT_SAVED")
	return m, nil
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

func (m Model) handleState(st session.State) (tea.Model, tea.Cmd) {
	m.state = st
	var cmd tea.Cmd
	switch {
	case st.Loading && !m.spinner.IsActive():
		cmd = m.spinner.Start()
	case !st.Loading:
		m.spinner.Stop()
	}
	m.refresh()
	return m, cmd
}

func (m Model) handleReply(msg ReplyMsg) (tea.Model, tea.Cmd) {
	m.cancel.cancel()
	m.state = session.State{}
	m.spinner.Stop()

	switch {
	case msg.Err != nil:
		m.lastErr = msg.Err.Error()
	case msg.Reply.Err != nil && !errors.Is(msg.Reply.Err, context.Canceled):
		m.lastErr = msg.Reply.Err.Error()
		m.log.Warn().Err(msg.Reply.Err).Msg("ASK_FAILED")
	}
	if msg.Reply.Model != "" {
		m.model = msg.Reply.Model
	}

	m.refresh()
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.renderer.SetWidth(m.theme.ContentWidth())
	m.rendered = make(map[string]string)

	m.input.Width = max(width-6, 10)
	m.placeholder.SetWidth(m.input.Width)

	m.viewport.Width = width
	m.viewport.Height = max(height-m.chromeHeight(), 3)
	m.ready = true
	m.refresh()
}

// refresh re-renders the transcript into the viewport.
func (m *Model) refresh() {
	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}

// Session returns the underlying session.
func (m Model) Session() *session.Session { return m.session }

// Placeholder returns the input placeholder animator.
func (m Model) Placeholder() *components.Placeholder { return m.placeholder }
