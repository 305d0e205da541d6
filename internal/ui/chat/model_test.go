// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jedsmith2004/folio/internal/session"
	"github.com/jedsmith2004/folio/internal/ui/components"
	"github.com/jedsmith2004/folio/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

type fakeAsker struct {
	open func(ctx context.Context) (*session.Response, error)
}

func (f *fakeAsker) Ask(ctx context.Context, _ session.Request) (*session.Response, error) {
	return f.open(ctx)
}

func replyWith(frames ...string) *fakeAsker {
	return &fakeAsker{open: func(context.Context) (*session.Response, error) {
		body := strings.Join(frames, "") + "data: [DONE]\n\n"
		return &session.Response{Body: io.NopCloser(strings.NewReader(body)), Model: "llama-test"}, nil
	}}
}

func frame(content string) string {
	return `data: {"content":` + quote(content) + "}\n\n"
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// blockingBody yields first, then blocks until ctx ends.
type blockingBody struct {
	ctx   context.Context
	first string
	sent  bool
}

func (b *blockingBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, b.first), nil
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *blockingBody) Close() error { return nil }

var testTiming = components.PlaceholderTiming{
	Type:    time.Millisecond,
	Untype:  time.Millisecond,
	Hold:    time.Millisecond,
	Idle:    time.Millisecond,
	Restart: time.Millisecond,
}

func newTestModel(t *testing.T, asker session.Asker, opts Options) Model {
	t.Helper()
	sess := session.New(asker, nil).WithScrollDelay(0)
	if opts.Phrases == nil {
		opts.Phrases = []string{"What have you built?"}
	}
	if opts.Timing == (components.PlaceholderTiming{}) {
		opts.Timing = testTiming
	}
	if opts.Title == "" {
		opts.Title = "Jack Smith"
	}
	m := New(styles.NewThemeForProfile(termenv.Ascii, true), sess, opts)
	return update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// collect runs cmd and any batched commands, returning every message.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T among %d messages", zero, len(msgs))
	return zero
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func send(t *testing.T, m Model, text string) Model {
	t.Helper()
	m = typeText(t, m, text)
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	reply := find[ReplyMsg](t, collect(cmd))
	return update(t, m, reply)
}

// =============================================================================
// TESTS
// =============================================================================

func TestModel_SubmitRendersReply(t *testing.T) {
	m := newTestModel(t, replyWith(frame("Hello "), frame("**there**\n\n- one\n- two")), Options{})

	assert.Contains(t, m.View(), "Ask me anything about Jack Smith")

	m = send(t, m, "hi")

	view := m.View()
	assert.Contains(t, view, "You")
	assert.Contains(t, view, "hi")
	assert.Contains(t, view, "Hello there")
	assert.Contains(t, view, "• one")
	assert.Contains(t, view, "model llama-test")
	assert.NotContains(t, view, "Ask me anything")

	assert.Equal(t, components.StaticHint, m.input.Placeholder)
	assert.Equal(t, "", m.input.Value())
	assert.False(t, m.state.Busy())
}

func TestModel_EmptySubmitIgnored(t *testing.T) {
	m := newTestModel(t, replyWith(frame("x")), Options{})
	_, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, m.Session().View())
}

func TestModel_CardMarker(t *testing.T) {
	m := newTestModel(t, replyWith(frame("Here it is:\n[[CV]]\nAnything else?")), Options{Card: "Card body text"})
	m = send(t, m, "resume please")

	view := m.View()
	assert.Contains(t, view, "Here it is:")
	assert.Contains(t, view, "Card body text")
	assert.Contains(t, view, "Anything else?")
	assert.NotContains(t, view, "[[CV]]")
}

func TestModel_GatewayErrorShowsApology(t *testing.T) {
	asker := &fakeAsker{open: func(context.Context) (*session.Response, error) {
		return nil, &session.GatewayError{Status: 502, Message: "All models failed"}
	}}
	m := newTestModel(t, asker, Options{})
	m = send(t, m, "hello")

	view := m.View()
	assert.Contains(t, view, session.Apology)
	assert.Contains(t, view, "All models failed")
}

func TestModel_StopKeepsPartialReply(t *testing.T) {
	asker := &fakeAsker{open: func(ctx context.Context) (*session.Response, error) {
		return &session.Response{Body: &blockingBody{ctx: ctx, first: frame("partial")}, Model: "m"}, nil
	}}
	m := newTestModel(t, asker, Options{})
	m = typeText(t, m, "long question")
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.state.Busy())

	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(cmd) }()

	require.Eventually(t, func() bool {
		turns := m.Session().View()
		return len(turns) == 2 && turns[1].Text == "partial"
	}, 2*time.Second, 5*time.Millisecond)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	var msgs []tea.Msg
	select {
	case msgs = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not return after stop")
	}
	m = update(t, m, find[ReplyMsg](t, msgs))

	assert.Equal(t, "", m.lastErr, "stopping is not an error")
	assert.Contains(t, m.View(), "partial")
	assert.NotContains(t, m.View(), session.Apology)
}

func TestModel_ClearRestartsPlaceholder(t *testing.T) {
	m := newTestModel(t, replyWith(frame("ok")), Options{})
	m = send(t, m, "hi")
	require.Len(t, m.Session().View(), 2)

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.NotNil(t, cmd)
	assert.Empty(t, m.Session().View())
	assert.True(t, m.Placeholder().Running())
	assert.Contains(t, m.View(), "Ask me anything")
}

func TestModel_PlaceholderTypesIntoInput(t *testing.T) {
	m := newTestModel(t, replyWith(frame("x")), Options{Phrases: []string{"Why Go?"}})

	step := find[components.PlaceholderStepMsg](t, collect(m.Init()))
	m = update(t, m, step)
	assert.Equal(t, "W|", m.input.Placeholder)

	// Typing cancels the loop and clears the hint.
	m = typeText(t, m, "a")
	assert.False(t, m.Placeholder().Running())
	assert.Equal(t, "", m.input.Placeholder)

	// The step that was in flight is dropped.
	m = update(t, m, step)
	assert.Equal(t, "", m.input.Placeholder)
}

func TestModel_QuitTearsDown(t *testing.T) {
	m := newTestModel(t, replyWith(frame("x")), Options{})
	m.Init()
	require.True(t, m.Placeholder().Running())

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, m.Placeholder().Running())
}

func TestModel_SaveTranscript(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(t, replyWith(frame("Here:\n[[CV]]")), Options{Card: "Card body", ExportDir: dir})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, "Nothing to save yet", m.notice)

	m = send(t, m, "resume?")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Empty(t, m.lastErr)
	require.True(t, strings.HasPrefix(m.notice, "Saved "))

	files, err := filepath.Glob(filepath.Join(dir, "chat_Jack_Smith_*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "resume?")
	assert.Contains(t, string(data), "Card body")
}

func TestSink(t *testing.T) {
	s := NewSink()
	s.TurnsChanged() // detached: dropped

	var got []tea.Msg
	s.AttachFunc(func(msg tea.Msg) { got = append(got, msg) })
	s.StateChanged(session.State{Loading: true})
	s.TurnsChanged()
	s.Scroll()

	assert.Equal(t, []tea.Msg{
		StateMsg{State: session.State{Loading: true}},
		TurnsMsg{},
		ScrollMsg{},
	}, got)
}

func TestKeyMap_ShortHelp(t *testing.T) {
	help := DefaultKeyMap().ShortHelp()
	assert.Contains(t, help, "enter send")
	assert.Contains(t, help, "ctrl+s save")
	assert.Contains(t, help, "ctrl+c quit")
}
