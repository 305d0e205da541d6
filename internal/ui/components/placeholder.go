// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"math/rand/v2"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/jedsmith2004/folio/internal/config"
	"github.com/jedsmith2004/folio/internal/ui/styles"
)

// StaticHint is shown once the conversation has started.
const StaticHint = "Ask another question..."

// =============================================================================
// PHASES AND TIMING
// =============================================================================

// PlaceholderPhase is the current step of the typing loop.
type PlaceholderPhase int

const (
	PhaseTyping PlaceholderPhase = iota
	PhaseHolding
	PhaseUntyping
	PhaseIdle
)

// String returns the phase name.
func (p PlaceholderPhase) String() string {
	switch p {
	case PhaseTyping:
		return "typing"
	case PhaseHolding:
		return "holding"
	case PhaseUntyping:
		return "untyping"
	case PhaseIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// PlaceholderTiming holds the delays between animation steps.
type PlaceholderTiming struct {
	Type    time.Duration // per revealed character
	Untype  time.Duration // per removed character
	Hold    time.Duration // dwell on the full phrase
	Idle    time.Duration // pause before the next phrase
	Restart time.Duration // debounce before re-arming after the input clears
}

// TimingFromConfig converts client settings to durations.
func TimingFromConfig(c config.ClientConfig) PlaceholderTiming {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return PlaceholderTiming{
		Type:    ms(c.TypeDelayMS),
		Untype:  ms(c.UntypeDelayMS),
		Hold:    ms(c.HoldMS),
		Idle:    ms(c.IdleMS),
		Restart: ms(c.RestartMS),
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

var placeholderIDs atomic.Int64

// PlaceholderStepMsg advances the animation. It is ignored unless its
// generation still matches the animator's.
type PlaceholderStepMsg struct {
	id  int64
	gen uint64
}

// PlaceholderRestartMsg fires after the restart debounce.
type PlaceholderRestartMsg struct {
	id  int64
	seq uint64
}

// =============================================================================
// ANIMATOR
// =============================================================================

// Placeholder animates example questions in an empty input field.
//
// Every scheduled step carries the generation it was scheduled under. Any
// call that cancels the loop bumps the generation, so steps already in
// flight arrive stale and are dropped without touching Text.
type Placeholder struct {
	id      int64
	phrases []string
	timing  PlaceholderTiming
	idle    func() bool

	gen       uint64
	running   bool
	cancelled bool
	active    bool

	phase  PlaceholderPhase
	phrase []rune
	pos    int
	text   string
	width  int

	restartSeq uint64

	pick     func(n int) int
	schedule func(d time.Duration, msg tea.Msg) tea.Cmd
}

// NewPlaceholder creates an animator. idle reports, at the moment a
// restart fires, whether the field is empty and no conversation exists.
func NewPlaceholder(phrases []string, timing PlaceholderTiming, idle func() bool) *Placeholder {
	if idle == nil {
		idle = func() bool { return true }
	}
	return &Placeholder{
		id:       placeholderIDs.Add(1),
		phrases:  phrases,
		timing:   timing,
		idle:     idle,
		pick:     rand.IntN,
		schedule: tick,
	}
}

func tick(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// Generation returns the current generation.
func (p *Placeholder) Generation() uint64 { return p.gen }

// Running reports whether a loop is in progress.
func (p *Placeholder) Running() bool { return p.running }

// Cancelled reports whether the last loop was stopped rather than never
// started.
func (p *Placeholder) Cancelled() bool { return p.cancelled }

// Phase returns the current phase.
func (p *Placeholder) Phase() PlaceholderPhase { return p.phase }

// Text returns the partially typed phrase.
func (p *Placeholder) Text() string { return p.text }

// SetWidth limits how much of a phrase is shown.
func (p *Placeholder) SetWidth(width int) { p.width = width }

// View returns the placeholder to display.
func (p *Placeholder) View() string {
	if p.active {
		return StaticHint
	}
	if !p.running {
		return ""
	}
	s := p.text + styles.TypingCursor
	if p.width > 0 && runewidth.StringWidth(s) > p.width {
		s = runewidth.Truncate(s, p.width, "")
	}
	return s
}

// Start begins a loop if none is running and the animator is idle.
func (p *Placeholder) Start() tea.Cmd {
	if p.running || p.active || len(p.phrases) == 0 {
		return nil
	}
	p.gen++
	p.running = true
	p.cancelled = false
	p.nextPhrase()
	return p.step(p.timing.Type)
}

// Stop cancels the current loop and clears the text.
func (p *Placeholder) Stop() {
	p.gen++
	p.restartSeq++
	if p.running {
		p.cancelled = true
	}
	p.running = false
	p.text = ""
	p.pos = 0
}

// InputChanged reacts to edits of the input field. Typing cancels the loop;
// clearing the field schedules a debounced restart.
func (p *Placeholder) InputChanged(value string) tea.Cmd {
	if value != "" {
		if p.running {
			p.Stop()
		}
		return nil
	}
	if p.running || p.active {
		return nil
	}
	p.restartSeq++
	return p.schedule(p.timing.Restart, PlaceholderRestartMsg{id: p.id, seq: p.restartSeq})
}

// Activate marks the conversation as started. The loop stops for good and
// the static hint is shown instead.
func (p *Placeholder) Activate() {
	p.Stop()
	p.active = true
}

// Reset returns to the pre-conversation state without starting a loop.
func (p *Placeholder) Reset() {
	p.Stop()
	p.active = false
	p.cancelled = false
}

// Teardown stops the loop when the owning view goes away.
func (p *Placeholder) Teardown() {
	p.Stop()
}

// Update handles animator messages. Messages for other animators or older
// generations return nil and change nothing.
func (p *Placeholder) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PlaceholderRestartMsg:
		if msg.id != p.id || msg.seq != p.restartSeq {
			return nil
		}
		if !p.idle() {
			return nil
		}
		return p.Start()

	case PlaceholderStepMsg:
		if msg.id != p.id || msg.gen != p.gen || !p.running {
			return nil
		}
		return p.advance()
	}
	return nil
}

func (p *Placeholder) advance() tea.Cmd {
	switch p.phase {
	case PhaseTyping:
		if len(p.phrase) == 0 {
			p.phase = PhaseIdle
			return p.step(p.timing.Idle)
		}
		p.pos++
		p.text = string(p.phrase[:p.pos])
		if p.pos >= len(p.phrase) {
			p.phase = PhaseHolding
			return p.step(p.timing.Hold)
		}
		return p.step(p.timing.Type)

	case PhaseHolding:
		p.phase = PhaseUntyping
		return p.step(p.timing.Untype)

	case PhaseUntyping:
		p.pos--
		p.text = string(p.phrase[:p.pos])
		if p.pos <= 0 {
			p.phase = PhaseIdle
			return p.step(p.timing.Idle)
		}
		return p.step(p.timing.Untype)

	default:
		p.nextPhrase()
		return p.step(p.timing.Type)
	}
}

func (p *Placeholder) step(d time.Duration) tea.Cmd {
	return p.schedule(d, PlaceholderStepMsg{id: p.id, gen: p.gen})
}

// nextPhrase picks a phrase, avoiding an immediate repeat.
func (p *Placeholder) nextPhrase() {
	prev := string(p.phrase)
	next := p.phrases[p.pick(len(p.phrases))]
	if next == prev && len(p.phrases) > 1 {
		next = p.phrases[(p.pick(len(p.phrases)-1)+indexOf(p.phrases, prev)+1)%len(p.phrases)]
	}
	p.phrase = []rune(next)
	p.pos = 0
	p.text = ""
	p.phase = PhaseTyping
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}
