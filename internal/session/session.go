// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jedsmith2004/folio/internal/history"
	"github.com/jedsmith2004/folio/internal/model"
	"github.com/jedsmith2004/folio/internal/stream"
)

// Apology replaces a reply that could not be delivered.
const Apology = "Sorry, I encountered an error. Please try again."

// DefaultScrollDelay is the scroll debounce.
const DefaultScrollDelay = 50 * time.Millisecond

var (
	// ErrEmptyMessage is returned when Submit gets blank text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned when a reply is already streaming.
	ErrBusy = errors.New("a reply is already in progress")
)

// =============================================================================
// STATE AND SINK
// =============================================================================

// State carries the UI flags for one exchange.
type State struct {
	// Loading is set until the gateway accepts the request.
	Loading bool
	// Streaming is set until the reply is final.
	Streaming bool
}

// Busy reports whether either flag is set.
func (s State) Busy() bool {
	return s.Loading || s.Streaming
}

// Sink receives session notifications. Calls come from the goroutine
// running Submit, or from the scroll timer for Scroll.
type Sink interface {
	// StateChanged reports new flags.
	StateChanged(State)
	// TurnsChanged reports that the transcript grew or changed.
	TurnsChanged()
	// Scroll asks the view to show the newest text.
	Scroll()
}

// NopSink ignores every notification.
type NopSink struct{}

func (NopSink) StateChanged(State) {}
func (NopSink) TurnsChanged()      {}
func (NopSink) Scroll()            {}

// TurnView is a point-in-time copy of a turn, safe to read anywhere.
type TurnView struct {
	ID        string
	Role      model.Role
	Text      string
	Streaming bool
	CreatedAt time.Time
}

// Reply is the outcome of one Submit.
type Reply struct {
	Text  string
	Model string
	// Err is the failure that produced Apology, if any.
	Err error
}

// =============================================================================
// SESSION
// =============================================================================

// Session owns a transcript and consumes gateway streams into it.
// It is safe for concurrent use; at most one Submit runs at a time.
type Session struct {
	id          string
	client      Asker
	sink        Sink
	limits      history.Limits
	scrollDelay time.Duration
	log         zerolog.Logger

	mu         sync.Mutex
	transcript model.Transcript
	state      State
	activated  bool
}

// New creates a session over client. A nil sink is replaced by NopSink.
func New(client Asker, sink Sink) *Session {
	if sink == nil {
		sink = NopSink{}
	}
	return &Session{
		id:          uuid.NewString(),
		client:      client,
		sink:        sink,
		limits:      history.DefaultLimits(),
		scrollDelay: DefaultScrollDelay,
		log:         zerolog.Nop(),
	}
}

// WithLimits sets the history window sent with each question.
func (s *Session) WithLimits(l history.Limits) *Session {
	s.limits = l
	return s
}

// WithScrollDelay sets the scroll debounce.
func (s *Session) WithScrollDelay(d time.Duration) *Session {
	s.scrollDelay = d
	return s
}

// WithLogger sets the logger.
func (s *Session) WithLogger(l zerolog.Logger) *Session {
	s.log = l
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current flags.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Activate marks the conversation as started even before a message.
func (s *Session) Activate() {
	s.mu.Lock()
	s.activated = true
	s.mu.Unlock()
}

// Active reports whether the conversation has started.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activated || s.transcript.Len() > 0
}

// View returns a copy of every turn, oldest first.
func (s *Session) View() []TurnView {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.transcript.Turns()
	out := make([]TurnView, len(turns))
	for i, t := range turns {
		out[i] = TurnView{
			ID:        t.ID,
			Role:      t.Role,
			Text:      t.Text(),
			Streaming: t.Streaming,
			CreatedAt: t.CreatedAt,
		}
	}
	return out
}

// Reset clears the transcript. It fails with ErrBusy while streaming.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy() {
		return ErrBusy
	}
	s.transcript.Clear()
	s.activated = false
	return nil
}

// Submit sends text with the current history and consumes the reply.
// It returns an error only when the submit is rejected; delivery failures
// are reported in Reply.Err after the transcript shows Apology.
func (s *Session) Submit(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		return Reply{}, ErrBusy
	}
	win := history.FromEntries(s.historyLocked(), text, s.limits)
	s.transcript.AddUser(text)
	s.activated = true
	s.state = State{Loading: true, Streaming: true}
	s.mu.Unlock()

	s.sink.StateChanged(State{Loading: true, Streaming: true})
	s.sink.TurnsChanged()

	scroll := NewDebouncer(s.scrollDelay, s.sink.Scroll)
	var once sync.Once
	finish := func() {
		once.Do(func() {
			scroll.Flush()
			s.mu.Lock()
			s.state = State{}
			s.mu.Unlock()
			s.sink.StateChanged(State{})
		})
	}
	defer finish()

	reply := s.consume(ctx, Request{Message: win.Message.Content, History: win.History}, scroll)
	finish()
	return reply, nil
}

// consume runs one exchange and leaves the transcript final.
func (s *Session) consume(ctx context.Context, req Request, scroll *Debouncer) Reply {
	resp, err := s.client.Ask(ctx, req)
	if err != nil {
		s.log.Warn().Err(err).Str("session", s.id).Msg("ASK_FAILED")
		s.mu.Lock()
		turn := s.transcript.BeginAssistant()
		turn.Replace(Apology)
		s.mu.Unlock()
		s.sink.TurnsChanged()
		scroll.Trigger()
		return Reply{Text: Apology, Err: err}
	}
	defer resp.Body.Close()

	s.mu.Lock()
	turn := s.transcript.BeginAssistant()
	s.state.Loading = false
	st := s.state
	s.mu.Unlock()
	s.sink.StateChanged(st)
	s.sink.TurnsChanged()

	dec := stream.NewDecoder(stream.RelayDelta)
	err = stream.Each(ctx, resp.Body, dec, func(f stream.Frame) error {
		if f.Kind != stream.KindDelta {
			return nil
		}
		s.mu.Lock()
		turn.Append(f.Payload)
		s.mu.Unlock()
		s.sink.TurnsChanged()
		scroll.Trigger()
		return nil
	})

	s.mu.Lock()
	switch {
	case err == nil:
		turn.Finalize()
	case ctx.Err() != nil && turn.Text() != "":
		// Cancelled by the user: keep what arrived.
		turn.Finalize()
	default:
		turn.Replace(Apology)
	}
	text := turn.Content
	s.mu.Unlock()

	s.sink.TurnsChanged()
	scroll.Trigger()

	if err != nil {
		s.log.Warn().Err(err).Str("session", s.id).Str("request_id", resp.RequestID).Msg("STREAM_FAILED")
	}
	return Reply{Text: text, Model: resp.Model, Err: err}
}

// historyLocked returns completed turns, leaving out apologies.
func (s *Session) historyLocked() []model.Entry {
	entries := s.transcript.Entries()
	out := entries[:0]
	for _, e := range entries {
		if e.Role == model.RoleAssistant && e.Content == Apology {
			continue
		}
		out = append(out, e)
	}
	return out
}
