// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/jedsmith2004/folio/internal/cloud"
)

// DefaultBackoff is the single rate-limit wait per run.
const DefaultBackoff = time.Second

// Upstream opens one streaming completion for a candidate.
// *cloud.Client satisfies it.
type Upstream interface {
	Open(ctx context.Context, cand cloud.Candidate, msgs []openai.ChatCompletionMessage) (io.ReadCloser, error)
}

// Attempt describes one finished upstream call.
type Attempt struct {
	Model    string
	Shape    cloud.Shape
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Selection is the result of a successful run. The caller owns Body.
type Selection struct {
	Candidate cloud.Candidate
	Body      io.ReadCloser
	Tried     []string
}

// Orchestrator runs the fallback machine against an Upstream.
// It holds no per-run state and is safe for concurrent use.
type Orchestrator struct {
	upstream   Upstream
	candidates []cloud.Candidate
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	onAttempt  func(Attempt)
	log        zerolog.Logger
}

// NewOrchestrator creates an orchestrator over a fixed candidate list.
func NewOrchestrator(up Upstream, cands []cloud.Candidate) *Orchestrator {
	return &Orchestrator{
		upstream:   up,
		candidates: append([]cloud.Candidate(nil), cands...),
		backoff:    DefaultBackoff,
		sleep:      sleepContext,
		log:        zerolog.Nop(),
	}
}

// WithBackoff sets the rate-limit wait.
func (o *Orchestrator) WithBackoff(d time.Duration) *Orchestrator {
	o.backoff = d
	return o
}

// WithSleep replaces the wait function (tests use it to avoid real delays).
func (o *Orchestrator) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Orchestrator {
	o.sleep = fn
	return o
}

// WithAttemptHook registers a callback invoked after every upstream call.
func (o *Orchestrator) WithAttemptHook(fn func(Attempt)) *Orchestrator {
	o.onAttempt = fn
	return o
}

// WithLogger sets the logger.
func (o *Orchestrator) WithLogger(l zerolog.Logger) *Orchestrator {
	o.log = l
	return o
}

// Candidates returns the candidate list in priority order.
func (o *Orchestrator) Candidates() []cloud.Candidate {
	return append([]cloud.Candidate(nil), o.candidates...)
}

// Run tries candidates in order until one accepts the request.
// On exhaustion it returns an *ExhaustedError. If ctx ends first, ctx.Err()
// is returned and no further candidates are attempted.
func (o *Orchestrator) Run(ctx context.Context, msgs []openai.ChatCompletionMessage) (*Selection, error) {
	m := NewMachine(o.candidates)

	for !m.State().Terminal() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch m.State() {
		case StateBackoff:
			o.log.Debug().Dur("wait", o.backoff).Msg("RATE_LIMIT_BACKOFF")
			if err := o.sleep(ctx, o.backoff); err != nil {
				return nil, err
			}
			m.Resume()

		case StateTrying:
			cand, _ := m.Current()
			start := time.Now()
			body, err := o.upstream.Open(ctx, cand, msgs)
			outcome := Classify(err)
			if outcome == OutcomeSuccess && body == nil {
				outcome, err = OutcomeFailed, cloud.ErrNoBody
			}

			o.report(Attempt{
				Model:    cand.ID,
				Shape:    cand.Shape,
				Outcome:  outcome,
				Err:      err,
				Duration: time.Since(start),
			})

			if m.Observe(outcome, err) == StateSelected {
				o.log.Info().
					Str("model", cand.ID).
					Int("attempts", len(m.Tried())).
					Msg("CANDIDATE_SELECTED")
				return &Selection{Candidate: cand, Body: body, Tried: m.Tried()}, nil
			}
		}
	}

	ex := m.Err()
	o.log.Warn().
		Strs("tried", ex.Tried).
		Bool("rate_limited", ex.RateLimited).
		Err(ex.Last).
		Msg("CANDIDATES_EXHAUSTED")
	return nil, ex
}

func (o *Orchestrator) report(a Attempt) {
	if a.Outcome != OutcomeSuccess {
		o.log.Warn().
			Str("model", a.Model).
			Str("outcome", a.Outcome.String()).
			Err(a.Err).
			Msg("CANDIDATE_FAILED")
	}
	if o.onAttempt != nil {
		o.onAttempt(a)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
