// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jedsmith2004/folio/internal/cloud"
)

// ============================================================================
// STATES AND OUTCOMES
// ============================================================================

// State is the fallback machine's current state.
type State int

const (
	// StateTrying means the current candidate is about to be (or being) attempted.
	StateTrying State = iota
	// StateBackoff means the run is paused once after a rate limit.
	StateBackoff
	// StateSelected is terminal success.
	StateSelected
	// StateAllFailed is terminal failure.
	StateAllFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateTrying:
		return "Trying"
	case StateBackoff:
		return "Backoff"
	case StateSelected:
		return "Selected"
	case StateAllFailed:
		return "AllFailed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateSelected || s == StateAllFailed
}

// Outcome classifies one upstream attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRateLimited
	OutcomeFailed
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// Classify maps an attempt error to its outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case cloud.IsRateLimited(err):
		return OutcomeRateLimited
	default:
		return OutcomeFailed
	}
}

// ============================================================================
// MACHINE
// ============================================================================

// Machine is the fallback state machine over an ordered candidate list.
// It performs no I/O; callers report outcomes and act on the resulting state.
// A Machine is used by a single run and is not safe for concurrent use.
type Machine struct {
	candidates []cloud.Candidate
	index      int
	state      State

	backedOff bool
	tried     []string

	last            error
	lastRateLimited bool
}

// NewMachine starts a run in Trying(0). An empty list is immediately AllFailed.
func NewMachine(cands []cloud.Candidate) *Machine {
	m := &Machine{candidates: cands}
	if len(cands) == 0 {
		m.state = StateAllFailed
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Index returns the current candidate index.
func (m *Machine) Index() int { return m.index }

// Current returns the candidate for Trying, Backoff or Selected.
func (m *Machine) Current() (cloud.Candidate, bool) {
	if m.index >= len(m.candidates) {
		return cloud.Candidate{}, false
	}
	return m.candidates[m.index], true
}

// Tried returns the identifiers attempted so far, in order.
func (m *Machine) Tried() []string {
	return append([]string(nil), m.tried...)
}

// Observe records the outcome of attempting the current candidate and
// returns the new state. It is a no-op outside StateTrying.
func (m *Machine) Observe(outcome Outcome, err error) State {
	if m.state != StateTrying {
		return m.state
	}
	m.tried = append(m.tried, m.candidates[m.index].ID)

	switch outcome {
	case OutcomeSuccess:
		m.state = StateSelected
	case OutcomeRateLimited:
		m.last, m.lastRateLimited = err, true
		// One wait per run, and only when another candidate remains.
		if !m.backedOff && m.index+1 < len(m.candidates) {
			m.backedOff = true
			m.state = StateBackoff
		} else {
			m.advance()
		}
	default:
		m.last, m.lastRateLimited = err, false
		m.advance()
	}
	return m.state
}

// Resume leaves StateBackoff for the next candidate.
func (m *Machine) Resume() State {
	if m.state == StateBackoff {
		m.advance()
	}
	return m.state
}

func (m *Machine) advance() {
	m.index++
	if m.index >= len(m.candidates) {
		m.state = StateAllFailed
		return
	}
	m.state = StateTrying
}

// Err returns the aggregate error in StateAllFailed, nil otherwise.
func (m *Machine) Err() *ExhaustedError {
	if m.state != StateAllFailed {
		return nil
	}
	return &ExhaustedError{
		Tried:       m.Tried(),
		Last:        m.last,
		RateLimited: m.lastRateLimited,
	}
}

// ============================================================================
// EXHAUSTED ERROR
// ============================================================================

// ExhaustedError reports that every candidate failed.
type ExhaustedError struct {
	Tried       []string
	Last        error
	RateLimited bool
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	if len(e.Tried) == 0 {
		return "no upstream candidates configured"
	}
	msg := fmt.Sprintf("all %d candidates failed (%s)", len(e.Tried), strings.Join(e.Tried, ", "))
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

// Unwrap returns the last failure.
func (e *ExhaustedError) Unwrap() error { return e.Last }

// Status returns 429 when the last failure was a rate limit, otherwise 502.
func (e *ExhaustedError) Status() int {
	if e.RateLimited {
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

// Detail returns the last failure message, or "".
func (e *ExhaustedError) Detail() string {
	if e.Last == nil {
		return ""
	}
	return e.Last.Error()
}
