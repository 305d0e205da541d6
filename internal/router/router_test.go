// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jedsmith2004/folio/internal/cloud"
)

// ============================================================================
// TEST DOUBLES
// ============================================================================

// scriptedUpstream answers each model with a fixed status (0 = network error).
type scriptedUpstream struct {
	mu     sync.Mutex
	status map[string]int
	calls  []string
}

func (s *scriptedUpstream) Open(_ context.Context, c cloud.Candidate, _ []openai.ChatCompletionMessage) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c.ID)

	switch code := s.status[c.ID]; code {
	case http.StatusOK:
		return io.NopCloser(strings.NewReader("data: [DONE]\n\n")), nil
	case 0:
		return nil, errors.New("dial tcp: connection refused")
	default:
		return nil, &cloud.StatusError{Model: c.ID, Status: code, Message: http.StatusText(code)}
	}
}

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newTestOrchestrator(up Upstream, ids ...string) (*Orchestrator, *sleepRecorder) {
	rec := &sleepRecorder{}
	o := NewOrchestrator(up, Candidates("", ids)).
		WithBackoff(750 * time.Millisecond).
		WithSleep(rec.sleep)
	return o, rec
}

// ============================================================================
// CANDIDATE LIST TESTS
// ============================================================================

func TestCandidates_OverrideFirstAndDeduplicated(t *testing.T) {
	got := IDs(Candidates(" llama-3.1-8b-instant ", []string{
		"openai/gpt-oss-120b", "llama-3.3-70b-versatile", "llama-3.1-8b-instant", "", "openai/gpt-oss-120b",
	}))
	assert.Equal(t, []string{"llama-3.1-8b-instant", "openai/gpt-oss-120b", "llama-3.3-70b-versatile"}, got)
}

func TestCandidates_NoOverride(t *testing.T) {
	cands := Candidates("", []string{"openai/gpt-oss-120b", "llama-3.1-8b-instant"})
	require.Len(t, cands, 2)
	assert.Equal(t, cloud.ShapeExtended, cands[0].Shape)
	assert.Equal(t, cloud.ShapeStandard, cands[1].Shape)
}

// ============================================================================
// MACHINE TESTS
// ============================================================================

func TestMachine_Transitions(t *testing.T) {
	rl := &cloud.StatusError{Status: http.StatusTooManyRequests}
	hard := errors.New("boom")

	tests := []struct {
		name      string
		n         int
		outcomes  []Outcome
		wantState State
		wantIndex int
	}{
		{"success first", 3, []Outcome{OutcomeSuccess}, StateSelected, 0},
		{"hard failure advances", 3, []Outcome{OutcomeFailed}, StateTrying, 1},
		{"first rate limit backs off", 3, []Outcome{OutcomeRateLimited}, StateBackoff, 0},
		{"second rate limit advances", 3, []Outcome{OutcomeFailed, OutcomeRateLimited, OutcomeRateLimited}, StateAllFailed, 3},
		{"rate limit on last skips wait", 1, []Outcome{OutcomeRateLimited}, StateAllFailed, 1},
		{"all hard failures", 2, []Outcome{OutcomeFailed, OutcomeFailed}, StateAllFailed, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(Candidates("", []string{"a", "b", "c"})[:tt.n])
			for i, o := range tt.outcomes {
				var err error
				switch o {
				case OutcomeRateLimited:
					err = rl
				case OutcomeFailed:
					err = hard
				}
				m.Observe(o, err)
				if m.State() == StateBackoff && i < len(tt.outcomes)-1 {
					m.Resume()
				}
			}
			assert.Equal(t, tt.wantState, m.State())
			assert.Equal(t, tt.wantIndex, m.Index())
		})
	}
}

func TestMachine_ObserveOutsideTryingIsNoop(t *testing.T) {
	m := NewMachine(Candidates("", []string{"a", "b"}))
	m.Observe(OutcomeRateLimited, &cloud.StatusError{Status: 429})
	require.Equal(t, StateBackoff, m.State())

	assert.Equal(t, StateBackoff, m.Observe(OutcomeSuccess, nil))
	assert.Equal(t, []string{"a"}, m.Tried())

	assert.Equal(t, StateTrying, m.Resume())
	assert.Equal(t, StateTrying, m.Resume(), "Resume outside Backoff must not advance")
	assert.Equal(t, 1, m.Index())
}

func TestMachine_EmptyList(t *testing.T) {
	m := NewMachine(nil)
	assert.Equal(t, StateAllFailed, m.State())
	ex := m.Err()
	require.NotNil(t, ex)
	assert.Equal(t, http.StatusBadGateway, ex.Status())
	assert.Equal(t, "no upstream candidates configured", ex.Error())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Classify(nil))
	assert.Equal(t, OutcomeRateLimited, Classify(&cloud.StatusError{Status: 429}))
	assert.Equal(t, OutcomeRateLimited, Classify(cloud.ErrRateLimited))
	assert.Equal(t, OutcomeFailed, Classify(&cloud.StatusError{Status: 500}))
	assert.Equal(t, OutcomeFailed, Classify(errors.New("eof")))
}

// ============================================================================
// ORCHESTRATOR TESTS
// ============================================================================

func TestRun_RateLimitedUntilLast(t *testing.T) {
	up := &scriptedUpstream{status: map[string]int{"m1": 429, "m2": 429, "m3": 429, "m4": 200}}
	o, rec := newTestOrchestrator(up, "m1", "m2", "m3", "m4")

	sel, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	defer sel.Body.Close()

	assert.Equal(t, "m4", sel.Candidate.ID)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, up.calls, "exactly one call per candidate")
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, sel.Tried)
	assert.Equal(t, []time.Duration{750 * time.Millisecond}, rec.waits, "one wait per run")
}

func TestRun_HardFailureNoWait(t *testing.T) {
	up := &scriptedUpstream{status: map[string]int{"m1": 500, "m2": 0, "m3": 200}}
	o, rec := newTestOrchestrator(up, "m1", "m2", "m3")

	sel, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	sel.Body.Close()

	assert.Equal(t, "m3", sel.Candidate.ID)
	assert.Empty(t, rec.waits)
}

func TestRun_AllFailed(t *testing.T) {
	tests := []struct {
		name       string
		status     map[string]int
		wantStatus int
	}{
		{"last rate limited", map[string]int{"m1": 500, "m2": 503, "m3": 429}, http.StatusTooManyRequests},
		{"last hard failure", map[string]int{"m1": 429, "m2": 429, "m3": 400}, http.StatusBadGateway},
		{"network errors", map[string]int{}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &scriptedUpstream{status: tt.status}
			o, _ := newTestOrchestrator(up, "m1", "m2", "m3")

			sel, err := o.Run(context.Background(), nil)
			require.Nil(t, sel)

			var ex *ExhaustedError
			require.ErrorAs(t, err, &ex)
			assert.Equal(t, []string{"m1", "m2", "m3"}, ex.Tried)
			assert.Equal(t, tt.wantStatus, ex.Status())
			assert.NotEmpty(t, ex.Detail())
		})
	}
}

func TestRun_AttemptHook(t *testing.T) {
	up := &scriptedUpstream{status: map[string]int{"m1": 429, "m2": 200}}
	o, _ := newTestOrchestrator(up, "m1", "m2")

	var attempts []Attempt
	o.WithAttemptHook(func(a Attempt) { attempts = append(attempts, a) })

	sel, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	sel.Body.Close()

	require.Len(t, attempts, 2)
	assert.Equal(t, OutcomeRateLimited, attempts[0].Outcome)
	assert.Equal(t, OutcomeSuccess, attempts[1].Outcome)
}

func TestRun_ContextCancelledDuringBackoff(t *testing.T) {
	up := &scriptedUpstream{status: map[string]int{"m1": 429, "m2": 200}}
	ctx, cancel := context.WithCancel(context.Background())

	o := NewOrchestrator(up, Candidates("", []string{"m1", "m2"})).
		WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		})

	_, err := o.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"m1"}, up.calls)
}

func TestRun_RealSleepHonoursBackoff(t *testing.T) {
	up := &scriptedUpstream{status: map[string]int{"m1": 429, "m2": 200}}
	o := NewOrchestrator(up, Candidates("", []string{"m1", "m2"})).WithBackoff(20 * time.Millisecond)

	start := time.Now()
	sel, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	sel.Body.Close()
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
