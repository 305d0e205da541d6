// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jedsmith2004/folio/internal/cloud"
	"github.com/jedsmith2004/folio/internal/history"
	"github.com/jedsmith2004/folio/internal/router"
	"github.com/jedsmith2004/folio/internal/storage"
	"github.com/jedsmith2004/folio/internal/stream"
)

// statusClientClosed is recorded when the caller leaves before a reply.
const statusClientClosed = 499

var (
	// ErrMessageRequired is returned for a missing or blank message.
	ErrMessageRequired = errors.New("message is required")

	// ErrInvalidBody is returned when the body is not a JSON object.
	ErrInvalidBody = errors.New("invalid JSON body")
)

// AskRequest is the /api/ask body. History is left raw: the normalizer
// decides entry by entry what survives.
type AskRequest struct {
	Message json.RawMessage `json:"message"`
	History json.RawMessage `json:"history,omitempty"`
}

// ============================================================================
// ASK HANDLER
// ============================================================================

// handleAsk handles /api/ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	entry := storage.Entry{RequestID: RequestIDFromContext(r.Context())}
	defer func() { s.finish(r.Context(), &entry, start) }()

	if r.Method != http.MethodPost {
		entry.Status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, entry.Status, ErrorResponse{Error: "Method not allowed"})
		return
	}

	message, raw, err := decodeAsk(w, r, s.cfg.MaxBodyBytes)
	if err != nil {
		entry.Status = http.StatusBadRequest
		s.log.Debug().Err(err).Str("request_id", entry.RequestID).Msg("REQUEST_REJECTED")
		text := "Message is required"
		if errors.Is(err, ErrInvalidBody) {
			text = "Invalid JSON body"
		}
		writeError(w, entry.Status, ErrorResponse{Error: text})
		return
	}

	if !s.ready() {
		entry.Status = http.StatusInternalServerError
		writeError(w, entry.Status, ErrorResponse{Error: "Upstream API key not configured"})
		return
	}

	win := history.Normalize(raw, message, s.limits)
	msgs := cloud.Messages(s.source.Instruction(), win.Entries())

	sel, err := s.runner.Run(r.Context(), msgs)
	if err != nil {
		if r.Context().Err() != nil {
			entry.Status = statusClientClosed
			return
		}
		var resp ErrorResponse
		entry.Status, resp = failure(err)
		entry.Tried = resp.Tried
		writeError(w, entry.Status, resp)
		return
	}
	defer sel.Body.Close()

	entry.Status = http.StatusOK
	entry.Model = sel.Candidate.ID
	entry.Tried = sel.Tried

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(HeaderModelUsed, sel.Candidate.ID)
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	dec := stream.NewDecoder(stream.UpstreamDelta)
	st, err := stream.Relay(r.Context(), sel.Body, dec, stream.NewEncoder(w))
	entry.Deltas = st.Deltas
	s.metrics.ObserveRelay(st)

	if err != nil && r.Context().Err() == nil {
		s.log.Warn().
			Err(err).
			Str("request_id", entry.RequestID).
			Str("model", sel.Candidate.ID).
			Int("deltas", st.Deltas).
			Msg("STREAM_INTERRUPTED")
		return
	}
	s.log.Debug().
		Str("request_id", entry.RequestID).
		Str("model", sel.Candidate.ID).
		Int("deltas", st.Deltas).
		Int("malformed", st.Malformed).
		Bool("terminal", st.Terminal).
		Msg("STREAM_CLOSED")
}

// decodeAsk reads the body and returns the message and raw history.
func decodeAsk(w http.ResponseWriter, r *http.Request, limit int64) (string, json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", nil, ErrInvalidBody
	}

	var message string
	if len(req.Message) == 0 || json.Unmarshal(req.Message, &message) != nil {
		return "", nil, ErrMessageRequired
	}
	if strings.TrimSpace(message) == "" {
		return "", nil, ErrMessageRequired
	}
	return message, req.History, nil
}

// failure maps a Run error to a status and wire body.
func failure(err error) (int, ErrorResponse) {
	var ex *router.ExhaustedError
	if !errors.As(err, &ex) {
		return http.StatusInternalServerError, ErrorResponse{
			Error:  "Internal server error",
			Detail: err.Error(),
		}
	}

	if errors.Is(ex, cloud.ErrNotConfigured) {
		return http.StatusInternalServerError, ErrorResponse{
			Error: "Upstream API key not configured",
			Tried: ex.Tried,
		}
	}

	resp := ErrorResponse{
		Error:  "All models failed",
		Tried:  ex.Tried,
		Detail: ex.Detail(),
	}
	if ex.Status() == http.StatusTooManyRequests {
		resp.Error = "All models are rate limited, please try again shortly"
	}
	return ex.Status(), resp
}

// finish records the request in metrics and the ledger.
func (s *Server) finish(ctx context.Context, e *storage.Entry, start time.Time) {
	e.Duration = time.Since(start)
	s.metrics.ObserveRequest(e.Status, e.Duration)

	if s.ledger == nil {
		return
	}
	// The ledger write outlives a client disconnect.
	if err := s.ledger.Record(context.WithoutCancel(ctx), *e); err != nil {
		s.log.Warn().Err(err).Str("request_id", e.RequestID).Msg("LEDGER_WRITE_FAILED")
	}
}
