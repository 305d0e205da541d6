// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// Configuration constants for the upstream API.
const (
	// DefaultBaseURL is the Groq OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultHeaderTimeout bounds the wait for response headers on each attempt.
	DefaultHeaderTimeout = 60 * time.Second

	// maxErrorBody caps how much of an error response is read.
	// SECURITY: Response size limit prevents memory exhaustion.
	maxErrorBody = 64 * 1024

	userAgent = "folio/1.0"
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// There is no overall client timeout because streams are long-lived;
// cancellation is context-controlled.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: DefaultHeaderTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("upstream API key not configured")

	// ErrRateLimited indicates the upstream answered 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoBody indicates a 2xx answer without a readable body.
	ErrNoBody = errors.New("upstream returned no body")
)

// StatusError is a non-2xx answer from the upstream provider.
type StatusError struct {
	Model   string
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream error [%s] (HTTP %d, model %s): %s", e.Code, e.Status, e.Model, e.Message)
	}
	return fmt.Sprintf("upstream error (HTTP %d, model %s): %s", e.Status, e.Model, e.Message)
}

// Is reports a 429 StatusError as ErrRateLimited.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.Status == http.StatusTooManyRequests
}

// IsRateLimited reports whether err is an upstream rate-limit failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client opens streaming chat completions against one provider.
// A Client is safe for concurrent use once configured.
type Client struct {
	apiKey  string
	baseURL string
	shaping Shaping
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client for the default provider.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
		shaping: DefaultShaping(),
		http:    sharedStreamingClient,
		log:     zerolog.Nop(),
	}
}

// WithBaseURL sets the provider base URL (tests point this at httptest).
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// WithShaping sets the per-shape request parameters.
func (c *Client) WithShaping(s Shaping) *Client {
	c.shaping = s
	return c
}

// WithHTTPClient replaces the shared pooled client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// WithHeaderTimeout bounds the wait for response headers on each attempt.
// Streaming bodies are not limited.
func (c *Client) WithHeaderTimeout(d time.Duration) *Client {
	if d <= 0 {
		return c
	}
	t := sharedStreamingClient.Transport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = d
	c.http = &http.Client{Transport: t}
	return c
}

// WithLogger sets the logger used for request events.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.log = l
	return c
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key.
// SECURITY: Never log any fragment of the key itself.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// Open issues one streaming request for cand and returns the response body.
// The caller owns the body and must close it; closing it cancels the stream.
// Non-2xx answers are returned as *StatusError.
func (c *Client) Open(ctx context.Context, cand Candidate, msgs []openai.ChatCompletionMessage) (io.ReadCloser, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(c.shaping.Build(cand, msgs))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	// SECURITY: Clear Authorization header so it cannot leak through logging.
	req.Header.Del("Authorization")
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", cand.ID, err)
	}

	c.log.Debug().
		Str("model", cand.ID).
		Str("shape", cand.Shape.String()).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("UPSTREAM_RESPONSE")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, handleErrorResponse(cand.ID, resp.StatusCode, body)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, fmt.Errorf("%s: %w", cand.ID, ErrNoBody)
	}
	return resp.Body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)
}

// handleErrorResponse converts an HTTP error answer into a *StatusError,
// using the provider's error envelope when it parses.
func handleErrorResponse(modelID string, status int, body []byte) error {
	se := &StatusError{Model: modelID, Status: status}

	var envelope openai.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		se.Message = envelope.Error.Message
		if envelope.Error.Code != nil {
			se.Code = fmt.Sprint(envelope.Error.Code)
		}
		return se
	}

	se.Message = strings.TrimSpace(string(body))
	if se.Message == "" {
		se.Message = http.StatusText(status)
	}
	return se
}
