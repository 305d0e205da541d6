// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jedsmith2004/folio/internal/model"
)

// askPath is the gateway route for questions.
const askPath = "/api/ask"

// maxErrorBody bounds how much of a failure response is read.
const maxErrorBody = 64 * 1024

// Request is the /api/ask body.
type Request struct {
	Message string        `json:"message"`
	History []model.Entry `json:"history,omitempty"`
}

// Response is an accepted stream. The caller must close Body.
type Response struct {
	Body      io.ReadCloser
	Model     string
	RequestID string
}

// GatewayError is a non-2xx answer from the gateway.
type GatewayError struct {
	Status  int
	Message string
	Tried   []string
	Detail  string
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway error (HTTP %d)", e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.Tried) > 0 {
		msg += " [tried " + strings.Join(e.Tried, ", ") + "]"
	}
	return msg
}

// Asker opens one streamed reply. *Client satisfies it.
type Asker interface {
	Ask(ctx context.Context, req Request) (*Response, error)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to a folio gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the gateway at baseURL, for example
// "http://127.0.0.1:8787".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: a reply streams for as long as it needs.
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 2 * time.Minute,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// BaseURL returns the gateway address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ask posts req and returns the open event stream.
func (c *Client) Ask(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+askPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		gerr := &GatewayError{Status: resp.StatusCode}
		var wire struct {
			Error  string   `json:"error"`
			Tried  []string `json:"tried"`
			Detail string   `json:"detail"`
		}
		if json.Unmarshal(body, &wire) == nil {
			gerr.Message, gerr.Tried, gerr.Detail = wire.Error, wire.Tried, wire.Detail
		} else {
			gerr.Message = strings.TrimSpace(string(body))
		}
		return nil, gerr
	}

	return &Response{
		Body:      resp.Body,
		Model:     resp.Header.Get("X-Model-Used"),
		RequestID: resp.Header.Get("X-Request-ID"),
	}, nil
}
