// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the folio HTTP gateway.
//
// Endpoints:
//   - POST /api/ask  - streamed assistant reply (text/event-stream)
//   - GET  /health   - liveness and upstream configuration
//   - GET  /stats    - request ledger summary
//   - GET  /metrics  - Prometheus metrics
//
// A request to /api/ask carries a message and an optional history:
//
//	{"message": "What do you work on?", "history": [{"role": "user", "content": "hi"}]}
//
// On acceptance the response is a stream of events:
//
//	data: {"content":"I build"}
//
//	data: {"content":" developer tools."}
//
// The X-Model-Used header names the candidate that served the reply.
// Failures before streaming starts are JSON: {"error", "tried", "detail"}.
//
// # Middleware
//
// Every route runs behind Chain(Recovery, RequestID, Logging, CORS, RateLimit).
// GetClientIP only trusts forwarding headers from private or loopback peers.
package server
