// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session is the chat client's side of a conversation: it posts
// questions to the gateway and consumes the streamed reply.
//
// # Key Types
//
//   - Client: HTTP client for the gateway's /api/ask endpoint
//   - Session: transcript owner; turns a stream into incremental updates
//   - Sink: receives state, transcript and scroll notifications
//   - Debouncer: coalesces bursts of calls into one
//
// # Lifecycle of a Submit
//
// The user turn is appended and the Loading and Streaming flags are set.
// Once the gateway answers, an empty assistant turn is appended and Loading
// clears. Each delta grows that turn and schedules a debounced scroll. At
// the terminal event or end of body the turn is finalized. Any failure
// replaces the partial reply with Apology. Both flags are cleared exactly
// once on every exit path.
package session
