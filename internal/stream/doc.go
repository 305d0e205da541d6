// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes and re-encodes line-delimited server-sent event
// streams.
//
// The same Decoder runs on both sides of the gateway: against the upstream
// provider (with UpstreamDelta) and inside the chat client against the
// gateway's own output (with RelayDelta).
//
// # Frames
//
//   - KindDelta: a non-empty content fragment
//   - KindTerminal: the "[DONE]" sentinel; nothing after it is decoded
//   - KindMalformed: a data line whose JSON did not parse; callers skip it
//
// Lines without the "data:" prefix (comments, event names, keep-alives)
// produce no frame at all.
//
// # Usage
//
//	dec := stream.NewDecoder(stream.UpstreamDelta)
//	enc := stream.NewEncoder(w)
//	stats, err := stream.Relay(ctx, upstreamBody, dec, enc)
package stream
