// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to the upstream OpenAI-compatible completion provider
// (Groq by default).
//
// Requests are shaped per candidate: extended-reasoning models receive a
// larger completion budget and a fixed reasoning effort, standard models a
// smaller budget and a moderate temperature. The client only opens the
// stream; decoding belongs to package stream.
//
// # Key Types
//
//   - Client: HTTP client with pooled TLS connections
//   - Candidate: a model identifier plus its request shape
//   - Shaping: token budgets and sampling parameters per shape
//   - StatusError: a non-2xx upstream answer, carrying the HTTP status
//
// # Usage
//
//	client := cloud.NewClient(apiKey).WithBaseURL(cfg.Upstream.BaseURL)
//	body, err := client.Open(ctx, cloud.NewCandidate("llama-3.1-8b-instant"), msgs)
//	if errors.Is(err, cloud.ErrRateLimited) {
//	    // move on to the next candidate
//	}
//	defer body.Close()
package cloud
