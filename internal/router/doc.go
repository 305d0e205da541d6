// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router selects which upstream model serves a request.
//
// Candidates are tried in priority order. An explicit override is always
// first, followed by the fixed fallback list with duplicates removed.
//
// # Key Types
//
//   - Machine: the fallback state machine (Trying, Backoff, Selected, AllFailed)
//   - Orchestrator: drives a Machine against a live Upstream
//   - ExhaustedError: aggregate failure once every candidate has been tried
//
// # Fallback Rules
//
//   - Success with a readable body selects the candidate.
//   - HTTP 429 waits a short fixed backoff once per run, then moves on.
//     A second 429 in the same run moves on immediately.
//   - Any other failure moves on immediately. A candidate is never retried.
//
// # Usage
//
//	orch := router.NewOrchestrator(client, router.Candidates(override, fallback))
//	sel, err := orch.Run(ctx, msgs)
//	if err != nil {
//	    var ex *router.ExhaustedError
//	    if errors.As(err, &ex) {
//	        status := ex.Status() // 429 or 502
//	    }
//	}
//	defer sel.Body.Close()
package router
