// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry exposes Prometheus metrics for the folio gateway.
//
// # Key Types
//
//   - Metrics: counters and histograms for upstream attempts, relayed
//     deltas, and gateway responses
//
// # Usage
//
//	m := telemetry.NewMetrics(prometheus.NewRegistry())
//	orch.WithAttemptHook(m.ObserveAttempt)
//	mux.Handle("/metrics", m.Handler())
//
// # Privacy
//
// Only model ids, outcomes, and counts are recorded. Message content never
// reaches a metric label.
package telemetry
