// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps a SQLite ledger of gateway requests.
//
// Only request metadata is stored: the request id, which model served it,
// which candidates were tried, the response status, and how many deltas
// were relayed. Conversation content is never written.
//
// # Key Types
//
//   - Ledger: SQLite-backed request log
//   - Entry: one finished request
//   - Summary: aggregate counts for the /stats endpoint
//
// # Usage
//
//	ledger, err := storage.Open(ctx, "~/.folio/ledger.db")
//	defer ledger.Close()
//	err = ledger.Record(ctx, storage.Entry{RequestID: id, Model: "llama-3.3-70b-versatile", Status: 200})
//	sum, err := ledger.Summary(ctx)
package storage
