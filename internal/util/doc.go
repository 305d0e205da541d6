// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across folio.
//
// # Key Functions
//
// Text:
//   - ClampRunes: cut a string to N runes without an ellipsis
//   - Ellipsize: cut a string to a display width, appending "..."
//   - Width: terminal display width of a string
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
