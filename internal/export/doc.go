// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to files.
//
// Two formats are supported:
//
//   - Markdown: front matter, one section per turn, the profile card
//     expanded where the card marker appears
//   - JSON: the transcript structure as-is
//
// Usage:
//
//	t := export.FromSession("Jack Smith", "llama-3.3-70b", sess.View())
//	path, err := export.ExportToFile(t, export.NewMarkdownExporter(opts), opts)
package export
