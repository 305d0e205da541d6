// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markup turns assistant reply text into a small tree of render
// nodes and draws that tree in the terminal.
//
// The accepted syntax is narrow:
//
//   - fenced code blocks (``` with an optional language)
//   - bullet lists (-, * or •) and numbered lists (1. or 1))
//   - blank lines, collapsed into a single spacer
//   - paragraphs with `code`, **bold**, *italic*, [links](https://...) and
//     bare http(s) URLs
//
// The card marker may appear anywhere. Text on either side of it is parsed
// on its own and a Card block takes its place.
//
// Parse is pure. Replies are re-parsed on every streamed delta, so the same
// text always yields an identical tree, and half-written constructs such as
// an unclosed fence or a lone ** degrade to literal text or a partial block.
package markup
