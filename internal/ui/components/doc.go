// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the small animated pieces of the chat screen.

Placeholder (placeholder.go) - types example questions into the empty input
field, holds them, erases them and moves on to the next one. Each scheduled
step carries a generation number; typing, activating the conversation or
tearing the view down bumps it, so steps already in flight are dropped.

Spinner (spinner.go) - waiting indicator with elapsed time, shown until the
first streamed delta arrives.

Both follow the Bubble Tea pattern of returning a tea.Cmd that the owning
model runs, and feeding the resulting message back through Update.
*/
package components
