// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat client.

The screen is a single Bubble Tea model built from a header, a scrolling
transcript, a waiting spinner and an input line whose placeholder types
example questions while the conversation is empty.

# Data flow

A submit runs session.Submit inside a tea.Cmd. The session reports progress
through a Sink, which forwards each callback to the running program as a
message:

	StateMsg   loading and streaming flags changed
	TurnsMsg   the transcript grew; the transcript is re-rendered
	ScrollMsg  debounced request to follow the newest text
	ReplyMsg   the exchange finished

Assistant turns are drawn with the markup renderer on every update, so a
half-streamed code fence already shows as a code block.

# Keys

	enter     send
	esc       stop the current reply
	ctrl+l    clear the conversation
	pgup/pgdn scroll
	ctrl+c    quit
*/
package chat
