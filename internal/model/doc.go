// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation data structures shared by the
// gateway and the chat client.
//
// # Key Types
//
//   - Role: message role enumeration (user, assistant, system)
//   - Entry: a role/content pair as it travels on the wire
//   - Turn: a transcript entry with identity, timestamp and streaming state
//   - Transcript: ordered turns for one chat session, oldest first
//
// Turns live only for the lifetime of a chat session and are never persisted.
package model
