// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// CardMarker is the inline token an assistant reply uses to request the
// profile card. The chat client renders the card in its place.
const CardMarker = "[[CV]]"
