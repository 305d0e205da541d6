// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "github.com/mattn/go-runewidth"

// UNICODE: All helpers count runes or display cells, never bytes, so a
// multi-byte character is never split.

// ClampRunes returns at most maxRunes runes of s with no ellipsis.
func ClampRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// Width returns the display width of s in terminal cells.
// East Asian wide characters and most emoji count as two cells.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// Ellipsize truncates s to maxWidth display cells, appending "..." when
// anything was cut and there is room for it.
func Ellipsize(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
