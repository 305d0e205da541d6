// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the folio chat palette and theme.
//
// All colors are lipgloss.AdaptiveColor values so light and dark terminals
// both stay readable. Theme bundles the styles used by the chat screen and
// the markup renderer.
//
// # Usage
//
//	theme := styles.NewTheme()
//	theme.SetSize(width, height)
//	fmt.Println(theme.AssistantLabel.Render("Assistant"))
package styles
