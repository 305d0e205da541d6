// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

// =============================================================================
// BLOCKS
// =============================================================================

// BlockKind identifies a block node.
type BlockKind int

const (
	KindParagraph BlockKind = iota
	KindList
	KindCode
	KindSpacer
	KindCard
)

// String returns the kind name.
func (k BlockKind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindList:
		return "list"
	case KindCode:
		return "code"
	case KindSpacer:
		return "spacer"
	case KindCard:
		return "card"
	default:
		return "unknown"
	}
}

// Block is one top-level render node. Only the fields relevant to Kind
// are set.
type Block struct {
	Kind BlockKind

	// Paragraph
	Inlines []Inline

	// List
	Ordered bool
	Start   int
	Items   [][]Inline

	// Code
	Lang   string
	Code   string
	Closed bool
}

// =============================================================================
// INLINES
// =============================================================================

// InlineKind identifies an inline run.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineCode
	InlineBold
	InlineItalic
	InlineLink
	InlineURL
)

// String returns the kind name.
func (k InlineKind) String() string {
	switch k {
	case InlineText:
		return "text"
	case InlineCode:
		return "code"
	case InlineBold:
		return "bold"
	case InlineItalic:
		return "italic"
	case InlineLink:
		return "link"
	case InlineURL:
		return "url"
	default:
		return "unknown"
	}
}

// Inline is a run of text with a single style. Href is set for links and
// URLs.
type Inline struct {
	Kind InlineKind
	Text string
	Href string
}
