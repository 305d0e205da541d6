// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jedsmith2004/folio/internal/ui/styles"
)

func text(s string) Inline { return Inline{Kind: InlineText, Text: s} }

func hasKind(blocks []Block, kind BlockKind) bool {
	for _, b := range blocks {
		if b.Kind == kind {
			return true
		}
	}
	return false
}

// =============================================================================
// BLOCKS
// =============================================================================

func TestParse_Blocks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Block
	}{
		{
			name: "paragraph lines join",
			in:   "first line\nsecond line",
			want: []Block{{Kind: KindParagraph, Inlines: []Inline{text("first line\nsecond line")}}},
		},
		{
			name: "blank lines collapse and trim",
			in:   "\n\none\n\n\n\ntwo\n\n",
			want: []Block{
				{Kind: KindParagraph, Inlines: []Inline{text("one")}},
				{Kind: KindSpacer},
				{Kind: KindParagraph, Inlines: []Inline{text("two")}},
			},
		},
		{
			name: "bullet list",
			in:   "- Go\n* Rust\n• Zig\nafter",
			want: []Block{
				{Kind: KindList, Items: [][]Inline{{text("Go")}, {text("Rust")}, {text("Zig")}}},
				{Kind: KindParagraph, Inlines: []Inline{text("after")}},
			},
		},
		{
			name: "numbered list keeps start",
			in:   "3. three\n4) four",
			want: []Block{
				{Kind: KindList, Ordered: true, Start: 3, Items: [][]Inline{{text("three")}, {text("four")}}},
			},
		},
		{
			name: "bullet then numbered are separate lists",
			in:   "- a\n1. b",
			want: []Block{
				{Kind: KindList, Items: [][]Inline{{text("a")}}},
				{Kind: KindList, Ordered: true, Start: 1, Items: [][]Inline{{text("b")}}},
			},
		},
		{
			name: "bold at line start is not a bullet",
			in:   "**Note** this",
			want: []Block{{Kind: KindParagraph, Inlines: []Inline{
				{Kind: InlineBold, Text: "Note"}, text(" this"),
			}}},
		},
		{
			name: "fenced code keeps whitespace",
			in:   "```go\nfunc main() {\n\n\tfmt.Println(\"**hi**\")\n}\n```\ndone",
			want: []Block{
				{Kind: KindCode, Lang: "go", Code: "func main() {\n\n\tfmt.Println(\"**hi**\")\n}", Closed: true},
				{Kind: KindParagraph, Inlines: []Inline{text("done")}},
			},
		},
		{
			name: "unclosed fence keeps partial contents",
			in:   "Here:\n```python\nprint(1)\n  x = [",
			want: []Block{
				{Kind: KindParagraph, Inlines: []Inline{text("Here:")}},
				{Kind: KindCode, Lang: "python", Code: "print(1)\n  x = ["},
			},
		},
		{
			name: "fence with nothing after it",
			in:   "```",
			want: []Block{{Kind: KindCode}},
		},
		{
			name: "crlf input",
			in:   "a\r\n\r\nb",
			want: []Block{
				{Kind: KindParagraph, Inlines: []Inline{text("a")}},
				{Kind: KindSpacer},
				{Kind: KindParagraph, Inlines: []Inline{text("b")}},
			},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// =============================================================================
// INLINES
// =============================================================================

func TestParseInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Inline
	}{
		{"plain", "hello world", []Inline{text("hello world")}},
		{"code", "run `go test ./...` now", []Inline{
			text("run "), {Kind: InlineCode, Text: "go test ./..."}, text(" now"),
		}},
		{"bold stars", "a **b** c", []Inline{text("a "), {Kind: InlineBold, Text: "b"}, text(" c")}},
		{"bold underscores", "__b__", []Inline{{Kind: InlineBold, Text: "b"}}},
		{"italic", "an *aside* here", []Inline{text("an "), {Kind: InlineItalic, Text: "aside"}, text(" here")}},
		{"italic underscore", "_quiet_ please", []Inline{{Kind: InlineItalic, Text: "quiet"}, text(" please")}},
		{"snake case stays literal", "use my_var_name here", []Inline{text("use my_var_name here")}},
		{"italic around bold", "*x **y** z*", []Inline{{Kind: InlineItalic, Text: "x **y** z"}}},
		{"unclosed bold is literal", "a **b", []Inline{text("a **b")}},
		{"lone double marker is not two italics", "** x *", []Inline{text("** x *")}},
		{"spaced star is literal", "2 * 3 * 4", []Inline{text("2 * 3 * 4")}},
		{"unclosed code is literal", "a `b", []Inline{text("a `b")}},
		{"link", "see [my site](https://example.com/a) ok", []Inline{
			text("see "), {Kind: InlineLink, Text: "my site", Href: "https://example.com/a"}, text(" ok"),
		}},
		{"mailto link", "[mail](mailto:me@example.com)", []Inline{
			{Kind: InlineLink, Text: "mail", Href: "mailto:me@example.com"},
		}},
		{"unsafe link keeps label only", "[click](javascript:alert(1))", []Inline{text("[click](javascript:alert(1))")}},
		{"unsafe scheme drops href", "[click](ftp://x.org)", []Inline{text("click")}},
		{"bare url", "go to https://example.com/x.", []Inline{
			text("go to "), {Kind: InlineURL, Text: "https://example.com/x", Href: "https://example.com/x"}, text("."),
		}},
		{"url in parens", "(https://example.com)", []Inline{
			text("("), {Kind: InlineURL, Text: "https://example.com", Href: "https://example.com"}, text(")"),
		}},
		{"url with balanced parens", "https://en.wikipedia.org/wiki/Go_(language)", []Inline{
			{Kind: InlineURL, Text: "https://en.wikipedia.org/wiki/Go_(language)", Href: "https://en.wikipedia.org/wiki/Go_(language)"},
		}},
		{"url inside link not wrapped twice", "[https://a.io](https://a.io)", []Inline{
			{Kind: InlineLink, Text: "https://a.io", Href: "https://a.io"},
		}},
		{"url inside code not wrapped", "`curl https://a.io`", []Inline{
			{Kind: InlineCode, Text: "curl https://a.io"},
		}},
		{"http inside word is not a url", "xhttps://a.io", []Inline{text("xhttps://a.io")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseInline(tt.in)); diff != "" {
				t.Errorf("ParseInline(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

// =============================================================================
// CARD MARKER
// =============================================================================

func TestSplit(t *testing.T) {
	segs := Split("before [[CV]] after")
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Text: "before "}, segs[0])
	assert.True(t, segs[1].Card)
	assert.Equal(t, Segment{Text: " after"}, segs[2])

	segs = Split("a[[CV]]b[[CV]]c[[CV]]")
	cards, texts := 0, 0
	for _, s := range segs {
		if s.Card {
			cards++
		} else {
			texts++
		}
	}
	assert.Equal(t, 3, cards)
	assert.Equal(t, 4, texts)

	assert.Equal(t, []Segment{{Text: "no marker"}}, Split("no marker"))
}

func TestParse_CardSegmentsParsedIndependently(t *testing.T) {
	got := Parse("Here you go:\n[[CV]]\n- **Go**\n- Rust")
	want := []Block{
		{Kind: KindParagraph, Inlines: []Inline{text("Here you go:")}},
		{Kind: KindCard},
		{Kind: KindList, Items: [][]Inline{{{Kind: InlineBold, Text: "Go"}}, {text("Rust")}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Bold cannot span the marker.
	got = Parse("**a [[CV]] b**")
	require.Len(t, got, 3)
	assert.Equal(t, KindCard, got[1].Kind)
	assert.Equal(t, []Inline{text("**a")}, got[0].Inlines)
}

// =============================================================================
// STREAMING
// =============================================================================

func TestParse_IdempotentOverStreamingPrefixes(t *testing.T) {
	reply := "Sure! **Projects**:\n\n1. folio, see https://example.com.\n2. `ledger`\n\n```go\nx := 1\n```\n[[CV]]\nThanks _friend_."

	for i := 0; i <= len(reply); i++ {
		prefix := reply[:i]
		first := Parse(prefix)
		second := Parse(prefix)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("prefix %d not idempotent:\n%s", i, diff)
		}
		if strings.Contains(prefix, "```") {
			assert.True(t, hasKind(first, KindCode), "prefix %d dropped the open fence", i)
		}
	}
}

// =============================================================================
// RENDERER
// =============================================================================

func newTestRenderer(opts ...Option) *Renderer {
	theme := styles.NewThemeForProfile(termenv.Ascii, true)
	return NewRenderer(theme, append([]Option{WithWidth(60)}, opts...)...)
}

func TestRenderer_Ascii(t *testing.T) {
	r := newTestRenderer(WithCard("## Jack Smith\n\nSoftware Engineer"))

	out := r.RenderText("Intro with [docs](https://go.dev/doc).\n\n- one\n- two\n\n```sh\necho  hi\n```\n[[CV]]")

	assert.Contains(t, out, "Intro with docs (https://go.dev/doc).")
	assert.Contains(t, out, "• one")
	assert.Contains(t, out, "• two")
	assert.Contains(t, out, "sh\n")
	assert.Contains(t, out, "echo  hi", "code is not highlighted or reflowed")
	assert.Contains(t, out, "Jack Smith")
	assert.Contains(t, out, "Software Engineer")
}

func TestRenderer_NumberedAlignment(t *testing.T) {
	r := newTestRenderer()
	items := make([]string, 10)
	for i := range items {
		items[i] = "1. item"
	}
	out := r.RenderText(strings.Join(items, "\n"))
	assert.Contains(t, out, " 1. item")
	assert.Contains(t, out, "10. item")
}

func TestRenderer_UnclosedFenceLabel(t *testing.T) {
	r := newTestRenderer()
	out := r.RenderText("```go\nfmt.")
	assert.Contains(t, out, "go ...")
	assert.Contains(t, out, "fmt.")
}

func TestRenderer_EmptyCard(t *testing.T) {
	r := newTestRenderer()
	assert.Contains(t, r.RenderText("[[CV]]"), "[profile card]")
}

func TestRenderer_CardCachePerWidth(t *testing.T) {
	r := newTestRenderer(WithCard("Short card"))
	first := r.RenderText("[[CV]]")
	assert.Equal(t, first, r.RenderText("[[CV]]"))

	r.SetCard("Other card")
	assert.Contains(t, r.RenderText("[[CV]]"), "Other card")

	r.SetWidth(5)
	assert.Equal(t, 20, r.width)
}

func TestRenderer_HighlightByProfile(t *testing.T) {
	code := "package main\n"
	assert.Equal(t, code, newTestRenderer().highlight(code, "go"))

	colored := newTestRenderer(WithProfile(termenv.ANSI256)).highlight(code, "go")
	assert.Contains(t, colored, "\x1b[")
	assert.Contains(t, colored, "package")
}
