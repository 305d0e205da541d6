// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jedsmith2004/folio/internal/model"
)

var (
	bulletPattern   = regexp.MustCompile(`^\s*[-*•]\s+(.*)$`)
	numberedPattern = regexp.MustCompile(`^\s*(\d{1,9})[.)]\s+(.*)$`)
)

const fence = "```"

// =============================================================================
// CARD SPLITTING
// =============================================================================

// Segment is a piece of reply text around card markers.
type Segment struct {
	Card bool
	Text string
}

// Split cuts text at every card marker. The result alternates text and
// card segments and always starts and ends with a text segment, so n
// markers yield n+1 text segments and n cards.
func Split(text string) []Segment {
	parts := strings.Split(text, model.CardMarker)
	segs := make([]Segment, 0, len(parts)*2-1)
	for i, p := range parts {
		if i > 0 {
			segs = append(segs, Segment{Card: true})
		}
		segs = append(segs, Segment{Text: p})
	}
	return segs
}

// =============================================================================
// BLOCK PARSER
// =============================================================================

// Parse converts reply text into blocks.
func Parse(text string) []Block {
	var blocks []Block
	for _, seg := range Split(text) {
		if seg.Card {
			blocks = append(blocks, Block{Kind: KindCard})
			continue
		}
		blocks = append(blocks, parseBlocks(seg.Text)...)
	}
	return blocks
}

func parseBlocks(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var blocks []Block
	for i := 0; i < len(lines); {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, fence):
			b, next := parseFence(lines, i)
			blocks = append(blocks, b)
			i = next

		case bulletPattern.MatchString(line):
			b := Block{Kind: KindList}
			for ; i < len(lines); i++ {
				m := bulletPattern.FindStringSubmatch(lines[i])
				if m == nil {
					break
				}
				b.Items = append(b.Items, ParseInline(m[1]))
			}
			blocks = append(blocks, b)

		case numberedPattern.MatchString(line):
			b := Block{Kind: KindList, Ordered: true}
			for ; i < len(lines); i++ {
				m := numberedPattern.FindStringSubmatch(lines[i])
				if m == nil {
					break
				}
				if len(b.Items) == 0 {
					b.Start, _ = strconv.Atoi(m[1])
				}
				b.Items = append(b.Items, ParseInline(m[2]))
			}
			blocks = append(blocks, b)

		case trimmed == "":
			if n := len(blocks); n > 0 && blocks[n-1].Kind != KindSpacer {
				blocks = append(blocks, Block{Kind: KindSpacer})
			}
			i++

		default:
			var para []string
			for ; i < len(lines) && isParagraphLine(lines[i]); i++ {
				para = append(para, strings.TrimSpace(lines[i]))
			}
			blocks = append(blocks, Block{Kind: KindParagraph, Inlines: ParseInline(strings.Join(para, "\n"))})
		}
	}

	if n := len(blocks); n > 0 && blocks[n-1].Kind == KindSpacer {
		blocks = blocks[:n-1]
	}
	return blocks
}

// parseFence reads a code block starting at lines[start]. A fence with no
// closing marker runs to the end of the text.
func parseFence(lines []string, start int) (Block, int) {
	b := Block{Kind: KindCode, Lang: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[start]), fence))}

	var code []string
	i := start + 1
	for ; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), fence) {
			b.Closed = true
			i++
			break
		}
		code = append(code, lines[i])
	}
	b.Code = strings.Join(code, "\n")
	return b, i
}

func isParagraphLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" &&
		!strings.HasPrefix(trimmed, fence) &&
		!bulletPattern.MatchString(line) &&
		!numberedPattern.MatchString(line)
}
