// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	linkPattern = regexp.MustCompile(`^\[([^\]\n]+)\]\(([^()\s]+)\)`)
	urlPattern  = regexp.MustCompile(`^https?://[^\s<>\x60]+`)
)

// ParseInline tokenizes a paragraph or list item. Markers without a
// matching close are kept as literal text.
func ParseInline(s string) []Inline {
	p := inlineParser{src: s}
	p.run()
	return p.out
}

type inlineParser struct {
	src string
	out []Inline
	buf strings.Builder
}

func (p *inlineParser) run() {
	s := p.src
	for i := 0; i < len(s); {
		n := 0
		switch c := s[i]; c {
		case '`':
			n = p.code(i)
		case '[':
			n = p.link(i)
		case '*', '_':
			n = p.emphasis(i, c)
		case 'h':
			n = p.autolink(i)
		}
		if n > 0 {
			i += n
			continue
		}
		// Consume a doubled marker whole so it never reads as two singles.
		if (s[i] == '*' || s[i] == '_') && i+1 < len(s) && s[i+1] == s[i] {
			p.buf.WriteString(s[i : i+2])
			i += 2
			continue
		}
		p.buf.WriteByte(s[i])
		i++
	}
	p.flush()
}

func (p *inlineParser) flush() {
	if p.buf.Len() == 0 {
		return
	}
	p.out = append(p.out, Inline{Kind: InlineText, Text: p.buf.String()})
	p.buf.Reset()
}

func (p *inlineParser) emit(in Inline) {
	p.flush()
	p.out = append(p.out, in)
}

func (p *inlineParser) code(i int) int {
	end := strings.IndexByte(p.src[i+1:], '`')
	if end <= 0 {
		return 0
	}
	p.emit(Inline{Kind: InlineCode, Text: p.src[i+1 : i+1+end]})
	return end + 2
}

func (p *inlineParser) link(i int) int {
	m := linkPattern.FindStringSubmatch(p.src[i:])
	if m == nil {
		return 0
	}
	if safeHref(m[2]) {
		p.emit(Inline{Kind: InlineLink, Text: m[1], Href: m[2]})
	} else {
		p.buf.WriteString(m[1])
	}
	return len(m[0])
}

func (p *inlineParser) emphasis(i int, c byte) int {
	s := p.src
	if c == '_' && !boundaryBefore(s, i) {
		return 0
	}

	if i+1 < len(s) && s[i+1] == c {
		marker := s[i : i+2]
		end := strings.Index(s[i+2:], marker)
		if end <= 0 {
			return 0
		}
		inner := s[i+2 : i+2+end]
		if strings.TrimSpace(inner) != inner {
			return 0
		}
		p.emit(Inline{Kind: InlineBold, Text: inner})
		return end + 4
	}

	if i+1 >= len(s) || unicode.IsSpace(rune(s[i+1])) {
		return 0
	}
	for j := i + 1; j < len(s); j++ {
		if s[j] == '\n' {
			return 0
		}
		if s[j] != c {
			continue
		}
		if j+1 < len(s) && s[j+1] == c {
			// Part of a doubled marker; not a close.
			j++
			continue
		}
		if unicode.IsSpace(rune(s[j-1])) {
			continue
		}
		if c == '_' && !boundaryAfter(s, j+1) {
			continue
		}
		p.emit(Inline{Kind: InlineItalic, Text: s[i+1 : j]})
		return j + 1 - i
	}
	return 0
}

func (p *inlineParser) autolink(i int) int {
	if !boundaryBefore(p.src, i) {
		return 0
	}
	raw := urlPattern.FindString(p.src[i:])
	if raw == "" {
		return 0
	}
	raw = trimURL(raw)
	if _, err := url.Parse(raw); err != nil {
		return 0
	}
	p.emit(Inline{Kind: InlineURL, Text: raw, Href: raw})
	return len(raw)
}

// trimURL drops trailing punctuation that belongs to the sentence, keeping a
// closing paren only when the URL opened one.
func trimURL(raw string) string {
	for len(raw) > 0 {
		last := raw[len(raw)-1]
		switch {
		case strings.IndexByte(".,;:!?'\"*_", last) >= 0:
			raw = raw[:len(raw)-1]
		case last == ')' && strings.Count(raw, "(") < strings.Count(raw, ")"):
			raw = raw[:len(raw)-1]
		default:
			return raw
		}
	}
	return raw
}

// safeHref reports whether a link target may be shown as a link.
func safeHref(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	case "mailto":
		return u.Opaque != ""
	default:
		return false
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
