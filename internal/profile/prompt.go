// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"fmt"
	"strings"

	"github.com/jedsmith2004/folio/internal/model"
)

// Instruction renders the system instruction for p.
func (p *Profile) Instruction() string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an AI assistant representing %s", p.Name)
	if p.Title != "" {
		fmt.Fprintf(&b, ", a %s", p.Title)
	}
	if p.Location != "" {
		fmt.Fprintf(&b, " based in %s", p.Location)
	}
	b.WriteString(".")
	if p.Tagline != "" {
		fmt.Fprintf(&b, " You are %s.", p.Tagline)
	}
	b.WriteString("\n")

	section(&b, "ABOUT ME", p.Bio)

	if len(p.Skills) > 0 {
		lines := make([]string, 0, len(p.Skills))
		for _, s := range p.Skills {
			lines = append(lines, fmt.Sprintf("- %s: %s", s.Category, strings.Join(s.Items, ", ")))
		}
		section(&b, "MY CORE SKILLS", strings.Join(lines, "\n"))
	}

	if len(p.Projects) > 0 {
		blocks := make([]string, 0, len(p.Projects))
		for _, pr := range p.Projects {
			var pb strings.Builder
			fmt.Fprintf(&pb, "- %s: %s", pr.Title, pr.Description)
			if len(pr.Tech) > 0 {
				fmt.Fprintf(&pb, "\n  Technologies: %s", strings.Join(pr.Tech, ", "))
			}
			if pr.Repo != "" {
				fmt.Fprintf(&pb, "\n  Source: %s", pr.Repo)
			}
			if pr.Demo != "" {
				fmt.Fprintf(&pb, "\n  Demo: %s", pr.Demo)
			}
			blocks = append(blocks, pb.String())
		}
		section(&b, "MY PROJECTS", strings.Join(blocks, "\n\n"))
	}

	if len(p.Experience) > 0 {
		blocks := make([]string, 0, len(p.Experience))
		for _, e := range p.Experience {
			line := fmt.Sprintf("- %s at %s", e.Role, e.Company)
			if e.Period != "" {
				line += " (" + e.Period + ")"
			}
			if e.Description != "" {
				line += "\n  " + e.Description
			}
			blocks = append(blocks, line)
		}
		section(&b, "MY EXPERIENCE", strings.Join(blocks, "\n\n"))
	}

	if len(p.Awards) > 0 {
		section(&b, "AWARDS", "- "+strings.Join(p.Awards, "\n- "))
	}

	var contact []string
	for _, kv := range [][2]string{
		{"Email", p.Contact.Email},
		{"GitHub", p.Contact.GitHub},
		{"LinkedIn", p.Contact.LinkedIn},
		{"Website", p.Contact.Website},
	} {
		if kv[1] != "" {
			contact = append(contact, fmt.Sprintf("- %s: %s", kv[0], kv[1]))
		}
	}
	section(&b, "CONTACT", strings.Join(contact, "\n"))
	section(&b, "PERSONALITY", p.Personality)

	section(&b, "RESPONSE GUIDELINES", strings.Join([]string{
		fmt.Sprintf("1. Answer as %s, in the first person.", p.Name),
		"2. Be specific about projects and experience when relevant.",
		"3. If asked about something outside this profile, say so honestly.",
		"4. Keep answers short: two to four sentences unless asked for detail.",
		"5. Use plain text with light markdown: **bold**, *italic*, `code`, bullet lists and links.",
		fmt.Sprintf("6. When someone asks for a resume or CV, include the token %s on its own line.", model.CardMarker),
	}, "\n"))

	return strings.TrimSpace(b.String())
}

func section(b *strings.Builder, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(b, "\n%s:\n%s\n", title, body)
}
