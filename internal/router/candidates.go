// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"strings"

	"github.com/jedsmith2004/folio/internal/cloud"
)

// Candidates builds the ordered candidate list: override first (when set),
// then fallback. Blank identifiers are skipped and duplicates are removed,
// keeping the first occurrence.
func Candidates(override string, fallback []string) []cloud.Candidate {
	ids := make([]string, 0, len(fallback)+1)
	if o := strings.TrimSpace(override); o != "" {
		ids = append(ids, o)
	}
	ids = append(ids, fallback...)

	seen := make(map[string]bool, len(ids))
	out := make([]cloud.Candidate, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, cloud.NewCandidate(id))
	}
	return out
}

// IDs returns the identifiers of cands in order.
func IDs(cands []cloud.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}
