// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bundling resolves code-pair and code-group billing interactions:
// NCCI edits remove a secondary code bundled into a dominant primary, and
// the Multiple Endoscopy Rule re-labels and re-prices group members
// without removing them.
package bundling

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
)

// Removal is one NCCI decision: Code is bundled into Primary and must be
// dropped from the billed set.
type Removal struct {
	Code    string `json:"code"`
	Primary string `json:"primary"`
	Reason  string `json:"reason"`
}

// ResolveNCCI applies the merged pair table to the present codes.
//
// For every present (primary, secondary) pair whose edit does not allow a
// modifier, the secondary is marked for removal and attributed to the
// primary. Codes in the input that fail normalization are ignored. The
// returned removals are sorted by code, so application order is
// deterministic.
//
// The caller applies the removals; this function never mutates its input.
func ResolveNCCI(present []string, tables *knowledge.Tables) []Removal {
	set := make(map[string]struct{}, len(present))
	for _, raw := range present {
		code, ok := knowledge.NormalizeCode(raw)
		if !ok {
			continue
		}
		set[code] = struct{}{}
	}

	var removals []Removal
	seen := make(map[string]struct{})
	for _, pair := range tables.Pairs() {
		if pair.ModifierAllowed {
			continue
		}
		if _, ok := set[pair.Primary]; !ok {
			continue
		}
		if _, ok := set[pair.Secondary]; !ok {
			continue
		}
		if _, dup := seen[pair.Secondary]; dup {
			continue
		}
		seen[pair.Secondary] = struct{}{}
		reason := pair.Reason
		if reason == "" {
			reason = fmt.Sprintf("bundled into %s", pair.Primary)
		} else {
			reason = fmt.Sprintf("bundled into %s: %s", pair.Primary, reason)
		}
		removals = append(removals, Removal{
			Code:    pair.Secondary,
			Primary: pair.Primary,
			Reason:  reason,
		})
	}
	sort.Slice(removals, func(i, j int) bool { return removals[i].Code < removals[j].Code })
	return removals
}
