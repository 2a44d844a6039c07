// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
)

// mutualExclusion enforces the declared can-never-coexist pairs. The
// winner is picked by technique keyword match against the note, else by
// the pair's configured default. A pair declared on_conflict=flag
// surfaces a Conflict in strict mode; lenient mode keeps the resolution
// and records one warning per flagged pair.
type mutualExclusion struct{}

func (mutualExclusion) ID() string { return "mutual_exclusion" }

func (p mutualExclusion) Apply(pc *PassContext) *Conflict {
	var flagged *Conflict
	for _, pair := range pc.Tables.ExclusivePairs() {
		if !pc.Result.Has(pair.A) || !pc.Result.Has(pair.B) {
			continue
		}

		winner, loser := p.pick(pair, pc.Evidence.Text())
		pc.Result.Remove(p.ID(), loser,
			fmt.Sprintf("mutually exclusive with %s", winner))

		if pair.OnConflict != knowledge.ConflictFlag {
			continue
		}
		c := &Conflict{
			RuleID: p.ID(),
			Codes:  []string{pair.A, pair.B},
			Reason: fmt.Sprintf("%s and %s require review, resolved to %s by default", pair.A, pair.B, winner),
		}
		if pc.Mode == Lenient {
			// A conflict return would carry only the first flagged pair.
			pc.Result.Warn(c.Detail())
			continue
		}
		if flagged == nil {
			flagged = c
		}
	}
	return flagged
}

// pick applies the fixed tie-break: technique keyword match first, then
// the configured default.
func (mutualExclusion) pick(pair knowledge.ExclusivePair, text string) (winner, loser string) {
	if pair.KeywordA != "" && strings.Contains(text, pair.KeywordA) {
		return pair.A, pair.B
	}
	if pair.Default == "a" {
		return pair.A, pair.B
	}
	return pair.B, pair.A
}
