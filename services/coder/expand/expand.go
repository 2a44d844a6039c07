// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package expand augments a model-supplied candidate list before strict
// validation on the high-confidence fast path.
//
// Expansion is deliberately conservative: a small fixed set of clinically
// specific anchor patterns, each guarded by a negation window and an
// optional corroboration window, and it only ever adds codes. The
// fallback path never expands; the arbiter's output is authoritative.
package expand

import (
	"regexp"
	"sort"
)

// pattern is one anchor rule. The anchor must match outside the negation
// window of any negation clue, and the corroboration pattern (when set)
// must match within corroborationWindow characters of the anchor.
type pattern struct {
	id                  string
	code                string
	anchor              *regexp.Regexp
	corroboration       *regexp.Regexp
	corroborationWindow int
	negationWindow      int
}

var negationClue = regexp.MustCompile(`\b(no|not|without|unable|aborted|deferred|attempted but)\b`)

// patterns is the fixed rule set. Windows are in characters of the
// lowercased note text.
var patterns = []pattern{
	{
		id:             "fiducial_marker",
		code:           "31626",
		anchor:         regexp.MustCompile(`\b(?:fiducial\s+)?markers?\s+(?:was\s+|were\s+)?placed\b`),
		negationWindow: 60,
	},
	{
		id:                  "balloon_dilation",
		code:                "31630",
		anchor:              regexp.MustCompile(`\bballoon\b`),
		corroboration:       regexp.MustCompile(`\bdilat(?:ion|ed|ation)\b`),
		corroborationWindow: 120,
		negationWindow:      60,
	},
	{
		id:             "therapeutic_aspiration",
		code:           "31645",
		anchor:         regexp.MustCompile(`\btherapeutic\s+aspiration\b`),
		negationWindow: 60,
	},
	{
		id:                  "ebus_station_sampling",
		code:                "31652",
		anchor:              regexp.MustCompile(`\bebus\b`),
		corroboration:       regexp.MustCompile(`\b(?:needle|tbna|aspirat\w+)\b[^.]{0,80}\bstations?\b|\bstations?\b[^.]{0,80}\b(?:needle|tbna|aspirat\w+)\b`),
		corroborationWindow: 240,
		negationWindow:      60,
	},
}

// Addition is one code appended by expansion, paired with the anchor
// phrase that produced it.
type Addition struct {
	Code   string
	Phrase string
}

// Expand scans the lowercased note text and returns the candidate list
// with any anchored codes appended. The input slice is never mutated and
// no code is ever removed; re-running Expand on its own output is a
// fixed point.
func Expand(text string, candidates []string) []string {
	out := append([]string(nil), candidates...)
	for _, a := range Additions(text, candidates) {
		out = append(out, a.Code)
	}
	sort.Strings(out)
	return out
}

// Additions returns the codes Expand would append, each with the matched
// anchor phrase.
func Additions(text string, candidates []string) []Addition {
	have := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		have[c] = struct{}{}
	}

	var out []Addition
	for _, p := range patterns {
		if _, ok := have[p.code]; ok {
			continue
		}
		phrase, ok := p.match(text)
		if !ok {
			continue
		}
		have[p.code] = struct{}{}
		out = append(out, Addition{Code: p.code, Phrase: phrase})
	}
	return out
}

// match returns the first non-negated, corroborated anchor occurrence.
func (p pattern) match(text string) (string, bool) {
	for _, loc := range p.anchor.FindAllStringIndex(text, -1) {
		if p.negated(text, loc[0]) {
			continue
		}
		if p.corroboration == nil {
			return text[loc[0]:loc[1]], true
		}
		lo := loc[0] - p.corroborationWindow
		if lo < 0 {
			lo = 0
		}
		hi := loc[1] + p.corroborationWindow
		if hi > len(text) {
			hi = len(text)
		}
		if p.corroboration.MatchString(text[lo:hi]) {
			return text[loc[0]:loc[1]], true
		}
	}
	return "", false
}

// negated reports whether a negation clue appears within the bounded
// window before the anchor.
func (p pattern) negated(text string, anchorStart int) bool {
	lo := anchorStart - p.negationWindow
	if lo < 0 {
		lo = 0
	}
	return negationClue.MatchString(text[lo:anchorStart])
}
