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
	"regexp"
	"strconv"

	"github.com/AleutianAI/AleutianCoder/services/coder/evidence"
)

// StationCounter turns numeric evidence into a count for the counting
// rules. The exact heuristic is a replaceable strategy: count in, code
// selection out. Implementations return 0 when no count evidence exists.
type StationCounter interface {
	Count(ec *evidence.Context, group, key string) int
}

// AttributeCounter is the default strategy. It prefers the structured
// attribute written by the extractor and falls back to keyword heuristics
// over the note text. The text heuristics carry a known false-negative
// risk; callers that have a better counter inject it via WithCounter.
type AttributeCounter struct{}

var (
	countedStations = regexp.MustCompile(`\b(\d+)\s+(?:lymph\s+)?stations?\b`)
	stationLabels   = regexp.MustCompile(`\bstations?\s+((?:\d{1,2}[rl]?)(?:\s*,\s*(?:and\s+)?\d{1,2}[rl]?)*(?:\s*,?\s*and\s+\d{1,2}[rl]?)?)`)
	labelToken      = regexp.MustCompile(`\d{1,2}[rl]?`)
)

// Count returns the structured station count when present, otherwise the
// best text-derived count, otherwise zero.
func (AttributeCounter) Count(ec *evidence.Context, group, key string) int {
	if n := ec.AttrInt(group, key); n > 0 {
		return n
	}
	text := ec.Text()
	if m := countedStations.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := stationLabels.FindStringSubmatch(text); m != nil {
		labels := labelToken.FindAllString(m[1], -1)
		distinct := make(map[string]struct{}, len(labels))
		for _, l := range labels {
			distinct[l] = struct{}{}
		}
		return len(distinct)
	}
	return 0
}
