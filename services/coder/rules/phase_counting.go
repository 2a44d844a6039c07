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

import "fmt"

// stationCounting selects between the few/many tier of a counted act.
// At most one of the pair survives. When the count contradicts the only
// tier present, the code is kept and a warning records the mismatch;
// second-guessing the extractor here has historically produced worse
// claims than flagging it for review.
type stationCounting struct {
	counter StationCounter
}

func (stationCounting) ID() string { return "station_counting" }

func (p stationCounting) Apply(pc *PassContext) *Conflict {
	for _, cr := range pc.Tables.CountingRules() {
		hasFew := pc.Result.Has(cr.FewCode)
		hasMany := pc.Result.Has(cr.ManyCode)
		if !hasFew && !hasMany {
			continue
		}

		count := p.counter.Count(pc.Evidence, cr.Group, cr.Counter)
		switch {
		case count >= cr.ManyAt:
			if hasFew && hasMany {
				pc.Result.Remove(p.ID(), cr.FewCode,
					fmt.Sprintf("%d %s counted, meets the %s threshold", count, cr.Counter, cr.ManyCode))
			} else if hasFew {
				pc.Result.Upgrade(p.ID(), cr.FewCode, cr.ManyCode,
					fmt.Sprintf("%d %s counted", count, cr.Counter))
			}
		case count >= 1:
			if hasMany && hasFew {
				pc.Result.Remove(p.ID(), cr.ManyCode,
					fmt.Sprintf("only %d %s counted", count, cr.Counter))
			} else if hasMany {
				pc.Result.Warn(fmt.Sprintf(
					"%s selected but only %d %s counted", cr.ManyCode, count, cr.Counter))
			}
		default:
			// No count evidence at all; prefer the lower tier.
			if hasFew && hasMany {
				pc.Result.Remove(p.ID(), cr.ManyCode, "no station count evidence, defaulting to the lower tier")
				pc.Result.Warn(fmt.Sprintf("no %s evidence found for %s", cr.Counter, cr.Group))
			}
		}
	}
	return nil
}
