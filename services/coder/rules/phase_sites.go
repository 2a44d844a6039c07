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
)

// sitePriority keeps at most one member of each site-specific family.
// The winner is the first member (in declared priority order) whose site
// keyword appears in the note; with no explicit site evidence, the
// family's default ordering decides.
type sitePriority struct{}

func (sitePriority) ID() string { return "site_priority" }

func (p sitePriority) Apply(pc *PassContext) *Conflict {
	text := pc.Evidence.Text()
	for _, family := range pc.Tables.SiteFamilies() {
		var present []string
		for _, m := range family.Members {
			if pc.Result.Has(m.Code) {
				present = append(present, m.Code)
			}
		}
		if len(present) <= 1 {
			continue
		}

		winner, site := "", ""
		for _, m := range family.Members {
			if !pc.Result.Has(m.Code) {
				continue
			}
			if m.Site != "" && strings.Contains(text, m.Site) {
				winner, site = m.Code, m.Site
				break
			}
		}
		if winner == "" {
			for _, code := range family.DefaultOrder {
				if pc.Result.Has(code) {
					winner = code
					break
				}
			}
		}
		if winner == "" {
			// Family members present but none in the default order; leave
			// the set alone rather than guess.
			pc.Result.Warn(fmt.Sprintf("site family %s has no configured default among %v", family.Name, present))
			continue
		}

		var reason string
		if site != "" {
			reason = fmt.Sprintf("site priority for %s: %s site selected %s", family.Name, site, winner)
		} else {
			reason = fmt.Sprintf("site priority for %s: default order selected %s", family.Name, winner)
		}
		for _, code := range present {
			if code == winner {
				continue
			}
			pc.Result.Remove(p.ID(), code, reason)
		}
	}
	return nil
}
