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

// hierarchyUpgrade silently replaces a narrower code with a broader one
// when the declared evidence group is present. The upgrade removes the
// "from" code in whichever form it entered and records a single
// from->to audit entry.
type hierarchyUpgrade struct{}

func (hierarchyUpgrade) ID() string { return "hierarchy_upgrade" }

func (p hierarchyUpgrade) Apply(pc *PassContext) *Conflict {
	for _, up := range pc.Tables.Upgrades() {
		if !pc.Evidence.HasGroup(up.Group) {
			continue
		}
		if !pc.Result.Has(up.From) {
			continue
		}
		pc.Result.Upgrade(p.ID(), up.From, up.To, up.Reason)
	}
	return nil
}
