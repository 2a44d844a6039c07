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
	"github.com/AleutianAI/AleutianCoder/services/coder/bundling"
)

// ncciBundling removes codes subsumed by a more complete procedure code
// already present, per the merged NCCI pair table. Runs after the
// evidence phases so only surviving codes participate; the removed
// secondary's audit entry names the primary it was attributed to.
type ncciBundling struct{}

func (ncciBundling) ID() string { return "ncci_bundling" }

func (p ncciBundling) Apply(pc *PassContext) *Conflict {
	removals := bundling.ResolveNCCI(pc.Result.Codes(), pc.Tables)
	for _, rm := range removals {
		// The primary may itself have been removed by an earlier entry in
		// this same pass; re-check so the audit trail never attributes a
		// removal to an absent code.
		if !pc.Result.Has(rm.Primary) {
			continue
		}
		pc.Result.Remove(p.ID(), rm.Code, rm.Reason)
	}
	return nil
}
