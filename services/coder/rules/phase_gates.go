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

// evidenceGates enforces the declarative gate predicates: each clinically
// meaningful group's codes survive only when the group's conjunction of
// sub-signals holds. When it does not, every listed code is removed no
// matter how it entered the candidate set. A group with no evidence
// record at all evaluates its variables to false, so absence of evidence
// is an ordinary removal, never a failure.
type evidenceGates struct{}

func (evidenceGates) ID() string { return "evidence_gate" }

func (p evidenceGates) Apply(pc *PassContext) *Conflict {
	for _, gate := range pc.Tables.Gates() {
		env := gateEnv{ec: pc.Evidence, group: gate.Group}
		ok, err := gate.Predicate.Eval(env)
		if err != nil {
			// A malformed predicate escaped rulebook validation; keep the
			// codes and surface the problem instead of silently dropping
			// billable work.
			pc.Result.Warn(fmt.Sprintf("gate %s: predicate evaluation failed: %v", gate.Group, err))
			continue
		}
		if ok {
			continue
		}
		reason := fmt.Sprintf("no qualifying evidence for %s", gate.Group)
		for _, code := range gate.Codes {
			pc.Result.Remove(p.ID(), code, reason)
		}
	}
	return nil
}
