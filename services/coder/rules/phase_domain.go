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

// domainFilter drops any candidate absent from the authoritative valid
// code set. Always the first phase: nothing downstream should ever see an
// out-of-domain code. This is a silent correction (audited but not
// warned): such codes indicate an upstream data issue, not a decision
// ambiguity.
type domainFilter struct{}

func (domainFilter) ID() string { return "domain_filter" }

func (p domainFilter) Apply(pc *PassContext) *Conflict {
	for _, code := range pc.Result.Codes() {
		if pc.Tables.IsValid(code) {
			continue
		}
		pc.Result.Remove(p.ID(), code, "not in the authoritative code set")
	}
	return nil
}
