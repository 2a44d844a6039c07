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

// Mode selects the evaluation contract.
type Mode int

const (
	// Lenient evaluation always terminates with a best-effort cleaned set
	// plus warnings; it never produces a Conflict.
	Lenient Mode = iota

	// Strict evaluation surfaces an irreconcilable code combination as a
	// Conflict outcome instead of resolving it silently.
	Strict
)

// String returns "lenient" or "strict".
func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// Conflict describes an irreconcilable code combination found in strict
// mode. It is ordinary data, not an error: only the hybrid orchestrator
// interprets it, as the signal to route to the fallback arbiter.
type Conflict struct {
	RuleID string   `json:"rule_id"`
	Codes  []string `json:"codes"`
	Reason string   `json:"reason"`
}

// Detail renders the conflict for telemetry and fallback reasons.
func (c *Conflict) Detail() string {
	return fmt.Sprintf("%s [%s]: %s", c.RuleID, strings.Join(c.Codes, ","), c.Reason)
}

// Outcome is the two-variant result of a rule evaluation: exactly one of
// Result (accepted) or Conflict is set. Callers branch on Ok rather than
// catching anything.
type Outcome struct {
	Result   *Result
	Conflict *Conflict
}

// Accepted wraps a completed evaluation.
func Accepted(r *Result) Outcome { return Outcome{Result: r} }

// Conflicted wraps a strict-mode conflict.
func Conflicted(c *Conflict) Outcome { return Outcome{Conflict: c} }

// Ok reports whether the evaluation completed without a conflict.
func (o Outcome) Ok() bool { return o.Conflict == nil }
