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
	"sort"

	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
)

// Action is the kind of mutation recorded in the audit log.
type Action string

const (
	// ActionAdd records a code entering the working set.
	ActionAdd Action = "add"

	// ActionRemove records a code leaving the working set.
	ActionRemove Action = "remove"

	// ActionUpgrade records a narrower code being replaced by a broader one.
	ActionUpgrade Action = "upgrade"
)

// AuditEntry is one append-only record of a set mutation.
type AuditEntry struct {
	RuleID   string `json:"rule_id"`
	Action   Action `json:"action"`
	Code     string `json:"code"`
	FromCode string `json:"from_code,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Result is the mutable, request-scoped output of one rule evaluation:
// the current code set, the ordered audit log, removal reasons, and
// non-fatal warnings. Nothing outlives the call that produced it.
//
// Codes are stored in normalized five-digit identity, so a code can never
// be present in both its plain and add-on form. Entries that fail
// normalization are dropped silently at construction (upstream data
// issue, not a decision ambiguity).
type Result struct {
	codes map[string]struct{}

	// Audit is append-only; phases never rewrite earlier entries.
	Audit []AuditEntry

	// RemovalReasons maps a removed code to its human-readable reason.
	RemovalReasons map[string]string

	// Warnings collects non-fatal observations.
	Warnings []string
}

// NewResult seeds a working set from the initial candidates.
func NewResult(candidates []string) *Result {
	r := &Result{
		codes:          make(map[string]struct{}, len(candidates)),
		RemovalReasons: make(map[string]string),
	}
	for _, raw := range candidates {
		code, ok := knowledge.NormalizeCode(raw)
		if !ok {
			continue
		}
		r.codes[code] = struct{}{}
	}
	return r
}

// Has reports whether the code (in any form) is in the working set.
func (r *Result) Has(raw string) bool {
	code, ok := knowledge.NormalizeCode(raw)
	if !ok {
		return false
	}
	_, present := r.codes[code]
	return present
}

// Add inserts a code and appends one audit entry. Adding a code already
// present is a no-op with no audit entry.
func (r *Result) Add(ruleID, raw, detail string) {
	code, ok := knowledge.NormalizeCode(raw)
	if !ok {
		return
	}
	if _, present := r.codes[code]; present {
		return
	}
	r.codes[code] = struct{}{}
	r.Audit = append(r.Audit, AuditEntry{RuleID: ruleID, Action: ActionAdd, Code: code, Detail: detail})
}

// Remove deletes a code and appends one audit entry plus a removal
// reason. Removing an absent code is a no-op (idempotent).
func (r *Result) Remove(ruleID, raw, reason string) {
	code, ok := knowledge.NormalizeCode(raw)
	if !ok {
		return
	}
	if _, present := r.codes[code]; !present {
		return
	}
	delete(r.codes, code)
	r.Audit = append(r.Audit, AuditEntry{RuleID: ruleID, Action: ActionRemove, Code: code, Detail: reason})
	r.RemovalReasons[code] = reason
}

// Upgrade replaces from with to, recording a single upgrade entry.
// Normalized storage means both the plain and add-on spelling of from are
// covered by one delete. A missing from still adds to: richer evidence
// wins regardless of how the candidate set was seeded.
func (r *Result) Upgrade(ruleID, fromRaw, toRaw, detail string) {
	from, okFrom := knowledge.NormalizeCode(fromRaw)
	to, okTo := knowledge.NormalizeCode(toRaw)
	if !okTo {
		return
	}
	hadFrom := false
	if okFrom {
		_, hadFrom = r.codes[from]
		delete(r.codes, from)
	}
	if _, present := r.codes[to]; present {
		// The broader code was already selected; the upgrade collapses
		// into it, but a dropped from-code is still audited.
		if hadFrom {
			r.Audit = append(r.Audit, AuditEntry{RuleID: ruleID, Action: ActionUpgrade, Code: to, FromCode: from, Detail: detail})
		}
		return
	}
	r.codes[to] = struct{}{}
	r.Audit = append(r.Audit, AuditEntry{RuleID: ruleID, Action: ActionUpgrade, Code: to, FromCode: from, Detail: detail})
}

// Warn appends a non-fatal warning.
func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Codes returns the current set in sorted order.
func (r *Result) Codes() []string {
	out := make([]string, 0, len(r.codes))
	for c := range r.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Len returns the current set size.
func (r *Result) Len() int { return len(r.codes) }
