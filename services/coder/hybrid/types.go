// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hybrid combines the model predictor's signal with deterministic
// rule validation and decides, per note, whether the fast path stands or
// the fallback arbiter must be consulted.
package hybrid

// Difficulty is the model's three-valued confidence tag for a note.
type Difficulty string

const (
	// HighConf notes take the fast path: expansion plus strict validation.
	HighConf Difficulty = "HIGH_CONF"

	// GrayZone notes go straight to the fallback arbiter.
	GrayZone Difficulty = "GRAY_ZONE"

	// LowConf notes go straight to the fallback arbiter.
	LowConf Difficulty = "LOW_CONF"
)

// Source tags which decision branch produced the final code set.
type Source string

const (
	// SourceFastpath means the rules-validated model output was accepted
	// without consulting the arbiter.
	SourceFastpath Source = "fastpath"

	// SourceFallback means the arbiter was consulted exactly once.
	SourceFallback Source = "fallback"
)

// ScoredCode is one model prediction.
type ScoredCode struct {
	Code        string  `json:"code"`
	Probability float64 `json:"probability"`
}

// Prediction is the model predictor's output for one note.
type Prediction struct {
	Candidates []ScoredCode `json:"candidates"`
	Difficulty Difficulty   `json:"difficulty"`
}

// Codes returns the predicted candidate codes in prediction order.
func (p Prediction) Codes() []string {
	out := make([]string, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		out = append(out, c.Code)
	}
	return out
}

// Candidate is one final code with its merged supporting signals, built
// after validation and folded into the result metadata. DecisionTag
// records where the code entered the decision: "model", "arbiter",
// "expanded" (anchor pattern, with the trigger phrase), or "rules"
// (introduced by a rule, an upgrade for example).
type Candidate struct {
	Code            string   `json:"code"`
	RuleConfidence  float64  `json:"rule_confidence"`
	ModelConfidence float64  `json:"model_confidence"`
	DecisionTag     string   `json:"decision_tag"`
	TriggerPhrases  []string `json:"trigger_phrases,omitempty"`
}

// Metadata is the per-decision metadata bag.
type Metadata struct {
	ModelCandidates []string     `json:"model_candidates"`
	Predictions     []ScoredCode `json:"predictions"`
	Candidates      []Candidate  `json:"candidates,omitempty"`
	FallbackReason  string       `json:"fallback_reason,omitempty"`
	RulesModified   bool         `json:"rules_modified"`
	Warnings        []string     `json:"warnings,omitempty"`
}

// Result is the final orchestration output. Immutable once returned:
// exactly one Source is set, and the arbiter was called zero times for
// fastpath, once for fallback.
type Result struct {
	Codes      []string   `json:"codes"`
	Source     Source     `json:"source"`
	Difficulty Difficulty `json:"difficulty"`
	Metadata   Metadata   `json:"metadata"`
}
