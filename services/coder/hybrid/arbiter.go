// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hybrid

import "context"

// Advice is the advisory context handed to a capable arbiter. The
// arbiter is the authority and is free to ignore it.
type Advice struct {
	Candidates []ScoredCode
	Difficulty Difficulty
	Reason     string
}

// Arbiter is the basic fallback capability: return a code list for a
// note. Failures propagate to the caller; the orchestrator never
// swallows an arbiter error.
type Arbiter interface {
	Decide(ctx context.Context, text string) ([]string, error)
}

// AdvisoryArbiter additionally accepts the model's advisory context.
// The orchestrator always talks to this interface; a basic Arbiter is
// lifted with NewAdvisoryAdapter rather than probed at runtime.
type AdvisoryArbiter interface {
	Arbiter
	DecideWithAdvice(ctx context.Context, text string, advice Advice) ([]string, error)
}

// advisoryAdapter provides the context-aware method for a basic Arbiter
// by discarding the advice.
type advisoryAdapter struct {
	Arbiter
}

// NewAdvisoryAdapter lifts a basic Arbiter to the advisory interface.
// Returns its argument unchanged when the capability is already there.
func NewAdvisoryAdapter(a Arbiter) AdvisoryArbiter {
	if aa, ok := a.(AdvisoryArbiter); ok {
		return aa
	}
	return advisoryAdapter{Arbiter: a}
}

func (a advisoryAdapter) DecideWithAdvice(ctx context.Context, text string, _ Advice) ([]string, error) {
	return a.Decide(ctx, text)
}
