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
	"log/slog"
	"slices"

	"github.com/AleutianAI/AleutianCoder/services/coder/evidence"
)

// Shadow runs two evaluation strategies over the same input and logs any
// divergence. The primary's outcome is always the one returned, so
// wrapping an engine in a Shadow never changes caller-visible behavior.
// Used when trialing a replacement evaluator against the production one.
type Shadow struct {
	Primary   Evaluator
	Secondary Evaluator
	Logger    *slog.Logger
}

// NewShadow builds the decorator. Logger may be nil.
func NewShadow(primary, secondary Evaluator, logger *slog.Logger) *Shadow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shadow{Primary: primary, Secondary: secondary, Logger: logger}
}

// Apply evaluates both strategies and returns the primary outcome.
func (s *Shadow) Apply(ec *evidence.Context, candidates []string, mode Mode) Outcome {
	primary := s.Primary.Apply(ec, candidates, mode)
	secondary := s.Secondary.Apply(ec, candidates, mode)
	s.diff(primary, secondary, mode)
	return primary
}

func (s *Shadow) diff(primary, secondary Outcome, mode Mode) {
	if primary.Ok() != secondary.Ok() {
		s.Logger.Warn("shadow evaluation diverged on outcome variant",
			"mode", mode.String(),
			"primary_ok", primary.Ok(),
			"secondary_ok", secondary.Ok())
		return
	}
	if !primary.Ok() {
		return
	}
	pCodes := primary.Result.Codes()
	sCodes := secondary.Result.Codes()
	if !slices.Equal(pCodes, sCodes) {
		s.Logger.Warn("shadow evaluation diverged on code set",
			"mode", mode.String(),
			"primary_codes", pCodes,
			"secondary_codes", sCodes)
		return
	}
	if len(primary.Result.Audit) != len(secondary.Result.Audit) {
		s.Logger.Info("shadow evaluation diverged on audit length",
			"mode", mode.String(),
			"primary_audit", len(primary.Result.Audit),
			"secondary_audit", len(secondary.Result.Audit))
	}
}
