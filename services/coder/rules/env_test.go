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
	"testing"

	"github.com/AleutianAI/AleutianCoder/services/coder/evidence"
)

func TestGateEnvRegistryFallback(t *testing.T) {
	ec := mustContext(t, evidence.Input{
		Groups: []string{"procedure"},
		Evidence: map[string]evidence.Attributes{
			"procedure": {"term_present": true},
		},
		Registry: map[string]any{
			"procedure": map[string]any{"laterality": "left"},
		},
		Text: "bronchoscopy of the left mainstem",
	})
	env := gateEnv{ec: ec, group: "procedure"}

	if v, ok := env.Lookup("term_present"); !ok || v != true {
		t.Errorf("Lookup(term_present) = (%v, %v), want (true, true)", v, ok)
	}
	if v, ok := env.Lookup("procedure.laterality"); !ok || v != "left" {
		t.Errorf("Lookup(procedure.laterality) = (%v, %v), want (left, true)", v, ok)
	}
	if _, ok := env.Lookup("procedure.missing"); ok {
		t.Error("Lookup(procedure.missing) resolved, want a miss")
	}
	if _, ok := env.Lookup("absent"); ok {
		t.Error("Lookup(absent) resolved, want a miss")
	}
}
