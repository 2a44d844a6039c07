// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bundling

import (
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
)

const rulebookSrc = `
codes:
  - {code: "31622", description: "diagnostic", value: 2.78}
  - {code: "31623", description: "brushing", value: 2.88}
  - {code: "31625", description: "endobronchial biopsy", value: 3.36}
  - {code: "31628", description: "transbronchial biopsy", value: 3.80}
  - {code: "31645", description: "therapeutic aspiration", value: 2.88}
  - {code: "31652", description: "ebus few stations", value: 4.46}
  - {code: "+31627", description: "navigation add-on", value: 2.00, addon: true}
ncci_pairs:
  - {primary: "31623", secondary: "31622", modifier_allowed: false, reason: "diagnostic included in brushing"}
  - {primary: "31628", secondary: "31625", modifier_allowed: true, reason: "distinct site modifier applies"}
  - {primary: "31645", secondary: "31622", modifier_allowed: false}
mer_groups:
  - name: "bronchoscopy"
    base: "31622"
    codes: ["31622", "31623", "31625", "31628", "31645", "31652", "+31627"]
`

func testTables(t *testing.T) *knowledge.Tables {
	t.Helper()
	tables, err := knowledge.NewTables([]byte(rulebookSrc), nil)
	if err != nil {
		t.Fatalf("NewTables: %v", err)
	}
	return tables
}

func TestResolveNCCIBundlesSecondary(t *testing.T) {
	tables := testTables(t)

	removals := ResolveNCCI([]string{"31622", "31623"}, tables)
	if len(removals) != 1 {
		t.Fatalf("removals = %+v, want exactly one", removals)
	}
	rm := removals[0]
	if rm.Code != "31622" || rm.Primary != "31623" {
		t.Errorf("removal = %+v", rm)
	}
	if !strings.Contains(rm.Reason, "bundled into 31623") {
		t.Errorf("reason = %q", rm.Reason)
	}
	if !strings.Contains(rm.Reason, "diagnostic included in brushing") {
		t.Errorf("reason must carry the pair's configured text: %q", rm.Reason)
	}
}

func TestResolveNCCIDefaultReason(t *testing.T) {
	tables := testTables(t)
	removals := ResolveNCCI([]string{"31645", "31622"}, tables)
	if len(removals) != 1 || removals[0].Reason != "bundled into 31645" {
		t.Errorf("removals = %+v", removals)
	}
}

func TestResolveNCCISkipsModifierAllowedPairs(t *testing.T) {
	tables := testTables(t)
	if removals := ResolveNCCI([]string{"31628", "31625"}, tables); len(removals) != 0 {
		t.Errorf("modifier-allowed pair must not bundle: %+v", removals)
	}
}

func TestResolveNCCIRequiresBothPresent(t *testing.T) {
	tables := testTables(t)
	if removals := ResolveNCCI([]string{"31622"}, tables); len(removals) != 0 {
		t.Errorf("secondary alone must not bundle: %+v", removals)
	}
	if removals := ResolveNCCI([]string{"31623"}, tables); len(removals) != 0 {
		t.Errorf("primary alone must not bundle: %+v", removals)
	}
}

func TestResolveNCCIIgnoresMalformedInput(t *testing.T) {
	tables := testTables(t)
	removals := ResolveNCCI([]string{"31623", "+31622", "junk", ""}, tables)
	// "+31622" normalizes into the pair's secondary; junk entries drop out.
	if len(removals) != 1 || removals[0].Code != "31622" {
		t.Errorf("removals = %+v", removals)
	}
}

func TestResolveNCCIDoesNotMutateInput(t *testing.T) {
	tables := testTables(t)
	present := []string{"31622", "31623"}
	ResolveNCCI(present, tables)
	if present[0] != "31622" || present[1] != "31623" {
		t.Errorf("input mutated: %v", present)
	}
}
