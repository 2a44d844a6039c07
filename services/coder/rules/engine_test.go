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
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianCoder/services/coder/evidence"
	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	tables, err := knowledge.NewTables(knowledge.EmbeddedRulebook, nil)
	if err != nil {
		t.Fatalf("build tables: %v", err)
	}
	return NewEngine(StaticTables{Tables: tables})
}

func mustContext(t *testing.T, in evidence.Input) *evidence.Context {
	t.Helper()
	ec, err := evidence.NewContext(in)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ec
}

func ebusInput(stationCount int, text string) evidence.Input {
	return evidence.Input{
		Groups: []string{"ebus_sampling"},
		Evidence: map[string]evidence.Attributes{
			"ebus_sampling": {
				"term_present":    true,
				"needle_sampling": true,
				"station_count":   stationCount,
			},
		},
		Text: text,
	}
}

func mustAccept(t *testing.T, out Outcome) *Result {
	t.Helper()
	if !out.Ok() {
		t.Fatalf("expected Accepted outcome, got conflict: %+v", out.Conflict)
	}
	return out.Result
}

func TestStationCountSelectsManyTier(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, ebusInput(3, "ebus with tbna of three stations"))

	result := mustAccept(t, e.Apply(ec, []string{"31652", "31653"}, Strict))
	if got := result.Codes(); !slices.Equal(got, []string{"31653"}) {
		t.Errorf("codes = %v, want [31653]", got)
	}
	if reason, ok := result.RemovalReasons["31652"]; !ok || !strings.Contains(reason, "threshold") {
		t.Errorf("removal reason for 31652 = %q", reason)
	}
}

func TestStationCountKeepsLowerTier(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, ebusInput(2, "ebus with tbna of stations 4r and 7"))

	result := mustAccept(t, e.Apply(ec, []string{"31652", "31653"}, Strict))
	if got := result.Codes(); !slices.Equal(got, []string{"31652"}) {
		t.Errorf("codes = %v, want [31652]", got)
	}
}

func TestStationCountMismatchWarnsWithoutRemoving(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, ebusInput(1, "ebus with tbna of station 7"))

	result := mustAccept(t, e.Apply(ec, []string{"31653"}, Lenient))
	if !result.Has("31653") {
		t.Fatal("the only selected tier must be kept on a count mismatch")
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "only 1") {
		t.Errorf("expected a count-mismatch warning, got %v", result.Warnings)
	}
}

func TestNoCountEvidenceDefaultsToLowerTier(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, ebusInput(0, "ebus with tbna performed"))

	result := mustAccept(t, e.Apply(ec, []string{"31652", "31653"}, Lenient))
	if got := result.Codes(); !slices.Equal(got, []string{"31652"}) {
		t.Errorf("codes = %v, want [31652]", got)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a no-count-evidence warning")
	}
}

func TestHierarchyUpgradeCascadesIntoCounting(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, ebusInput(4, "ebus-guided needle aspiration of stations 4r, 7, 10l and 11l"))

	// 31629 upgrades to 31652 on EBUS evidence, then the station count
	// upgrades the tier again.
	result := mustAccept(t, e.Apply(ec, []string{"31629"}, Strict))
	if got := result.Codes(); !slices.Equal(got, []string{"31653"}) {
		t.Errorf("codes = %v, want [31653]", got)
	}

	var upgrades []AuditEntry
	for _, entry := range result.Audit {
		if entry.Action == ActionUpgrade {
			upgrades = append(upgrades, entry)
		}
	}
	if len(upgrades) != 2 {
		t.Fatalf("expected 2 upgrade audit entries, got %+v", result.Audit)
	}
	if upgrades[0].FromCode != "31629" || upgrades[0].Code != "31652" {
		t.Errorf("first upgrade = %+v", upgrades[0])
	}
	if upgrades[1].FromCode != "31652" || upgrades[1].Code != "31653" {
		t.Errorf("second upgrade = %+v", upgrades[1])
	}
}

func TestGateRemovesUnsupportedStentCodes(t *testing.T) {
	e := testEngine(t)
	// Stent terms detected but no placement action: the whole stent family
	// goes, add-on included.
	ec := mustContext(t, evidence.Input{
		Groups: []string{"stent_placement"},
		Evidence: map[string]evidence.Attributes{
			"stent_placement": {
				"term_present": true,
				"negated":      false,
			},
		},
		Text: "stent discussed with the patient; none placed",
	})

	result := mustAccept(t, e.Apply(ec, []string{"31631", "31636", "31637"}, Strict))
	if result.Len() != 0 {
		t.Errorf("codes = %v, want empty set", result.Codes())
	}
	for _, code := range []string{"31631", "31636", "31637"} {
		reason, ok := result.RemovalReasons[code]
		if !ok || !strings.Contains(reason, "stent_placement") {
			t.Errorf("removal reason for %s = %q", code, reason)
		}
	}
	// Gate removals are ordinary corrections, not decision ambiguities.
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestGateRemovesCodesForUndetectedGroup(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, evidence.Input{
		Groups: []string{"ebus_sampling"},
		Evidence: map[string]evidence.Attributes{
			"ebus_sampling": {"term_present": true, "needle_sampling": true, "station_count": 1},
		},
		Text: "ebus tbna of station 7, no marker placement",
	})

	// 31626 cannot survive without fiducial_marker evidence no matter how
	// it entered the candidate set.
	result := mustAccept(t, e.Apply(ec, []string{"31626", "31652"}, Strict))
	if got := result.Codes(); !slices.Equal(got, []string{"31652"}) {
		t.Errorf("codes = %v, want [31652]", got)
	}
}

func TestExclusiveFlagPairConflictsInStrict(t *testing.T) {
	e := testEngine(t)
	stentInput := evidence.Input{
		Groups: []string{"stent_placement"},
		Evidence: map[string]evidence.Attributes{
			"stent_placement": {
				"term_present":     true,
				"placement_action": true,
				"location_present": true,
			},
		},
		Text: "stent deployed in the bronchus intermedius",
	}
	ec := mustContext(t, stentInput)

	out := e.Apply(ec, []string{"31631", "31636"}, Strict)
	if out.Ok() {
		t.Fatalf("expected conflict, got codes %v", out.Result.Codes())
	}
	if out.Conflict.RuleID != "mutual_exclusion" {
		t.Errorf("conflict rule = %q", out.Conflict.RuleID)
	}
	if !slices.Contains(out.Conflict.Codes, "31631") || !slices.Contains(out.Conflict.Codes, "31636") {
		t.Errorf("conflict codes = %v", out.Conflict.Codes)
	}

	// The same evaluation in lenient mode resolves by default and warns.
	result := mustAccept(t, e.Apply(ec, []string{"31631", "31636"}, Lenient))
	if got := result.Codes(); !slices.Equal(got, []string{"31636"}) {
		t.Errorf("lenient codes = %v, want [31636]", got)
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "review") {
		t.Errorf("expected a review warning, got %v", result.Warnings)
	}
}

func TestExclusiveFlagPairKeywordWinner(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, evidence.Input{
		Groups: []string{"stent_placement"},
		Evidence: map[string]evidence.Attributes{
			"stent_placement": {
				"term_present":     true,
				"placement_action": true,
				"location_present": true,
			},
		},
		Text: "stent deployed in the mid trachea",
	})

	result := mustAccept(t, e.Apply(ec, []string{"31631", "31636"}, Lenient))
	if got := result.Codes(); !slices.Equal(got, []string{"31631"}) {
		t.Errorf("codes = %v, want tracheal stent [31631]", got)
	}
}

func TestNCCIBundlingAndSitePriority(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, evidence.Input{
		Groups: []string{"biopsy"},
		Text:   "transbronchial biopsies of the right lower lobe were obtained",
	})

	result := mustAccept(t, e.Apply(ec, []string{"31622", "31625", "31628"}, Strict))
	if got := result.Codes(); !slices.Equal(got, []string{"31628"}) {
		t.Errorf("codes = %v, want [31628]", got)
	}
	if reason := result.RemovalReasons["31622"]; !strings.Contains(reason, "bundled into") {
		t.Errorf("31622 removal reason = %q", reason)
	}
	// 31625 survives bundling (modifier-allowed edit) and falls to site
	// priority instead.
	if reason := result.RemovalReasons["31625"]; !strings.Contains(reason, "site priority") {
		t.Errorf("31625 removal reason = %q", reason)
	}
}

func TestDomainFilterDropsUnknownCodes(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, evidence.Input{
		Groups: []string{"diagnostic"},
		Text:   "diagnostic bronchoscopy with washings",
	})

	result := mustAccept(t, e.Apply(ec, []string{"31622", "99999"}, Strict))
	if got := result.Codes(); !slices.Equal(got, []string{"31622"}) {
		t.Errorf("codes = %v, want [31622]", got)
	}
	var found bool
	for _, entry := range result.Audit {
		if entry.RuleID == "domain_filter" && entry.Code == "99999" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing domain_filter audit entry: %+v", result.Audit)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("domain filtering must not warn: %v", result.Warnings)
	}
}

func TestNormalizedFormsCollapse(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, evidence.Input{
		Groups:            []string{"navigation"},
		Evidence:          map[string]evidence.Attributes{"navigation": {"term_present": true}},
		NavigationSignals: []string{"electromagnetic"},
		Text:              "electromagnetic navigation bronchoscopy to the nodule",
	})

	result := mustAccept(t, e.Apply(ec, []string{"+31627", "31627", "31622"}, Strict))
	if got := result.Codes(); !slices.Equal(got, []string{"31622", "31627"}) {
		t.Errorf("codes = %v, want plain and add-on forms collapsed", got)
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, ebusInput(3, "ebus with tbna of stations 4r, 7 and 11l"))
	candidates := []string{"31653", "31622", "31652", "31629"}

	first := mustAccept(t, e.Apply(ec, candidates, Lenient))
	second := mustAccept(t, e.Apply(ec, candidates, Lenient))

	if !slices.Equal(first.Codes(), second.Codes()) {
		t.Errorf("code sets diverged: %v vs %v", first.Codes(), second.Codes())
	}
	if !reflect.DeepEqual(first.Audit, second.Audit) {
		t.Errorf("audit logs diverged:\n%+v\n%+v", first.Audit, second.Audit)
	}
	if !slices.Equal(first.Warnings, second.Warnings) {
		t.Errorf("warnings diverged: %v vs %v", first.Warnings, second.Warnings)
	}
}

func TestEmptyCandidatesAcceptEmpty(t *testing.T) {
	e := testEngine(t)
	ec := mustContext(t, evidence.Input{
		Groups: []string{"diagnostic"},
		Text:   "airway inspection only",
	})

	result := mustAccept(t, e.Apply(ec, nil, Strict))
	if result.Len() != 0 {
		t.Errorf("codes = %v, want empty", result.Codes())
	}
}

const dualFlagRulebook = `
codes:
  - {code: "31622", value: 2.78}
  - {code: "31623", value: 2.88}
  - {code: "31624", value: 2.88}
  - {code: "31625", value: 3.36}
exclusive_pairs:
  - {a: "31622", b: "31623", on_conflict: "flag", default: "a"}
  - {a: "31624", b: "31625", on_conflict: "flag", default: "b"}
`

func TestLenientWarnsEveryFlaggedPair(t *testing.T) {
	tables, err := knowledge.NewTables([]byte(dualFlagRulebook), nil)
	if err != nil {
		t.Fatalf("build tables: %v", err)
	}
	e := NewEngine(StaticTables{Tables: tables})
	ec := mustContext(t, evidence.Input{
		Groups: []string{"bronchoscopy"},
		Text:   "both flagged pairs are present",
	})
	candidates := []string{"31622", "31623", "31624", "31625"}

	result := mustAccept(t, e.Apply(ec, candidates, Lenient))
	if got := result.Codes(); !slices.Equal(got, []string{"31622", "31625"}) {
		t.Errorf("codes = %v, want [31622 31625]", got)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("warnings = %v, want one per flagged pair", result.Warnings)
	}
	for _, w := range result.Warnings {
		if !strings.Contains(w, "require review") {
			t.Errorf("warning %q does not mention review", w)
		}
	}

	out := e.Apply(ec, candidates, Strict)
	if out.Ok() {
		t.Fatal("expected conflict outcome in strict mode")
	}
	if got := out.Conflict.Codes; !slices.Equal(got, []string{"31622", "31623"}) {
		t.Errorf("conflict codes = %v, want the first flagged pair", got)
	}
}
