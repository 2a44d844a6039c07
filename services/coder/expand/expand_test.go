// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package expand

import (
	"slices"
	"testing"
)

func TestExpandAnchors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"fiducial marker placed",
			"a fiducial marker was placed in the right upper lobe",
			[]string{"31626"},
		},
		{
			"plain markers placed",
			"two markers were placed under fluoroscopic guidance",
			[]string{"31626"},
		},
		{
			"marker placement negated",
			"we were unable to place the fiducial marker; no markers placed",
			nil,
		},
		{
			"balloon with dilation corroboration",
			"a balloon was advanced and dilation of the stenosis performed",
			[]string{"31630"},
		},
		{
			"balloon without corroboration",
			"the balloon catheter was inspected and set aside",
			nil,
		},
		{
			"therapeutic aspiration",
			"therapeutic aspiration of retained secretions was performed",
			[]string{"31645"},
		},
		{
			"ebus with station corroboration",
			"ebus was performed with needle aspiration of stations 4r and 7",
			[]string{"31652"},
		},
		{
			"ebus airway survey only",
			"ebus used to survey the airway anatomy",
			nil,
		},
		{
			"ebus negated",
			"we did not perform ebus needle sampling of stations",
			nil,
		},
		{
			"no anchors",
			"diagnostic bronchoscopy with washings, no interventions",
			nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Expand(tc.text, nil)
			if !slices.Equal(got, tc.want) {
				t.Errorf("Expand(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestExpandOnlyAdds(t *testing.T) {
	candidates := []string{"31622", "31653"}
	got := Expand("a fiducial marker was placed near the lesion", candidates)

	for _, c := range candidates {
		if !slices.Contains(got, c) {
			t.Errorf("input candidate %s dropped: %v", c, got)
		}
	}
	if !slices.Contains(got, "31626") {
		t.Errorf("anchored code missing: %v", got)
	}
	// The caller's slice stays untouched.
	if !slices.Equal(candidates, []string{"31622", "31653"}) {
		t.Errorf("input mutated: %v", candidates)
	}
}

func TestExpandIsFixedPoint(t *testing.T) {
	text := "ebus with tbna of stations 4r, 7 and 11l; a fiducial marker was placed"
	once := Expand(text, []string{"31622"})
	twice := Expand(text, once)
	if !slices.Equal(once, twice) {
		t.Errorf("not a fixed point: %v then %v", once, twice)
	}
}

func TestExpandDoesNotDuplicatePresentCodes(t *testing.T) {
	got := Expand("therapeutic aspiration performed", []string{"31645"})
	if !slices.Equal(got, []string{"31645"}) {
		t.Errorf("got %v, want single 31645", got)
	}
}

func TestAdditionsReportAnchorPhrase(t *testing.T) {
	adds := Additions("therapeutic aspiration of retained secretions was performed", nil)
	if len(adds) != 1 {
		t.Fatalf("additions = %+v, want exactly one", adds)
	}
	if adds[0].Code != "31645" || adds[0].Phrase != "therapeutic aspiration" {
		t.Errorf("addition = %+v, want 31645 with its anchor phrase", adds[0])
	}
}
