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

import (
	"context"
	"slices"
	"testing"
)

func TestHeuristicPredictorDifficulty(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCodes []string
		wantDiff  Difficulty
	}{
		{
			"multiple strong hits",
			"EBUS with transbronchial needle aspiration of stations 4R and 7",
			[]string{"31628", "31652", "31629"},
			HighConf,
		},
		{
			"single weak hit",
			"possible dilation of the stenotic segment",
			[]string{"31630"},
			GrayZone,
		},
		{
			"no hits",
			"patient tolerated the procedure well",
			nil,
			LowConf,
		},
	}
	var p HeuristicPredictor
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pred, err := p.Predict(context.Background(), tc.text)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if pred.Difficulty != tc.wantDiff {
				t.Errorf("difficulty = %s, want %s", pred.Difficulty, tc.wantDiff)
			}
			got := pred.Codes()
			slices.Sort(got)
			want := slices.Clone(tc.wantCodes)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Errorf("codes = %v, want %v", got, want)
			}
		})
	}
}

func TestHeuristicPredictorOrdersByScore(t *testing.T) {
	var p HeuristicPredictor
	pred, err := p.Predict(context.Background(), "transbronchial biopsy after balloon dilation")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(pred.Candidates); i++ {
		if pred.Candidates[i].Probability > pred.Candidates[i-1].Probability {
			t.Errorf("candidates not sorted by score: %+v", pred.Candidates)
		}
	}
}
