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
	"sort"
	"strings"
)

// Predictor produces model candidates and a difficulty tag for a note.
// Implementations own their transport, retry, and timeout policy; the
// orchestrator only propagates the context.
type Predictor interface {
	Predict(ctx context.Context, text string) (Prediction, error)
}

// HeuristicPredictor is an offline keyword-scoring predictor. It exists
// so the engine runs end to end without a model service; production
// deployments inject a real model client instead.
type HeuristicPredictor struct{}

// keywordCodes maps note keywords to candidate codes with a coarse
// confidence. Scores are heuristic, not calibrated probabilities.
var keywordCodes = []struct {
	keyword string
	code    string
	score   float64
}{
	{"brushing", "31623", 0.7},
	{"lavage", "31624", 0.7},
	{"endobronchial biopsy", "31625", 0.8},
	{"transbronchial", "31628", 0.8},
	{"needle aspiration", "31629", 0.7},
	{"ebus", "31652", 0.75},
	{"stent", "31636", 0.7},
	{"dilation", "31630", 0.6},
	{"therapeutic aspiration", "31645", 0.8},
	{"navigation", "31627", 0.65},
	{"radial", "31654", 0.6},
	{"fiducial", "31626", 0.7},
}

// Predict scores keyword hits and derives difficulty from the aggregate:
// strong multi-keyword notes are HIGH_CONF, single weak hits are
// GRAY_ZONE, and no hits at all is LOW_CONF.
func (HeuristicPredictor) Predict(_ context.Context, text string) (Prediction, error) {
	lower := strings.ToLower(text)
	seen := make(map[string]float64)
	for _, kc := range keywordCodes {
		if !strings.Contains(lower, kc.keyword) {
			continue
		}
		if kc.score > seen[kc.code] {
			seen[kc.code] = kc.score
		}
	}

	pred := Prediction{}
	total := 0.0
	for code, score := range seen {
		pred.Candidates = append(pred.Candidates, ScoredCode{Code: code, Probability: score})
		total += score
	}
	sort.Slice(pred.Candidates, func(i, j int) bool {
		if pred.Candidates[i].Probability != pred.Candidates[j].Probability {
			return pred.Candidates[i].Probability > pred.Candidates[j].Probability
		}
		return pred.Candidates[i].Code < pred.Candidates[j].Code
	})

	switch {
	case len(pred.Candidates) == 0:
		pred.Difficulty = LowConf
	case total >= 1.4:
		pred.Difficulty = HighConf
	default:
		pred.Difficulty = GrayZone
	}
	return pred, nil
}
