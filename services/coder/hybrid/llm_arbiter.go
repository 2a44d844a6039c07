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
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
	"github.com/AleutianAI/AleutianCoder/services/llm"
)

// LLMArbiter implements the advisory fallback arbiter on top of an LLM
// backend. The prompt asks for a bare code list; parsing extracts every
// five-digit code (with or without the add-on marker) from the reply and
// drops anything outside the valid set.
type LLMArbiter struct {
	client llm.Client
	source rulesTableSource
}

// rulesTableSource mirrors rules.TableSource without importing the rules
// package; the arbiter only needs code validity.
type rulesTableSource interface {
	Current() *knowledge.Tables
}

// NewLLMArbiter builds an arbiter over any llm.Client.
func NewLLMArbiter(client llm.Client, source rulesTableSource) *LLMArbiter {
	return &LLMArbiter{client: client, source: source}
}

var codeToken = regexp.MustCompile(`\+?\b\d{5}\b`)

// Decide implements the basic Arbiter capability.
func (a *LLMArbiter) Decide(ctx context.Context, text string) ([]string, error) {
	return a.DecideWithAdvice(ctx, text, Advice{})
}

// DecideWithAdvice implements the advisory capability. The advice is
// rendered into the prompt as context the model may ignore.
func (a *LLMArbiter) DecideWithAdvice(ctx context.Context, text string, advice Advice) ([]string, error) {
	prompt := a.buildPrompt(text, advice)
	maxTokens := 256
	reply, err := a.client.Generate(ctx, prompt, llm.GenerationParams{MaxTokens: &maxTokens})
	if err != nil {
		return nil, fmt.Errorf("arbiter generation failed: %w", err)
	}
	return a.parseCodes(reply), nil
}

func (a *LLMArbiter) buildPrompt(text string, advice Advice) string {
	var b strings.Builder
	b.WriteString("You are a certified medical coder reviewing a bronchoscopy procedure note.\n")
	b.WriteString("Return the complete CPT code set for the note, one code per line, nothing else.\n\n")
	if len(advice.Candidates) > 0 {
		b.WriteString("A screening model suggested the following candidates (advisory only):\n")
		for _, c := range advice.Candidates {
			fmt.Fprintf(&b, "  %s (p=%.2f)\n", c.Code, c.Probability)
		}
		if advice.Difficulty != "" {
			fmt.Fprintf(&b, "Screening difficulty: %s\n", advice.Difficulty)
		}
		if advice.Reason != "" {
			fmt.Fprintf(&b, "Referral reason: %s\n", advice.Reason)
		}
		b.WriteString("\n")
	}
	b.WriteString("Procedure note:\n")
	b.WriteString(text)
	return b.String()
}

// parseCodes extracts valid, normalized codes from the reply, deduplicated
// and sorted.
func (a *LLMArbiter) parseCodes(reply string) []string {
	tables := a.source.Current()
	seen := make(map[string]struct{})
	for _, token := range codeToken.FindAllString(reply, -1) {
		code, ok := knowledge.NormalizeCode(token)
		if !ok || !tables.IsValid(code) {
			continue
		}
		seen[code] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
