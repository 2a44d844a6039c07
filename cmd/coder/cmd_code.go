// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/AleutianCoder/pkg/logging"
	"github.com/AleutianAI/AleutianCoder/services/coder/bundling"
	"github.com/AleutianAI/AleutianCoder/services/coder/evidence"
	"github.com/AleutianAI/AleutianCoder/services/coder/hybrid"
	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
	"github.com/AleutianAI/AleutianCoder/services/coder/rules"
	"github.com/AleutianAI/AleutianCoder/services/llm"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"
)

// evidenceFile is the YAML shape of an extracted-evidence file.
type evidenceFile struct {
	Groups             []string                  `yaml:"groups"`
	Evidence           map[string]map[string]any `yaml:"evidence"`
	Registry           map[string]any            `yaml:"registry"`
	Candidates         []string                  `yaml:"candidates"`
	NavigationSignals  []string                  `yaml:"navigation_signals"`
	RadialProbeSignals []string                  `yaml:"radial_probe_signals"`
}

func runCode(cmd *cobra.Command, args []string) {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(config.Logging.Level),
		LogDir:  config.Logging.LogDir,
		JSON:    config.Logging.JSON,
		Service: "coder",
	})
	defer logger.Close()

	note, err := os.ReadFile(notePath)
	if err != nil {
		fail("read note: %v", err)
	}

	provider, err := knowledge.NewProvider(config.Knowledge.OverridePath, logger.Slog())
	if err != nil {
		fail("knowledge tables: %v", err)
	}
	engine := rules.NewEngine(provider, rules.WithLogger(logger.Slog()))

	input, err := loadEvidenceInput(string(note))
	if err != nil {
		fail("evidence: %v", err)
	}
	ec, err := evidence.NewContext(input)
	if err != nil {
		fail("evidence: %v", err)
	}

	ctx := context.Background()

	if strictOnly {
		outcome := engine.Apply(ec, input.Candidates, rules.Strict)
		printJSON(map[string]any{
			"ok":       outcome.Ok(),
			"conflict": outcome.Conflict,
			"codes":    outcomeCodes(outcome),
			"audit":    outcomeAudit(outcome),
		})
		return
	}

	arbiter, err := buildArbiter(provider)
	if err != nil {
		fail("arbiter: %v", err)
	}
	recorder, err := hybrid.NewMetrics(otel.Meter("aleutian.coder"), logger.Slog())
	if err != nil {
		fail("telemetry: %v", err)
	}

	orch, err := hybrid.NewOrchestrator(hybrid.Config{
		Predictor: hybrid.HeuristicPredictor{},
		Arbiter:   arbiter,
		Engine:    engine,
		Recorder:  recorder,
		Logger:    logger.Slog(),
	})
	if err != nil {
		fail("orchestrator: %v", err)
	}

	result, err := orch.Code(ctx, ec)
	if err != nil {
		fail("coding decision: %v", err)
	}

	out := map[string]any{
		"result": result,
		"codes":  describeCodes(result.Codes, provider.Current()),
	}
	if showPricing {
		out["pricing"] = bundling.ResolveMER(result.Codes, provider.Current())
	}
	printJSON(out)
}

func runTables(cmd *cobra.Command, args []string) {
	logger := logging.Default()
	provider, err := knowledge.NewProvider(config.Knowledge.OverridePath, logger.Slog())
	if err != nil {
		fail("knowledge tables: %v", err)
	}
	tables := provider.Current()
	printJSON(map[string]any{
		"hash":       tables.Hash(),
		"pairs":      tables.Pairs(),
		"mer_groups": tables.MERGroupNames(),
	})
}

// codeLine is one row of the per-code display listing.
type codeLine struct {
	Code        string `json:"code"`
	Display     string `json:"display"`
	Description string `json:"description"`
}

func describeCodes(codes []string, tables *knowledge.Tables) []codeLine {
	out := make([]codeLine, 0, len(codes))
	for _, c := range codes {
		out = append(out, codeLine{
			Code:        c,
			Display:     tables.Display(c),
			Description: tables.Description(c),
		})
	}
	return out
}

// loadEvidenceInput reads the evidence YAML when provided and otherwise
// derives a minimal evidence record from the note heuristically. The
// heuristic path exists for local runs; production callers supply the
// extractor's output.
func loadEvidenceInput(note string) (evidence.Input, error) {
	if evidencePath == "" {
		return deriveEvidence(note), nil
	}
	raw, err := os.ReadFile(evidencePath)
	if err != nil {
		return evidence.Input{}, fmt.Errorf("read evidence file: %w", err)
	}
	var ef evidenceFile
	if err := yaml.Unmarshal(raw, &ef); err != nil {
		return evidence.Input{}, fmt.Errorf("parse evidence file: %w", err)
	}
	in := evidence.Input{
		Groups:             ef.Groups,
		Evidence:           make(map[string]evidence.Attributes, len(ef.Evidence)),
		Registry:           ef.Registry,
		Candidates:         ef.Candidates,
		NavigationSignals:  ef.NavigationSignals,
		RadialProbeSignals: ef.RadialProbeSignals,
		Text:               note,
	}
	for group, attrs := range ef.Evidence {
		in.Evidence[group] = evidence.Attributes(attrs)
	}
	return in, nil
}

// deriveEvidence builds a coarse evidence record from note keywords.
func deriveEvidence(note string) evidence.Input {
	lower := strings.ToLower(note)
	in := evidence.Input{
		Groups:   []string{"bronchoscopy"},
		Evidence: map[string]evidence.Attributes{},
		Text:     note,
	}
	addGroup := func(group string, attrs evidence.Attributes) {
		in.Groups = append(in.Groups, group)
		in.Evidence[group] = attrs
	}
	if strings.Contains(lower, "ebus") {
		addGroup("ebus_sampling", evidence.Attributes{
			"term_present":    true,
			"needle_sampling": strings.Contains(lower, "needle") || strings.Contains(lower, "tbna"),
			"negated":         false,
		})
	}
	if strings.Contains(lower, "stent") {
		addGroup("stent_placement", evidence.Attributes{
			"term_present":     true,
			"placement_action": strings.Contains(lower, "placed") || strings.Contains(lower, "deployed"),
			"location_present": strings.Contains(lower, "trachea") || strings.Contains(lower, "bronch"),
			"negated":          false,
		})
	}
	if strings.Contains(lower, "fiducial") {
		addGroup("fiducial_marker", evidence.Attributes{
			"term_present":     true,
			"placement_action": strings.Contains(lower, "placed"),
			"negated":          false,
		})
	}
	if strings.Contains(lower, "navigation") {
		addGroup("navigation", evidence.Attributes{"term_present": true})
		in.NavigationSignals = append(in.NavigationSignals, "navigation")
	}
	if strings.Contains(lower, "radial") {
		addGroup("radial_probe", evidence.Attributes{"term_present": true})
		in.RadialProbeSignals = append(in.RadialProbeSignals, "radial_probe")
	}
	return in
}

// buildArbiter selects the fallback backend from config. "none" returns
// an arbiter that yields no codes, which makes the orchestrator degrade
// to the best prior candidate set.
func buildArbiter(provider *knowledge.Provider) (hybrid.AdvisoryArbiter, error) {
	switch config.Arbiter.Backend {
	case "openai":
		client, err := llm.NewOpenAIClient()
		if err != nil {
			return nil, err
		}
		return hybrid.NewLLMArbiter(client, provider), nil
	case "ollama":
		client, err := llm.NewOllamaClient()
		if err != nil {
			return nil, err
		}
		return hybrid.NewLLMArbiter(client, provider), nil
	default:
		return hybrid.NewAdvisoryAdapter(noopArbiter{}), nil
	}
}

// noopArbiter is the "none" backend: it always returns an empty code
// list so the degradation chain decides.
type noopArbiter struct{}

func (noopArbiter) Decide(context.Context, string) ([]string, error) { return nil, nil }

func outcomeCodes(o rules.Outcome) []string {
	if !o.Ok() {
		return nil
	}
	return o.Result.Codes()
}

func outcomeAudit(o rules.Outcome) []rules.AuditEntry {
	if !o.Ok() {
		return nil
	}
	return o.Result.Audit
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("encode output: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
