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
	"log/slog"
	"slices"
	"time"

	"github.com/AleutianAI/AleutianCoder/services/coder/evidence"
	"github.com/AleutianAI/AleutianCoder/services/coder/expand"
	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
	"github.com/AleutianAI/AleutianCoder/services/coder/rules"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("aleutian.coder.hybrid")

// Orchestrator is the two-tier decision gate:
//
//	START -> PREDICT -> (FASTPATH_VALIDATE | FALLBACK) -> DONE
//
// HIGH_CONF predictions take the fast path (candidate expansion, then
// strict rule validation); everything else, including a strict-mode
// conflict, goes to the fallback arbiter exactly once, followed by
// lenient validation of the arbiter's output. One DecisionRecord is
// emitted per call. The orchestrator is stateless across calls.
type Orchestrator struct {
	predictor Predictor
	arbiter   AdvisoryArbiter
	engine    rules.Evaluator
	recorder  Recorder
	logger    *slog.Logger
}

// Config wires the orchestrator's collaborators. Predictor, Arbiter, and
// Engine are required; Recorder and Logger default to no-op and
// slog.Default.
type Config struct {
	Predictor Predictor
	Arbiter   AdvisoryArbiter
	Engine    rules.Evaluator
	Recorder  Recorder
	Logger    *slog.Logger
}

// NewOrchestrator validates the wiring and builds an orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Predictor == nil {
		return nil, fmt.Errorf("%w: predictor", ErrMissingCollaborator)
	}
	if cfg.Arbiter == nil {
		return nil, fmt.Errorf("%w: arbiter", ErrMissingCollaborator)
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("%w: rule engine", ErrMissingCollaborator)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		predictor: cfg.Predictor,
		arbiter:   cfg.Arbiter,
		engine:    cfg.Engine,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
	}, nil
}

// Code runs one orchestration over an evidence snapshot.
//
// The returned error is non-nil only when the fallback arbiter itself
// fails; its failure is the caller's concern and propagates rather than
// being swallowed. Every other degradation (predictor failure, empty
// arbiter output) resolves to the best-known candidate set.
func (o *Orchestrator) Code(ctx context.Context, ec *evidence.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Code",
		trace.WithAttributes(attribute.Int("coder.candidate_count", len(ec.Candidates()))))
	defer span.End()
	start := time.Now()

	rec := DecisionRecord{ID: newDecisionID()}
	meta := Metadata{}

	// PREDICT. A predictor failure is a degradation, not a dead end: the
	// note is treated as LOW_CONF with no model candidates.
	pred, err := o.predictor.Predict(ctx, ec.Text())
	if err != nil {
		o.logger.Warn("model prediction failed, treating as low confidence", "error", err)
		meta.Warnings = append(meta.Warnings, fmt.Sprintf("prediction failed: %v", err))
		pred = Prediction{Difficulty: LowConf}
	}
	rec.Difficulty = pred.Difficulty
	meta.ModelCandidates = pred.Codes()
	meta.Predictions = pred.Candidates
	span.SetAttributes(attribute.String("coder.difficulty", string(pred.Difficulty)))

	var expanded []string
	fallbackReason := ""

	if pred.Difficulty == HighConf {
		// FASTPATH_VALIDATE: expansion, then strict validation.
		expanded = expand.Expand(ec.Text(), pred.Codes())
		outcome := o.engine.Apply(ec, expanded, rules.Strict)
		switch {
		case outcome.Ok() && outcome.Result.Len() > 0:
			meta.Candidates = buildCandidates(outcome.Result.Codes(), pred, nil, true,
				triggerPhrases(ec.Text(), pred.Codes()))
			res := o.finish(ctx, span, &rec, Result{
				Codes:      outcome.Result.Codes(),
				Source:     SourceFastpath,
				Difficulty: pred.Difficulty,
				Metadata:   withWarnings(meta, outcome.Result.Warnings),
			}, start)
			return res, nil
		case !outcome.Ok():
			fallbackReason = "rule_conflict: " + outcome.Conflict.Detail()
			rec.ConflictDetail = outcome.Conflict.Detail()
		default:
			// A strict run that strips every candidate is itself a conflict
			// between the model's prediction and the rule evidence.
			fallbackReason = "rule_conflict: empty_validated_set"
			rec.ConflictDetail = "empty_validated_set"
		}
	} else {
		fallbackReason = "difficulty: " + string(pred.Difficulty)
	}

	// FALLBACK: exactly one arbiter call; its error propagates.
	meta.FallbackReason = fallbackReason
	advice := Advice{Candidates: pred.Candidates, Difficulty: pred.Difficulty, Reason: fallbackReason}
	rec.ArbiterCalls = 1
	arbiterCodes, err := o.arbiter.DecideWithAdvice(ctx, ec.Text(), advice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rec.Source = SourceFallback
		rec.Elapsed = time.Since(start)
		o.recorder.Record(ctx, rec)
		return nil, fmt.Errorf("fallback arbiter: %w", err)
	}

	final, rulesModified, validated, warnings := o.cleanFallback(ec, arbiterCodes, pred, expanded, &meta)
	meta.RulesModified = rulesModified
	meta.Candidates = buildCandidates(final, pred, arbiterCodes, validated, nil)

	res := o.finish(ctx, span, &rec, Result{
		Codes:      final,
		Source:     SourceFallback,
		Difficulty: pred.Difficulty,
		Metadata:   withWarnings(meta, warnings),
	}, start)
	return res, nil
}

// cleanFallback applies lenient validation to the arbiter's output, or
// degrades to the best available prior candidate set when the arbiter
// returned nothing: lenient-cleaned model candidates, else the expanded
// set, else the raw model candidates. validated reports whether the
// returned set passed through rule evaluation.
func (o *Orchestrator) cleanFallback(ec *evidence.Context, arbiterCodes []string,
	pred Prediction, expanded []string, meta *Metadata) (final []string, rulesModified, validated bool, warnings []string) {

	if len(arbiterCodes) > 0 {
		outcome := o.engine.Apply(ec, arbiterCodes, rules.Lenient)
		final = outcome.Result.Codes()
		rulesModified = !slices.Equal(final, normalizedSorted(arbiterCodes))
		return final, rulesModified, true, outcome.Result.Warnings
	}

	meta.Warnings = append(meta.Warnings, "arbiter returned no codes, degrading to prior candidates")
	if len(pred.Candidates) > 0 {
		outcome := o.engine.Apply(ec, pred.Codes(), rules.Lenient)
		if outcome.Result.Len() > 0 {
			return outcome.Result.Codes(), true, true, outcome.Result.Warnings
		}
	}
	if len(expanded) > 0 {
		return slices.Clone(expanded), false, false, nil
	}
	return pred.Codes(), false, false, nil
}

// finish stamps the record, emits telemetry once, and returns the result.
func (o *Orchestrator) finish(ctx context.Context, span traceSpan, rec *DecisionRecord,
	res Result, start time.Time) *Result {

	rec.Source = res.Source
	rec.CodeCount = len(res.Codes)
	rec.Elapsed = time.Since(start)
	span.SetAttributes(
		attribute.String("coder.source", string(res.Source)),
		attribute.Int("coder.codes", len(res.Codes)),
	)
	o.recorder.Record(ctx, *rec)
	return &res
}

// traceSpan is the slice of the OTel span API finish needs; it keeps the
// helper testable without a tracer provider.
type traceSpan interface {
	SetAttributes(...attribute.KeyValue)
}

func withWarnings(meta Metadata, warnings []string) Metadata {
	meta.Warnings = append(meta.Warnings, warnings...)
	return meta
}

// triggerPhrases maps each code expansion would add to the anchor phrase
// that produced it.
func triggerPhrases(text string, candidates []string) map[string]string {
	adds := expand.Additions(text, candidates)
	if len(adds) == 0 {
		return nil
	}
	out := make(map[string]string, len(adds))
	for _, a := range adds {
		out[a.Code] = a.Phrase
	}
	return out
}

// buildCandidates merges each final code's model probability with the
// validation verdict. Codes the arbiter proposed are tagged "arbiter",
// model predictions "model", anchor expansions "expanded", and anything a
// rule introduced "rules".
func buildCandidates(final []string, pred Prediction, arbiterCodes []string,
	validated bool, triggers map[string]string) []Candidate {

	probs := make(map[string]float64, len(pred.Candidates))
	for _, sc := range pred.Candidates {
		if code, ok := knowledge.NormalizeCode(sc.Code); ok {
			probs[code] = sc.Probability
		}
	}
	fromArbiter := make(map[string]struct{}, len(arbiterCodes))
	for _, raw := range arbiterCodes {
		if code, ok := knowledge.NormalizeCode(raw); ok {
			fromArbiter[code] = struct{}{}
		}
	}

	out := make([]Candidate, 0, len(final))
	for _, code := range final {
		prob, fromModel := probs[code]
		c := Candidate{Code: code, ModelConfidence: prob}
		if validated {
			c.RuleConfidence = 1
		}
		phrase, fromExpansion := triggers[code]
		_, arb := fromArbiter[code]
		switch {
		case arb:
			c.DecisionTag = "arbiter"
		case fromModel:
			c.DecisionTag = "model"
		case fromExpansion:
			c.DecisionTag = "expanded"
			c.TriggerPhrases = []string{phrase}
		default:
			c.DecisionTag = "rules"
		}
		out = append(out, c)
	}
	return out
}

// normalizedSorted mirrors the Result's storage form so the
// rules-modified comparison is apples to apples.
func normalizedSorted(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, raw := range codes {
		code, ok := knowledge.NormalizeCode(raw)
		if !ok {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}
