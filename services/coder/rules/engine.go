// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules implements the ordered coding rule engine.
//
// Evaluation runs a fixed phase list over an immutable evidence snapshot,
// mutating a per-call Result. Phases are deliberately not independent:
// later phases read the effects of earlier ones (the domain filter always
// runs first, bundling sees the survivors of the evidence gates, and so
// on). Given the same snapshot and candidate set, two runs produce
// identical code sets and identical ordered audit logs.
package rules

import (
	"log/slog"

	"github.com/AleutianAI/AleutianCoder/services/coder/evidence"
	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
)

// TableSource supplies the current knowledge snapshot. knowledge.Provider
// satisfies it; tests use StaticTables.
type TableSource interface {
	Current() *knowledge.Tables
}

// StaticTables is a TableSource pinned to one snapshot.
type StaticTables struct{ Tables *knowledge.Tables }

// Current returns the pinned snapshot.
func (s StaticTables) Current() *knowledge.Tables { return s.Tables }

// Evaluator is the rule-evaluation contract. Engine is the production
// implementation; Shadow decorates two of them.
type Evaluator interface {
	Apply(ec *evidence.Context, candidates []string, mode Mode) Outcome
}

// PassContext carries the per-call state a phase operates on.
type PassContext struct {
	Evidence *evidence.Context
	Tables   *knowledge.Tables
	Result   *Result
	Mode     Mode
	Logger   *slog.Logger
}

// Phase is one ordered step of the evaluation. Apply mutates
// pc.Result and returns a non-nil Conflict only for an irreconcilable
// combination; the engine honors that return in strict mode only.
type Phase interface {
	ID() string
	Apply(pc *PassContext) *Conflict
}

// Engine evaluates the ordered phase list. It is stateless across calls:
// each Apply pins one table snapshot and builds a fresh Result, so
// concurrent evaluations need no locking.
type Engine struct {
	source  TableSource
	counter StationCounter
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCounter replaces the default station-counting strategy.
func WithCounter(c StationCounter) Option {
	return func(e *Engine) { e.counter = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an engine over a table source.
func NewEngine(source TableSource, opts ...Option) *Engine {
	e := &Engine{
		source:  source,
		counter: AttributeCounter{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// phases returns the evaluation order. The order is part of the engine
// contract: the domain filter must run first, and bundling must run after
// the evidence phases so it only sees surviving codes.
func (e *Engine) phases() []Phase {
	return []Phase{
		domainFilter{},
		hierarchyUpgrade{},
		evidenceGates{},
		stationCounting{counter: e.counter},
		mutualExclusion{},
		ncciBundling{},
		sitePriority{},
	}
}

// Apply evaluates the rule set over one evidence snapshot.
//
// In Strict mode an irreconcilable combination short-circuits into the
// Conflict variant. In Lenient mode every phase runs to completion and
// the outcome is always Accepted, with warnings standing in for whatever
// a strict run would have flagged. "No evidence found" is never a
// failure; it is an ordinary removal.
func (e *Engine) Apply(ec *evidence.Context, candidates []string, mode Mode) Outcome {
	tables := e.source.Current()
	pc := &PassContext{
		Evidence: ec,
		Tables:   tables,
		Result:   NewResult(candidates),
		Mode:     mode,
		Logger:   e.logger,
	}

	for _, phase := range e.phases() {
		conflict := phase.Apply(pc)
		if conflict == nil {
			continue
		}
		if mode == Strict {
			e.logger.Debug("rule conflict",
				"rule", conflict.RuleID,
				"codes", conflict.Codes,
				"mode", mode.String())
			return Conflicted(conflict)
		}
		// Lenient evaluation records the ambiguity and keeps going; the
		// phase has already applied its best-effort resolution.
		pc.Result.Warn(conflict.Detail())
	}

	e.logger.Debug("rule evaluation complete",
		"mode", mode.String(),
		"codes", pc.Result.Codes(),
		"audit_entries", len(pc.Result.Audit),
		"warnings", len(pc.Result.Warnings))
	return Accepted(pc.Result)
}
