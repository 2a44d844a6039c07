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
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DecisionRecord is the structured telemetry emitted once per
// orchestration call. It is an observable side effect with no behavioral
// role: dropping every record changes nothing about the returned result.
type DecisionRecord struct {
	ID             string        `json:"id"`
	Difficulty     Difficulty    `json:"difficulty"`
	Source         Source        `json:"source"`
	ArbiterCalls   int           `json:"arbiter_calls"`
	ConflictDetail string        `json:"conflict_detail,omitempty"`
	CodeCount      int           `json:"code_count"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Recorder receives one record per decision. Implementations must not
// block; the orchestrator calls Record synchronously.
type Recorder interface {
	Record(ctx context.Context, rec DecisionRecord)
}

// Metrics is the OTel-backed Recorder used in production.
type Metrics struct {
	decisionsTotal   metric.Int64Counter
	arbiterCalls     metric.Int64Counter
	decisionDuration metric.Float64Histogram
	logger           *slog.Logger
}

// NewMetrics registers the decision metrics on the provided meter.
func NewMetrics(meter metric.Meter, logger *slog.Logger) (*Metrics, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Metrics{logger: logger}
	var err error

	m.decisionsTotal, err = meter.Int64Counter(
		"coder_decisions_total",
		metric.WithDescription("Total coding decisions by source and difficulty"),
	)
	if err != nil {
		return nil, fmt.Errorf("create coder_decisions_total: %w", err)
	}

	m.arbiterCalls, err = meter.Int64Counter(
		"coder_arbiter_calls_total",
		metric.WithDescription("Total fallback arbiter invocations"),
	)
	if err != nil {
		return nil, fmt.Errorf("create coder_arbiter_calls_total: %w", err)
	}

	m.decisionDuration, err = meter.Float64Histogram(
		"coder_decision_duration_seconds",
		metric.WithDescription("Orchestration duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("create coder_decision_duration_seconds: %w", err)
	}

	return m, nil
}

// Record implements Recorder.
func (m *Metrics) Record(ctx context.Context, rec DecisionRecord) {
	attrs := metric.WithAttributes(
		attribute.String("source", string(rec.Source)),
		attribute.String("difficulty", string(rec.Difficulty)),
	)
	m.decisionsTotal.Add(ctx, 1, attrs)
	m.arbiterCalls.Add(ctx, int64(rec.ArbiterCalls), attrs)
	m.decisionDuration.Record(ctx, rec.Elapsed.Seconds(), attrs)

	m.logger.Info("coding decision",
		"decision_id", rec.ID,
		"source", rec.Source,
		"difficulty", rec.Difficulty,
		"arbiter_calls", rec.ArbiterCalls,
		"codes", rec.CodeCount,
		"conflict", rec.ConflictDetail != "",
		"elapsed_ms", rec.Elapsed.Milliseconds())
}

// NopRecorder discards every record.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, DecisionRecord) {}

// newDecisionID returns a fresh record identifier.
func newDecisionID() string { return uuid.NewString() }
