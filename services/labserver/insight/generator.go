// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package insight builds prompts for an LLM backend, parses its structured
// responses, and degrades to rule-based output when the backend fails.
//
// Failure semantics are asymmetric on purpose:
//   - insight generation always returns a well-formed result (AI, partial
//     text, or rule-based fallback), never an error;
//   - hyperparameter suggestion returns nil on any failure rather than a
//     fabricated guess.
package insight

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
	"github.com/AleutianAI/AleutianLab/services/labserver/observability"
	"github.com/AleutianAI/AleutianLab/services/llm"
)

var insightTracer = otel.Tracer("aleutian.labserver.insight")

// Fallback rule thresholds.
//
// FallbackOverfitRatio (1.5x) is deliberately softer than the 2.0x ratio in
// the analytics anomaly scan. The two paths flag different things: the scan
// reports severe cases on every pass, the fallback supplies cautionary text
// when the AI is unavailable. Keep them separate (see DESIGN.md).
const (
	// FallbackOverfitRatio flags a soft overfitting signal in fallback text.
	FallbackOverfitRatio = 1.5

	// LowAccuracyThreshold triggers the architecture/feature-engineering
	// recommendation in fallback text.
	LowAccuracyThreshold = 0.6
)

// Generator produces experiment insights through an LLM backend.
type Generator struct {
	client llm.LLMClient
}

// NewGenerator wires a Generator to an LLM backend. A nil client is allowed;
// every AI-backed call then takes its local fallback path.
func NewGenerator(client llm.LLMClient) *Generator {
	return &Generator{client: client}
}

// Enabled reports whether an LLM backend is configured.
func (g *Generator) Enabled() bool {
	return g.client != nil
}

// GenerateInsights analyzes one experiment against its peers.
//
// Never returns an error: a transport failure falls back to rule-based
// insights and an unparsable response degrades to a partial text result.
// GeneratedAt is stamped at generation time in every path so callers can
// detect staleness.
func (g *Generator) GenerateInsights(ctx context.Context,
	exp *datatypes.Experiment, peers []*datatypes.Experiment) *datatypes.AIInsights {

	ctx, span := insightTracer.Start(ctx, "Generator.GenerateInsights")
	defer span.End()

	if g.client == nil {
		slog.Debug("No LLM backend configured, using fallback insights", "experiment_id", exp.ID)
		observability.RecordInsightOutcome("fallback")
		return g.fallbackInsights(exp)
	}

	prompt := buildInsightPrompt(exp, peers)
	text, err := g.client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		slog.Error("Insight generation call failed, using fallback", "experiment_id", exp.ID, "error", err)
		span.RecordError(err)
		observability.RecordInsightOutcome("fallback")
		return g.fallbackInsights(exp)
	}

	insights, parsed := parseInsightResponse(text, time.Now())
	if parsed {
		observability.RecordInsightOutcome("ai")
	} else {
		slog.Warn("Insight response was not structured JSON, keeping raw text", "experiment_id", exp.ID)
		observability.RecordInsightOutcome("partial")
	}
	return insights
}

// fallbackInsights builds the rule-based substitute used when the AI call
// fails. Always returns a well-formed result with non-nil lists.
func (g *Generator) fallbackInsights(exp *datatypes.Experiment) *datatypes.AIInsights {
	insights := &datatypes.AIInsights{
		Summary:         "Experiment completed. Manual analysis recommended.",
		Recommendations: []string{},
		Anomalies:       []string{},
		GeneratedAt:     time.Now(),
	}

	if acc := exp.Metrics.Accuracy; acc != nil && *acc < LowAccuracyThreshold {
		insights.Recommendations = append(insights.Recommendations,
			"Low accuracy detected. Consider increasing model complexity or feature engineering.")
	}

	loss, valLoss := exp.Metrics.Loss, exp.Metrics.ValidationLoss
	if loss != nil && valLoss != nil && *valLoss > FallbackOverfitRatio**loss {
		insights.Anomalies = append(insights.Anomalies,
			"Potential overfitting: Validation loss significantly higher than training loss.")
		insights.Recommendations = append(insights.Recommendations,
			"Apply regularization techniques (L1/L2, dropout) to reduce overfitting.")
	}

	return insights
}
