// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package insight

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
	"github.com/AleutianAI/AleutianLab/services/llm"
)

// maxSuggestionHistory bounds how many top historical experiments feed the
// suggestion prompt.
const maxSuggestionHistory = 10

// QuerySampleLimit bounds the experiment sample handed to AnswerQuery.
// Callers fetch at most this many most-recent records.
const QuerySampleLimit = 50

// Suggestion is a proposed starting configuration for a new experiment.
type Suggestion struct {
	LearningRate float64 `json:"learningRate"`
	BatchSize    int     `json:"batchSize"`
	Epochs       int     `json:"epochs"`
	Optimizer    string  `json:"optimizer"`
	Reasoning    string  `json:"reasoning"`
}

// SuggestHyperparameters asks the backend for a starting configuration
// based on up to maxSuggestionHistory historical experiments of the same
// model type, ranked by descending accuracy (missing accuracy ranks as 0).
//
// Returns (nil, nil) when no historical experiments of the type exist, and
// (nil, err) on any transport or parse failure. A nil suggestion means "no
// suggestion available" and is never substituted with a fabricated one;
// this is the inverse of GenerateInsights' degrade-gracefully policy.
func (g *Generator) SuggestHyperparameters(ctx context.Context, modelType string,
	dataset datatypes.DatasetInfo, history []*datatypes.Experiment) (*Suggestion, error) {

	ctx, span := insightTracer.Start(ctx, "Generator.SuggestHyperparameters")
	defer span.End()

	if g.client == nil {
		return nil, fmt.Errorf("no LLM backend configured")
	}

	ranked := rankByAccuracy(modelType, history)
	if len(ranked) == 0 {
		slog.Info("No historical experiments for model type, no suggestion", "model_type", modelType)
		return nil, nil
	}
	if len(ranked) > maxSuggestionHistory {
		ranked = ranked[:maxSuggestionHistory]
	}

	prompt := buildSuggestPrompt(modelType, dataset, ranked)
	text, err := g.client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("suggestion call failed: %w", err)
	}

	var suggestion Suggestion
	if err := parseJSONPayload(text, &suggestion); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("suggestion response unusable: %w", err)
	}
	return &suggestion, nil
}

// AnswerQuery answers a free-form question over a bounded experiment
// sample. Opaque string in, string out: no parsing contract on the
// response. A failed call yields a fixed apology rather than an error.
func (g *Generator) AnswerQuery(ctx context.Context, question string,
	sample []*datatypes.Experiment) string {

	ctx, span := insightTracer.Start(ctx, "Generator.AnswerQuery")
	defer span.End()

	if g.client == nil {
		return "AI features are not enabled on this server."
	}

	text, err := g.client.Generate(ctx, buildQueryPrompt(question, sample), llm.GenerationParams{})
	if err != nil {
		slog.Error("Natural language query failed", "error", err)
		span.RecordError(err)
		return "Sorry, I could not process your query. Please try rephrasing."
	}
	return text
}

// CompareExperiments produces a markdown comparison report over the given
// experiments. Opaque output, fixed failure message on error.
func (g *Generator) CompareExperiments(ctx context.Context,
	experiments []*datatypes.Experiment) string {

	ctx, span := insightTracer.Start(ctx, "Generator.CompareExperiments")
	defer span.End()

	if g.client == nil {
		return "AI features are not enabled on this server."
	}

	text, err := g.client.Generate(ctx, buildComparePrompt(experiments), llm.GenerationParams{})
	if err != nil {
		slog.Error("Comparative report generation failed", "error", err)
		span.RecordError(err)
		return "Report generation failed. Please try again."
	}
	return text
}

// rankByAccuracy filters history to the model type and sorts by descending
// accuracy, treating a missing accuracy as 0. The sort is stable so equally
// ranked records keep their incoming order.
func rankByAccuracy(modelType string, history []*datatypes.Experiment) []*datatypes.Experiment {
	matching := make([]*datatypes.Experiment, 0, len(history))
	for _, exp := range history {
		if exp.Model.Type == modelType {
			matching = append(matching, exp)
		}
	}
	acc := func(e *datatypes.Experiment) float64 {
		if e.Metrics.Accuracy != nil {
			return *e.Metrics.Accuracy
		}
		return 0
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return acc(matching[i]) > acc(matching[j])
	})
	return matching
}

// staleAfter is how long an insight block stays fresh before the dashboard
// marks it for regeneration.
const staleAfter = 30 * 24 * time.Hour

// IsStale reports whether an insight block is old enough that callers
// should prompt for regeneration. Nil blocks are stale by definition.
func IsStale(insights *datatypes.AIInsights, now time.Time) bool {
	if insights == nil {
		return true
	}
	return now.Sub(insights.GeneratedAt) > staleAfter
}
