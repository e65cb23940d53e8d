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
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

// maxPeerExperiments bounds how many same-model-type peers go into the
// insight prompt.
const maxPeerExperiments = 5

// buildInsightPrompt renders the analysis prompt for one experiment plus a
// peer sample. Only populated metrics are listed, hyperparameters render in
// insertion order, and epoch metrics are digested to first/middle/last to
// bound prompt size.
func buildInsightPrompt(exp *datatypes.Experiment, peers []*datatypes.Experiment) string {
	var b strings.Builder

	b.WriteString("You are an expert ML engineer analyzing experiment results. ")
	b.WriteString("Provide detailed, actionable insights.\n\n")

	fmt.Fprintf(&b, "CURRENT EXPERIMENT:\n- Name: %s\n- Model: %s (%s)\n",
		exp.Name, exp.Model.Name, exp.Model.Type)
	if exp.Model.Framework != "" {
		fmt.Fprintf(&b, "- Framework: %s\n", exp.Model.Framework)
	}
	fmt.Fprintf(&b, "- Dataset: %s (%d samples)\n", exp.Dataset.Name, exp.Dataset.Size)

	b.WriteString("\nHYPERPARAMETERS:\n")
	if len(exp.Hyperparameters) == 0 {
		b.WriteString("None recorded\n")
	}
	for _, p := range exp.Hyperparameters {
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, p.Value.String())
	}

	if tc := exp.TrainingConfig; tc != nil {
		b.WriteString("\nTRAINING CONFIG:\n")
		fmt.Fprintf(&b, "- Epochs: %d\n- Batch Size: %d\n- Optimizer: %s\n",
			tc.Epochs, tc.BatchSize, tc.Optimizer)
		if tc.LearningRate != nil {
			fmt.Fprintf(&b, "- Learning Rate: %g\n", *tc.LearningRate)
		}
	}

	b.WriteString("\nMETRICS:\n")
	writeMetrics(&b, &exp.Metrics)

	b.WriteString("\nEPOCH-WISE TRENDS:\n")
	digest := exp.EpochDigest()
	if digest == nil {
		b.WriteString("Not available\n")
	} else {
		labels := []string{"Early", "Mid", "Final"}
		for i, snap := range digest {
			fmt.Fprintf(&b, "%s (Epoch %d): Train Loss=%s, Val Loss=%s\n",
				labels[i], snap.Epoch, formatOptional(snap.TrainLoss), formatOptional(snap.ValLoss))
		}
	}

	b.WriteString("\nRECENT SIMILAR EXPERIMENTS:\n")
	recent := recentPeers(exp, peers, maxPeerExperiments)
	if len(recent) == 0 {
		b.WriteString("None\n")
	}
	for _, peer := range recent {
		fmt.Fprintf(&b, "- %s: accuracy=%s, loss=%s, hyperparameters={%s}\n",
			peer.Name,
			formatOptional(peer.Metrics.Accuracy),
			formatOptional(peer.Metrics.Loss),
			renderParams(peer.Hyperparameters))
	}

	b.WriteString("\nNOTES FROM RESEARCHER:\n")
	if exp.Notes == "" {
		b.WriteString("None\n")
	} else {
		b.WriteString(exp.Notes + "\n")
	}

	b.WriteString(`
Please provide a JSON response with the following structure:
{
  "summary": "2-3 sentence overall assessment of the experiment",
  "recommendations": ["specific actionable recommendation 1", "recommendation 2", "recommendation 3"],
  "anomalies": ["any unusual patterns or red flags"],
  "comparisonWithPrevious": "how this compares to recent experiments",
  "hyperparameterSuggestions": {
    "parameterName": "suggested value and reasoning"
  }
}

Focus on:
1. Overfitting/underfitting detection
2. Learning rate optimization
3. Batch size impacts
4. Convergence patterns
5. Metric trade-offs
6. Next steps for improvement`)

	return b.String()
}

// buildQueryPrompt renders the natural-language-question prompt over a
// bounded experiment sample.
func buildQueryPrompt(question string, sample []*datatypes.Experiment) string {
	var b strings.Builder
	b.WriteString("You are an ML experiment database assistant. Answer the following ")
	b.WriteString("question based on the experiment data provided.\n\n")
	fmt.Fprintf(&b, "QUESTION: %s\n\nAVAILABLE EXPERIMENTS:\n", question)
	for _, exp := range sample {
		fmt.Fprintf(&b, "- %s | model=%s (%s) | status=%s | accuracy=%s | loss=%s | date=%s | hyperparameters={%s}\n",
			exp.Name, exp.Model.Name, exp.Model.Type, exp.Status,
			formatOptional(exp.Metrics.Accuracy), formatOptional(exp.Metrics.Loss),
			exp.CreatedAt.Format("2006-01-02"), renderParams(exp.Hyperparameters))
	}
	b.WriteString("\nProvide a clear, concise answer. If asked for specific experiments, ")
	b.WriteString("return their IDs or names. If asked for comparisons, provide detailed analysis.")
	return b.String()
}

// buildSuggestPrompt renders the hyperparameter-suggestion prompt from the
// top historical experiments of a model type.
func buildSuggestPrompt(modelType string, dataset datatypes.DatasetInfo,
	history []*datatypes.Experiment) string {

	var b strings.Builder
	b.WriteString("As an ML optimization expert, suggest optimal hyperparameters ")
	b.WriteString("for a new experiment.\n\n")
	fmt.Fprintf(&b, "MODEL TYPE: %s\nDATASET: %s (%d samples, %d features)\n\n",
		modelType, dataset.Name, dataset.Size, len(dataset.Features))
	b.WriteString("TOP PERFORMING PAST EXPERIMENTS:\n")
	for _, exp := range history {
		fmt.Fprintf(&b, "- accuracy=%s, hyperparameters={%s}",
			formatOptional(exp.Metrics.Accuracy), renderParams(exp.Hyperparameters))
		if tc := exp.TrainingConfig; tc != nil {
			fmt.Fprintf(&b, ", epochs=%d, batchSize=%d, optimizer=%s", tc.Epochs, tc.BatchSize, tc.Optimizer)
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Based on these successful experiments, suggest optimal hyperparameters as a JSON object:
{
  "learningRate": 0.001,
  "batchSize": 32,
  "epochs": 50,
  "optimizer": "adam",
  "reasoning": "Explanation for these choices"
}`)
	return b.String()
}

// buildComparePrompt renders the comparative-report prompt.
func buildComparePrompt(experiments []*datatypes.Experiment) string {
	var b strings.Builder
	b.WriteString("Generate a comparative analysis report for these ML experiments:\n\n")
	for _, exp := range experiments {
		fmt.Fprintf(&b, "- %s | model=%s | date=%s\n", exp.Name, exp.Model.Name,
			exp.CreatedAt.Format("2006-01-02"))
		b.WriteString("  metrics: ")
		writeMetricsInline(&b, &exp.Metrics)
		fmt.Fprintf(&b, "\n  hyperparameters: {%s}\n", renderParams(exp.Hyperparameters))
	}
	b.WriteString(`
Provide:
1. Performance comparison
2. Best performing configuration
3. Key differences and their impacts
4. Recommendations for future experiments

Format as markdown.`)
	return b.String()
}

// recentPeers returns up to limit same-model-type peers, most recent first.
// The experiment under analysis is excluded.
func recentPeers(exp *datatypes.Experiment, peers []*datatypes.Experiment,
	limit int) []*datatypes.Experiment {

	matching := make([]*datatypes.Experiment, 0, len(peers))
	for _, peer := range peers {
		if peer.ID == exp.ID || peer.Model.Type != exp.Model.Type {
			continue
		}
		matching = append(matching, peer)
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})
	if len(matching) > limit {
		matching = matching[:limit]
	}
	return matching
}

func writeMetrics(b *strings.Builder, m *datatypes.Metrics) {
	wrote := false
	for _, entry := range metricEntries(m) {
		fmt.Fprintf(b, "- %s: %g\n", entry.name, entry.value)
		wrote = true
	}
	if !wrote {
		b.WriteString("None recorded\n")
	}
}

func writeMetricsInline(b *strings.Builder, m *datatypes.Metrics) {
	entries := metricEntries(m)
	for i, entry := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s=%g", entry.name, entry.value)
	}
	if len(entries) == 0 {
		b.WriteString("none")
	}
}

type metricEntry struct {
	name  string
	value float64
}

// metricEntries lists populated standard metrics in a fixed order, then
// custom metrics sorted by name.
func metricEntries(m *datatypes.Metrics) []metricEntry {
	var entries []metricEntry
	add := func(name string, v *float64) {
		if v != nil {
			entries = append(entries, metricEntry{name, *v})
		}
	}
	add("accuracy", m.Accuracy)
	add("precision", m.Precision)
	add("recall", m.Recall)
	add("f1Score", m.F1Score)
	add("loss", m.Loss)
	add("validationLoss", m.ValidationLoss)
	add("mse", m.MSE)
	add("rmse", m.RMSE)
	add("mae", m.MAE)
	add("r2Score", m.R2Score)
	add("auc", m.AUC)

	custom := make([]string, 0, len(m.CustomMetrics))
	for name := range m.CustomMetrics {
		custom = append(custom, name)
	}
	sort.Strings(custom)
	for _, name := range custom {
		entries = append(entries, metricEntry{name, m.CustomMetrics[name]})
	}
	return entries
}

func renderParams(params datatypes.Hyperparameters) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s=%s", p.Name, p.Value.String()))
	}
	return strings.Join(parts, ", ")
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%g", *v)
}
