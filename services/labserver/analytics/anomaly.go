// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analytics

import (
	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

// Anomaly rule thresholds.
//
// SevereOverfitRatio belongs to the always-on heuristic scan below. The
// softer 1.5x signal used by the insight fallback path lives in the insight
// package as its own constant. The two thresholds are intentionally
// distinct; do not unify them without confirming intent (see DESIGN.md).
const (
	// SevereOverfitRatio flags validation loss above this multiple of
	// training loss.
	SevereOverfitRatio = 2.0

	// PoorAccuracyThreshold flags classification runs below this accuracy.
	PoorAccuracyThreshold = 0.5

	// LongTrainingSeconds flags runs longer than this (10 hours).
	LongTrainingSeconds = 36000.0
)

// Anomaly finding types.
const (
	AnomalySevereOverfitting = "severe_overfitting"
	AnomalyPoorPerformance   = "poor_performance"
	AnomalyLongTraining      = "long_training"
)

// Severity levels.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// AnomalyFinding is one rule hit on one experiment.
type AnomalyFinding struct {
	ExperimentID   string `json:"experimentId"`
	ExperimentName string `json:"experimentName"`
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
}

// DetectAnomalies runs the rule-based scan over experiments.
//
// Rules are independent and evaluated in a fixed order per experiment; an
// experiment can produce zero, one, or several findings and no rule
// suppresses another. All comparisons are strict: a validation loss of
// exactly 2x the training loss does not trigger the overfitting rule.
// Records missing a value a rule needs are skipped by that rule only.
func DetectAnomalies(experiments []*datatypes.Experiment) []AnomalyFinding {
	var findings []AnomalyFinding

	for _, exp := range experiments {
		if exp.Metrics.Loss != nil && exp.Metrics.ValidationLoss != nil &&
			*exp.Metrics.ValidationLoss > SevereOverfitRatio**exp.Metrics.Loss {
			findings = append(findings, AnomalyFinding{
				ExperimentID:   exp.ID,
				ExperimentName: exp.Name,
				Type:           AnomalySevereOverfitting,
				Severity:       SeverityHigh,
				Description:    "Validation loss is more than 2x training loss",
			})
		}

		if exp.Model.Type == datatypes.ModelTypeClassification &&
			exp.Metrics.Accuracy != nil && *exp.Metrics.Accuracy < PoorAccuracyThreshold {
			findings = append(findings, AnomalyFinding{
				ExperimentID:   exp.ID,
				ExperimentName: exp.Name,
				Type:           AnomalyPoorPerformance,
				Severity:       SeverityMedium,
				Description:    "Accuracy below 50% for classification task",
			})
		}

		if exp.TrainingConfig != nil && exp.TrainingConfig.Duration > LongTrainingSeconds {
			findings = append(findings, AnomalyFinding{
				ExperimentID:   exp.ID,
				ExperimentName: exp.Name,
				Type:           AnomalyLongTraining,
				Severity:       SeverityLow,
				Description:    "Training took more than 10 hours",
			})
		}
	}

	return findings
}

// RecomputeDerivedFlags refreshes the cached isBestPerforming and
// hasAnomalies booleans on exp. Called only from the insight-generation
// path so the flags cannot drift independently of a regeneration.
//
// hasAnomalies reflects the generated insight block; isBestPerforming
// compares the experiment's accuracy against its peers' best.
func RecomputeDerivedFlags(exp *datatypes.Experiment,
	peers []*datatypes.Experiment, insights *datatypes.AIInsights) {

	exp.HasAnomalies = insights != nil && len(insights.Anomalies) > 0

	exp.IsBestPerforming = false
	if acc := exp.Metrics.Accuracy; acc != nil {
		best := true
		for _, peer := range peers {
			if peer.ID == exp.ID {
				continue
			}
			if p := peer.Metrics.Accuracy; p != nil && *p > *acc {
				best = false
				break
			}
		}
		exp.IsBestPerforming = best
	}
}
