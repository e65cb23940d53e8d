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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

func TestDetectAnomalies_SevereOverfitting(t *testing.T) {
	overfit := completedExp("overfit", datatypes.Metrics{
		Loss:           f64(0.2),
		ValidationLoss: f64(0.5),
	})
	// Exactly 2x must not trigger; the comparison is strict.
	boundary := completedExp("boundary", datatypes.Metrics{
		Loss:           f64(0.2),
		ValidationLoss: f64(0.4),
	})
	missingVal := completedExp("missing-val", datatypes.Metrics{Loss: f64(0.2)})

	findings := DetectAnomalies([]*datatypes.Experiment{overfit, boundary, missingVal})

	require.Len(t, findings, 1)
	assert.Equal(t, "overfit", findings[0].ExperimentID)
	assert.Equal(t, AnomalySevereOverfitting, findings[0].Type)
	assert.Equal(t, SeverityHigh, findings[0].Severity)
	assert.Equal(t, "Validation loss is more than 2x training loss", findings[0].Description)
}

func TestDetectAnomalies_PoorPerformanceIsTypeGated(t *testing.T) {
	classifier := completedExp("classifier", datatypes.Metrics{Accuracy: f64(0.45)})
	regressor := completedExp("regressor", datatypes.Metrics{Accuracy: f64(0.45)})
	regressor.Model.Type = datatypes.ModelTypeRegression
	atThreshold := completedExp("at-threshold", datatypes.Metrics{Accuracy: f64(0.5)})

	findings := DetectAnomalies([]*datatypes.Experiment{classifier, regressor, atThreshold})

	require.Len(t, findings, 1)
	assert.Equal(t, "classifier", findings[0].ExperimentID)
	assert.Equal(t, AnomalyPoorPerformance, findings[0].Type)
	assert.Equal(t, SeverityMedium, findings[0].Severity)
}

func TestDetectAnomalies_LongTraining(t *testing.T) {
	long := completedExp("long", datatypes.Metrics{})
	long.TrainingConfig = &datatypes.TrainingConfig{Duration: 36001}
	atLimit := completedExp("at-limit", datatypes.Metrics{})
	atLimit.TrainingConfig = &datatypes.TrainingConfig{Duration: 36000}
	noConfig := completedExp("no-config", datatypes.Metrics{})

	findings := DetectAnomalies([]*datatypes.Experiment{long, atLimit, noConfig})

	require.Len(t, findings, 1)
	assert.Equal(t, "long", findings[0].ExperimentID)
	assert.Equal(t, AnomalyLongTraining, findings[0].Type)
	assert.Equal(t, SeverityLow, findings[0].Severity)
}

func TestDetectAnomalies_MultipleFindingsPerExperiment(t *testing.T) {
	exp := completedExp("troubled", datatypes.Metrics{
		Loss:           f64(0.1),
		ValidationLoss: f64(0.9),
		Accuracy:       f64(0.3),
	})
	exp.TrainingConfig = &datatypes.TrainingConfig{Duration: 50000}

	findings := DetectAnomalies([]*datatypes.Experiment{exp})

	require.Len(t, findings, 3)
	assert.Equal(t, AnomalySevereOverfitting, findings[0].Type)
	assert.Equal(t, AnomalyPoorPerformance, findings[1].Type)
	assert.Equal(t, AnomalyLongTraining, findings[2].Type)
}

func TestDetectAnomalies_Empty(t *testing.T) {
	assert.Empty(t, DetectAnomalies(nil))
}

func TestRecomputeDerivedFlags(t *testing.T) {
	t.Run("anomalies follow the insight block", func(t *testing.T) {
		exp := completedExp("exp", datatypes.Metrics{})
		exp.HasAnomalies = true

		RecomputeDerivedFlags(exp, nil, &datatypes.AIInsights{
			Anomalies:   []string{},
			GeneratedAt: time.Now(),
		})
		assert.False(t, exp.HasAnomalies, "empty anomaly list clears the flag")

		RecomputeDerivedFlags(exp, nil, &datatypes.AIInsights{
			Anomalies: []string{"validation loss diverging"},
		})
		assert.True(t, exp.HasAnomalies)

		RecomputeDerivedFlags(exp, nil, nil)
		assert.False(t, exp.HasAnomalies)
	})

	t.Run("best performing against peers", func(t *testing.T) {
		exp := completedExp("exp", datatypes.Metrics{Accuracy: f64(0.9)})
		weaker := completedExp("weaker", datatypes.Metrics{Accuracy: f64(0.8)})
		stronger := completedExp("stronger", datatypes.Metrics{Accuracy: f64(0.95)})

		RecomputeDerivedFlags(exp, []*datatypes.Experiment{weaker}, nil)
		assert.True(t, exp.IsBestPerforming)

		RecomputeDerivedFlags(exp, []*datatypes.Experiment{weaker, stronger}, nil)
		assert.False(t, exp.IsBestPerforming)
	})

	t.Run("self in peer list is ignored", func(t *testing.T) {
		exp := completedExp("exp", datatypes.Metrics{Accuracy: f64(0.9)})
		self := completedExp("exp", datatypes.Metrics{Accuracy: f64(0.99)})

		RecomputeDerivedFlags(exp, []*datatypes.Experiment{self}, nil)
		assert.True(t, exp.IsBestPerforming)
	})

	t.Run("no accuracy never best", func(t *testing.T) {
		exp := completedExp("exp", datatypes.Metrics{})
		exp.IsBestPerforming = true

		RecomputeDerivedFlags(exp, nil, nil)
		assert.False(t, exp.IsBestPerforming)
	})
}
