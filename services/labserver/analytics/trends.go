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
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

// Metrics selectable for trend analysis.
var trendMetrics = map[string]bool{
	"accuracy":  true,
	"loss":      true,
	"f1Score":   true,
	"precision": true,
	"recall":    true,
}

// ValidTrendMetric reports whether metric can be trended.
func ValidTrendMetric(metric string) bool {
	return trendMetrics[metric]
}

// TrendPoint is one time-series sample: a completed experiment's metric
// value at its creation time.
type TrendPoint struct {
	ExperimentID   string    `json:"experimentId"`
	ExperimentName string    `json:"experimentName"`
	CreatedAt      time.Time `json:"createdAt"`
	Value          float64   `json:"value"`
}

// ScatterPoint pairs a learning rate with a metric value. Raw paired points
// only; no fitted curve.
type ScatterPoint struct {
	ExperimentName string  `json:"experimentName"`
	LearningRate   float64 `json:"learningRate"`
	Value          float64 `json:"value"`
}

// TrendReport is the output of AnalyzeTrends.
//
// ImprovementRate is the percentage change between the means of the first
// and second halves of the time-ordered series. For loss an improving trend
// shows as a negative rate; presentation layers must invert the sign test
// for loss, mirroring the min/max asymmetry of BestValue.
type TrendReport struct {
	Metric          string         `json:"metric"`
	TimeSeries      []TrendPoint   `json:"timeSeries"`
	ScatterSeries   []ScatterPoint `json:"scatterSeries"`
	ImprovementRate float64        `json:"improvementRate"`
	BestValue       *float64       `json:"bestValue"`
	AverageValue    *float64       `json:"averageValue"`
}

// AnalyzeTrends computes the time-series view of a metric over a window.
//
// The pipeline, in order:
//  1. keep completed experiments, matching modelType when set, created
//     within [now-windowDays, now];
//  2. sort ascending by creation time (this ordering defines the half split
//     and the chart axis);
//  3. drop records missing the selected metric;
//  4. compute mean, best (min for loss, max otherwise), and the
//     improvement rate from the midpoint split;
//  5. emit the learning-rate scatter series from qualifying records that
//     also carry a learning rate.
//
// Fewer than 2 qualifying records, or a first-half mean of exactly 0,
// reports an improvement rate of 0. That is the defined degenerate-case
// policy, not an error.
func AnalyzeTrends(experiments []*datatypes.Experiment, metric string,
	windowDays int, modelType string, now time.Time) (*TrendReport, error) {

	if !ValidTrendMetric(metric) {
		return nil, fmt.Errorf("unsupported trend metric %q", metric)
	}
	cutoff := now.AddDate(0, 0, -windowDays)

	var qualifying []*datatypes.Experiment
	for _, exp := range experiments {
		if exp.Status != datatypes.StatusCompleted {
			continue
		}
		if modelType != "" && exp.Model.Type != modelType {
			continue
		}
		if exp.CreatedAt.Before(cutoff) || exp.CreatedAt.After(now) {
			continue
		}
		if exp.Metrics.Named(metric) == nil {
			continue
		}
		qualifying = append(qualifying, exp)
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].CreatedAt.Before(qualifying[j].CreatedAt)
	})

	report := &TrendReport{Metric: metric}
	values := make([]float64, 0, len(qualifying))
	for _, exp := range qualifying {
		v := *exp.Metrics.Named(metric)
		values = append(values, v)
		report.TimeSeries = append(report.TimeSeries, TrendPoint{
			ExperimentID:   exp.ID,
			ExperimentName: exp.Name,
			CreatedAt:      exp.CreatedAt,
			Value:          v,
		})
		if exp.TrainingConfig != nil && exp.TrainingConfig.LearningRate != nil {
			report.ScatterSeries = append(report.ScatterSeries, ScatterPoint{
				ExperimentName: exp.Name,
				LearningRate:   *exp.TrainingConfig.LearningRate,
				Value:          v,
			})
		}
	}

	if len(values) == 0 {
		return report, nil
	}

	sum := 0.0
	best := values[0]
	for _, v := range values {
		sum += v
		if betterThan(metric, v, best) {
			best = v
		}
	}
	avg := sum / float64(len(values))
	report.AverageValue = &avg
	report.BestValue = &best
	report.ImprovementRate = improvementRate(values)

	return report, nil
}

// improvementRate splits the time-ordered values at the midpoint (floor
// division) and reports the percentage change of the second half's mean
// against the first half's.
func improvementRate(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mid := len(values) / 2
	first := mean(values[:mid])
	second := mean(values[mid:])
	if first == 0 {
		return 0
	}
	return (second - first) / first * 100
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
