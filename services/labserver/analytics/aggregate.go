// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analytics computes derived views over in-memory experiment sets.
//
// Every function here is a pure, synchronous pass over an already-fetched
// slice: no store access, no mutation of inputs. Missing metric values are
// never an error; a record lacking the value under computation is simply
// excluded from that computation (no zero-filling, no imputation).
package analytics

import (
	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

// DefaultBestMetric is the metric used to pick the best performer when the
// caller does not choose one.
const DefaultBestMetric = "accuracy"

// Stats is the dashboard summary over a set of experiments.
type Stats struct {
	TotalCount     int                   `json:"totalExperiments"`
	CompletedCount int                   `json:"completedExperiments"`
	FailedCount    int                   `json:"failedExperiments"`
	RunningCount   int                   `json:"runningExperiments"`
	PendingCount   int                   `json:"pendingExperiments"`
	BestExperiment *datatypes.Experiment `json:"bestExperiment"`
	CountsByType   map[string]int        `json:"experimentsByType"`
	AverageMetrics map[string]*float64   `json:"averageMetrics"`
}

// averagedMetrics is the fixed subset reported in AverageMetrics.
var averagedMetrics = []string{"accuracy", "loss", "f1Score"}

// Aggregate computes counts by status and model type, the best completed
// experiment by bestMetric, and the mean of the fixed metric subset over
// completed experiments.
//
// Means are computed over present values only: an experiment missing a
// metric contributes nothing to that metric's mean. A metric absent from
// every completed experiment reports a nil mean. Empty input produces zero
// counts and a nil best experiment.
//
// Best selection maximizes bestMetric, except loss where lower is better.
// Ties keep the earliest record in input order; callers must not rely on
// tie order beyond that.
func Aggregate(experiments []*datatypes.Experiment, bestMetric string) Stats {
	if bestMetric == "" {
		bestMetric = DefaultBestMetric
	}

	stats := Stats{
		CountsByType:   make(map[string]int),
		AverageMetrics: make(map[string]*float64),
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, exp := range experiments {
		stats.TotalCount++
		switch exp.Status {
		case datatypes.StatusCompleted:
			stats.CompletedCount++
		case datatypes.StatusFailed:
			stats.FailedCount++
		case datatypes.StatusRunning:
			stats.RunningCount++
		case datatypes.StatusPending:
			stats.PendingCount++
		}
		if exp.Model.Type != "" {
			stats.CountsByType[exp.Model.Type]++
		}

		if exp.Status != datatypes.StatusCompleted {
			continue
		}

		for _, name := range averagedMetrics {
			if v := exp.Metrics.Named(name); v != nil {
				sums[name] += *v
				counts[name]++
			}
		}

		if v := exp.Metrics.Named(bestMetric); v != nil {
			if stats.BestExperiment == nil {
				stats.BestExperiment = exp
				continue
			}
			best := stats.BestExperiment.Metrics.Named(bestMetric)
			if best == nil || betterThan(bestMetric, *v, *best) {
				stats.BestExperiment = exp
			}
		}
	}

	for _, name := range averagedMetrics {
		if counts[name] > 0 {
			mean := sums[name] / float64(counts[name])
			stats.AverageMetrics[name] = &mean
		} else {
			stats.AverageMetrics[name] = nil
		}
	}

	return stats
}

// betterThan reports whether a beats b for the given metric. Loss is the one
// minimization metric; everything else maximizes.
func betterThan(metric string, a, b float64) bool {
	if metric == "loss" {
		return a < b
	}
	return a > b
}
