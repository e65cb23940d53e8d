// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the lab server.
//
// # Description
//
// Metrics cover the experiment CRUD surface, the analytics endpoints, and
// the AI insight pipeline:
//   - Request counters (by endpoint, status)
//   - Insight outcome counters (ai, fallback, partial)
//   - LLM call latency histograms (by backend operation)
//   - Experiment gauge (records currently stored)
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for lab server metrics
const labSubsystem = "lab"

// LabMetrics holds all Prometheus metrics for the lab server.
//
// Initialize once at startup via InitMetrics(); registering twice panics
// through promauto.
type LabMetrics struct {
	// RequestsTotal counts API requests by endpoint and status.
	// Labels: endpoint (experiments, stats, trends, insights, ...),
	// status (success, error)
	RequestsTotal *prometheus.CounterVec

	// InsightOutcomesTotal counts insight generations by outcome.
	// Labels: outcome (ai, fallback, partial)
	InsightOutcomesTotal *prometheus.CounterVec

	// LLMCallDurationSeconds measures LLM round-trip latency.
	// Labels: operation (insights, query, suggest, compare)
	LLMCallDurationSeconds *prometheus.HistogramVec

	// ExperimentsStored gauges how many experiment records are stored.
	ExperimentsStored prometheus.Gauge
}

// DefaultMetrics is the singleton instance of LabMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *LabMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once at
// application startup.
func InitMetrics() *LabMetrics {
	DefaultMetrics = &LabMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: labSubsystem,
				Name:      "requests_total",
				Help:      "Total API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		InsightOutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: labSubsystem,
				Name:      "insight_outcomes_total",
				Help:      "Insight generations by outcome (ai, fallback, partial)",
			},
			[]string{"outcome"},
		),

		LLMCallDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: labSubsystem,
				Name:      "llm_call_duration_seconds",
				Help:      "LLM round-trip latency by operation",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),

		ExperimentsStored: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: labSubsystem,
				Name:      "experiments_stored",
				Help:      "Number of experiment records currently stored",
			},
		),
	}

	return DefaultMetrics
}

// RecordRequest increments the request counter when metrics are initialized.
// Safe to call before InitMetrics; it is then a no-op, which keeps handler
// tests free of registry setup.
func RecordRequest(endpoint string, success bool) {
	if DefaultMetrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	DefaultMetrics.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordInsightOutcome increments the insight outcome counter.
// Outcome should be one of "ai", "fallback", "partial".
func RecordInsightOutcome(outcome string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.InsightOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveLLMCall records one LLM round trip duration in seconds.
func ObserveLLMCall(operation string, seconds float64) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.LLMCallDurationSeconds.WithLabelValues(operation).Observe(seconds)
}

// SetExperimentsStored updates the stored-records gauge.
func SetExperimentsStored(n int) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.ExperimentsStored.Set(float64(n))
}
