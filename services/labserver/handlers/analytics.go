// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianLab/services/labserver/analytics"
	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
	"github.com/AleutianAI/AleutianLab/services/labserver/observability"
	"github.com/AleutianAI/AleutianLab/services/labserver/store"
)

const (
	defaultTrendMetric = "accuracy"
	defaultTrendDays   = 30

	// anomalyScanLimit bounds the flagged-record scan to the most recent
	// records.
	anomalyScanLimit = 20
)

func GetStats(st store.ExperimentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "GetStats")
		defer span.End()

		experiments, err := st.List(ctx, store.Filter{}, store.Sort{}, 0)
		if err != nil {
			slog.Error("Failed to load experiments for stats", "error", err)
			respondError(c, http.StatusInternalServerError, "stats", "failed to compute stats")
			return
		}

		stats := analytics.Aggregate(experiments, analytics.DefaultBestMetric)
		observability.SetExperimentsStored(stats.TotalCount)
		respondData(c, http.StatusOK, "stats", stats)
	}
}

func GetTrends(st store.ExperimentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "GetTrends")
		defer span.End()

		metric := c.DefaultQuery("metric", defaultTrendMetric)
		if !analytics.ValidTrendMetric(metric) {
			respondError(c, http.StatusBadRequest, "trends", "unsupported trend metric: "+metric)
			return
		}

		days := defaultTrendDays
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				respondError(c, http.StatusBadRequest, "trends", "days must be a positive integer")
				return
			}
			days = parsed
		}
		modelType := c.Query("modelType")

		// The window and model-type filters are re-applied in AnalyzeTrends;
		// the store filter just keeps the fetched set small.
		experiments, err := st.List(ctx, store.Filter{
			Status:    datatypes.StatusCompleted,
			ModelType: modelType,
		}, store.Sort{}, 0)
		if err != nil {
			slog.Error("Failed to load experiments for trends", "error", err)
			respondError(c, http.StatusInternalServerError, "trends", "failed to compute trends")
			return
		}

		report, err := analytics.AnalyzeTrends(experiments, metric, days, modelType, time.Now())
		if err != nil {
			respondError(c, http.StatusBadRequest, "trends", err.Error())
			return
		}
		respondData(c, http.StatusOK, "trends", report)
	}
}

// GetAnomalies re-runs the rule scan over the most recently flagged records
// and returns both the records and the findings.
func GetAnomalies(st store.ExperimentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "GetAnomalies")
		defer span.End()

		flagged := true
		experiments, err := st.List(ctx,
			store.Filter{HasAnomalies: &flagged},
			store.Sort{Field: store.SortByCreatedAt, Descending: true},
			anomalyScanLimit)
		if err != nil {
			slog.Error("Failed to load flagged experiments", "error", err)
			respondError(c, http.StatusInternalServerError, "anomalies", "failed to load anomalies")
			return
		}

		findings := analytics.DetectAnomalies(experiments)
		respondList(c, http.StatusOK, "anomalies", gin.H{
			"experiments": experiments,
			"findings":    findings,
		}, len(experiments))
	}
}
