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
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLab/services/labserver/analytics"
	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
	"github.com/AleutianAI/AleutianLab/services/labserver/store"
)

func analyticsRouter(st store.ExperimentStore) *gin.Engine {
	router := gin.New()
	router.GET("/v1/stats", GetStats(st))
	router.GET("/v1/trends", GetTrends(st))
	router.GET("/v1/anomalies", GetAnomalies(st))
	return router
}

func TestGetStats(t *testing.T) {
	st := store.NewMemoryStore()
	seedExperiment(t, st, "a")
	seedExperiment(t, st, "b")
	running := seedExperiment(t, st, "c")
	running.Status = datatypes.StatusRunning
	require.NoError(t, st.Update(context.Background(), running))
	router := analyticsRouter(st)

	w := performRequest(router, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats analytics.Stats
	decodeData(t, parseEnvelope(t, w), &stats)
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 2, stats.CompletedCount)
	assert.Equal(t, 1, stats.RunningCount)
	assert.Equal(t, 3, stats.CountsByType[datatypes.ModelTypeClassification])
	require.NotNil(t, stats.BestExperiment)
	require.NotNil(t, stats.AverageMetrics["accuracy"])
	assert.InDelta(t, 0.8, *stats.AverageMetrics["accuracy"], 1e-9)
}

func TestGetStats_EmptyStore(t *testing.T) {
	router := analyticsRouter(store.NewMemoryStore())

	w := performRequest(router, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats analytics.Stats
	decodeData(t, parseEnvelope(t, w), &stats)
	assert.Zero(t, stats.TotalCount)
	assert.Nil(t, stats.BestExperiment)
}

func TestGetTrends(t *testing.T) {
	st := store.NewMemoryStore()
	older := seedExperiment(t, st, "older")
	older.CreatedAt = time.Now().AddDate(0, 0, -10)
	older.Metrics.Accuracy = f64(0.6)
	require.NoError(t, st.Update(context.Background(), older))
	newer := seedExperiment(t, st, "newer")
	newer.CreatedAt = time.Now().AddDate(0, 0, -2)
	newer.Metrics.Accuracy = f64(0.9)
	require.NoError(t, st.Update(context.Background(), newer))
	router := analyticsRouter(st)

	w := performRequest(router, http.MethodGet, "/v1/trends", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report analytics.TrendReport
	decodeData(t, parseEnvelope(t, w), &report)
	assert.Equal(t, "accuracy", report.Metric)
	require.Len(t, report.TimeSeries, 2)
	assert.Equal(t, "older", report.TimeSeries[0].ExperimentID)
	require.NotNil(t, report.BestValue)
	assert.Equal(t, 0.9, *report.BestValue)
	assert.InDelta(t, 50.0, report.ImprovementRate, 1e-9)
}

func TestGetTrends_Validation(t *testing.T) {
	router := analyticsRouter(store.NewMemoryStore())

	w := performRequest(router, http.MethodGet, "/v1/trends?metric=mse", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodGet, "/v1/trends?days=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodGet, "/v1/trends?days=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTrends_WindowNarrows(t *testing.T) {
	st := store.NewMemoryStore()
	old := seedExperiment(t, st, "old")
	old.CreatedAt = time.Now().AddDate(0, 0, -20)
	require.NoError(t, st.Update(context.Background(), old))
	recent := seedExperiment(t, st, "recent")
	recent.CreatedAt = time.Now().AddDate(0, 0, -1)
	require.NoError(t, st.Update(context.Background(), recent))
	router := analyticsRouter(st)

	w := performRequest(router, http.MethodGet, "/v1/trends?days=7", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report analytics.TrendReport
	decodeData(t, parseEnvelope(t, w), &report)
	require.Len(t, report.TimeSeries, 1)
	assert.Equal(t, "recent", report.TimeSeries[0].ExperimentID)
}

func TestGetAnomalies(t *testing.T) {
	st := store.NewMemoryStore()
	flagged := seedExperiment(t, st, "flagged")
	flagged.HasAnomalies = true
	flagged.Metrics = datatypes.Metrics{Loss: f64(0.1), ValidationLoss: f64(0.5)}
	require.NoError(t, st.Update(context.Background(), flagged))
	seedExperiment(t, st, "clean")
	router := analyticsRouter(st)

	w := performRequest(router, http.MethodGet, "/v1/anomalies", "")
	require.Equal(t, http.StatusOK, w.Code)

	env := parseEnvelope(t, w)
	assert.Equal(t, 1, env.Count)

	var data struct {
		Experiments []datatypes.Experiment     `json:"experiments"`
		Findings    []analytics.AnomalyFinding `json:"findings"`
	}
	decodeData(t, env, &data)
	require.Len(t, data.Experiments, 1)
	assert.Equal(t, "flagged", data.Experiments[0].ID)
	require.Len(t, data.Findings, 1)
	assert.Equal(t, analytics.AnomalySevereOverfitting, data.Findings[0].Type)
}

func TestGetAnomalies_Empty(t *testing.T) {
	router := analyticsRouter(store.NewMemoryStore())

	w := performRequest(router, http.MethodGet, "/v1/anomalies", "")
	require.Equal(t, http.StatusOK, w.Code)

	env := parseEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Zero(t, env.Count)
}
