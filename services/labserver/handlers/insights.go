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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianLab/services/labserver/analytics"
	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
	"github.com/AleutianAI/AleutianLab/services/labserver/insight"
	"github.com/AleutianAI/AleutianLab/services/labserver/observability"
	"github.com/AleutianAI/AleutianLab/services/labserver/store"
)

// GenerateInsights regenerates the AI insight block for one experiment,
// persisting the new block and the recomputed derived flags. The whole
// AIInsights value is overwritten; hasAnomalies can flip in both directions.
func GenerateInsights(st store.ExperimentStore, gen *insight.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "GenerateInsights")
		defer span.End()

		id := c.Param("id")
		exp, err := st.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "insights", "experiment not found")
			return
		}
		if err != nil {
			slog.Error("Failed to fetch experiment for insights", "id", id, "error", err)
			respondError(c, http.StatusInternalServerError, "insights", "failed to fetch experiment")
			return
		}

		peers, err := st.List(ctx,
			store.Filter{ModelType: exp.Model.Type},
			store.Sort{Field: store.SortByCreatedAt, Descending: true},
			insightPeerFetchLimit)
		if err != nil {
			slog.Warn("Peer lookup failed, generating insights without peers", "id", id, "error", err)
			peers = nil
		}

		started := time.Now()
		insights := gen.GenerateInsights(ctx, exp, peers)
		observability.ObserveLLMCall("insights", time.Since(started).Seconds())

		exp.AIInsights = insights
		exp.LastModified = time.Now()
		analytics.RecomputeDerivedFlags(exp, peers, insights)

		if err := st.Update(ctx, exp); err != nil {
			slog.Error("Failed to persist regenerated insights", "id", id, "error", err)
			respondError(c, http.StatusInternalServerError, "insights", "failed to persist insights")
			return
		}

		slog.Info("Regenerated insights", "id", id, "has_anomalies", exp.HasAnomalies)
		respondData(c, http.StatusOK, "insights", insights)
	}
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

// AnswerQuery answers a free-form question over the most recent experiments.
func AnswerQuery(st store.ExperimentStore, gen *insight.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "AnswerQuery")
		defer span.End()

		var req queryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "query", "query is required")
			return
		}

		sample, err := st.List(ctx, store.Filter{},
			store.Sort{Field: store.SortByCreatedAt, Descending: true},
			insight.QuerySampleLimit)
		if err != nil {
			slog.Error("Failed to load experiment sample for query", "error", err)
			respondError(c, http.StatusInternalServerError, "query", "failed to load experiments")
			return
		}

		started := time.Now()
		answer := gen.AnswerQuery(ctx, req.Query, sample)
		observability.ObserveLLMCall("query", time.Since(started).Seconds())

		respondData(c, http.StatusOK, "query", gin.H{"answer": answer})
	}
}

type suggestRequest struct {
	ModelType string                `json:"modelType" binding:"required,oneof=classification regression clustering deep-learning nlp computer-vision other"`
	Dataset   datatypes.DatasetInfo `json:"dataset"`
}

// SuggestHyperparameters proposes a starting configuration for a new
// experiment. The data field is null when no suggestion is available; the
// caller handles that without treating it as an error.
func SuggestHyperparameters(st store.ExperimentStore, gen *insight.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "SuggestHyperparameters")
		defer span.End()

		var req suggestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "suggest", "invalid request: "+err.Error())
			return
		}

		history, err := st.List(ctx,
			store.Filter{ModelType: req.ModelType, Status: datatypes.StatusCompleted},
			store.Sort{Field: store.SortByCreatedAt, Descending: true}, 0)
		if err != nil {
			slog.Error("Failed to load history for suggestion", "error", err)
			respondError(c, http.StatusInternalServerError, "suggest", "failed to load experiment history")
			return
		}

		started := time.Now()
		suggestion, err := gen.SuggestHyperparameters(ctx, req.ModelType, req.Dataset, history)
		observability.ObserveLLMCall("suggest", time.Since(started).Seconds())
		if err != nil {
			slog.Warn("Hyperparameter suggestion unavailable", "model_type", req.ModelType, "error", err)
			respondData(c, http.StatusOK, "suggest", nil)
			return
		}
		if suggestion == nil {
			respondData(c, http.StatusOK, "suggest", nil)
			return
		}
		respondData(c, http.StatusOK, "suggest", suggestion)
	}
}

type compareRequest struct {
	ExperimentIDs []string `json:"experimentIds" binding:"required"`
}

// CompareExperiments produces a markdown comparison report for two or more
// experiments.
func CompareExperiments(st store.ExperimentStore, gen *insight.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "CompareExperiments")
		defer span.End()

		var req compareRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.ExperimentIDs) < 2 {
			respondError(c, http.StatusBadRequest, "compare", "at least 2 experiment ids are required")
			return
		}

		experiments := make([]*datatypes.Experiment, 0, len(req.ExperimentIDs))
		for _, id := range req.ExperimentIDs {
			exp, err := st.Get(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				respondError(c, http.StatusNotFound, "compare", "experiment not found: "+id)
				return
			}
			if err != nil {
				slog.Error("Failed to fetch experiment for comparison", "id", id, "error", err)
				respondError(c, http.StatusInternalServerError, "compare", "failed to fetch experiments")
				return
			}
			experiments = append(experiments, exp)
		}

		started := time.Now()
		report := gen.CompareExperiments(ctx, experiments)
		observability.ObserveLLMCall("compare", time.Since(started).Seconds())

		respondData(c, http.StatusOK, "compare", gin.H{"report": report})
	}
}
