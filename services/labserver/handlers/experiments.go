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
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianLab/services/labserver/analytics"
	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
	"github.com/AleutianAI/AleutianLab/services/labserver/insight"
	"github.com/AleutianAI/AleutianLab/services/labserver/store"
)

// defaultListLimit bounds unqualified experiment listings.
const defaultListLimit = 100

// insightPeerFetchLimit is how many recent same-type peers feed insight
// generation on create and regeneration.
const insightPeerFetchLimit = 10

func ListExperiments(st store.ExperimentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.Filter{
			Status:    c.Query("status"),
			ModelType: c.Query("modelType"),
			Search:    c.Query("search"),
		}
		if filter.Status != "" && !datatypes.ValidStatus(filter.Status) {
			respondError(c, http.StatusBadRequest, "experiments", "invalid status filter: "+filter.Status)
			return
		}

		sortBy := store.Sort{Field: store.SortByCreatedAt, Descending: true}
		switch field := c.Query("sortBy"); field {
		case "", store.SortByCreatedAt:
		case store.SortByName, store.SortByAccuracy:
			sortBy.Field = field
		default:
			respondError(c, http.StatusBadRequest, "experiments", "invalid sortBy field: "+field)
			return
		}
		if c.Query("order") == "asc" {
			sortBy.Descending = false
		}

		limit := defaultListLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				respondError(c, http.StatusBadRequest, "experiments", "limit must be a positive integer")
				return
			}
			limit = parsed
		}

		experiments, err := st.List(c.Request.Context(), filter, sortBy, limit)
		if err != nil {
			slog.Error("Failed to list experiments", "error", err)
			respondError(c, http.StatusInternalServerError, "experiments", "failed to list experiments")
			return
		}
		respondList(c, http.StatusOK, "experiments", experiments, len(experiments))
	}
}

func GetExperiment(st store.ExperimentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		exp, err := st.Get(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "experiments", "experiment not found")
			return
		}
		if err != nil {
			slog.Error("Failed to fetch experiment", "id", id, "error", err)
			respondError(c, http.StatusInternalServerError, "experiments", "failed to fetch experiment")
			return
		}
		respondData(c, http.StatusOK, "experiments", exp)
	}
}

func CreateExperiment(st store.ExperimentStore, gen *insight.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "CreateExperiment")
		defer span.End()

		var exp datatypes.Experiment
		if err := c.ShouldBindJSON(&exp); err != nil {
			respondError(c, http.StatusBadRequest, "experiments", "invalid experiment: "+err.Error())
			return
		}

		now := time.Now()
		exp.ID = uuid.NewString()
		exp.CreatedAt = now
		exp.LastModified = now
		if exp.Status == "" {
			exp.Status = datatypes.StatusPending
		}
		if exp.Status == datatypes.StatusCompleted && exp.CompletedAt == nil {
			exp.CompletedAt = &now
		}
		// Derived state is never accepted from the client.
		exp.IsBestPerforming = false
		exp.HasAnomalies = false
		exp.AIInsights = nil

		if gen.Enabled() {
			peers, err := st.List(ctx,
				store.Filter{ModelType: exp.Model.Type},
				store.Sort{Field: store.SortByCreatedAt, Descending: true},
				insightPeerFetchLimit)
			if err != nil {
				slog.Warn("Peer lookup for insight generation failed, continuing without peers", "error", err)
				peers = nil
			}
			exp.AIInsights = gen.GenerateInsights(ctx, &exp, peers)
			analytics.RecomputeDerivedFlags(&exp, peers, exp.AIInsights)
		}

		if err := st.Insert(ctx, &exp); err != nil {
			slog.Error("Failed to insert experiment", "id", exp.ID, "error", err)
			respondError(c, http.StatusInternalServerError, "experiments", "failed to create experiment")
			return
		}

		slog.Info("Created experiment", "id", exp.ID, "name", exp.Name, "status", exp.Status)
		respondData(c, http.StatusCreated, "experiments", &exp)
	}
}

func UpdateExperiment(st store.ExperimentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		existing, err := st.Get(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "experiments", "experiment not found")
			return
		}
		if err != nil {
			slog.Error("Failed to fetch experiment for update", "id", id, "error", err)
			respondError(c, http.StatusInternalServerError, "experiments", "failed to fetch experiment")
			return
		}

		var updated datatypes.Experiment
		if err := c.ShouldBindJSON(&updated); err != nil {
			respondError(c, http.StatusBadRequest, "experiments", "invalid experiment: "+err.Error())
			return
		}

		// Identity, creation time, and derived state survive the edit.
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		updated.CreatedBy = existing.CreatedBy
		updated.AIInsights = existing.AIInsights
		updated.IsBestPerforming = existing.IsBestPerforming
		updated.HasAnomalies = existing.HasAnomalies
		updated.LastModified = time.Now()
		if updated.Status == "" {
			updated.Status = existing.Status
		}
		if updated.Status == datatypes.StatusCompleted && updated.CompletedAt == nil {
			if existing.CompletedAt != nil {
				updated.CompletedAt = existing.CompletedAt
			} else {
				now := updated.LastModified
				updated.CompletedAt = &now
			}
		}

		if err := st.Update(c.Request.Context(), &updated); err != nil {
			slog.Error("Failed to update experiment", "id", id, "error", err)
			respondError(c, http.StatusInternalServerError, "experiments", "failed to update experiment")
			return
		}
		respondData(c, http.StatusOK, "experiments", &updated)
	}
}

func DeleteExperiment(st store.ExperimentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		err := st.Delete(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "experiments", "experiment not found")
			return
		}
		if err != nil {
			slog.Error("Failed to delete experiment", "id", id, "error", err)
			respondError(c, http.StatusInternalServerError, "experiments", "failed to delete experiment")
			return
		}
		slog.Info("Deleted experiment", "id", id)
		respondData(c, http.StatusOK, "experiments", gin.H{"deletedId": id})
	}
}
