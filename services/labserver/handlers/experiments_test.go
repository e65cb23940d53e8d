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

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
	"github.com/AleutianAI/AleutianLab/services/labserver/store"
)

func experimentsRouter(st store.ExperimentStore, client *mockLLM) *gin.Engine {
	router := gin.New()
	var gen = newGenerator(nil)
	if client != nil {
		gen = newGenerator(client)
	}
	router.GET("/v1/experiments", ListExperiments(st))
	router.POST("/v1/experiments", CreateExperiment(st, gen))
	router.GET("/v1/experiments/:id", GetExperiment(st))
	router.PUT("/v1/experiments/:id", UpdateExperiment(st))
	router.DELETE("/v1/experiments/:id", DeleteExperiment(st))
	return router
}

// =============================================================================
// Create
// =============================================================================

func TestCreateExperiment(t *testing.T) {
	st := store.NewMemoryStore()
	router := experimentsRouter(st, nil)

	w := performRequest(router, http.MethodPost, "/v1/experiments", validCreateBody)
	require.Equal(t, http.StatusCreated, w.Code)

	env := parseEnvelope(t, w)
	require.True(t, env.Success)

	var created datatypes.Experiment
	decodeData(t, env, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "new-run", created.Name)
	assert.Equal(t, datatypes.StatusPending, created.Status, "status defaults to pending")
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.LastModified)

	stored, err := st.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-run", stored.Name)
}

func TestCreateExperiment_Validation(t *testing.T) {
	router := experimentsRouter(store.NewMemoryStore(), nil)

	testCases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"missing name", `{"description": "d", "model": {"name": "m", "type": "nlp"}, "dataset": {"name": "d"}}`},
		{"missing model", `{"name": "n", "description": "d", "dataset": {"name": "d"}}`},
		{"bad model type", `{"name": "n", "description": "d", "model": {"name": "m", "type": "transformer"}, "dataset": {"name": "d"}}`},
		{"bad status", `{"name": "n", "description": "d", "status": "done", "model": {"name": "m", "type": "nlp"}, "dataset": {"name": "d"}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/v1/experiments", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := parseEnvelope(t, w)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestCreateExperiment_IgnoresClientDerivedState(t *testing.T) {
	st := store.NewMemoryStore()
	router := experimentsRouter(st, nil)

	body := `{
		"name": "sneaky",
		"description": "claims to be best",
		"model": {"name": "m", "type": "classification"},
		"dataset": {"name": "d"},
		"isBestPerforming": true,
		"hasAnomalies": true,
		"aiInsights": {"summary": "fabricated"}
	}`
	w := performRequest(router, http.MethodPost, "/v1/experiments", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created datatypes.Experiment
	decodeData(t, parseEnvelope(t, w), &created)
	assert.False(t, created.IsBestPerforming)
	assert.False(t, created.HasAnomalies)
	assert.Nil(t, created.AIInsights)
}

func TestCreateExperiment_CompletedGetsCompletedAt(t *testing.T) {
	router := experimentsRouter(store.NewMemoryStore(), nil)

	body := `{
		"name": "done-run",
		"description": "already finished",
		"status": "completed",
		"model": {"name": "m", "type": "classification"},
		"dataset": {"name": "d"}
	}`
	w := performRequest(router, http.MethodPost, "/v1/experiments", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created datatypes.Experiment
	decodeData(t, parseEnvelope(t, w), &created)
	require.NotNil(t, created.CompletedAt)
}

func TestCreateExperiment_GeneratesInsightsWhenEnabled(t *testing.T) {
	st := store.NewMemoryStore()
	client := &mockLLM{response: `{"summary": "Fresh run", "recommendations": [], "anomalies": ["odd loss curve"]}`}
	router := experimentsRouter(st, client)

	w := performRequest(router, http.MethodPost, "/v1/experiments", validCreateBody)
	require.Equal(t, http.StatusCreated, w.Code)

	var created datatypes.Experiment
	decodeData(t, parseEnvelope(t, w), &created)
	require.NotNil(t, created.AIInsights)
	assert.Equal(t, "Fresh run", created.AIInsights.Summary)
	assert.True(t, created.HasAnomalies, "derived flag follows the generated block")
	assert.Equal(t, 1, client.callCount)
}

// =============================================================================
// Get / Update / Delete
// =============================================================================

func TestGetExperiment(t *testing.T) {
	st := store.NewMemoryStore()
	seedExperiment(t, st, "exp-1")
	router := experimentsRouter(st, nil)

	w := performRequest(router, http.MethodGet, "/v1/experiments/exp-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got datatypes.Experiment
	decodeData(t, parseEnvelope(t, w), &got)
	assert.Equal(t, "exp-1", got.ID)
}

func TestGetExperiment_NotFound(t *testing.T) {
	router := experimentsRouter(store.NewMemoryStore(), nil)

	w := performRequest(router, http.MethodGet, "/v1/experiments/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := parseEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "experiment not found", env.Error)
}

func TestUpdateExperiment(t *testing.T) {
	st := store.NewMemoryStore()
	seeded := seedExperiment(t, st, "exp-1")
	seeded.AIInsights = &datatypes.AIInsights{Summary: "kept"}
	seeded.HasAnomalies = true
	require.NoError(t, st.Update(context.Background(), seeded))
	router := experimentsRouter(st, nil)

	body := `{
		"name": "renamed",
		"description": "edited",
		"status": "completed",
		"model": {"name": "m2", "type": "classification"},
		"dataset": {"name": "d"}
	}`
	w := performRequest(router, http.MethodPut, "/v1/experiments/exp-1", body)
	require.Equal(t, http.StatusOK, w.Code)

	var updated datatypes.Experiment
	decodeData(t, parseEnvelope(t, w), &updated)
	assert.Equal(t, "exp-1", updated.ID)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, seeded.CreatedAt.UTC(), updated.CreatedAt.UTC(), "creation time survives edits")
	require.NotNil(t, updated.AIInsights)
	assert.Equal(t, "kept", updated.AIInsights.Summary, "insight block survives edits")
	assert.True(t, updated.HasAnomalies)
	assert.True(t, updated.LastModified.After(updated.CreatedAt))
	require.NotNil(t, updated.CompletedAt)
}

func TestUpdateExperiment_NotFound(t *testing.T) {
	router := experimentsRouter(store.NewMemoryStore(), nil)

	w := performRequest(router, http.MethodPut, "/v1/experiments/missing", validCreateBody)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteExperiment(t *testing.T) {
	st := store.NewMemoryStore()
	seedExperiment(t, st, "exp-1")
	router := experimentsRouter(st, nil)

	w := performRequest(router, http.MethodDelete, "/v1/experiments/exp-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var deleted struct {
		DeletedID string `json:"deletedId"`
	}
	decodeData(t, parseEnvelope(t, w), &deleted)
	assert.Equal(t, "exp-1", deleted.DeletedID)

	w = performRequest(router, http.MethodDelete, "/v1/experiments/exp-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// List
// =============================================================================

func TestListExperiments(t *testing.T) {
	st := store.NewMemoryStore()
	a := seedExperiment(t, st, "alpha")
	a.CreatedAt = seedTime.AddDate(0, 0, 2)
	require.NoError(t, st.Update(context.Background(), a))
	b := seedExperiment(t, st, "beta")
	b.Status = datatypes.StatusRunning
	require.NoError(t, st.Update(context.Background(), b))
	seedExperiment(t, st, "gamma")
	router := experimentsRouter(st, nil)

	t.Run("default newest first", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/v1/experiments", "")
		require.Equal(t, http.StatusOK, w.Code)
		env := parseEnvelope(t, w)
		assert.Equal(t, 3, env.Count)

		var results []datatypes.Experiment
		decodeData(t, env, &results)
		require.Len(t, results, 3)
		assert.Equal(t, "alpha", results[0].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/v1/experiments?status=running", "")
		require.Equal(t, http.StatusOK, w.Code)
		env := parseEnvelope(t, w)
		assert.Equal(t, 1, env.Count)
	})

	t.Run("search filter", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/v1/experiments?search=GAMMA", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, parseEnvelope(t, w).Count)
	})

	t.Run("name sort ascending", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/v1/experiments?sortBy=name&order=asc", "")
		require.Equal(t, http.StatusOK, w.Code)

		var results []datatypes.Experiment
		decodeData(t, parseEnvelope(t, w), &results)
		require.Len(t, results, 3)
		assert.Equal(t, "alpha", results[0].ID)
		assert.Equal(t, "gamma", results[2].ID)
	})

	t.Run("limit", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/v1/experiments?limit=2", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, parseEnvelope(t, w).Count)
	})

	t.Run("invalid status", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/v1/experiments?status=done", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid sortBy", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/v1/experiments?sortBy=loss", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid limit", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/v1/experiments?limit=0", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = performRequest(router, http.MethodGet, "/v1/experiments?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
