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
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
	"github.com/AleutianAI/AleutianLab/services/labserver/insight"
	"github.com/AleutianAI/AleutianLab/services/labserver/store"
	"github.com/AleutianAI/AleutianLab/services/llm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Test Fixtures
// =============================================================================

// mockLLM is a scripted backend for handler tests.
type mockLLM struct {
	response  string
	err       error
	callCount int
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	m.callCount++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func f64(v float64) *float64 { return &v }

var seedTime = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

// seedExperiment inserts a completed classification experiment directly into
// the store, bypassing the create handler.
func seedExperiment(t *testing.T, st store.ExperimentStore, id string) *datatypes.Experiment {
	t.Helper()
	exp := &datatypes.Experiment{
		ID:          id,
		Name:        id,
		Description: "seeded experiment " + id,
		Status:      datatypes.StatusCompleted,
		Model: datatypes.ModelInfo{
			Name: "model-" + id,
			Type: datatypes.ModelTypeClassification,
		},
		Dataset:   datatypes.DatasetInfo{Name: "dataset"},
		Metrics:   datatypes.Metrics{Accuracy: f64(0.8)},
		CreatedAt: seedTime,
	}
	require.NoError(t, st.Insert(context.Background(), exp))
	return exp
}

func performRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// envelope is the standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, env envelope, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target))
}

// validCreateBody is a minimal experiment document accepted by the binding
// rules.
const validCreateBody = `{
	"name": "new-run",
	"description": "a new training run",
	"model": {"name": "resnet50", "type": "classification"},
	"dataset": {"name": "cifar10"}
}`

func newGenerator(client llm.LLMClient) *insight.Generator {
	return insight.NewGenerator(client)
}
