// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLab/services/labserver/insight"
	"github.com/AleutianAI/AleutianLab/services/labserver/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter() *gin.Engine {
	router := gin.New()
	SetupRoutes(router, store.NewMemoryStore(), insight.NewGenerator(nil))
	return router
}

func TestSetupRoutes_Registration(t *testing.T) {
	router := testRouter()

	routesByMethod := make(map[string][]string)
	for _, info := range router.Routes() {
		routesByMethod[info.Method] = append(routesByMethod[info.Method], info.Path)
	}

	for _, path := range []string{
		"/health",
		"/v1/experiments",
		"/v1/experiments/:id",
		"/v1/stats",
		"/v1/trends",
		"/v1/anomalies",
	} {
		assert.Contains(t, routesByMethod[http.MethodGet], path)
	}
	for _, path := range []string{
		"/v1/experiments",
		"/v1/experiments/:id/insights",
		"/v1/query",
		"/v1/suggest-hyperparameters",
		"/v1/compare",
	} {
		assert.Contains(t, routesByMethod[http.MethodPost], path)
	}
	assert.Contains(t, routesByMethod[http.MethodPut], "/v1/experiments/:id")
	assert.Contains(t, routesByMethod[http.MethodDelete], "/v1/experiments/:id")
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", strings.NewReader(""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status    string `json:"status"`
		AIEnabled bool   `json:"aiEnabled"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.AIEnabled, "no backend configured in this router")
}

func TestEndToEnd_CreateListGet(t *testing.T) {
	router := testRouter()

	body := `{
		"name": "smoke",
		"description": "end to end",
		"model": {"name": "m", "type": "classification"},
		"dataset": {"name": "d"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/experiments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	req = httptest.NewRequest(http.MethodGet, "/v1/experiments/"+created.Data.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/experiments", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Count)
}
