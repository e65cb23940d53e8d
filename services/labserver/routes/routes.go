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
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianLab/services/labserver/handlers"
	"github.com/AleutianAI/AleutianLab/services/labserver/insight"
	"github.com/AleutianAI/AleutianLab/services/labserver/store"
)

func SetupRoutes(router *gin.Engine, st store.ExperimentStore, gen *insight.Generator) {
	router.GET("/health", handlers.Health(gen))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		experiments := v1.Group("/experiments")
		{
			experiments.GET("", handlers.ListExperiments(st))
			experiments.POST("", handlers.CreateExperiment(st, gen))
			experiments.GET("/:id", handlers.GetExperiment(st))
			experiments.PUT("/:id", handlers.UpdateExperiment(st))
			experiments.DELETE("/:id", handlers.DeleteExperiment(st))
			experiments.POST("/:id/insights", handlers.GenerateInsights(st, gen))
		}

		v1.GET("/stats", handlers.GetStats(st))
		v1.GET("/trends", handlers.GetTrends(st))
		v1.GET("/anomalies", handlers.GetAnomalies(st))

		v1.POST("/query", handlers.AnswerQuery(st, gen))
		v1.POST("/suggest-hyperparameters", handlers.SuggestHyperparameters(st, gen))
		v1.POST("/compare", handlers.CompareExperiments(st, gen))
	}
}
