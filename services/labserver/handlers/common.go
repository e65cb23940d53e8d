// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the lab server's HTTP endpoints. Every
// response uses the {"success": bool, "data"/"error": ...} envelope.
package handlers

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianLab/services/labserver/observability"
)

var handlerTracer = otel.Tracer("aleutian.labserver.handlers")

func respondData(c *gin.Context, code int, endpoint string, data any) {
	observability.RecordRequest(endpoint, true)
	c.JSON(code, gin.H{"success": true, "data": data})
}

func respondList(c *gin.Context, code int, endpoint string, data any, count int) {
	observability.RecordRequest(endpoint, true)
	c.JSON(code, gin.H{"success": true, "count": count, "data": data})
}

func respondError(c *gin.Context, code int, endpoint string, message string) {
	observability.RecordRequest(endpoint, false)
	c.JSON(code, gin.H{"success": false, "error": message})
}
