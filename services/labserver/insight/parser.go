// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package insight

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

// rawSummaryLimit caps how much of an unparsable response is kept as the
// degraded summary.
const rawSummaryLimit = 200

// insightResponse is the JSON shape the model is asked to return.
type insightResponse struct {
	Summary                   string            `json:"summary"`
	Recommendations           []string          `json:"recommendations"`
	Anomalies                 []string          `json:"anomalies"`
	ComparisonWithPrevious    string            `json:"comparisonWithPrevious"`
	HyperparameterSuggestions map[string]string `json:"hyperparameterSuggestions"`
}

// parseInsightResponse decodes a model response into an insight result. The
// second return reports whether the response parsed as structured JSON.
//
// The response is tried as bare JSON first, then with markdown code fences
// stripped. On any parse failure the raw text is degraded into a partial
// result: the first rawSummaryLimit characters become the summary and the
// lists stay empty. This path never returns an error; unparsable output is
// a defined fallback, not a crash.
func parseInsightResponse(text string, generatedAt time.Time) (*datatypes.AIInsights, bool) {
	var resp insightResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		cleaned := extractJSON(text)
		if cleaned == "" || json.Unmarshal([]byte(cleaned), &resp) != nil {
			return &datatypes.AIInsights{
				Summary:         truncate(strings.TrimSpace(text), rawSummaryLimit),
				Recommendations: []string{},
				Anomalies:       []string{},
				GeneratedAt:     generatedAt,
			}, false
		}
	}

	result := &datatypes.AIInsights{
		Summary:                  resp.Summary,
		Recommendations:          resp.Recommendations,
		Anomalies:                resp.Anomalies,
		ComparisonWithPrevious:   resp.ComparisonWithPrevious,
		HyperparameterSuggestion: resp.HyperparameterSuggestions,
		GeneratedAt:              generatedAt,
	}
	if result.Summary == "" {
		result.Summary = "Analysis completed"
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
	if result.Anomalies == nil {
		result.Anomalies = []string{}
	}
	return result, true
}

// parseJSONPayload extracts and decodes a JSON object from a model response
// into target. Unlike parseInsightResponse this surfaces the error: the
// suggestion path must report "no suggestion available" rather than
// fabricate a partial one.
func parseJSONPayload(text string, target any) error {
	if err := json.Unmarshal([]byte(text), target); err == nil {
		return nil
	}
	cleaned := extractJSON(text)
	if cleaned == "" {
		return fmt.Errorf("response contains no JSON object")
	}
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return fmt.Errorf("failed to decode response JSON: %w", err)
	}
	return nil
}

// extractJSON pulls a JSON payload out of markdown code fences, falling
// back to the outermost brace pair.
func extractJSON(response string) string {
	startMarkers := []string{"```json\n", "```json\r\n", "```\n", "```\r\n"}
	endMarker := "```"

	for _, startMarker := range startMarkers {
		startIdx := strings.Index(response, startMarker)
		if startIdx == -1 {
			continue
		}
		contentStart := startIdx + len(startMarker)
		remaining := response[contentStart:]
		endIdx := strings.Index(remaining, endMarker)
		if endIdx == -1 {
			continue
		}
		return strings.TrimSpace(remaining[:endIdx])
	}

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx != -1 && endIdx > startIdx {
		return response[startIdx : endIdx+1]
	}
	return ""
}

// truncate keeps at most limit characters. The cut lands on a rune
// boundary so a multi-byte character is never split into invalid UTF-8.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
