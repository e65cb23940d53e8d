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
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestParseInsightResponse_BareJSON(t *testing.T) {
	text := `{
		"summary": "Solid run with mild overfitting.",
		"recommendations": ["Add dropout", "Lower the learning rate"],
		"anomalies": ["Validation loss diverges after epoch 20"],
		"comparisonWithPrevious": "Better than the last three runs.",
		"hyperparameterSuggestions": {"learningRate": "try 0.0005"}
	}`

	insights, parsed := parseInsightResponse(text, parseTime)

	assert.True(t, parsed)
	assert.Equal(t, "Solid run with mild overfitting.", insights.Summary)
	assert.Equal(t, []string{"Add dropout", "Lower the learning rate"}, insights.Recommendations)
	assert.Equal(t, []string{"Validation loss diverges after epoch 20"}, insights.Anomalies)
	assert.Equal(t, "Better than the last three runs.", insights.ComparisonWithPrevious)
	assert.Equal(t, "try 0.0005", insights.HyperparameterSuggestion["learningRate"])
	assert.Equal(t, parseTime, insights.GeneratedAt)
}

func TestParseInsightResponse_FencedJSON(t *testing.T) {
	text := "Here is my analysis:\n```json\n" +
		`{"summary": "Fenced response", "recommendations": ["a"], "anomalies": []}` +
		"\n```\nLet me know if you need more."

	insights, parsed := parseInsightResponse(text, parseTime)

	assert.True(t, parsed)
	assert.Equal(t, "Fenced response", insights.Summary)
	assert.Equal(t, []string{"a"}, insights.Recommendations)
	assert.Empty(t, insights.Anomalies)
}

func TestParseInsightResponse_PartialFallback(t *testing.T) {
	text := "  The model appears to be doing fine but I cannot produce JSON today.  "

	insights, parsed := parseInsightResponse(text, parseTime)

	assert.False(t, parsed)
	assert.Equal(t, strings.TrimSpace(text), insights.Summary)
	require.NotNil(t, insights.Recommendations)
	assert.Empty(t, insights.Recommendations)
	require.NotNil(t, insights.Anomalies)
	assert.Empty(t, insights.Anomalies)
	assert.Equal(t, parseTime, insights.GeneratedAt)
}

func TestParseInsightResponse_PartialFallbackTruncates(t *testing.T) {
	text := strings.Repeat("x", 500)

	insights, parsed := parseInsightResponse(text, parseTime)

	assert.False(t, parsed)
	assert.Len(t, insights.Summary, rawSummaryLimit)
}

func TestParseInsightResponse_PartialFallbackKeepsRunesWhole(t *testing.T) {
	// A multi-byte rune straddling the limit must survive intact, not be
	// cut mid-sequence into invalid UTF-8.
	text := strings.Repeat("a", rawSummaryLimit-1) + "世界は広い"

	insights, parsed := parseInsightResponse(text, parseTime)

	assert.False(t, parsed)
	assert.True(t, utf8.ValidString(insights.Summary))
	assert.Equal(t, rawSummaryLimit, utf8.RuneCountInString(insights.Summary))
	assert.True(t, strings.HasSuffix(insights.Summary, "世"))
}

func TestParseInsightResponse_MissingFieldsGetDefaults(t *testing.T) {
	insights, parsed := parseInsightResponse(`{"comparisonWithPrevious": "n/a"}`, parseTime)

	assert.True(t, parsed)
	assert.Equal(t, "Analysis completed", insights.Summary)
	require.NotNil(t, insights.Recommendations)
	assert.Empty(t, insights.Recommendations)
	require.NotNil(t, insights.Anomalies)
	assert.Empty(t, insights.Anomalies)
}

func TestParseJSONPayload(t *testing.T) {
	type payload struct {
		LearningRate float64 `json:"learningRate"`
	}

	t.Run("bare", func(t *testing.T) {
		var p payload
		require.NoError(t, parseJSONPayload(`{"learningRate": 0.001}`, &p))
		assert.Equal(t, 0.001, p.LearningRate)
	})

	t.Run("brace fallback", func(t *testing.T) {
		var p payload
		text := `I suggest the following: {"learningRate": 0.01} based on history.`
		require.NoError(t, parseJSONPayload(text, &p))
		assert.Equal(t, 0.01, p.LearningRate)
	})

	t.Run("no JSON surfaces error", func(t *testing.T) {
		var p payload
		err := parseJSONPayload("no structured content here", &p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no JSON object")
	})

	t.Run("malformed JSON surfaces error", func(t *testing.T) {
		var p payload
		err := parseJSONPayload(`{"learningRate": oops}`, &p)
		require.Error(t, err)
	})
}

func TestExtractJSON(t *testing.T) {
	t.Run("json fence", func(t *testing.T) {
		got := extractJSON("```json\n{\"a\": 1}\n```")
		assert.Equal(t, `{"a": 1}`, got)
	})

	t.Run("plain fence", func(t *testing.T) {
		got := extractJSON("```\n{\"a\": 1}\n```")
		assert.Equal(t, `{"a": 1}`, got)
	})

	t.Run("outermost braces", func(t *testing.T) {
		got := extractJSON(`prefix {"a": {"b": 2}} suffix`)
		assert.Equal(t, `{"a": {"b": 2}}`, got)
	})

	t.Run("nothing extractable", func(t *testing.T) {
		assert.Empty(t, extractJSON("just prose"))
	})
}
