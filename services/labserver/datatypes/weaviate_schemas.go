// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// ExperimentClassName is the Weaviate class holding experiment documents.
const ExperimentClassName = "Experiment"

// GetExperimentSchema returns the Experiment class definition.
//
// The full document is stored serialized in the "document" property; the
// remaining properties are denormalized scalars that exist only so queries
// can filter and sort server-side. The document is always authoritative.
func GetExperimentSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       ExperimentClassName,
		Description: "One logged ML training/evaluation run, stored as a serialized document plus filterable scalars.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:         "document",
				DataType:     []string{"text"},
				Description:  "The serialized experiment record. Authoritative.",
				Tokenization: "word",
			},
			{
				Name:            "name",
				DataType:        []string{"text"},
				Description:     "Experiment name, duplicated for search and sorting.",
				IndexFilterable: indexFilterable,
				Tokenization:    "word",
			},
			{
				Name:            "description",
				DataType:        []string{"text"},
				Description:     "Experiment description, duplicated for search.",
				IndexFilterable: indexFilterable,
				Tokenization:    "word",
			},
			{
				Name:            "tag_list",
				DataType:        []string{"text[]"},
				Description:     "Experiment tags, duplicated for search.",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "status",
				DataType:        []string{"text"},
				Description:     "Lifecycle status (pending/running/completed/failed).",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "model_type",
				DataType:        []string{"text"},
				Description:     "Model type (classification, regression, ...).",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "created_at",
				DataType:        []string{"number"},
				Description:     "Creation timestamp (Unix ms), for range filters and sorting.",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "accuracy",
				DataType:        []string{"number"},
				Description:     "Accuracy metric when recorded, for sorting. 0 when absent.",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "has_anomalies",
				DataType:        []string{"boolean"},
				Description:     "Derived anomaly flag, recomputed at insight generation.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureWeaviateSchema creates the Experiment class if it does not exist.
func EnsureWeaviateSchema(ctx context.Context, client *weaviate.Client) error {
	class := GetExperimentSchema()
	slog.Info("Checking schema", "class", class.Class)

	// The client returns an error when the class does not exist yet.
	_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
	if err == nil {
		slog.Info("Schema already exists", "class", class.Class)
		return nil
	}

	slog.Info("Schema not found, creating it...", "class", class.Class)
	if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create schema for class %s: %w", class.Class, err)
	}
	slog.Info("Successfully created schema", "class", class.Class)
	return nil
}
