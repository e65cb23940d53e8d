// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists experiment documents.
//
// Two production backends implement ExperimentStore: Weaviate (the primary
// document store) and an embedded BadgerDB used in lightweight mode when no
// Weaviate URL is configured. A map-backed MemoryStore serves tests.
//
// The store layer owns filtering, sorting, and limiting so the analytics
// code always operates on an already-fetched in-memory slice. Concurrent
// updates to the same record are last-write-wins; there is no version
// check by design.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

// ErrNotFound reports an operation on an unknown experiment id. It is
// distinct from an empty query result, which is not an error.
var ErrNotFound = errors.New("experiment not found")

// Sortable fields for List.
const (
	SortByCreatedAt = "createdAt"
	SortByName      = "name"
	SortByAccuracy  = "accuracy"
)

// Filter narrows a List query. Zero values mean "no constraint".
type Filter struct {
	// Status matches the lifecycle status exactly.
	Status string

	// ModelType matches model.type exactly.
	ModelType string

	// Search matches name, description, or any tag, case-insensitively.
	Search string

	// CreatedAfter keeps records created at or after this instant.
	CreatedAfter int64 // unix milliseconds; 0 means unbounded

	// HasAnomalies, when non-nil, matches the derived anomaly flag.
	HasAnomalies *bool
}

// Sort orders a List result.
type Sort struct {
	Field      string // one of the SortBy constants; default SortByCreatedAt
	Descending bool
}

// ExperimentStore is the persistence contract for experiment documents.
type ExperimentStore interface {
	// Insert stores a new experiment under its ID.
	Insert(ctx context.Context, exp *datatypes.Experiment) error

	// Get returns the experiment with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*datatypes.Experiment, error)

	// Update overwrites the stored document. Returns ErrNotFound when the
	// id is unknown. Last write wins on concurrent updates.
	Update(ctx context.Context, exp *datatypes.Experiment) error

	// Delete removes the document outright (no soft delete). Returns
	// ErrNotFound when the id is unknown.
	Delete(ctx context.Context, id string) error

	// List returns experiments matching filter, ordered by sort, capped at
	// limit (limit <= 0 means no cap). An empty result is not an error.
	List(ctx context.Context, filter Filter, s Sort, limit int) ([]*datatypes.Experiment, error)

	// Close releases backend resources.
	Close() error
}

// matchesFilter applies Filter in memory. The Badger and memory backends
// use it directly; the Weaviate backend pushes the equivalent constraints
// into its GraphQL where clause.
func matchesFilter(exp *datatypes.Experiment, filter Filter) bool {
	if filter.Status != "" && exp.Status != filter.Status {
		return false
	}
	if filter.ModelType != "" && exp.Model.Type != filter.ModelType {
		return false
	}
	if filter.CreatedAfter > 0 && exp.CreatedAt.UnixMilli() < filter.CreatedAfter {
		return false
	}
	if filter.HasAnomalies != nil && exp.HasAnomalies != *filter.HasAnomalies {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(exp.Name), needle) &&
			!strings.Contains(strings.ToLower(exp.Description), needle) &&
			!tagMatches(exp.Tags, needle) {
			return false
		}
	}
	return true
}

func tagMatches(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// sortExperiments orders results in place for the in-memory backends.
// Unknown sort fields fall back to creation time.
func sortExperiments(experiments []*datatypes.Experiment, s Sort) {
	less := func(a, b *datatypes.Experiment) bool {
		switch s.Field {
		case SortByName:
			return a.Name < b.Name
		case SortByAccuracy:
			av, bv := accuracyOrZero(a), accuracyOrZero(b)
			if av != bv {
				return av < bv
			}
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(experiments, func(i, j int) bool {
		if s.Descending {
			return less(experiments[j], experiments[i])
		}
		return less(experiments[i], experiments[j])
	})
}

func accuracyOrZero(e *datatypes.Experiment) float64 {
	if e.Metrics.Accuracy != nil {
		return *e.Metrics.Accuracy
	}
	return 0
}
