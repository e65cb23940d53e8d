// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

// WeaviateStore is the primary backend. The serialized experiment lives in
// the "document" property; a handful of scalar properties are duplicated so
// filtering, range queries, and sorting run server-side. The object UUID is
// the experiment id.
type WeaviateStore struct {
	client *weaviate.Client
}

// NewWeaviateStore wraps an already-connected client. Callers are expected
// to have run datatypes.EnsureWeaviateSchema first.
func NewWeaviateStore(client *weaviate.Client) *WeaviateStore {
	return &WeaviateStore{client: client}
}

// experimentQueryResponse matches the GraphQL Get response shape for the
// Experiment class when only the document property is selected.
type experimentQueryResponse struct {
	Get struct {
		Experiment []struct {
			Document string `json:"document"`
		} `json:"Experiment"`
	} `json:"Get"`
}

// parseGraphQLResponse converts Weaviate's dynamic response payload into a
// typed struct via a marshal/unmarshal round trip.
func parseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}
	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}
	return &result, nil
}

// experimentProperties builds the Weaviate property map: the serialized
// document plus the denormalized filter scalars.
func experimentProperties(exp *datatypes.Experiment) (map[string]interface{}, error) {
	doc, err := json.Marshal(exp)
	if err != nil {
		return nil, fmt.Errorf("encode experiment %s: %w", exp.ID, err)
	}
	accuracy := 0.0
	if exp.Metrics.Accuracy != nil {
		accuracy = *exp.Metrics.Accuracy
	}
	tags := exp.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]interface{}{
		"document":      string(doc),
		"name":          exp.Name,
		"description":   exp.Description,
		"tag_list":      tags,
		"status":        exp.Status,
		"model_type":    exp.Model.Type,
		"created_at":    exp.CreatedAt.UnixMilli(),
		"accuracy":      accuracy,
		"has_anomalies": exp.HasAnomalies,
	}, nil
}

func (s *WeaviateStore) Insert(ctx context.Context, exp *datatypes.Experiment) error {
	props, err := experimentProperties(exp)
	if err != nil {
		return err
	}
	_, err = s.client.Data().Creator().
		WithClassName(datatypes.ExperimentClassName).
		WithID(exp.ID).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("inserting experiment %s: %w", exp.ID, err)
	}
	return nil
}

func (s *WeaviateStore) Get(ctx context.Context, id string) (*datatypes.Experiment, error) {
	objects, err := s.client.Data().ObjectsGetter().
		WithClassName(datatypes.ExperimentClassName).
		WithID(id).
		Do(ctx)
	if err != nil {
		return nil, mapLookupError(id, err)
	}
	if len(objects) == 0 {
		return nil, ErrNotFound
	}

	props, ok := objects[0].Properties.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("experiment %s has malformed properties", id)
	}
	doc, ok := props["document"].(string)
	if !ok {
		return nil, fmt.Errorf("experiment %s is missing its document property", id)
	}
	var exp datatypes.Experiment
	if err := json.Unmarshal([]byte(doc), &exp); err != nil {
		return nil, fmt.Errorf("decode experiment %s: %w", id, err)
	}
	return &exp, nil
}

// mapLookupError distinguishes a genuinely missing object from a failing
// store. The client reports a missing object as a status error: 404 for an
// unknown id, 422 for an id Weaviate rejects as malformed. Only those
// become ErrNotFound; transport and server failures stay wrapped so
// handlers report them as 5xx instead of telling clients the record is
// gone.
func mapLookupError(id string, err error) error {
	var clientErr *fault.WeaviateClientError
	if errors.As(err, &clientErr) {
		switch clientErr.StatusCode {
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return ErrNotFound
		}
	}
	return fmt.Errorf("fetching experiment %s: %w", id, err)
}

func (s *WeaviateStore) Update(ctx context.Context, exp *datatypes.Experiment) error {
	if _, err := s.Get(ctx, exp.ID); err != nil {
		return err
	}
	props, err := experimentProperties(exp)
	if err != nil {
		return err
	}
	err = s.client.Data().Updater().
		WithClassName(datatypes.ExperimentClassName).
		WithID(exp.ID).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("updating experiment %s: %w", exp.ID, err)
	}
	return nil
}

func (s *WeaviateStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	err := s.client.Data().Deleter().
		WithClassName(datatypes.ExperimentClassName).
		WithID(id).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("deleting experiment %s: %w", id, err)
	}
	return nil
}

func (s *WeaviateStore) List(ctx context.Context, filter Filter, sortBy Sort, limit int) ([]*datatypes.Experiment, error) {
	query := s.client.GraphQL().Get().
		WithClassName(datatypes.ExperimentClassName).
		WithFields(graphql.Field{Name: "document"}).
		WithSort(buildSort(sortBy))
	if where := buildWhere(filter); where != nil {
		query = query.WithWhere(where)
	}
	if limit > 0 {
		query = query.WithLimit(limit)
	}

	resp, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying experiments: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("query error: %s", resp.Errors[0].Message)
	}

	parsed, err := parseGraphQLResponse[experimentQueryResponse](resp)
	if err != nil {
		return nil, err
	}

	results := make([]*datatypes.Experiment, 0, len(parsed.Get.Experiment))
	for _, row := range parsed.Get.Experiment {
		var exp datatypes.Experiment
		if err := json.Unmarshal([]byte(row.Document), &exp); err != nil {
			return nil, fmt.Errorf("decode stored experiment: %w", err)
		}
		results = append(results, &exp)
	}
	return results, nil
}

func (s *WeaviateStore) Close() error { return nil }

// buildWhere translates Filter into a Weaviate where clause. Returns nil
// when the filter is empty.
func buildWhere(filter Filter) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder

	if filter.Status != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"status"}).
			WithOperator(filters.Equal).
			WithValueString(filter.Status))
	}
	if filter.ModelType != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"model_type"}).
			WithOperator(filters.Equal).
			WithValueString(filter.ModelType))
	}
	if filter.CreatedAfter > 0 {
		operands = append(operands, filters.Where().
			WithPath([]string{"created_at"}).
			WithOperator(filters.GreaterThanEqual).
			WithValueNumber(float64(filter.CreatedAfter)))
	}
	if filter.HasAnomalies != nil {
		operands = append(operands, filters.Where().
			WithPath([]string{"has_anomalies"}).
			WithOperator(filters.Equal).
			WithValueBoolean(*filter.HasAnomalies))
	}
	if filter.Search != "" {
		pattern := "*" + filter.Search + "*"
		operands = append(operands, filters.Where().
			WithOperator(filters.Or).
			WithOperands([]*filters.WhereBuilder{
				filters.Where().
					WithPath([]string{"name"}).
					WithOperator(filters.Like).
					WithValueText(pattern),
				filters.Where().
					WithPath([]string{"description"}).
					WithOperator(filters.Like).
					WithValueText(pattern),
				filters.Where().
					WithPath([]string{"tag_list"}).
					WithOperator(filters.Like).
					WithValueText(pattern),
			}))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().
			WithOperator(filters.And).
			WithOperands(operands)
	}
}

// buildSort maps the store sort contract onto the denormalized scalar
// properties. Unknown fields fall back to creation time.
func buildSort(s Sort) graphql.Sort {
	prop := "created_at"
	switch s.Field {
	case SortByName:
		prop = "name"
	case SortByAccuracy:
		prop = "accuracy"
	}
	order := graphql.Asc
	if s.Descending {
		order = graphql.Desc
	}
	return graphql.Sort{Path: []string{prop}, Order: order}
}
