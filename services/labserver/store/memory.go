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
	"fmt"
	"sync"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

// MemoryStore is a map-backed ExperimentStore for tests and ephemeral runs.
// Records are stored serialized so callers never share pointers with the
// store; mutating a returned experiment does not mutate stored state.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Insert(_ context.Context, exp *datatypes.Experiment) error {
	data, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("encode experiment %s: %w", exp.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[exp.ID] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*datatypes.Experiment, error) {
	s.mu.RLock()
	data, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var exp datatypes.Experiment
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("decode experiment %s: %w", id, err)
	}
	return &exp, nil
}

func (s *MemoryStore) Update(_ context.Context, exp *datatypes.Experiment) error {
	data, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("encode experiment %s: %w", exp.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[exp.ID]; !ok {
		return ErrNotFound
	}
	s.docs[exp.ID] = data
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter, sortBy Sort, limit int) ([]*datatypes.Experiment, error) {
	s.mu.RLock()
	snapshot := make([][]byte, 0, len(s.docs))
	for _, data := range s.docs {
		snapshot = append(snapshot, data)
	}
	s.mu.RUnlock()

	results := make([]*datatypes.Experiment, 0, len(snapshot))
	for _, data := range snapshot {
		var exp datatypes.Experiment
		if err := json.Unmarshal(data, &exp); err != nil {
			return nil, fmt.Errorf("decode stored experiment: %w", err)
		}
		if matchesFilter(&exp, filter) {
			results = append(results, &exp)
		}
	}

	sortExperiments(results, sortBy)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) Close() error { return nil }
