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
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianLab/services/labserver/datatypes"
)

// expKeyPrefix namespaces experiment documents inside the Badger keyspace.
const expKeyPrefix = "exp:"

// BadgerConfig holds configuration for the embedded Badger backend.
type BadgerConfig struct {
	// Path is the directory for database files. Required unless InMemory.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for
	// testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives Badger's internal log output. If nil, internal
	// logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults for a persistent database
// at path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig returns a configuration for tests: in-memory mode,
// async writes.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore is the embedded lightweight-mode backend. Documents are stored
// as JSON values keyed by experiment id; filtering and sorting happen in
// memory after a prefix scan, which is fine at single-workstation scale.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens the embedded database with the given configuration.
// The caller owns the returned store and must Close it.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func expKey(id string) []byte {
	return []byte(expKeyPrefix + id)
}

func (s *BadgerStore) Insert(ctx context.Context, exp *datatypes.Experiment) error {
	return s.put(ctx, exp, false)
}

func (s *BadgerStore) Update(ctx context.Context, exp *datatypes.Experiment) error {
	return s.put(ctx, exp, true)
}

func (s *BadgerStore) put(ctx context.Context, exp *datatypes.Experiment, mustExist bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("encode experiment %s: %w", exp.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := expKey(exp.ID)
		if mustExist {
			if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			} else if err != nil {
				return fmt.Errorf("read experiment %s: %w", exp.ID, err)
			}
		}
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*datatypes.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var exp datatypes.Experiment
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(expKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("read experiment %s: %w", id, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &exp)
		})
	})
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := expKey(id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("read experiment %s: %w", id, err)
		}
		return txn.Delete(key)
	})
}

func (s *BadgerStore) List(ctx context.Context, filter Filter, sortBy Sort, limit int) ([]*datatypes.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var results []*datatypes.Experiment
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(expKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var exp datatypes.Experiment
				if err := json.Unmarshal(val, &exp); err != nil {
					return fmt.Errorf("decode stored experiment: %w", err)
				}
				if matchesFilter(&exp, filter) {
					results = append(results, &exp)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortExperiments(results, sortBy)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
