// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// seedWorkers bounds concurrent uploads so a large seed file does not
// stampede the server.
const seedWorkers = 4

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample experiments from a YAML file into the lab server",
	Long: `Reads a YAML file containing a list of experiment documents and POSTs
each one to the lab server. Uploads run concurrently; individual failures
are logged and counted but do not abort the run.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML file with a list of experiments (required)")
	seedCmd.MarkFlagRequired("file")
}

func runSeed(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	// The documents stay schema-free here; the server validates them.
	var docs []map[string]any
	if err := yaml.Unmarshal(raw, &docs); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("seed file %s contains no experiments", seedFile)
	}

	logger.Info("Seeding experiments", "count", len(docs), "server", serverURL)
	client := &http.Client{Timeout: 5 * time.Minute}
	endpoint := serverURL + "/v1/experiments"

	var created, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(seedWorkers)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := postExperiment(client, endpoint, doc); err != nil {
				logger.Error("Failed to create experiment", "name", doc["name"], "error", err)
				failed.Add(1)
				return nil
			}
			logger.Info("Created experiment", "name", doc["name"])
			created.Add(1)
			return nil
		})
	}
	g.Wait()

	fmt.Printf("Seed complete: %d created, %d failed\n", created.Load(), failed.Load())
	if failed.Load() > 0 {
		return fmt.Errorf("%d experiments failed to seed", failed.Load())
	}
	return nil
}

func postExperiment(client *http.Client, endpoint string, doc map[string]any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode experiment: %w", err)
	}

	resp, err := client.Post(endpoint, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("post experiment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
