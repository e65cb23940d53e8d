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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLab/services/labserver/analytics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the lab server's dashboard summary",
	RunE:  runStats,
}

type statsResponse struct {
	Success bool            `json:"success"`
	Data    analytics.Stats `json:"data"`
	Error   string          `json:"error"`
}

func runStats(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(serverURL + "/v1/stats")
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read stats response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed statsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode stats response: %w", err)
	}
	if !parsed.Success {
		return fmt.Errorf("server reported failure: %s", parsed.Error)
	}

	printStats(parsed.Data)
	return nil
}

func printStats(stats analytics.Stats) {
	fmt.Println("Experiment summary")
	fmt.Printf("  total:     %d\n", stats.TotalCount)
	fmt.Printf("  completed: %d\n", stats.CompletedCount)
	fmt.Printf("  running:   %d\n", stats.RunningCount)
	fmt.Printf("  pending:   %d\n", stats.PendingCount)
	fmt.Printf("  failed:    %d\n", stats.FailedCount)

	if len(stats.CountsByType) > 0 {
		fmt.Println("By model type:")
		types := make([]string, 0, len(stats.CountsByType))
		for t := range stats.CountsByType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Printf("  %-16s %d\n", t, stats.CountsByType[t])
		}
	}

	if len(stats.AverageMetrics) > 0 {
		fmt.Println("Average metrics (completed runs):")
		names := make([]string, 0, len(stats.AverageMetrics))
		for name := range stats.AverageMetrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if v := stats.AverageMetrics[name]; v != nil {
				fmt.Printf("  %-10s %.4f\n", name, *v)
			}
		}
	}

	if stats.BestExperiment != nil {
		fmt.Printf("Best experiment: %s (%s)\n",
			stats.BestExperiment.Name, stats.BestExperiment.ID)
	}
}
