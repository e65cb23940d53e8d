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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLab/pkg/logging"
)

var (
	serverURL string
	logLevel  string

	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "labctl",
	Short: "Operator CLI for the Aleutian lab server",
	Long: `labctl talks to a running lab server over HTTP.

Use 'labctl seed' to load sample experiments from a YAML file and
'labctl stats' to print the dashboard summary.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		serverURL = strings.TrimSuffix(serverURL, "/")
		logger = logging.New(logging.Config{
			Level:   logging.ParseLevel(logLevel),
			Service: "labctl",
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://localhost:12310", "Base URL of the lab server")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level",
		"info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(statsCmd)
}
