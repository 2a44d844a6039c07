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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath   string
	notePath     string
	evidencePath string
	strictOnly   bool
	showPricing  bool

	rootCmd = &cobra.Command{
		Use:   "coder",
		Short: "A cli for the Aleutian bronchoscopy coding decision engine",
		Long: `Coder converts extracted clinical evidence about a bronchoscopy
procedure into a validated, deterministic set of CPT billing codes with a
full audit trail.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadConfig(configPath)
		},
	}

	codeCmd = &cobra.Command{
		Use:   "code",
		Short: "Run one coding decision over a procedure note",
		Run:   runCode,
	}

	tablesCmd = &cobra.Command{
		Use:   "tables",
		Short: "Print the merged NCCI pair table and its content hash",
		Run:   runTables,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"path to the CLI config file")

	codeCmd.Flags().StringVar(&notePath, "note", "", "path to the procedure note text file (required)")
	codeCmd.Flags().StringVar(&evidencePath, "evidence", "",
		"path to an extracted-evidence YAML file; omitted means evidence is derived from the note heuristically")
	codeCmd.Flags().BoolVar(&strictOnly, "strict", false,
		"run strict rule validation only, skipping the hybrid orchestrator")
	codeCmd.Flags().BoolVar(&showPricing, "pricing", false,
		"include Multiple Endoscopy Rule pricing in the output")
	_ = codeCmd.MarkFlagRequired("note")

	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(tablesCmd)
}
