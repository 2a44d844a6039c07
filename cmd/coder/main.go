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
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional config.yaml for the coder CLI.
type Config struct {
	Logging struct {
		Level  string `yaml:"level"`
		LogDir string `yaml:"log_dir"`
		JSON   bool   `yaml:"json"`
	} `yaml:"logging"`

	Knowledge struct {
		// OverridePath points at the external NCCI override rulebook.
		OverridePath string `yaml:"override_path"`
	} `yaml:"knowledge"`

	Arbiter struct {
		// Backend selects the fallback arbiter: "ollama", "openai", or
		// "none" (degrade to prior candidates when fallback is needed).
		Backend string `yaml:"backend"`
	} `yaml:"arbiter"`
}

var config Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

// loadConfig reads config.yaml when present; a missing file leaves the
// zero-value defaults in place.
func loadConfig(path string) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Error reading %s: %v", path, err)
		}
		return
	}
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		log.Fatalf("Error parsing %s: %v", path, err)
	}
}
