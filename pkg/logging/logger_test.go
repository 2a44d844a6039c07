// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"nonsense", LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if LevelDebug.String() != "DEBUG" || LevelError.String() != "ERROR" {
		t.Error("level string mismatch")
	}
	if Level(99).String() != "UNKNOWN" {
		t.Error("out-of-range level must be UNKNOWN")
	}
}

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "coder-test",
		Quiet:   true,
	})
	logger.Info("decision complete", "source", "fastpath", "codes", 2)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("log dir entries = %v, err = %v", entries, err)
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "coder-test_") || !strings.HasSuffix(name, ".log") {
		t.Errorf("log filename = %q", name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	content := string(raw)
	if !strings.Contains(content, "decision complete") || !strings.Contains(content, `"service":"coder-test"`) {
		t.Errorf("log content = %q", content)
	}
}

func TestWithAddsAttributes(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "coder-test", Quiet: true})
	child := logger.With("decision_id", "abc123")
	child.Warn("shadow diverged")
	logger.Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("entries = %v", entries)
	}
	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "abc123") {
		t.Errorf("child attribute missing: %q", raw)
	}
}

func TestMultiHandlerFanOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	}}
	logger := slog.New(h)
	logger.Info("tables rebuilt", "pairs", 6)

	if !strings.Contains(a.String(), "tables rebuilt") {
		t.Errorf("text handler missed the record: %q", a.String())
	}
	if !strings.Contains(b.String(), "tables rebuilt") {
		t.Errorf("json handler missed the record: %q", b.String())
	}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled must be true when any child is enabled")
	}
}
