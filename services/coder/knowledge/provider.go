// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Provider hands out the current Tables snapshot.
//
// The engine itself never caches tables; the composition root constructs
// one Provider and injects it everywhere a table consumer lives. Current
// is a single atomic pointer load, so concurrent evaluations share the
// same immutable snapshot without locking. Rebuilds replace the pointer
// only when the content hash actually changed.
type Provider struct {
	overridePath string
	logger       *slog.Logger
	current      atomic.Pointer[Tables]
}

// NewProvider builds the initial table snapshot from the embedded
// rulebook plus the override file at overridePath ("" disables overrides).
func NewProvider(overridePath string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{overridePath: overridePath, logger: logger}
	if err := p.rebuild(); err != nil {
		return nil, err
	}
	return p, nil
}

// Current returns the active snapshot. Never nil after NewProvider.
func (p *Provider) Current() *Tables {
	return p.current.Load()
}

// rebuild reloads both sources and swaps in a fresh Tables when the
// content hash differs from the active snapshot.
func (p *Provider) rebuild() error {
	override, err := LoadOverride(p.overridePath)
	if err != nil {
		return err
	}
	next, err := NewTables(EmbeddedRulebook, override)
	if err != nil {
		return fmt.Errorf("build knowledge tables: %w", err)
	}
	prev := p.current.Load()
	if prev != nil && prev.Hash() == next.Hash() {
		return nil
	}
	p.current.Store(next)
	p.logger.Info("knowledge tables rebuilt",
		"hash", next.Hash()[:12],
		"ncci_pairs", len(next.Pairs()),
		"override", p.overridePath != "")
	return nil
}

// Watch rebuilds the tables whenever the override file changes on disk.
//
// Blocks until ctx is canceled. A rebuild failure (for example a half-
// written override file) keeps the previous snapshot and logs a warning;
// evaluations in flight are unaffected either way because they hold their
// own snapshot pointer.
func (p *Provider) Watch(ctx context.Context) error {
	if p.overridePath == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create override watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files by rename
	// and a file watch would go stale after the first swap.
	dir := filepath.Dir(p.overridePath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(p.overridePath)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := p.rebuild(); err != nil {
				p.logger.Warn("override rebuild failed, keeping previous tables", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("override watcher error", "error", err)
		}
	}
}
