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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var codePattern = regexp.MustCompile(`^\d{5}$`)

// NormalizeCode canonicalizes a billing code identity: surrounding
// whitespace is trimmed and a single leading add-on marker ("+") is
// stripped. The result must be exactly five digits.
//
// Returns ("", false) for anything else; callers treat that as an
// upstream data issue and skip the entry silently.
func NormalizeCode(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	if !codePattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// Pair is one normalized NCCI edit: the secondary code's work is included
// in the primary's and must not be billed separately unless a modifier
// applies.
type Pair struct {
	Primary         string
	Secondary       string
	ModifierAllowed bool
	Reason          string
}

// Tables is the merged, read-only knowledge object the decision engine
// consumes. It is constructed explicitly by the composition root and
// shared across concurrent evaluations without locking; nothing mutates
// it after NewTables returns.
//
// Hash identifies the content of both knowledge sources. The composition
// root rebuilds Tables whenever the hash of the underlying sources
// changes (see Provider).
type Tables struct {
	hash string

	validCodes   map[string]struct{}
	addonCodes   map[string]struct{}
	values       map[string]float64
	descriptions map[string]string

	pairs   []Pair
	pairKey map[[2]string]int // (primary, secondary) -> index into pairs

	merGroups map[string]string // code -> group name
	merNames  []string

	upgrades  []HierarchyUpgrade
	counting  []CountingRule
	gates     []Gate
	exclusive []ExclusivePair
	sites     []SiteFamily
}

// NewTables merges the internal rulebook with an optional external
// override rulebook.
//
// NCCI pairs are keyed by normalized (primary, secondary); an override
// entry replaces the internal entry under the same key. Entries whose
// codes fail normalization are skipped without error. The merged pair
// table is flat and sorted, so iteration order is deterministic.
//
// The hash is computed over the raw bytes of both sources, internal
// first, so any content change in either source yields a new hash.
func NewTables(internal []byte, override []byte) (*Tables, error) {
	rb, err := ParseRulebook(internal)
	if err != nil {
		return nil, fmt.Errorf("parse internal rulebook: %w", err)
	}

	t := &Tables{
		hash:         contentHash(internal, override),
		validCodes:   make(map[string]struct{}),
		addonCodes:   make(map[string]struct{}),
		values:       make(map[string]float64),
		descriptions: make(map[string]string),
		pairKey:      make(map[[2]string]int),
		merGroups:    make(map[string]string),
		upgrades:     rb.HierarchyUpgrades,
		counting:     rb.CountingRules,
		gates:        rb.Gates,
		exclusive:    rb.ExclusivePairs,
		sites:        rb.SiteFamilies,
	}

	for _, c := range rb.Codes {
		code, ok := NormalizeCode(c.Code)
		if !ok {
			continue
		}
		t.validCodes[code] = struct{}{}
		t.values[code] = c.Value
		t.descriptions[code] = c.Description
		if c.Addon {
			t.addonCodes[code] = struct{}{}
		}
	}

	for _, g := range rb.MERGroups {
		t.merNames = append(t.merNames, g.Name)
		for _, raw := range g.Codes {
			code, ok := NormalizeCode(raw)
			if !ok {
				continue
			}
			t.merGroups[code] = g.Name
		}
	}
	sort.Strings(t.merNames)

	merged := map[[2]string]Pair{}
	mergePairs(merged, rb.NCCIPairs)
	if len(override) > 0 {
		orb, err := ParseRulebook(override)
		if err != nil {
			return nil, fmt.Errorf("parse override rulebook: %w", err)
		}
		mergePairs(merged, orb.NCCIPairs)
	}

	for _, p := range merged {
		t.pairs = append(t.pairs, p)
	}
	sort.Slice(t.pairs, func(i, j int) bool {
		if t.pairs[i].Primary != t.pairs[j].Primary {
			return t.pairs[i].Primary < t.pairs[j].Primary
		}
		return t.pairs[i].Secondary < t.pairs[j].Secondary
	})
	for i, p := range t.pairs {
		t.pairKey[[2]string{p.Primary, p.Secondary}] = i
	}

	return t, nil
}

// mergePairs normalizes and folds raw entries into the keyed map. Later
// calls win per key, giving the override source precedence.
func mergePairs(dst map[[2]string]Pair, entries []PairEntry) {
	for _, e := range entries {
		primary, ok := NormalizeCode(e.Primary)
		if !ok {
			continue
		}
		secondary, ok := NormalizeCode(e.Secondary)
		if !ok {
			continue
		}
		dst[[2]string{primary, secondary}] = Pair{
			Primary:         primary,
			Secondary:       secondary,
			ModifierAllowed: e.ModifierAllowed,
			Reason:          e.Reason,
		}
	}
}

func contentHash(internal, override []byte) string {
	h := sha256.New()
	h.Write(internal)
	h.Write(override)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash identifies the content of the merged knowledge sources.
func (t *Tables) Hash() string { return t.hash }

// IsValid reports whether the normalized code is in the billable set.
func (t *Tables) IsValid(code string) bool {
	_, ok := t.validCodes[code]
	return ok
}

// IsAddon reports whether the code can only be billed alongside a primary.
func (t *Tables) IsAddon(code string) bool {
	_, ok := t.addonCodes[code]
	return ok
}

// Value returns the configured value metric for a code, zero if unknown.
func (t *Tables) Value(code string) float64 { return t.values[code] }

// Description returns the human-readable code description.
func (t *Tables) Description(code string) string { return t.descriptions[code] }

// Display renders a code in its reportable form, with the add-on marker
// when the code is an add-on.
func (t *Tables) Display(code string) string {
	if t.IsAddon(code) {
		return "+" + code
	}
	return code
}

// Pairs returns the merged, sorted NCCI pair table. Callers must not
// modify the returned slice.
func (t *Tables) Pairs() []Pair { return t.pairs }

// PairFor returns the edit keyed by (primary, secondary), if declared.
func (t *Tables) PairFor(primary, secondary string) (Pair, bool) {
	i, ok := t.pairKey[[2]string{primary, secondary}]
	if !ok {
		return Pair{}, false
	}
	return t.pairs[i], true
}

// MERGroupOf returns the MER billing group for a code, "" when the code
// is not a member of any group.
func (t *Tables) MERGroupOf(code string) string { return t.merGroups[code] }

// MERGroupNames returns the declared group names in sorted order.
func (t *Tables) MERGroupNames() []string { return t.merNames }

// Upgrades returns the declared hierarchy upgrades in rulebook order.
func (t *Tables) Upgrades() []HierarchyUpgrade { return t.upgrades }

// CountingRules returns the declared counting rules in rulebook order.
func (t *Tables) CountingRules() []CountingRule { return t.counting }

// Gates returns the declared evidence gates in rulebook order.
func (t *Tables) Gates() []Gate { return t.gates }

// ExclusivePairs returns the declared exclusive pairs in rulebook order.
func (t *Tables) ExclusivePairs() []ExclusivePair { return t.exclusive }

// SiteFamilies returns the declared site-priority families in rulebook order.
func (t *Tables) SiteFamilies() []SiteFamily { return t.sites }

// LoadOverride reads an external override rulebook from disk. A missing
// file is not an error; it returns nil bytes so the embedded rulebook
// stands alone.
func LoadOverride(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read override file: %w", err)
	}
	// Reject files that are not even YAML before they reach NewTables, so
	// a watcher rebuild never installs a broken table set.
	var probe any
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("override file is not valid YAML: %w", err)
	}
	return raw, nil
}
