// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge holds the coding knowledge base: the embedded rulebook,
// the external NCCI override file, and the merged read-only Tables object
// the rule engine consumes.
package knowledge

import (
	"fmt"

	"github.com/AleutianAI/AleutianCoder/services/coder/expr"
	"gopkg.in/yaml.v3"
)

// ConflictPolicy selects strict-mode behavior for an exclusive pair.
type ConflictPolicy string

const (
	// ConflictResolve drops the losing code silently.
	ConflictResolve ConflictPolicy = "resolve"

	// ConflictFlag surfaces a conflict outcome for review in strict mode.
	ConflictFlag ConflictPolicy = "flag"
)

// UnmarshalYAML validates the policy value at load time.
func (c *ConflictPolicy) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	incoming := ConflictPolicy(s)
	switch incoming {
	case ConflictResolve, ConflictFlag:
		*c = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for on_conflict: %q", incoming)
	}
}

// CodeEntry describes one billable code.
type CodeEntry struct {
	Code        string  `yaml:"code"`
	Description string  `yaml:"description"`
	Value       float64 `yaml:"value"`
	Addon       bool    `yaml:"addon"`
}

// PairEntry is one raw NCCI edit as written in a rulebook or override
// file, before normalization.
type PairEntry struct {
	Primary         string `yaml:"primary"`
	Secondary       string `yaml:"secondary"`
	ModifierAllowed bool   `yaml:"modifier_allowed"`
	Reason          string `yaml:"reason"`
}

// MERGroup declares one Multiple Endoscopy Rule billing group.
type MERGroup struct {
	Name  string   `yaml:"name"`
	Base  string   `yaml:"base"`
	Codes []string `yaml:"codes"`
}

// HierarchyUpgrade replaces a narrower code with a broader one when the
// named evidence group is present.
type HierarchyUpgrade struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Group  string `yaml:"group"`
	Reason string `yaml:"reason"`
}

// CountingRule selects between a few/many code tier from numeric evidence.
type CountingRule struct {
	Group    string `yaml:"group"`
	Counter  string `yaml:"counter"`
	FewCode  string `yaml:"few_code"`
	ManyCode string `yaml:"many_code"`
	ManyAt   int    `yaml:"many_at"`
}

// Gate ties a set of codes to an evidence predicate. When the predicate
// does not hold for the group, every listed code is removed.
type Gate struct {
	Group     string    `yaml:"group"`
	Codes     []string  `yaml:"codes"`
	Predicate expr.Node `yaml:"predicate"`
}

// ExclusivePair declares two codes that can never coexist.
type ExclusivePair struct {
	A          string         `yaml:"a"`
	B          string         `yaml:"b"`
	OnConflict ConflictPolicy `yaml:"on_conflict"`
	KeywordA   string         `yaml:"keyword_a"`
	Default    string         `yaml:"default"` // "a" or "b"
}

// SiteMember binds one family member to its anatomic site keyword.
type SiteMember struct {
	Code string `yaml:"code"`
	Site string `yaml:"site"`
}

// SiteFamily declares a family where at most one site variant survives.
type SiteFamily struct {
	Name         string       `yaml:"name"`
	Members      []SiteMember `yaml:"members"`
	DefaultOrder []string     `yaml:"default_order"`
}

// Rulebook is the parsed form of a knowledge source file.
type Rulebook struct {
	Codes             []CodeEntry        `yaml:"codes"`
	NCCIPairs         []PairEntry        `yaml:"ncci_pairs"`
	MERGroups         []MERGroup         `yaml:"mer_groups"`
	HierarchyUpgrades []HierarchyUpgrade `yaml:"hierarchy_upgrades"`
	CountingRules     []CountingRule     `yaml:"counting_rules"`
	Gates             []Gate             `yaml:"gates"`
	ExclusivePairs    []ExclusivePair    `yaml:"exclusive_pairs"`
	SiteFamilies      []SiteFamily       `yaml:"site_families"`
}

// ParseRulebook decodes a rulebook from YAML bytes.
//
// Returns an error if the YAML is malformed or a predicate tree cannot be
// decoded. Malformed individual NCCI entries are tolerated here and
// filtered during table construction instead.
func ParseRulebook(raw []byte) (*Rulebook, error) {
	var rb Rulebook
	if err := yaml.Unmarshal(raw, &rb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the rulebook: %w", err)
	}
	return &rb, nil
}
