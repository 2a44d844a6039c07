// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bundling

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianCoder/services/coder/knowledge"
)

// Role is the payment role assigned by the Multiple Endoscopy Rule.
type Role string

const (
	// RolePrimary is the highest-value non-add-on code in a group; it
	// keeps its full value.
	RolePrimary Role = "primary"

	// RoleSecondary is any other non-add-on group member; its value is
	// halved.
	RoleSecondary Role = "secondary"

	// RoleExempt marks add-on codes, which MER does not reduce.
	RoleExempt Role = "exempt"
)

// Pricing is the MER decision for one code.
type Pricing struct {
	Code         string  `json:"code"`
	Role         Role    `json:"role"`
	BaseValue    float64 `json:"base_value"`
	AllowedValue float64 `json:"allowed_value"`
	Delta        float64 `json:"delta"`
}

// GroupResolution is the MER output for one billing group: per-code
// roles and values plus a human-readable conflict summary. MER never
// removes codes; a downstream financial component consumes the values.
type GroupResolution struct {
	Group    string    `json:"group"`
	Pricings []Pricing `json:"pricings"`
	Summary  string    `json:"summary"`
}

// ResolveMER groups the present codes by their declared MER billing group
// and assigns payment roles.
//
// Within a group the highest-value non-add-on code is primary and keeps
// its base value; every other non-add-on code is secondary at half value;
// add-on codes are exempt. Ties on value break by code order, lowest
// first, so the output is deterministic. Codes outside any declared group
// are skipped.
func ResolveMER(present []string, tables *knowledge.Tables) []GroupResolution {
	byGroup := make(map[string][]string)
	for _, raw := range present {
		code, ok := knowledge.NormalizeCode(raw)
		if !ok {
			continue
		}
		group := tables.MERGroupOf(code)
		if group == "" {
			continue
		}
		byGroup[group] = append(byGroup[group], code)
	}

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	var out []GroupResolution
	for _, group := range groups {
		codes := byGroup[group]
		sort.Strings(codes)
		out = append(out, resolveGroup(group, codes, tables))
	}
	return out
}

func resolveGroup(group string, codes []string, tables *knowledge.Tables) GroupResolution {
	primary := ""
	for _, code := range codes {
		if tables.IsAddon(code) {
			continue
		}
		if primary == "" || tables.Value(code) > tables.Value(primary) {
			primary = code
		}
	}

	res := GroupResolution{Group: group}
	var reduced []string
	for _, code := range codes {
		base := tables.Value(code)
		p := Pricing{Code: code, BaseValue: base}
		switch {
		case tables.IsAddon(code):
			p.Role = RoleExempt
			p.AllowedValue = base
		case code == primary:
			p.Role = RolePrimary
			p.AllowedValue = base
		default:
			p.Role = RoleSecondary
			p.AllowedValue = base / 2
			reduced = append(reduced, code)
		}
		p.Delta = p.AllowedValue - p.BaseValue
		res.Pricings = append(res.Pricings, p)
	}

	switch {
	case primary == "":
		res.Summary = fmt.Sprintf("group %s: add-on codes only, no reduction", group)
	case len(reduced) == 0:
		res.Summary = fmt.Sprintf("group %s: single endoscopy %s, no reduction", group, primary)
	default:
		res.Summary = fmt.Sprintf("group %s: %s primary, reduced to half value: %s",
			group, primary, strings.Join(reduced, ", "))
	}
	return res
}
