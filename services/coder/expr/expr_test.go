// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package expr

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

// mapEnv is a test environment over plain maps.
type mapEnv struct {
	vars    map[string]any
	signals map[string]bool
}

func (m mapEnv) Lookup(name string) (any, bool) {
	v, ok := m.vars[name]
	return v, ok
}

func (m mapEnv) HasSignal(name string) bool { return m.signals[name] }

func mustDecode(t *testing.T, src string) *Node {
	t.Helper()
	var n Node
	if err := yaml.Unmarshal([]byte(src), &n); err != nil {
		t.Fatalf("decode predicate: %v", err)
	}
	return &n
}

func TestEval(t *testing.T) {
	env := mapEnv{
		vars: map[string]any{
			"term_present":  true,
			"negated":       false,
			"station_count": 3,
			"note":          "present",
			"empty":         "",
		},
		signals: map[string]bool{"navigation": true},
	}

	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"var true", `{var: term_present}`, true},
		{"var false", `{var: negated}`, false},
		{"var missing is false", `{var: not_recorded}`, false},
		{"non-empty string is true", `{var: note}`, true},
		{"empty string is false", `{var: empty}`, false},
		{"not", `{not: {var: negated}}`, true},
		{"and all true", `{and: [{var: term_present}, {not: {var: negated}}]}`, true},
		{"and short circuit", `{and: [{var: negated}, {var: term_present}]}`, false},
		{"empty and is true", `{and: []}`, true},
		{"or", `{or: [{var: negated}, {var: term_present}]}`, true},
		{"empty or is false", `{or: []}`, false},
		{"cmp ge", `{cmp: {var: station_count, op: ">=", value: 3}}`, true},
		{"cmp lt", `{cmp: {var: station_count, op: "<", value: 3}}`, false},
		{"cmp missing var is zero", `{cmp: {var: not_recorded, op: "==", value: 0}}`, true},
		{"signal present", `{signal: navigation}`, true},
		{"signal absent", `{signal: radial_probe}`, false},
		{
			"nested gate shape",
			`{and: [{var: term_present}, {not: {var: negated}}, {cmp: {var: station_count, op: ">=", value: 1}}]}`,
			true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := mustDecode(t, tc.src).Eval(env)
			if err != nil {
				t.Fatalf("Eval returned error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Eval(%s) = %v, want %v", tc.src, got, tc.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	env := mapEnv{}

	var nilNode *Node
	if _, err := nilNode.Eval(env); !errors.Is(err, ErrNilNode) {
		t.Errorf("nil node: got %v, want ErrNilNode", err)
	}

	n := &Node{Kind: KindCmp, Cmp: &Comparison{Var: "x", Op: "~="}}
	if _, err := n.Eval(env); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("bad operator: got %v, want ErrUnknownOperator", err)
	}
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown kind", `{xor: [{var: a}]}`},
		{"multi key", "var: a\nsignal: b"},
		{"scalar", `"just a string"`},
		{"cmp missing op", `{cmp: {var: a, value: 1}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var n Node
			if err := yaml.Unmarshal([]byte(tc.src), &n); err == nil {
				t.Errorf("expected decode of %q to fail", tc.src)
			}
		})
	}
}
