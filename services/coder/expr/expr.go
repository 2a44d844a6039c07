// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package expr implements the small predicate language used by the
// declarative sections of the coding rulebook.
//
// A predicate is a tree of typed nodes (var, and, or, not, cmp, signal)
// evaluated against an Env. The rulebook expresses evidence gates in this
// form, for example:
//
//	predicate:
//	  and:
//	    - {var: placement_action}
//	    - {var: location_present}
//	    - {not: {var: negated}}
//
// Evaluation is recursive and total: an unknown variable evaluates to
// false for boolean use and zero for numeric use, so a sparse evidence
// record never causes an evaluation error. Malformed trees are rejected
// at unmarshal time, not at evaluation time.
package expr

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind identifies the node variant.
type Kind int

const (
	// KindVar reads a named boolean from the environment.
	KindVar Kind = iota

	// KindAnd is true when every child is true. An empty child list is true.
	KindAnd

	// KindOr is true when at least one child is true.
	KindOr

	// KindNot negates its single child.
	KindNot

	// KindCmp compares a named numeric variable against a constant.
	KindCmp

	// KindSignal tests membership in a named context signal set
	// (the domain operator; see Env.HasSignal).
	KindSignal
)

// String returns the YAML keyword for the kind.
func (k Kind) String() string {
	switch k {
	case KindVar:
		return "var"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindNot:
		return "not"
	case KindCmp:
		return "cmp"
	case KindSignal:
		return "signal"
	default:
		return "unknown"
	}
}

// Comparison is the payload of a KindCmp node.
type Comparison struct {
	Var   string  `yaml:"var"`
	Op    string  `yaml:"op"`
	Value float64 `yaml:"value"`
}

// Node is one vertex of a predicate tree. Exactly the fields relevant to
// Kind are populated; the rest are zero.
type Node struct {
	Kind     Kind
	Name     string      // KindVar, KindSignal
	Children []*Node     // KindAnd, KindOr
	Child    *Node       // KindNot
	Cmp      *Comparison // KindCmp
}

// Env supplies variable and signal lookups during evaluation.
//
// Lookup returns the raw attribute value for a name. Missing names return
// (nil, false). HasSignal tests the domain signal sets (navigation,
// radial probe) that are carried alongside the per-group evidence.
type Env interface {
	Lookup(name string) (any, bool)
	HasSignal(name string) bool
}

// Eval evaluates the predicate against env.
//
// The only returned errors are structural (nil node, unknown comparison
// operator); a well-formed tree never fails on missing data.
func (n *Node) Eval(env Env) (bool, error) {
	if n == nil {
		return false, fmt.Errorf("expr: %w", ErrNilNode)
	}
	switch n.Kind {
	case KindVar:
		return truthy(lookup(env, n.Name)), nil
	case KindAnd:
		for _, c := range n.Children {
			ok, err := c.Eval(env)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case KindOr:
		for _, c := range n.Children {
			ok, err := c.Eval(env)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case KindNot:
		ok, err := n.Child.Eval(env)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case KindCmp:
		return n.compare(env)
	case KindSignal:
		return env.HasSignal(n.Name), nil
	default:
		return false, fmt.Errorf("expr: kind %d: %w", n.Kind, ErrUnknownKind)
	}
}

func (n *Node) compare(env Env) (bool, error) {
	left := numeric(lookup(env, n.Cmp.Var))
	right := n.Cmp.Value
	switch n.Cmp.Op {
	case "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case ">":
		return left > right, nil
	case ">=":
		return left >= right, nil
	case "<":
		return left < right, nil
	case "<=":
		return left <= right, nil
	default:
		return false, fmt.Errorf("expr: operator %q: %w", n.Cmp.Op, ErrUnknownOperator)
	}
}

func lookup(env Env, name string) any {
	v, ok := env.Lookup(name)
	if !ok {
		return nil
	}
	return v
}

// truthy maps an attribute value to a boolean: booleans pass through,
// numbers are true when non-zero, strings when non-empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// numeric maps an attribute value to a float64, zero when absent or
// non-numeric.
func numeric(v any) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// UnmarshalYAML decodes a predicate node from its rulebook form: a
// single-key mapping whose key names the node kind.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return fmt.Errorf("expr: predicate node must be a single-key mapping: %w", ErrMalformedNode)
	}
	key := value.Content[0].Value
	payload := value.Content[1]

	switch key {
	case "var":
		n.Kind = KindVar
		return payload.Decode(&n.Name)
	case "signal":
		n.Kind = KindSignal
		return payload.Decode(&n.Name)
	case "and", "or":
		if key == "and" {
			n.Kind = KindAnd
		} else {
			n.Kind = KindOr
		}
		return payload.Decode(&n.Children)
	case "not":
		n.Kind = KindNot
		n.Child = &Node{}
		return payload.Decode(n.Child)
	case "cmp":
		n.Kind = KindCmp
		n.Cmp = &Comparison{}
		if err := payload.Decode(n.Cmp); err != nil {
			return err
		}
		if n.Cmp.Var == "" || n.Cmp.Op == "" {
			return fmt.Errorf("expr: cmp requires var and op: %w", ErrMalformedNode)
		}
		return nil
	default:
		return fmt.Errorf("expr: unknown node kind %q: %w", key, ErrMalformedNode)
	}
}
