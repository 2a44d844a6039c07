// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evidence defines the immutable snapshot of extracted clinical
// evidence that one decision-engine evaluation reads.
//
// The upstream extractor hands over an Input; NewContext validates it,
// deep-copies every map, and lowercases the note text. After construction
// nothing mutates the Context: every rule phase reads the same snapshot
// even though candidate membership evolves in the per-call Result.
package evidence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Attributes is the evidence-attribute record for one detected group:
// booleans, counts, and strings describing why the group matched
// ("placement_action", "station_count", "negated", ...).
type Attributes map[string]any

// Input is the raw payload from the evidence extractor.
type Input struct {
	// Groups are the detected procedure category tags.
	Groups []string `validate:"required,min=1,dive,required"`

	// Evidence maps a group name to its attribute record. Groups without
	// an entry are treated as having an empty record.
	Evidence map[string]Attributes

	// Registry holds structured form values, possibly nested.
	Registry map[string]any

	// Candidates is the initial candidate code set from group->code lookup.
	Candidates []string

	// NavigationSignals and RadialProbeSignals are auxiliary context
	// signal sets detected upstream.
	NavigationSignals  []string
	RadialProbeSignals []string

	// Text is the procedure note, used for anchor matching and tie-break
	// keyword search. Lowercased on construction.
	Text string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Context is the immutable per-evaluation snapshot.
type Context struct {
	groups     map[string]struct{}
	evidence   map[string]Attributes
	registry   map[string]any
	candidates []string
	navSignals map[string]struct{}
	rpSignals  map[string]struct{}
	text       string
}

// NewContext validates the input and builds an immutable snapshot.
//
// All maps and slices are copied, so the caller may reuse or mutate the
// Input afterwards without affecting the snapshot.
func NewContext(in Input) (*Context, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	c := &Context{
		groups:     toSet(in.Groups),
		evidence:   make(map[string]Attributes, len(in.Evidence)),
		registry:   copyTree(in.Registry),
		candidates: append([]string(nil), in.Candidates...),
		navSignals: toSet(in.NavigationSignals),
		rpSignals:  toSet(in.RadialProbeSignals),
		text:       strings.ToLower(in.Text),
	}
	for group, attrs := range in.Evidence {
		copied := make(Attributes, len(attrs))
		for k, v := range attrs {
			copied[k] = v
		}
		c.evidence[group] = copied
	}
	sort.Strings(c.candidates)
	return c, nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// copyTree deep-copies the nested registry map. Only maps are recursed;
// leaf values are shared, which is safe because the extractor hands over
// scalars.
func copyTree(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			dst[k] = copyTree(sub)
			continue
		}
		dst[k] = v
	}
	return dst
}

// HasGroup reports whether the named procedure group was detected.
func (c *Context) HasGroup(name string) bool {
	_, ok := c.groups[name]
	return ok
}

// Groups returns the detected group names in sorted order.
func (c *Context) Groups() []string {
	out := make([]string, 0, len(c.groups))
	for g := range c.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Attr returns one evidence attribute for a group. Missing groups and
// missing keys both return (nil, false).
func (c *Context) Attr(group, key string) (any, bool) {
	attrs, ok := c.evidence[group]
	if !ok {
		return nil, false
	}
	v, ok := attrs[key]
	return v, ok
}

// AttrInt returns a numeric evidence attribute as an int, zero when the
// attribute is absent or not numeric.
func (c *Context) AttrInt(group, key string) int {
	v, ok := c.Attr(group, key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

// RegistryValue walks a dot-separated path through the nested registry
// mapping ("procedure.laterality").
func (c *Context) RegistryValue(path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = c.registry
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Candidates returns the initial candidate code set, sorted.
func (c *Context) Candidates() []string {
	return append([]string(nil), c.candidates...)
}

// HasNavigationSignal reports membership in the navigation signal set.
// An empty name asks whether any signal was detected.
func (c *Context) HasNavigationSignal(name string) bool {
	if name == "" {
		return len(c.navSignals) > 0
	}
	_, ok := c.navSignals[name]
	return ok
}

// HasRadialProbeSignal reports membership in the radial-probe signal set.
// An empty name asks whether any signal was detected.
func (c *Context) HasRadialProbeSignal(name string) bool {
	if name == "" {
		return len(c.rpSignals) > 0
	}
	_, ok := c.rpSignals[name]
	return ok
}

// Text returns the lowercased note text.
func (c *Context) Text() string { return c.text }
