// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"strings"

	"github.com/AleutianAI/AleutianCoder/services/coder/evidence"
)

// gateEnv adapts one group's evidence record to the predicate language.
// Variable names resolve in the group's attribute record, with dotted
// names falling through to the registry mapping; signal names resolve in
// the context-wide auxiliary signal sets.
type gateEnv struct {
	ec    *evidence.Context
	group string
}

func (g gateEnv) Lookup(name string) (any, bool) {
	if v, ok := g.ec.Attr(g.group, name); ok {
		return v, true
	}
	if strings.Contains(name, ".") {
		return g.ec.RegistryValue(name)
	}
	return nil, false
}

func (g gateEnv) HasSignal(name string) bool {
	switch name {
	case "navigation":
		return g.ec.HasNavigationSignal("")
	case "radial_probe":
		return g.ec.HasRadialProbeSignal("")
	default:
		return false
	}
}
