// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
This file bridges the build system and the runtime logic. It uses the Go
embed package to bake rulebook.yaml directly into the compiled binary, so
the coding rules are immutable at runtime and travel with the executable.
Site-local corrections are applied through the external override file
instead (see tables.go).
*/

package knowledge

import (
	_ "embed"
)

// EmbeddedRulebook holds the raw byte content of the 'rulebook.yaml' file.
//
// Populated at compile time via the Go 'embed' directive. Pass these bytes
// to ParseRulebook; Tables hashes them so a rebuilt binary with a changed
// rulebook produces a different table hash.
//
//go:embed rulebook.yaml
var EmbeddedRulebook []byte
