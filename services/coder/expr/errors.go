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

import "errors"

// Sentinel errors for the expr package.
var (
	// ErrNilNode is returned when Eval is called on a nil node.
	ErrNilNode = errors.New("nil predicate node")

	// ErrUnknownKind is returned for a node kind outside the defined set.
	ErrUnknownKind = errors.New("unknown predicate kind")

	// ErrUnknownOperator is returned for an unsupported comparison operator.
	ErrUnknownOperator = errors.New("unknown comparison operator")

	// ErrMalformedNode is returned when a rulebook predicate cannot be decoded.
	ErrMalformedNode = errors.New("malformed predicate node")
)
