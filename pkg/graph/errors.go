// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

// ValidationError reports a node or reference that cannot be part of the graph.
type ValidationError struct {
	// NodeID is the node being added or linked. It may be empty when the
	// offending input could not be given an id.
	NodeID string
	// Ref is the referenced id for dangling references.
	Ref    string
	Reason string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("graph: ")
	if e.NodeID != "" {
		fmt.Fprintf(&sb, "node %q: ", e.NodeID)
	}
	sb.WriteString(e.Reason)
	if e.Ref != "" {
		fmt.Fprintf(&sb, " %q", e.Ref)
	}
	return sb.String()
}

// ErrorCode implements errors.Coded.
func (e *ValidationError) ErrorCode() tserrors.ErrorCode {
	return tserrors.CodeGraphValidation
}

// CycleError reports a dependency cycle. Cycle lists the ids along the
// cycle in edge direction, starting and ending with the same id.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "graph: dependency cycle: " + strings.Join(e.Cycle, " -> ")
}

// ErrorCode implements errors.Coded.
func (e *CycleError) ErrorCode() tserrors.ErrorCode {
	return tserrors.CodeCycle
}
