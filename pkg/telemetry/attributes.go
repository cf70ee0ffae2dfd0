// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires OpenTelemetry tracing and metrics, the slog
// logger and the optional Prometheus textfile export for tsera.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on engine spans and metrics.
const (
	// Cycle attributes
	AttrProjectDir    = "tsera.project.dir"
	AttrEngineVersion = "tsera.engine.version"
	AttrRunID         = "tsera.run.id"
	AttrDryRun        = "tsera.run.dry_run"
	AttrEntityCount   = "tsera.entities.count"

	// Graph attributes
	AttrGraphNodes = "tsera.graph.nodes"
	AttrGraphEdges = "tsera.graph.edges"

	// Node attributes
	AttrNodeID   = "tsera.node.id"
	AttrNodeKind = "tsera.node.kind"
	AttrNodePath = "tsera.node.path"

	// Plan attributes
	AttrPlanCreate = "tsera.plan.create"
	AttrPlanUpdate = "tsera.plan.update"
	AttrPlanDelete = "tsera.plan.delete"
	AttrPlanNoop   = "tsera.plan.noop"
	AttrStepAction = "tsera.step.action"

	// Outcome attributes
	AttrStatus    = "tsera.status"
	AttrErrorCode = "error.code"
	AttrComponent = "component"
)

// CycleAttributes returns attributes for the root span of an engine cycle.
func CycleAttributes(projectDir string, engineVersion, entities int, dryRun bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrEngineVersion, engineVersion),
		attribute.Int(AttrEntityCount, entities),
		attribute.Bool(AttrDryRun, dryRun),
	}
	if projectDir != "" {
		attrs = append(attrs, attribute.String(AttrProjectDir, projectDir))
	}
	return attrs
}

// GraphAttributes returns attributes describing a built graph.
func GraphAttributes(nodes, edges int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrGraphNodes, nodes),
		attribute.Int(AttrGraphEdges, edges),
	}
}

// NodeAttributes returns attributes for a single node. Empty values are omitted.
func NodeAttributes(id, kind, path string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrNodeID, id),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(AttrNodeKind, kind))
	}
	if path != "" {
		attrs = append(attrs, attribute.String(AttrNodePath, path))
	}
	return attrs
}

// StepAttributes returns attributes for an apply step span.
func StepAttributes(id, kind, path, action string) []attribute.KeyValue {
	return append(NodeAttributes(id, kind, path), attribute.String(AttrStepAction, action))
}

// PlanAttributes returns the per-action counts of a plan.
func PlanAttributes(create, update, del, noop int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrPlanCreate, create),
		attribute.Int(AttrPlanUpdate, update),
		attribute.Int(AttrPlanDelete, del),
		attribute.Int(AttrPlanNoop, noop),
	}
}
