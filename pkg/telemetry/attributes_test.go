// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestCycleAttributes(t *testing.T) {
	attrs := CycleAttributes("/srv/app", 2, 3, true)

	expected := map[string]any{
		AttrProjectDir:    "/srv/app",
		AttrEngineVersion: 2,
		AttrEntityCount:   3,
		AttrDryRun:        true,
	}

	assertAttributes(t, attrs, expected)
}

func TestCycleAttributesOmitsEmptyDir(t *testing.T) {
	attrs := CycleAttributes("", 1, 0, false)
	for _, a := range attrs {
		if string(a.Key) == AttrProjectDir {
			t.Fatalf("empty project dir must be omitted")
		}
	}
}

func TestGraphAttributes(t *testing.T) {
	assertAttributes(t, GraphAttributes(7, 5), map[string]any{
		AttrGraphNodes: 7,
		AttrGraphEdges: 5,
	})
}

func TestStepAttributes(t *testing.T) {
	attrs := StepAttributes("doc:user:docs/user.md", "doc", "docs/user.md", "create")

	expected := map[string]any{
		AttrNodeID:     "doc:user:docs/user.md",
		AttrNodeKind:   "doc",
		AttrNodePath:   "docs/user.md",
		AttrStepAction: "create",
	}

	assertAttributes(t, attrs, expected)
}

func TestNodeAttributesMinimal(t *testing.T) {
	attrs := NodeAttributes("entity:User", "", "")
	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute, got %d", len(attrs))
	}
}

func TestPlanAttributes(t *testing.T) {
	assertAttributes(t, PlanAttributes(1, 2, 3, 4), map[string]any{
		AttrPlanCreate: 1,
		AttrPlanUpdate: 2,
		AttrPlanDelete: 3,
		AttrPlanNoop:   4,
	})
}

func assertAttributes(t *testing.T, attrs []attribute.KeyValue, expected map[string]any) {
	t.Helper()

	attrMap := make(map[string]attribute.Value)
	for _, a := range attrs {
		attrMap[string(a.Key)] = a.Value
	}

	for key, want := range expected {
		got, ok := attrMap[key]
		if !ok {
			t.Errorf("missing attribute %q", key)
			continue
		}

		switch w := want.(type) {
		case string:
			if got.AsString() != w {
				t.Errorf("attribute %q: got %q, want %q", key, got.AsString(), w)
			}
		case int:
			if got.AsInt64() != int64(w) {
				t.Errorf("attribute %q: got %d, want %d", key, got.AsInt64(), w)
			}
		case bool:
			if got.AsBool() != w {
				t.Errorf("attribute %q: got %v, want %v", key, got.AsBool(), w)
			}
		case float64:
			if got.AsFloat64() != w {
				t.Errorf("attribute %q: got %f, want %f", key, got.AsFloat64(), w)
			}
		}
	}
}
