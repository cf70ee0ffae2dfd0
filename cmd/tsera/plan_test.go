package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tsera-dev/tsera/pkg/graph"
	"github.com/tsera-dev/tsera/pkg/plan"
)

func TestRenderPlan(t *testing.T) {
	p := &plan.Plan{
		Steps: []plan.Step{
			{Action: plan.ActionCreate, Node: graph.Node{Kind: "schema", Path: "schemas/user.schema.json"}},
			{Action: plan.ActionDelete, Node: graph.Node{Kind: "doc", Path: "docs/entities/post.md"}},
		},
		Summary: plan.Summary{Create: 1, Delete: 1, Noop: 3, Total: 5, Changed: true},
	}
	var out bytes.Buffer
	renderPlan(&out, p, newPlanStyles(&out))

	got := out.String()
	for _, want := range []string{
		"Plan: 1 to create, 0 to update, 1 to delete, 3 unchanged.",
		"+ create",
		"schemas/user.schema.json",
		"- delete",
		"docs/entities/post.md",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("non-terminal output must not contain escape codes:\n%q", got)
	}
}

func TestRenderPlanUnchanged(t *testing.T) {
	var out bytes.Buffer
	renderPlan(&out, &plan.Plan{Summary: plan.Summary{Noop: 4, Total: 4}}, newPlanStyles(&out))
	if got := out.String(); got != "No changes. 4 artifacts up to date.\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestInstallVersion(t *testing.T) {
	tests := map[string]string{
		"dev":    "latest",
		"1.2.3":  "v1.2.3",
		"v0.4.0": "v0.4.0",
	}
	for in, want := range tests {
		if got := installVersion(in); got != want {
			t.Errorf("installVersion(%q) = %q, want %q", in, got, want)
		}
	}
}
