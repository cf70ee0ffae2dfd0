package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tsera-dev/tsera/pkg/state"
)

func TestParseGlobalFlags(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantConfig []string
		wantProj   string
		wantJSON   bool
		wantRest   []string
	}{
		{
			name:     "no flags",
			args:     []string{"plan"},
			wantProj: ".",
			wantRest: []string{"plan"},
		},
		{
			name:       "config and set",
			args:       []string{"--config", "a.yaml", "--set=db.dialect=mysql", "--json", "generate", "--dry-run"},
			wantConfig: []string{"--config", "a.yaml", "--set=db.dialect=mysql"},
			wantProj:   ".",
			wantJSON:   true,
			wantRest:   []string{"generate", "--dry-run"},
		},
		{
			name:       "profile and project",
			args:       []string{"-C", "app", "--profile", "dev", "status"},
			wantConfig: []string{"--profile", "dev"},
			wantProj:   "app",
			wantRest:   []string{"status"},
		},
		{
			name:     "double dash",
			args:     []string{"--project=x", "--", "-weird"},
			wantProj: "x",
			wantRest: []string{"-weird"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags, rest, err := parseGlobalFlags(tt.args)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(flags.ConfigArgs, tt.wantConfig) {
				t.Errorf("config args = %v, want %v", flags.ConfigArgs, tt.wantConfig)
			}
			if flags.Project != tt.wantProj || flags.JSON != tt.wantJSON {
				t.Errorf("flags = %+v", flags)
			}
			if !reflect.DeepEqual(rest, tt.wantRest) {
				t.Errorf("rest = %v, want %v", rest, tt.wantRest)
			}
		})
	}

	if _, _, err := parseGlobalFlags([]string{"--nope"}); err == nil {
		t.Error("expected error for unknown flag")
	}
	if _, _, err := parseGlobalFlags([]string{"--config"}); err == nil {
		t.Error("expected error for missing value")
	}
	if flags, _, _ := parseGlobalFlags([]string{"-h", "plan"}); !flags.Help {
		t.Error("expected help")
	}
}

// newProject scaffolds the blog template into a temp dir.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var out bytes.Buffer
	if err := dispatch(context.Background(), globalFlags{Project: "."}, []string{"init", dir, "--template", "blog", "--dialect", "sqlite"}, &out); err != nil {
		t.Fatalf("init: %v", err)
	}
	return dir
}

func runCLI(t *testing.T, dir string, jsonOut bool, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := dispatch(context.Background(), globalFlags{Project: dir, JSON: jsonOut}, args, &out); err != nil {
		t.Fatalf("tsera %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestInitGenerateCycle(t *testing.T) {
	dir := newProject(t)
	for _, p := range []string{"tsera.config.yaml", "entities/user.yaml", "entities/post.hcl"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Fatalf("scaffold missing %s: %v", p, err)
		}
	}

	var planned planResult
	if err := json.Unmarshal([]byte(runCLI(t, dir, true, "plan")), &planned); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if !planned.Summary.Changed || planned.Summary.Create == 0 || planned.Summary.Create != len(planned.Steps) {
		t.Fatalf("first plan should only create: %+v", planned.Summary)
	}

	var generated generateResult
	if err := json.Unmarshal([]byte(runCLI(t, dir, true, "generate")), &generated); err != nil {
		t.Fatalf("decode generate: %v", err)
	}
	if generated.DryRun || generated.Generation == "" || len(generated.Applied) != planned.Summary.Create {
		t.Fatalf("unexpected generate result: %+v", generated)
	}
	for _, p := range []string{"schemas/user.schema.json", "schemas/post.schema.json", "openapi.yaml", "docs/entities/post.md"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("artifact %s not written: %v", p, err)
		}
	}

	if out := runCLI(t, dir, false, "plan"); !strings.Contains(out, "No changes.") {
		t.Fatalf("second plan should be empty, got:\n%s", out)
	}

	var st statusResult
	if err := json.Unmarshal([]byte(runCLI(t, dir, true, "status")), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	prev, err := state.Read(dir)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	want, _ := state.GenerationID(prev)
	if st.Generation != want.String() || st.Generation != generated.Generation {
		t.Fatalf("status generation = %s, want %s", st.Generation, want)
	}
	if st.Pending == nil || st.Pending.Changed || st.Artifacts["schema"] != 2 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestGenerateDryRunWritesNothing(t *testing.T) {
	dir := newProject(t)
	out := runCLI(t, dir, false, "generate", "--dry-run")
	if !strings.Contains(out, "Plan:") {
		t.Fatalf("dry run should print the plan, got:\n%s", out)
	}
	if _, err := os.Stat(state.ManifestPath(dir)); !os.IsNotExist(err) {
		t.Fatal("dry run wrote the manifest")
	}
}

func TestGraphCommand(t *testing.T) {
	dir := newProject(t)
	if out := runCLI(t, dir, false, "graph"); !strings.HasPrefix(out, "graph TD") {
		t.Fatalf("unexpected mermaid output:\n%s", out)
	}
	var res graphResult
	if err := json.Unmarshal([]byte(runCLI(t, dir, true, "graph", "--output", "dot")), &res); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if res.Format != "dot" || res.Nodes == 0 || res.Edges == 0 || !strings.Contains(res.Content, "digraph") {
		t.Fatalf("unexpected graph result: %+v", res)
	}

	err := dispatch(context.Background(), globalFlags{Project: dir}, []string{"graph", "--output", "svg"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestValidateCommand(t *testing.T) {
	dir := newProject(t)
	if out := runCLI(t, dir, false, "validate"); !strings.Contains(out, "All checks passed") {
		t.Fatalf("validate failed:\n%s", out)
	}

	bad := "name: 9lives\nfields:\n  - name: x\n    type: string\n"
	if err := os.WriteFile(filepath.Join(dir, "entities", "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out bytes.Buffer
	err := dispatch(context.Background(), globalFlags{Project: dir, JSON: true}, []string{"validate"}, &out)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var res validateResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode validate: %v", err)
	}
	if res.Overall != "error" {
		t.Fatalf("overall = %s", res.Overall)
	}
}

func TestConfigOverridesFromFlags(t *testing.T) {
	dir := newProject(t)
	var out bytes.Buffer
	global := globalFlags{Project: dir, JSON: true, ConfigArgs: []string{"--set", "artifacts.openapi=false", "--set", "artifacts.test=false"}}
	if err := dispatch(context.Background(), global, []string{"plan"}, &out); err != nil {
		t.Fatalf("plan: %v", err)
	}
	var planned planResult
	if err := json.Unmarshal(out.Bytes(), &planned); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, st := range planned.Steps {
		if st.Kind == "openapi" || st.Kind == "test" {
			t.Fatalf("disabled artifact planned: %+v", st)
		}
	}
}

func TestCDSyncCommand(t *testing.T) {
	dir := newProject(t)
	out := runCLI(t, dir, false, "cd", "sync", "--provider", "gitlab")
	if !strings.Contains(out, "created") || !strings.Contains(out, ".gitlab/tsera.gitlab-ci.yml") {
		t.Fatalf("unexpected cd sync output:\n%s", out)
	}
	out = runCLI(t, dir, false, "cd", "sync", "--provider", "gitlab")
	if !strings.Contains(out, "unchanged") {
		t.Fatalf("second sync should be unchanged:\n%s", out)
	}
}

func TestInitRefusesExistingFiles(t *testing.T) {
	dir := newProject(t)
	err := dispatch(context.Background(), globalFlags{Project: "."}, []string{"init", dir}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error when files exist")
	}
	if err := dispatch(context.Background(), globalFlags{Project: "."}, []string{"init", dir, "--overwrite"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	err := dispatch(context.Background(), globalFlags{Project: "."}, []string{"frobnicate"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	var out bytes.Buffer
	if err := dispatch(context.Background(), globalFlags{}, []string{"version"}, &out); err != nil || strings.TrimSpace(out.String()) != version {
		t.Fatalf("version = %q, %v", out.String(), err)
	}
}
