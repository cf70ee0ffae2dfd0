package cdsync

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

const generatePath = ".github/workflows/tsera-generate.yml"

func githubOptions() Options {
	return Options{
		Provider: "github",
		Data: Data{
			ProjectName: "blog",
			Module:      "github.com/tsera-dev/tsera",
			ToolVersion: "v0.1.0",
			EntitiesDir: "entities",
			Dialect:     "postgres",
		},
	}
}

func keys(files map[string][]byte) []string {
	out := make([]string, 0, len(files))
	for k := range files {
		out = append(out, k)
	}
	return out
}

func outcomes(r *Report) map[string]Outcome {
	out := make(map[string]Outcome, len(r.Changes))
	for _, c := range r.Changes {
		out[c.Path] = c.Outcome
	}
	return out
}

func mustSync(t *testing.T, dir string, opts Options) *Report {
	t.Helper()
	r, err := Sync(dir, opts)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	return r
}

func TestRenderKeepsCIExpressions(t *testing.T) {
	files, err := Render(githubOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{generatePath, ".github/workflows/tsera-migrations.yml"} {
		if _, ok := files[want]; !ok {
			t.Fatalf("missing default workflow %s in %v", want, keys(files))
		}
	}
	if len(files) != 2 {
		t.Fatalf("expected two github workflows, got %v", keys(files))
	}
	content := string(files[generatePath])
	if !strings.Contains(content, "'entities/**'") || !strings.Contains(content, "@v0.1.0") {
		t.Fatalf("template data not applied:\n%s", content)
	}

	opts := githubOptions()
	opts.Provider = "gitlab"
	opts.Dir = "ci"
	files, err = Render(opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, ok := files["ci/tsera.gitlab-ci.yml"]; !ok {
		t.Fatalf("dir override ignored: %v", files)
	}
}

func TestRenderUnknownProvider(t *testing.T) {
	opts := githubOptions()
	opts.Provider = "jenkins"
	if _, err := Render(opts); tserrors.CodeOf(err) != tserrors.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestSyncCreatesThenUnchanged(t *testing.T) {
	dir := t.TempDir()
	first := mustSync(t, dir, githubOptions())
	if first.Count(Created) != 2 {
		t.Fatalf("expected 2 created, got %+v", first.Changes)
	}
	meta, err := ReadMeta(dir)
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if len(meta) != 2 || len(meta[generatePath]) != 64 {
		t.Fatalf("unexpected metadata %v", meta)
	}

	second := mustSync(t, dir, githubOptions())
	if second.Count(Unchanged) != 2 {
		t.Fatalf("expected unchanged, got %+v", second.Changes)
	}
}

func TestSyncUpdatesUnmodifiedFiles(t *testing.T) {
	dir := t.TempDir()
	mustSync(t, dir, githubOptions())

	opts := githubOptions()
	opts.Data.ToolVersion = "v0.2.0"
	r := mustSync(t, dir, opts)
	if got := outcomes(r)[generatePath]; got != Updated {
		t.Fatalf("expected updated, got %s", got)
	}
	data, _ := os.ReadFile(filepath.Join(dir, generatePath))
	if !strings.Contains(string(data), "@v0.2.0") {
		t.Fatalf("file not rewritten")
	}
}

func TestSyncSkipsLocalEdits(t *testing.T) {
	dir := t.TempDir()
	mustSync(t, dir, githubOptions())
	target := filepath.Join(dir, generatePath)
	if err := os.WriteFile(target, []byte("# mine\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	opts := githubOptions()
	opts.Data.ToolVersion = "v0.2.0"
	r := mustSync(t, dir, opts)
	if got := outcomes(r)[generatePath]; got != Skipped {
		t.Fatalf("expected skipped, got %s", got)
	}
	if data, _ := os.ReadFile(target); string(data) != "# mine\n" {
		t.Fatalf("local edit overwritten")
	}

	// still skipped: the recorded hash is kept
	r = mustSync(t, dir, opts)
	if got := outcomes(r)[generatePath]; got != Skipped {
		t.Fatalf("expected skipped on rerun, got %s", got)
	}

	opts.Force = true
	r = mustSync(t, dir, opts)
	if got := outcomes(r)[generatePath]; got != Updated {
		t.Fatalf("force must overwrite, got %s", got)
	}
}

func TestSyncConflictOnUntrackedFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, generatePath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(target, []byte("name: hand written\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := mustSync(t, dir, githubOptions())
	if got := outcomes(r)[generatePath]; got != Conflict {
		t.Fatalf("expected conflict, got %s", got)
	}
	meta, _ := ReadMeta(dir)
	if _, tracked := meta[generatePath]; tracked {
		t.Fatalf("conflicting file must not become tracked")
	}
}

func TestSyncRemovesStaleWorkflows(t *testing.T) {
	dir := t.TempDir()
	mustSync(t, dir, githubOptions())

	opts := githubOptions()
	opts.Provider = "gitlab"
	r := mustSync(t, dir, opts)
	got := outcomes(r)
	if got[generatePath] != Removed || got[".gitlab/tsera.gitlab-ci.yml"] != Created {
		t.Fatalf("unexpected outcomes %v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, generatePath)); !os.IsNotExist(err) {
		t.Fatalf("stale workflow not removed")
	}
	meta, _ := ReadMeta(dir)
	if len(meta) != 1 {
		t.Fatalf("expected only the gitlab workflow tracked, got %v", meta)
	}
}

func TestSyncDryRun(t *testing.T) {
	dir := t.TempDir()
	opts := githubOptions()
	opts.DryRun = true
	r := mustSync(t, dir, opts)
	if r.Count(Created) != 2 {
		t.Fatalf("dry run must still classify, got %+v", r.Changes)
	}
	if _, err := os.Stat(MetaPath(dir)); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote metadata")
	}
	if _, err := os.Stat(filepath.Join(dir, generatePath)); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote workflows")
	}
}

func TestReadMetaCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Dir(MetaPath(dir)), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(MetaPath(dir), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Sync(dir, githubOptions()); tserrors.CodeOf(err) != tserrors.CodeStateRead {
		t.Fatalf("expected state read error, got %v", err)
	}
}
