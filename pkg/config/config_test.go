package config

import (
	"os"
	"path/filepath"
	"testing"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DB.Dialect != "postgres" {
		t.Errorf("expected default dialect postgres, got %s", cfg.DB.Dialect)
	}
	if cfg.Engine.Version != 1 {
		t.Errorf("expected engine version 1, got %d", cfg.Engine.Version)
	}
	if !cfg.Artifacts.Schema || !cfg.Artifacts.OpenAPI {
		t.Errorf("expected every artifact enabled by default, got %+v", cfg.Artifacts)
	}
	if cfg.Paths.Entities != "entities" {
		t.Errorf("unexpected entities path %q", cfg.Paths.Entities)
	}
	if err := cfg.Validate("1.0.0"); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsera.config.yaml")
	writeConfig(t, path, `
project:
  name: blog
  version: 1.2.0
db:
  dialect: sqlite
artifacts:
  test: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Project.Name != "blog" || cfg.DB.Dialect != "sqlite" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Artifacts.Test || !cfg.Artifacts.Doc {
		t.Errorf("expected only test disabled, got %+v", cfg.Artifacts)
	}
	if cfg.Source != path {
		t.Errorf("unexpected source %q", cfg.Source)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TSERA_DB_DIALECT", "mysql")
	t.Setenv("TSERA_ENGINE_INCLUDE_UNCHANGED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DB.Dialect != "mysql" {
		t.Errorf("expected dialect mysql from env, got %s", cfg.DB.Dialect)
	}
	if !cfg.Engine.IncludeUnchanged {
		t.Errorf("expected engine.include_unchanged from env")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if tserrors.CodeOf(err) != tserrors.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadWithProfile(t *testing.T) {
	tmpDir := t.TempDir()

	basePath := filepath.Join(tmpDir, "tsera.config.yaml")
	writeConfig(t, basePath, `
db:
  dialect: postgres
project:
  name: base
log:
  level: info
`)
	writeConfig(t, filepath.Join(tmpDir, "tsera.config.dev.yaml"), `
db:
  dialect: sqlite
log:
  level: debug
`)
	writeConfig(t, filepath.Join(tmpDir, "tsera.config.prod.yaml"), `
log:
  level: warn
`)

	tests := []struct {
		name        string
		profile     string
		wantDialect string
		wantLevel   string
	}{
		{"no profile - base only", "", "postgres", "info"},
		{"dev profile", "dev", "sqlite", "debug"},
		{"prod profile", "prod", "postgres", "warn"},
		{"nonexistent profile - falls back to base", "staging", "postgres", "info"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadWithProfile(basePath, tc.profile)
			if err != nil {
				t.Fatalf("LoadWithProfile failed: %v", err)
			}
			if cfg.DB.Dialect != tc.wantDialect {
				t.Errorf("dialect: got %s, want %s", cfg.DB.Dialect, tc.wantDialect)
			}
			if cfg.Log.Level != tc.wantLevel {
				t.Errorf("log level: got %s, want %s", cfg.Log.Level, tc.wantLevel)
			}
			if cfg.Project.Name != "base" {
				t.Errorf("profile must inherit unset keys, got %q", cfg.Project.Name)
			}
		})
	}
}

func TestLoadProfileFromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	basePath := filepath.Join(tmpDir, "tsera.config.yaml")
	writeConfig(t, basePath, "db:\n  dialect: postgres\n")
	writeConfig(t, filepath.Join(tmpDir, "tsera.config.ci.yaml"), "db:\n  dialect: sqlite\n")
	t.Setenv(ProfileEnv, "ci")

	cfg, err := Load(basePath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB.Dialect != "sqlite" || cfg.Profile != "ci" {
		t.Errorf("expected ci overlay, got dialect %s profile %q", cfg.DB.Dialect, cfg.Profile)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	if got := Discover(dir); got != "" {
		t.Fatalf("expected no config, got %q", got)
	}
	writeConfig(t, filepath.Join(dir, "tsera.config.json"), `{}`)
	if got := Discover(dir); got != filepath.Join(dir, "tsera.config.json") {
		t.Fatalf("unexpected discovered path %q", got)
	}
	writeConfig(t, filepath.Join(dir, "tsera.config.yaml"), ``)
	if got := Discover(dir); got != filepath.Join(dir, "tsera.config.yaml") {
		t.Fatalf("yaml must win over json, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		version string
		wantErr bool
	}{
		{"defaults", func(*Config) {}, "1.0.0", false},
		{"unknown dialect", func(c *Config) { c.DB.Dialect = "oracle" }, "1.0.0", true},
		{"unknown exporter", func(c *Config) { c.Telemetry.Exporter = "zipkin" }, "1.0.0", true},
		{"unknown provider", func(c *Config) { c.CD.Provider = "jenkins" }, "1.0.0", true},
		{"bad project version", func(c *Config) { c.Project.Version = "one" }, "1.0.0", true},
		{"zero engine version", func(c *Config) { c.Engine.Version = 0 }, "1.0.0", true},
		{"requirement met", func(c *Config) { c.Project.Requires = ">=1.0.0 <2.0.0" }, "1.4.2", false},
		{"requirement unmet", func(c *Config) { c.Project.Requires = "^2.0.0" }, "1.4.2", true},
		{"dev build skips requirement", func(c *Config) { c.Project.Requires = "^2.0.0" }, "dev", false},
		{"bad requirement", func(c *Config) { c.Project.Requires = "not a range" }, "1.0.0", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate(tc.version)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && tserrors.CodeOf(err) != tserrors.CodeConfig {
				t.Fatalf("expected config error code, got %q", tserrors.CodeOf(err))
			}
		})
	}
}
