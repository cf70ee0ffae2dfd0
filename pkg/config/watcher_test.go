// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// startWatcher returns a running watcher and a channel of reloaded configs.
func startWatcher(t *testing.T, path, profile string) (*Watcher, <-chan *Config) {
	t.Helper()
	w, err := NewWatcher(path, profile, WithWatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	reloads := make(chan *Config, 8)
	w.OnChange(func(cfg *Config) { reloads <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	return w, reloads
}

func TestWatcherReloadsOnContentChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsera.config.yaml")
	writeConfig(t, path, "db:\n  dialect: postgres\n")

	w, reloads := startWatcher(t, path, "")
	if got := w.Config().DB.Dialect; got != "postgres" {
		t.Fatalf("initial dialect = %q", got)
	}

	writeConfig(t, path, "db:\n  dialect: sqlite\n")
	select {
	case cfg := <-reloads:
		if cfg.DB.Dialect != "sqlite" {
			t.Errorf("reloaded dialect = %q", cfg.DB.Dialect)
		}
		if w.Config() != cfg {
			t.Error("Config() does not return the reloaded config")
		}
	case <-time.After(time.Second):
		t.Fatal("no reload after content change")
	}
}

func TestWatcherIgnoresIdenticalRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsera.config.yaml")
	content := "project:\n  name: same\n"
	writeConfig(t, path, content)

	_, reloads := startWatcher(t, path, "")
	later := time.Now().Add(time.Hour)
	writeConfig(t, path, content)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloads:
		t.Fatalf("unexpected reload: %+v", cfg.Project)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherPicksUpNewOverlay(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "tsera.config.yaml")
	writeConfig(t, base, "db:\n  dialect: postgres\n")

	w, reloads := startWatcher(t, base, "dev")
	if w.Config().DB.Dialect != "postgres" {
		t.Fatalf("expected base config without overlay")
	}

	writeConfig(t, filepath.Join(dir, "tsera.config.dev.yaml"), "db:\n  dialect: mysql\n")
	select {
	case cfg := <-reloads:
		if cfg.DB.Dialect != "mysql" || cfg.Profile != "dev" {
			t.Errorf("got dialect %q profile %q", cfg.DB.Dialect, cfg.Profile)
		}
	case <-time.After(time.Second):
		t.Fatal("overlay creation not detected")
	}
}

func TestWatcherKeepsConfigOnBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsera.config.yaml")
	writeConfig(t, path, "project:\n  name: good\n")

	w, reloads := startWatcher(t, path, "")
	writeConfig(t, path, "project: [unterminated\n")
	time.Sleep(150 * time.Millisecond)

	select {
	case <-reloads:
		t.Fatal("broken file must not be delivered")
	default:
	}
	if w.Config().Project.Name != "good" {
		t.Errorf("config replaced by broken reload: %+v", w.Config().Project)
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsera.config.yaml")
	writeConfig(t, path, "project: {}\n")

	w, err := NewWatcher(path, "", WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	w.Start(context.Background())

	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestWatcherWithProfileAndCLIArgs(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "tsera.config.yaml")
	writeConfig(t, base, "db:\n  dialect: postgres\n")
	dev := filepath.Join(dir, "tsera.config.dev.yaml")
	writeConfig(t, dev, "db:\n  dialect: sqlite\n")

	w, err := NewWatcher(base, "dev", WithCLIArgs([]string{"--set", "project.name=cli"}))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	cfg := w.Config()
	if cfg.DB.Dialect != "sqlite" || cfg.Project.Name != "cli" {
		t.Fatalf("expected profile and cli overrides, got dialect %s name %s", cfg.DB.Dialect, cfg.Project.Name)
	}
	if paths := w.Paths(); len(paths) != 2 || paths[1] != dev {
		t.Fatalf("expected base and profile paths, got %v", paths)
	}
}
