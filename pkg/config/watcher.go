// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher reloads the configuration when the content of the config file or
// its profile overlay changes. Files are compared by digest, so touching a
// file or rewriting identical bytes does not trigger a reload. An overlay
// that appears after the watcher started is picked up.
type Watcher struct {
	path     string
	profile  string
	sets     map[string]any
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	current *Config
	digests map[string]string
	onLoad  []func(*Config)

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets how often files are checked.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithCLIArgs reapplies --config, --profile and --set arguments on every
// reload so command-line overrides survive file edits.
func WithCLIArgs(args []string) WatcherOption {
	return func(w *Watcher) {
		path, opts, err := parseCLIOverrides(args)
		if err != nil {
			w.logger.Warn("ignoring invalid config arguments", "error", err)
			return
		}
		if path != "" {
			w.path = path
		}
		if opts.profile != "" {
			w.profile = opts.profile
		}
		w.sets = opts.sets
	}
}

// NewWatcher loads the configuration once and returns a watcher for it.
func NewWatcher(path, profile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		profile:  profile,
		interval: time.Second,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := load(w.path, w.profile, w.sets)
	if err != nil {
		return nil, err
	}
	w.current = cfg
	w.digests = w.snapshot()
	return w, nil
}

// Paths returns the files compared on each check.
func (w *Watcher) Paths() []string {
	if w.path == "" {
		return nil
	}
	paths := []string{w.path}
	if p := w.effectiveProfile(); p != "" {
		paths = append(paths, ProfilePath(w.path, p))
	}
	return paths
}

func (w *Watcher) effectiveProfile() string {
	if w.profile != "" {
		return w.profile
	}
	return os.Getenv(ProfileEnv)
}

// OnChange registers fn to run with every successfully reloaded config.
// Callbacks run on the watcher goroutine, one reload at a time.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onLoad = append(w.onLoad, fn)
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start checks for changes in the background until ctx is done or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				w.check()
			}
		}
	}()
}

// Stop ends the background loop and waits for it. Start must have been
// called.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

// snapshot digests every watched file. Missing files map to "".
func (w *Watcher) snapshot() map[string]string {
	out := make(map[string]string)
	for _, p := range w.Paths() {
		data, err := os.ReadFile(p)
		if err != nil {
			out[p] = ""
			continue
		}
		sum := sha256.Sum256(data)
		out[p] = hex.EncodeToString(sum[:])
	}
	return out
}

func (w *Watcher) check() {
	next := w.snapshot()

	w.mu.Lock()
	changed := false
	for p, d := range next {
		if w.digests[p] != d {
			changed = true
			break
		}
	}
	w.digests = next
	w.mu.Unlock()
	if !changed {
		return
	}

	cfg, err := load(w.path, w.profile, w.sets)
	if err != nil {
		w.logger.Error("config reload failed", "file", w.path, "error", err)
		return
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := append(([]func(*Config))(nil), w.onLoad...)
	w.mu.Unlock()

	w.logger.Info("config reloaded", "file", cfg.Source, "profile", cfg.Profile)
	for _, fn := range callbacks {
		fn(cfg)
	}
}
