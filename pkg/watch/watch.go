// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package watch triggers regeneration when entity definitions or the
// project config change. Bursts of filesystem events are debounced into a
// single callback.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tsera-dev/tsera/pkg/entity"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 300 * time.Millisecond

// Watcher monitors entity directories recursively plus individual files.
type Watcher struct {
	fw       *fsnotify.Watcher
	roots    []string
	files    map[string]struct{}
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New watches every directory under dirs and the given files. Files are
// watched through their parent directory so editors that replace files on
// save are handled.
func New(dirs, files []string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:       fw,
		files:    make(map[string]struct{}),
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			fw.Close()
			return nil, err
		}
		if err := w.addRecursive(abs); err != nil {
			fw.Close()
			return nil, err
		}
		w.roots = append(w.roots, abs)
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run delivers debounced change sets to fn until ctx is cancelled. fn
// receives the changed paths sorted and runs on the watcher goroutine, so
// events arriving meanwhile are batched into the next call.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, changed []string)) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			fn(ctx, changed)
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// relevant reports whether event concerns a watched file or a definition
// inside one of the roots. Other files next to a watched file, such as
// generated artifacts in the project root, are ignored.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if _, ok := w.files[abs]; ok {
		return true
	}
	if shouldIgnore(abs) || !w.underRoot(abs) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	return entity.IsDefinitionFile(event.Name)
}

func (w *Watcher) underRoot(p string) bool {
	for _, root := range w.roots {
		if rel, err := filepath.Rel(root, p); err == nil && filepath.IsLocal(rel) {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && shouldIgnore(p) {
			return filepath.SkipDir
		}
		return w.fw.Add(p)
	})
}

// shouldIgnore skips hidden files and directories such as .git and .tsera.
func shouldIgnore(p string) bool {
	return strings.HasPrefix(filepath.Base(p), ".")
}
