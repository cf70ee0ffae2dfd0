// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tsera-dev/tsera/pkg/config"
	"github.com/tsera-dev/tsera/pkg/engine"
	"github.com/tsera-dev/tsera/pkg/watch"
)

// runDev regenerates once, then again whenever an entity definition or the
// config file changes, until interrupted.
func runDev(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) > 0 {
		return NewInvalidArgumentError("dev", fmt.Sprintf("unexpected args: %v", args))
	}

	var mu sync.Mutex
	regenerate := func(ctx context.Context, reason string) {
		mu.Lock()
		defer mu.Unlock()
		a.logger.InfoContext(ctx, "regenerating", "reason", reason)
		res, err := generate(ctx, a, false, out)
		if err != nil {
			// Keep watching; the next save usually fixes it.
			WrapError(err).PrintError(out, a.global.JSON)
			return
		}
		if a.global.JSON {
			_ = printJSON(out, newGenerateResult(res))
			return
		}
		printGenerateSummary(out, res)
	}

	regenerate(ctx, "startup")

	if a.cfg.Source != "" {
		cw, err := config.NewWatcher(a.cfg.Source, a.cfg.Profile,
			config.WithWatchLogger(a.logger),
			config.WithCLIArgs(a.global.ConfigArgs),
		)
		if err != nil {
			return WrapError(err)
		}
		cw.OnChange(func(cfg *config.Config) {
			if err := cfg.Validate(version); err != nil {
				a.logger.Error("ignoring invalid config", "error", err)
				return
			}
			mu.Lock()
			if cfg.Paths.Entities != a.cfg.Paths.Entities {
				a.logger.Warn("paths.entities changed; restart tsera dev to watch the new directory")
			}
			eng, err := engine.New(a.projectDir, cfg,
				engine.WithLogger(a.logger), engine.WithMetrics(a.metrics), engine.WithRecorder(a.audit))
			if err == nil {
				a.cfg, a.engine = cfg, eng
			}
			mu.Unlock()
			if err != nil {
				a.logger.Error("ignoring config", "error", err)
				return
			}
			regenerate(ctx, "config changed")
		})
		cw.Start(ctx)
		defer cw.Stop()
	}

	debounce := time.Duration(a.cfg.Dev.DebounceMS) * time.Millisecond
	w, err := watch.New([]string{a.engine.EntitiesDir()}, nil,
		watch.WithDebounce(debounce),
		watch.WithLogger(a.logger),
	)
	if err != nil {
		return WrapError(err)
	}
	defer w.Close()

	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", a.engine.EntitiesDir())
	return w.Run(ctx, func(ctx context.Context, changed []string) {
		regenerate(ctx, fmt.Sprintf("%d files changed", len(changed)))
	})
}
