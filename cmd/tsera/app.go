// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tsera-dev/tsera/pkg/audit"
	"github.com/tsera-dev/tsera/pkg/config"
	"github.com/tsera-dev/tsera/pkg/engine"
	"github.com/tsera-dev/tsera/pkg/telemetry"
)

// app holds everything a project command needs. Close flushes telemetry
// and releases the audit store.
type app struct {
	global     globalFlags
	projectDir string
	cfg        *config.Config
	logger     *slog.Logger
	engine     *engine.Engine
	audit      audit.Store
	metrics    *telemetry.EngineMetrics
	telemetry  *telemetry.Provider
}

func withApp(ctx context.Context, global globalFlags, fn func(*app) error) error {
	a, err := newApp(ctx, global, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// loadConfig resolves the project directory and loads its configuration.
// Without --config the project's tsera.config.* file is used if present.
func loadConfig(global globalFlags) (*config.Config, string, error) {
	projectDir, err := filepath.Abs(global.Project)
	if err != nil {
		return nil, "", NewInvalidArgumentError("--project", err.Error())
	}
	args := global.ConfigArgs
	if !hasConfigFlag(args) {
		if path := config.Discover(projectDir); path != "" {
			args = append([]string{"--config", path}, args...)
		}
	}
	cfg, err := config.LoadWithCLI(args)
	if err != nil {
		return nil, projectDir, NewConfigError(err, "")
	}
	if err := cfg.Validate(version); err != nil {
		return nil, projectDir, WrapError(err)
	}
	return cfg, projectDir, nil
}

func newApp(ctx context.Context, global globalFlags, logOut io.Writer) (*app, error) {
	cfg, projectDir, err := loadConfig(global)
	if err != nil {
		return nil, err
	}
	logger := telemetry.ConfigureSlog(logOut, cfg.Log.Level, cfg.Log.Format)

	provider, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  "tsera",
		Version:      version,
		ProjectDir:   projectDir,
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		Writer:       logOut,
	})
	if err != nil {
		return nil, NewConfigError(err, cfg.Source)
	}
	a := &app{
		global:     global,
		projectDir: projectDir,
		cfg:        cfg,
		logger:     logger,
		telemetry:  provider,
	}

	a.metrics, err = telemetry.NewEngineMetrics(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	opts := []engine.Option{engine.WithLogger(logger), engine.WithMetrics(a.metrics)}

	if cfg.Audit.Enabled {
		store, err := openAudit(projectDir, cfg.Audit)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.audit = store
		opts = append(opts, engine.WithRecorder(store))
	}

	a.engine, err = engine.New(projectDir, cfg, opts...)
	if err != nil {
		a.Close()
		return nil, WrapError(err)
	}
	return a, nil
}

func openAudit(projectDir string, cfg config.AuditConfig) (audit.Store, error) {
	if cfg.Driver == "memory" {
		return audit.NewMemoryStore(), nil
	}
	path := cfg.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectDir, path)
	}
	return audit.OpenSQLite(path)
}

func (a *app) Close() {
	if closer, ok := a.audit.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("closing audit store", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", "error", err)
	}
}
