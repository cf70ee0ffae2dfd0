// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine runs one generation cycle: entities are turned into
// artifact descriptors, the graph is built, diffed against the manifest and,
// unless it is a dry run, applied. The manifest and the graph snapshot are
// written once, after every step succeeded.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tsera-dev/tsera/pkg/apply"
	"github.com/tsera-dev/tsera/pkg/artifact"
	"github.com/tsera-dev/tsera/pkg/config"
	"github.com/tsera-dev/tsera/pkg/entity"
	"github.com/tsera-dev/tsera/pkg/graph"
	"github.com/tsera-dev/tsera/pkg/plan"
	"github.com/tsera-dev/tsera/pkg/state"
	"github.com/tsera-dev/tsera/pkg/telemetry"
)

// Engine drives generation cycles for one project directory.
type Engine struct {
	projectDir string
	cfg        *config.Config
	registry   *artifact.Registry
	logger     *slog.Logger
	metrics    *telemetry.EngineMetrics
	recorder   apply.Recorder
	tracer     trace.Tracer
	newRunID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records plan and apply measurements.
func WithMetrics(m *telemetry.EngineMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRecorder sends one audit event per applied step to r.
func WithRecorder(r apply.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRegistry replaces the builders selected from configuration.
func WithRegistry(r *artifact.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// New creates an engine for projectDir.
func New(projectDir string, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine: config is nil")
	}
	e := &Engine{
		projectDir: projectDir,
		cfg:        cfg,
		logger:     slog.Default(),
		tracer:     otel.Tracer("tsera/engine"),
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		r, err := artifact.NewRegistry(cfg, projectDir)
		if err != nil {
			return nil, err
		}
		e.registry = r
	}
	return e, nil
}

// ProjectDir returns the directory artifacts are written to.
func (e *Engine) ProjectDir() string { return e.projectDir }

// Config returns the configuration the engine was created with.
func (e *Engine) Config() *config.Config { return e.cfg }

// EntitiesDir returns the absolute path of the entity definitions.
func (e *Engine) EntitiesDir() string {
	dir := e.cfg.Paths.Entities
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(e.projectDir, dir)
}

// LoadEntities reads every definition under the entities directory.
func (e *Engine) LoadEntities() ([]entity.Entity, error) {
	return entity.LoadDir(e.EntitiesDir())
}

// Build runs the artifact builders and constructs the graph.
func (e *Engine) Build(ctx context.Context, entities []entity.Entity) (*graph.Graph, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Build")
	defer span.End()

	inputs, shared, err := e.registry.Produce(ctx, entities)
	if err != nil {
		return nil, failSpan(span, err)
	}
	g, err := graph.Build(inputs, graph.BuildOptions{Version: e.cfg.Engine.Version, Shared: shared})
	if err != nil {
		return nil, failSpan(span, err)
	}
	span.SetAttributes(telemetry.GraphAttributes(g.Len(), len(g.Edges()))...)
	return g, nil
}

// Cycle is the outcome of planning.
type Cycle struct {
	Graph    *graph.Graph
	Previous state.State
	Plan     *plan.Plan
}

// Plan builds the graph, reads the manifest and computes the plan. It does
// not write anything.
func (e *Engine) Plan(ctx context.Context, entities []entity.Entity) (*Cycle, error) {
	g, err := e.Build(ctx, entities)
	if err != nil {
		return nil, err
	}

	_, span := e.tracer.Start(ctx, "Engine.Plan")
	defer span.End()

	prev, err := state.Read(e.projectDir)
	if err != nil {
		return nil, failSpan(span, err)
	}
	p, err := plan.Compute(g, prev, plan.Options{IncludeUnchanged: e.cfg.Engine.IncludeUnchanged})
	if err != nil {
		return nil, failSpan(span, err)
	}

	s := p.Summary
	span.SetAttributes(telemetry.PlanAttributes(s.Create, s.Update, s.Delete, s.Noop)...)
	e.metrics.RecordPlan(ctx, s.Create, s.Update, s.Delete, s.Noop)
	e.logger.DebugContext(ctx, "plan computed",
		"create", s.Create, "update", s.Update, "delete", s.Delete, "noop", s.Noop)

	return &Cycle{Graph: g, Previous: prev, Plan: p}, nil
}

// RunOptions tunes Run.
type RunOptions struct {
	// DryRun stops after planning.
	DryRun bool
	// OnStep observes every processed step, including one that fails.
	OnStep func(plan.Step, apply.Result)
}

// Result is the outcome of Run.
type Result struct {
	Cycle
	RunID    string
	DryRun   bool
	Applied  []apply.Result
	State    state.State
	Duration time.Duration
}

// Run performs a full cycle. On failure nothing is persisted and the
// previous manifest stays authoritative, so running again retries the same
// work.
func (e *Engine) Run(ctx context.Context, entities []entity.Entity, opts RunOptions) (*Result, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "Engine.Run",
		trace.WithAttributes(telemetry.CycleAttributes(e.projectDir, e.cfg.Engine.Version, len(entities), opts.DryRun)...),
	)
	defer span.End()

	cycle, err := e.Plan(ctx, entities)
	if err != nil {
		e.metrics.RecordError(ctx, err, "plan")
		return nil, failSpan(span, err)
	}
	res := &Result{Cycle: *cycle, RunID: e.newRunID(), DryRun: opts.DryRun, State: cycle.Previous}
	span.SetAttributes(attribute.String(telemetry.AttrRunID, res.RunID))
	ctx = telemetry.ContextWithRunID(ctx, res.RunID)

	if opts.DryRun {
		res.Duration = time.Since(start)
		e.logger.InfoContext(ctx, "dry run", "changed", cycle.Plan.Summary.Changed, "steps", len(cycle.Plan.Steps))
		return res, nil
	}

	applier := apply.New(e.projectDir)
	applier.Logger = e.logger
	applier.Recorder = e.recorder
	applier.RunID = res.RunID
	if e.metrics != nil {
		applier.Metrics = e.metrics
	}
	applier.OnStep = func(step plan.Step, r apply.Result) {
		res.Applied = append(res.Applied, r)
		if opts.OnStep != nil {
			opts.OnStep(step, r)
		}
	}

	next, err := applier.Apply(ctx, cycle.Plan, cycle.Previous)
	if err != nil {
		return nil, failSpan(span, err)
	}
	if err := state.Write(e.projectDir, next); err != nil {
		e.metrics.RecordError(ctx, err, "state")
		return nil, failSpan(span, err)
	}
	if err := state.WriteGraphSnapshot(e.projectDir, cycle.Graph); err != nil {
		e.metrics.RecordError(ctx, err, "state")
		return nil, failSpan(span, err)
	}
	res.State = next
	res.Duration = time.Since(start)

	e.exportTextfile(ctx)
	s := cycle.Plan.Summary
	e.logger.InfoContext(ctx, "cycle applied",
		"create", s.Create, "update", s.Update, "delete", s.Delete, "noop", s.Noop,
		"duration", res.Duration)
	return res, nil
}

func (e *Engine) exportTextfile(ctx context.Context) {
	path := e.cfg.Telemetry.PromTextfile
	if path == "" || e.metrics == nil {
		return
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.projectDir, path)
	}
	if err := telemetry.WriteTextfile(path, e.metrics.Stats()); err != nil {
		e.logger.WarnContext(ctx, "prometheus textfile export failed", "path", path, "error", err)
	}
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
