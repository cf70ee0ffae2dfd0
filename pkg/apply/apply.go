// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Package apply executes a plan against the project directory.
//
// Steps run strictly in plan order. Create and update steps write the node
// content, delete steps remove the file recorded in the previous state, and
// noop steps leave everything untouched. The new state is returned only when
// every step succeeded; on the first I/O failure the remaining steps are
// abandoned and no state is returned, so the caller keeps the previous
// manifest and a re-run plans the same work again.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tsera-dev/tsera/pkg/audit"
	tserrors "github.com/tsera-dev/tsera/pkg/errors"
	"github.com/tsera-dev/tsera/pkg/fsutil"
	"github.com/tsera-dev/tsera/pkg/graph"
	"github.com/tsera-dev/tsera/pkg/plan"
	"github.com/tsera-dev/tsera/pkg/state"
	"github.com/tsera-dev/tsera/pkg/telemetry"
)

// IOError reports a failed file operation. It aborts the apply.
type IOError struct {
	Op     string
	Path   string
	NodeID string
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("apply: %s %s (node %q): %v", e.Op, e.Path, e.NodeID, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrorCode implements errors.Coded.
func (e *IOError) ErrorCode() tserrors.ErrorCode {
	return tserrors.CodeApplyIO
}

var errEscapes = errors.New("path escapes the project directory")

// Result describes what happened for one step.
type Result struct {
	Action  plan.Action
	NodeID  string
	Path    string
	Bytes   int
	Skipped bool
	// Retained is set when a delete dropped the state entry but left the
	// file to the node that now writes it.
	Retained bool
	Duration time.Duration
	// Err is the failure of the step that aborted the apply.
	Err error `json:"-"`
}

// Metrics receives per-step and per-apply measurements.
type Metrics interface {
	RecordApplyStep(ctx context.Context, action string, err error)
	RecordApply(ctx context.Context, d time.Duration, err error)
}

// Recorder receives one audit event per processed step.
type Recorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Applier writes plans to a project directory.
type Applier struct {
	ProjectDir string
	// OnStep is called after every processed step, including the one that
	// fails; Result.Err is set then. It cannot affect the apply.
	OnStep func(plan.Step, Result)
	Logger *slog.Logger
	// Metrics and Recorder are optional.
	Metrics  Metrics
	Recorder Recorder
	// RunID tags audit events.
	RunID string

	tracer trace.Tracer
}

// New returns an Applier for projectDir.
func New(projectDir string) *Applier {
	return &Applier{ProjectDir: projectDir}
}

// Apply runs every step of p and returns the state to persist. ctx only
// carries trace and log correlation; a started apply runs to completion or
// to its first failure.
func (a *Applier) Apply(ctx context.Context, p *plan.Plan, prev state.State) (state.State, error) {
	if p == nil {
		return nil, fmt.Errorf("apply: plan is nil")
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer("tsera/apply")
	}
	log := a.logger()
	start := time.Now()

	ctx, span := a.tracer.Start(ctx, "Apply",
		trace.WithAttributes(
			attribute.String(telemetry.AttrProjectDir, a.ProjectDir),
		),
		trace.WithAttributes(telemetry.PlanAttributes(p.Summary.Create, p.Summary.Update, p.Summary.Delete, p.Summary.Noop)...),
	)
	defer span.End()

	next := prev.Clone()
	for _, step := range p.Steps {
		res, err := a.step(ctx, step, prev, next)
		a.record(ctx, step, res, err)
		if a.Metrics != nil {
			a.Metrics.RecordApplyStep(ctx, string(step.Action), err)
		}
		if err != nil {
			res.Err = err
			if a.OnStep != nil {
				a.OnStep(step, res)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if a.Metrics != nil {
				a.Metrics.RecordApply(ctx, time.Since(start), err)
			}
			log.Error("apply aborted", "node", step.Node.ID, "action", step.Action, "error", err)
			return nil, err
		}
		log.Debug("step applied", "node", step.Node.ID, "action", step.Action, "path", res.Path, "skipped", res.Skipped, "retained", res.Retained)
		if a.OnStep != nil {
			a.OnStep(step, res)
		}
	}

	if a.Metrics != nil {
		a.Metrics.RecordApply(ctx, time.Since(start), nil)
	}
	return next, nil
}

func (a *Applier) step(ctx context.Context, step plan.Step, prev, next state.State) (Result, error) {
	_, span := a.tracer.Start(ctx, "Apply.Step",
		trace.WithAttributes(telemetry.StepAttributes(step.Node.ID, step.Node.Kind, step.Node.Path, string(step.Action))...),
	)
	defer span.End()

	started := time.Now()
	res := Result{Action: step.Action, NodeID: step.Node.ID, Path: step.Node.Path}
	if step.Node.Mode == graph.ModeInput {
		res.Skipped = true
		return res, nil
	}

	var err error
	switch step.Action {
	case plan.ActionCreate, plan.ActionUpdate:
		res.Bytes, err = a.write(step)
		if err == nil {
			next[step.Node.ID] = state.Entry{Hash: step.Hash, Path: step.Node.Path, Kind: step.Node.Kind}
		}
	case plan.ActionDelete:
		if entry, ok := prev[step.Node.ID]; ok {
			res.Path = entry.Path
		}
		if step.Retain {
			res.Retained = true
		} else {
			err = a.remove(step.Node.ID, res.Path)
		}
		if err == nil {
			delete(next, step.Node.ID)
		}
	case plan.ActionNoop:
		res.Skipped = true
	default:
		err = fmt.Errorf("apply: unknown action %q for node %q", step.Action, step.Node.ID)
	}
	res.Duration = time.Since(started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (a *Applier) write(step plan.Step) (int, error) {
	target, err := a.resolve("write", step.Node.ID, step.Node.Path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, &IOError{Op: "mkdir", Path: step.Node.Path, NodeID: step.Node.ID, Err: err}
	}
	if err := fsutil.WriteFileAtomic(target, step.Node.Content, 0o644); err != nil {
		return 0, &IOError{Op: "write", Path: step.Node.Path, NodeID: step.Node.ID, Err: err}
	}
	return len(step.Node.Content), nil
}

func (a *Applier) remove(nodeID, rel string) error {
	target, err := a.resolve("delete", nodeID, rel)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: "delete", Path: rel, NodeID: nodeID, Err: err}
	}
	return nil
}

func (a *Applier) resolve(op, nodeID, rel string) (string, error) {
	target, ok := fsutil.WithinDir(a.ProjectDir, rel)
	if !ok {
		return "", &IOError{Op: op, Path: rel, NodeID: nodeID, Err: errEscapes}
	}
	return target, nil
}

func (a *Applier) record(ctx context.Context, step plan.Step, res Result, stepErr error) {
	if a.Recorder == nil {
		return
	}
	ev := audit.Event{
		RunID:  a.RunID,
		NodeID: step.Node.ID,
		Kind:   step.Node.Kind,
		Action: string(step.Action),
		Path:   res.Path,
		Hash:   step.Hash,
		Status: audit.StatusApplied,
		At:     time.Now(),
	}
	switch {
	case stepErr != nil:
		ev.Status = audit.StatusFailed
		ev.Error = stepErr.Error()
	case res.Skipped:
		ev.Status = audit.StatusSkipped
	}
	if err := a.Recorder.Record(ctx, ev); err != nil {
		a.logger().Warn("audit record failed", "node", step.Node.ID, "error", err)
	}
}

func (a *Applier) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
