// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/tsera-dev/tsera/pkg/apply"
	"github.com/tsera-dev/tsera/pkg/engine"
	"github.com/tsera-dev/tsera/pkg/plan"
	"github.com/tsera-dev/tsera/pkg/state"
)

type generateResult struct {
	RunID      string       `json:"run_id,omitempty"`
	DryRun     bool         `json:"dry_run"`
	Generation string       `json:"generation,omitempty"`
	Plan       planResult   `json:"plan"`
	Applied    []appliedRow `json:"applied,omitempty"`
	DurationMS int64        `json:"duration_ms"`
}

type appliedRow struct {
	Action  string `json:"action"`
	ID      string `json:"id"`
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
	Skipped bool   `json:"skipped,omitempty"`
}

func runGenerate(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dryRun := fs.Bool("dry-run", false, "Plan only, write nothing")
	if err := fs.Parse(args); err != nil {
		return NewInvalidArgumentError("generate", err.Error())
	}

	res, err := generate(ctx, a, *dryRun, out)
	if err != nil {
		return err
	}
	if a.global.JSON {
		return printJSON(out, newGenerateResult(res))
	}
	printGenerateSummary(out, res)
	return nil
}

// generate runs one cycle. Steps are echoed to out as they are applied
// unless JSON output was requested.
func generate(ctx context.Context, a *app, dryRun bool, out io.Writer) (*engine.Result, error) {
	entities, err := a.engine.LoadEntities()
	if err != nil {
		return nil, WrapError(err)
	}
	styles := newPlanStyles(out)
	opts := engine.RunOptions{DryRun: dryRun}
	if !a.global.JSON {
		opts.OnStep = func(step plan.Step, r apply.Result) {
			if r.Err != nil {
				fmt.Fprintf(out, "  %s %s (failed)\n", styles.action(step.Action), r.Path)
				return
			}
			fmt.Fprintf(out, "  %s %s\n", styles.action(step.Action), r.Path)
		}
	}
	res, err := a.engine.Run(ctx, entities, opts)
	if err != nil {
		return nil, WrapError(err)
	}
	if dryRun && !a.global.JSON {
		renderPlan(out, res.Plan, styles)
	}
	return res, nil
}

func newGenerateResult(res *engine.Result) generateResult {
	out := generateResult{
		RunID:      res.RunID,
		DryRun:     res.DryRun,
		Plan:       newPlanResult(res.Plan),
		DurationMS: res.Duration.Milliseconds(),
	}
	if !res.DryRun {
		if id, err := state.GenerationID(res.State); err == nil {
			out.Generation = id.String()
		}
	}
	for _, r := range res.Applied {
		out.Applied = append(out.Applied, appliedRow{
			Action:  string(r.Action),
			ID:      r.NodeID,
			Path:    r.Path,
			Bytes:   r.Bytes,
			Skipped: r.Skipped,
		})
	}
	return out
}

func printGenerateSummary(out io.Writer, res *engine.Result) {
	if res.DryRun {
		return
	}
	s := res.Plan.Summary
	if !s.Changed {
		fmt.Fprintf(out, "Up to date: %d artifacts unchanged.\n", s.Noop)
		return
	}
	fmt.Fprintf(out, "Applied %d created, %d updated, %d deleted in %s (run %s).\n",
		s.Create, s.Update, s.Delete, res.Duration.Round(time.Millisecond), res.RunID)
}
