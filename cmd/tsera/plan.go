// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/tsera-dev/tsera/pkg/plan"
)

type planStyles struct {
	create, update, del, noop, header, dim lipgloss.Style
}

// newPlanStyles binds styles to w so colors are dropped when w is not a
// terminal.
func newPlanStyles(w io.Writer) planStyles {
	r := lipgloss.NewRenderer(w)
	return planStyles{
		create: r.NewStyle().Foreground(lipgloss.Color("2")),
		update: r.NewStyle().Foreground(lipgloss.Color("3")),
		del:    r.NewStyle().Foreground(lipgloss.Color("1")),
		noop:   r.NewStyle().Foreground(lipgloss.Color("8")),
		header: r.NewStyle().Bold(true),
		dim:    r.NewStyle().Faint(true),
	}
}

func (s planStyles) action(a plan.Action) string {
	switch a {
	case plan.ActionCreate:
		return s.create.Render("+ create")
	case plan.ActionUpdate:
		return s.update.Render("~ update")
	case plan.ActionDelete:
		return s.del.Render("- delete")
	default:
		return s.noop.Render("  noop  ")
	}
}

type planStep struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Hash   string `json:"hash"`
}

type planResult struct {
	Summary plan.Summary `json:"summary"`
	Steps   []planStep   `json:"steps"`
}

func newPlanResult(p *plan.Plan) planResult {
	res := planResult{Summary: p.Summary, Steps: make([]planStep, 0, len(p.Steps))}
	for _, st := range p.Steps {
		res.Steps = append(res.Steps, planStep{
			Action: string(st.Action),
			ID:     st.Node.ID,
			Kind:   st.Node.Kind,
			Path:   st.Node.Path,
			Hash:   st.Hash,
		})
	}
	return res
}

func runPlan(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	all := fs.Bool("all", false, "List unchanged artifacts too")
	if err := fs.Parse(args); err != nil {
		return NewInvalidArgumentError("plan", err.Error())
	}
	if *all {
		a.cfg.Engine.IncludeUnchanged = true
	}

	entities, err := a.engine.LoadEntities()
	if err != nil {
		return WrapError(err)
	}
	cycle, err := a.engine.Plan(ctx, entities)
	if err != nil {
		return WrapError(err)
	}
	if a.global.JSON {
		return printJSON(out, newPlanResult(cycle.Plan))
	}
	renderPlan(out, cycle.Plan, newPlanStyles(out))
	return nil
}

func renderPlan(w io.Writer, p *plan.Plan, styles planStyles) {
	s := p.Summary
	if !s.Changed && len(p.Steps) == 0 {
		fmt.Fprintf(w, "No changes. %d artifacts up to date.\n", s.Noop)
		return
	}
	fmt.Fprintln(w, styles.header.Render(fmt.Sprintf(
		"Plan: %d to create, %d to update, %d to delete, %d unchanged.", s.Create, s.Update, s.Delete, s.Noop)))
	fmt.Fprintln(w)

	tw := newTabWriter(w)
	for _, st := range p.Steps {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", styles.action(st.Action), st.Node.Kind, st.Node.Path)
	}
	_ = tw.Flush()
	if !s.Changed {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.dim.Render("Nothing to write."))
	}
}
