// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/tsera-dev/tsera/pkg/cdsync"
	"github.com/tsera-dev/tsera/pkg/engine"
	"github.com/tsera-dev/tsera/pkg/plan"
	"github.com/tsera-dev/tsera/pkg/state"
)

type statusResult struct {
	Version      string         `json:"version"`
	ProjectDir   string         `json:"project_dir"`
	ConfigSource string         `json:"config_source,omitempty"`
	Generation   string         `json:"generation,omitempty"`
	Artifacts    map[string]int `json:"artifacts"`
	GraphNodes   int            `json:"graph_nodes"`
	Pending      *plan.Summary  `json:"pending,omitempty"`
	PendingError string         `json:"pending_error,omitempty"`
	Workflows    int            `json:"workflows"`
}

func runStatus(ctx context.Context, a *app, args []string, out io.Writer) error {
	if len(args) > 0 {
		return NewInvalidArgumentError("status", fmt.Sprintf("unexpected args: %v", args))
	}

	prev, err := state.Read(a.projectDir)
	if err != nil {
		return WrapError(err)
	}
	result := statusResult{
		Version:      version,
		ProjectDir:   a.projectDir,
		ConfigSource: a.cfg.Source,
		Artifacts:    map[string]int{},
	}
	if len(prev) > 0 {
		id, err := state.GenerationID(prev)
		if err != nil {
			return WrapError(err)
		}
		result.Generation = id.String()
	}
	for _, entry := range prev {
		result.Artifacts[entry.Kind]++
	}
	snap, err := state.ReadGraphSnapshot(a.projectDir)
	if err != nil {
		return WrapError(err)
	}
	if snap != nil {
		result.GraphNodes = len(snap.Nodes)
	}
	if meta, err := cdsync.ReadMeta(a.projectDir); err == nil {
		result.Workflows = len(meta)
	}

	// Pending changes are informational; a broken entity shows up here
	// rather than failing the command.
	entities, err := a.engine.LoadEntities()
	if err == nil {
		var cycle *engine.Cycle
		if cycle, err = a.engine.Plan(ctx, entities); err == nil {
			s := cycle.Plan.Summary
			result.Pending = &s
		}
	}
	if err != nil {
		result.PendingError = err.Error()
	}

	if a.global.JSON {
		return printJSON(out, result)
	}
	printStatus(out, result)
	return nil
}

func printStatus(w io.Writer, r statusResult) {
	fmt.Fprintf(w, "TSera %s\n", r.Version)
	fmt.Fprintf(w, "Project:    %s\n", r.ProjectDir)
	if r.ConfigSource != "" {
		fmt.Fprintf(w, "Config:     %s\n", r.ConfigSource)
	}
	if r.Generation == "" {
		fmt.Fprintln(w, "Generation: none (run 'tsera generate')")
	} else {
		fmt.Fprintf(w, "Generation: %s\n", r.Generation)
	}

	kinds := make([]string, 0, len(r.Artifacts))
	for kind := range r.Artifacts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	tw := newTabWriter(w)
	for _, kind := range kinds {
		writeRow(tw, "  "+kind, fmt.Sprint(r.Artifacts[kind]))
	}
	_ = tw.Flush()
	if r.GraphNodes > 0 {
		fmt.Fprintf(w, "Graph:      %d nodes\n", r.GraphNodes)
	}
	if r.Workflows > 0 {
		fmt.Fprintf(w, "Workflows:  %d tracked\n", r.Workflows)
	}

	switch {
	case r.PendingError != "":
		fmt.Fprintf(w, "Pending:    unknown (%s)\n", r.PendingError)
	case r.Pending != nil && r.Pending.Changed:
		fmt.Fprintf(w, "Pending:    %d create, %d update, %d delete\n", r.Pending.Create, r.Pending.Update, r.Pending.Delete)
	case r.Pending != nil:
		fmt.Fprintln(w, "Pending:    none")
	}
}
