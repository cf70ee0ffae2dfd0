// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/tsera-dev/tsera/pkg/cdsync"
	"github.com/tsera-dev/tsera/pkg/engine"
	"github.com/tsera-dev/tsera/pkg/errors"
	"github.com/tsera-dev/tsera/pkg/state"
)

type validateResult struct {
	Checks  []checkResult `json:"checks"`
	Overall string        `json:"overall"`
}

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warn", "error", "skip"
	Message string `json:"message,omitempty"`
}

func (r *validateResult) add(c checkResult) {
	r.Checks = append(r.Checks, c)
	switch {
	case c.Status == "error":
		r.Overall = "error"
	case c.Status == "warn" && r.Overall == "ok":
		r.Overall = "warn"
	}
}

func runValidate(ctx context.Context, global globalFlags, args []string, out io.Writer) error {
	if len(args) > 0 {
		return NewInvalidArgumentError("validate", fmt.Sprintf("unexpected args: %v", args))
	}
	result := validate(ctx, global)

	if global.JSON {
		if err := printJSON(out, result); err != nil {
			return err
		}
	} else {
		printValidateResult(out, result)
	}
	if result.Overall == "error" {
		return NewCLIError(errors.New(errors.CodeInvalidInput, "validation failed", nil), "fix the checks marked ✗ above")
	}
	return nil
}

func validate(ctx context.Context, global globalFlags) validateResult {
	result := validateResult{Overall: "ok"}
	skip := func(names ...string) {
		for _, name := range names {
			result.add(checkResult{Name: name, Status: "skip", Message: "previous check failed"})
		}
	}

	cfg, projectDir, err := loadConfig(global)
	if err != nil {
		result.add(checkResult{Name: "config", Status: "error", Message: err.Error()})
		skip("entities", "graph", "manifest")
		return result
	}
	source := cfg.Source
	if source == "" {
		source = "defaults (no config file)"
	}
	result.add(checkResult{Name: "config", Status: "ok", Message: source})

	eng, err := engine.New(projectDir, cfg)
	if err != nil {
		result.add(checkResult{Name: "artifacts", Status: "error", Message: err.Error()})
		skip("entities", "graph", "manifest")
		return result
	}

	entities, err := eng.LoadEntities()
	switch {
	case err != nil:
		result.add(checkResult{Name: "entities", Status: "error", Message: err.Error()})
		skip("graph")
	case len(entities) == 0:
		result.add(checkResult{Name: "entities", Status: "warn", Message: "no entity definitions in " + eng.EntitiesDir()})
		skip("graph")
	default:
		result.add(checkResult{Name: "entities", Status: "ok", Message: fmt.Sprintf("%d entities", len(entities))})
		g, err := eng.Build(ctx, entities)
		if err != nil {
			result.add(checkResult{Name: "graph", Status: "error", Message: err.Error()})
		} else {
			result.add(checkResult{Name: "graph", Status: "ok",
				Message: fmt.Sprintf("%d nodes, %d edges", g.Len(), len(g.Edges()))})
		}
	}

	prev, err := state.Read(projectDir)
	switch {
	case err != nil:
		result.add(checkResult{Name: "manifest", Status: "error", Message: err.Error()})
	case len(prev) == 0:
		result.add(checkResult{Name: "manifest", Status: "ok", Message: "not generated yet"})
	default:
		result.add(checkResult{Name: "manifest", Status: "ok", Message: fmt.Sprintf("%d entries", len(prev))})
	}

	if _, err := cdsync.ReadMeta(projectDir); err != nil {
		result.add(checkResult{Name: "workflows", Status: "warn", Message: err.Error()})
	}
	return result
}

func printValidateResult(w io.Writer, result validateResult) {
	statusIcon := map[string]string{
		"ok":    "✓",
		"warn":  "⚠",
		"error": "✗",
		"skip":  "○",
	}

	fmt.Fprintln(w, "TSera Project Validation")
	fmt.Fprintln(w, "========================")
	fmt.Fprintln(w)
	for _, c := range result.Checks {
		if c.Message != "" {
			fmt.Fprintf(w, "%s %s: %s\n", statusIcon[c.Status], c.Name, c.Message)
		} else {
			fmt.Fprintf(w, "%s %s\n", statusIcon[c.Status], c.Name)
		}
	}

	fmt.Fprintln(w)
	switch result.Overall {
	case "ok":
		fmt.Fprintln(w, "✓ All checks passed")
	case "warn":
		fmt.Fprintln(w, "⚠ Passed with warnings")
	default:
		fmt.Fprintln(w, "✗ Validation failed")
	}
}
