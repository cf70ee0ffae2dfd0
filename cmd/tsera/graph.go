// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/tsera-dev/tsera/pkg/graph"
)

type graphResult struct {
	Format  string `json:"format"`
	Content string `json:"content"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
}

func runGraph(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	output := fs.String("output", "mermaid", "Output format: mermaid, dot, json, yaml")
	if err := fs.Parse(args); err != nil {
		return NewInvalidArgumentError("graph", err.Error())
	}

	entities, err := a.engine.LoadEntities()
	if err != nil {
		return WrapError(err)
	}
	g, err := a.engine.Build(ctx, entities)
	if err != nil {
		return WrapError(err)
	}
	content, err := renderGraph(g, *output)
	if err != nil {
		return err
	}

	if a.global.JSON {
		return printJSON(out, graphResult{
			Format:  *output,
			Content: content,
			Nodes:   g.Len(),
			Edges:   len(g.Edges()),
		})
	}
	fmt.Fprint(out, content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

func renderGraph(g *graph.Graph, format string) (string, error) {
	switch format {
	case "mermaid":
		return g.Mermaid(), nil
	case "dot":
		return g.DOT(), nil
	case "json":
		data, err := graph.MarshalJSON(g, true)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "yaml":
		data, err := graph.MarshalYAML(g)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", NewInvalidArgumentError("--output", fmt.Sprintf("unknown output format %q; use mermaid, dot, json or yaml", format))
	}
}
