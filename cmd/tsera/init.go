// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsera-dev/tsera/cmd/tsera/scaffold"
	"github.com/tsera-dev/tsera/pkg/cdsync"
)

func runInit(global globalFlags, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "Project name (default: directory name)")
	template := fs.String("template", "minimal", "Project template: "+strings.Join(scaffold.Templates, ", "))
	dialect := fs.String("dialect", "postgres", "Migration dialect: postgres, sqlite, mysql")
	ci := fs.String("ci", "", "Also write CI workflows: "+strings.Join(cdsync.Providers(), ", "))
	overwrite := fs.Bool("overwrite", false, "Overwrite existing files")

	// Accept the directory before or after the flags.
	var dir string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		dir, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return NewInvalidArgumentError("init", err.Error())
	}
	if dir == "" {
		dir = fs.Arg(0)
	}
	if dir == "" {
		dir = global.Project
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return NewInvalidArgumentError("directory", err.Error())
	}
	projectName := *name
	if projectName == "" {
		projectName = filepath.Base(absDir)
	}

	opts := scaffold.Options{
		ProjectName: projectName,
		Template:    *template,
		Dialect:     *dialect,
		CIProvider:  *ci,
		Overwrite:   *overwrite,
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return WrapError(err)
	}
	created, err := scaffold.Generate(absDir, opts)
	if err != nil {
		return NewInvalidArgumentError("init", err.Error())
	}

	var report *cdsync.Report
	if *ci != "" {
		report, err = cdsync.Sync(absDir, cdsync.Options{
			Provider: *ci,
			Force:    *overwrite,
			Data: cdsync.Data{
				ProjectName: projectName,
				Module:      toolModule,
				ToolVersion: installVersion(version),
				EntitiesDir: "entities",
				Dialect:     *dialect,
			},
		})
		if err != nil {
			return WrapError(err)
		}
	}

	if global.JSON {
		return printJSON(out, map[string]any{
			"project":   projectName,
			"directory": absDir,
			"created":   created,
			"workflows": report,
		})
	}
	fmt.Fprintf(out, "Created TSera project %q in %s\n", projectName, absDir)
	for _, p := range created {
		fmt.Fprintf(out, "  Created: %s\n", p)
	}
	if report != nil {
		for _, c := range report.Changes {
			fmt.Fprintf(out, "  Workflow %s: %s\n", c.Outcome, c.Path)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  cd %s\n", dir)
	fmt.Fprintln(out, "  tsera generate")
	return nil
}
