// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	mm "github.com/Masterminds/semver/v3"

	"github.com/tsera-dev/tsera/pkg/artifact"
	"github.com/tsera-dev/tsera/pkg/cdsync"
)

// toolModule is the module CI workflows install the CLI from.
const toolModule = "github.com/tsera-dev/tsera"

func runCD(a *app, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] != "sync" {
		return NewInvalidArgumentError("cd", "usage: tsera cd sync [--provider github|gitlab] [--force] [--dry-run]")
	}
	fs := flag.NewFlagSet("cd sync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	provider := fs.String("provider", a.cfg.CD.Provider, "CI provider: "+strings.Join(cdsync.Providers(), ", "))
	dir := fs.String("dir", a.cfg.CD.Dir, "Workflow directory (default per provider)")
	force := fs.Bool("force", a.cfg.CD.Force, "Overwrite locally modified workflows")
	dryRun := fs.Bool("dry-run", false, "Report without writing")
	if err := fs.Parse(args[1:]); err != nil {
		return NewInvalidArgumentError("cd sync", err.Error())
	}

	report, err := cdsync.Sync(a.projectDir, cdsync.Options{
		Provider: *provider,
		Dir:      *dir,
		Force:    *force,
		DryRun:   *dryRun,
		Data:     workflowData(a),
	})
	if err != nil {
		return WrapError(err)
	}

	if a.global.JSON {
		return printJSON(out, report)
	}
	tw := newTabWriter(out)
	writeRow(tw, "OUTCOME", "PATH")
	for _, c := range report.Changes {
		writeRow(tw, string(c.Outcome), c.Path)
	}
	_ = tw.Flush()
	if n := report.Count(cdsync.Skipped) + report.Count(cdsync.Conflict); n > 0 {
		fmt.Fprintf(out, "\n%d workflows were edited locally and left alone; rerun with --force to overwrite.\n", n)
	}
	return nil
}

func workflowData(a *app) cdsync.Data {
	prefix := artifact.OutputPath(a.cfg, ".")
	if prefix == "." {
		prefix = ""
	} else {
		prefix += "/"
	}
	return cdsync.Data{
		ProjectName:  a.cfg.Project.Name,
		Module:       toolModule,
		ToolVersion:  installVersion(version),
		EntitiesDir:  a.cfg.Paths.Entities,
		OutputPrefix: prefix,
		Dialect:      a.cfg.DB.Dialect,
	}
}

// installVersion maps the running version to a go install query. Builds
// without a release version install the latest release.
func installVersion(v string) string {
	parsed, err := mm.NewVersion(v)
	if err != nil {
		return "latest"
	}
	return "v" + parsed.String()
}
