// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

// Command tsera scaffolds projects and incrementally regenerates the
// artifacts derived from their entity definitions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type globalFlags struct {
	ConfigArgs []string
	Project    string
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		exitWithError(NewInvalidArgumentError("flags", err.Error()), false)
	}
	if global.Help || len(args) == 0 {
		printUsage(os.Stdout)
		return
	}
	if err := dispatch(ctx, global, args, os.Stdout); err != nil {
		exitWithError(err, global.JSON)
	}
}

func dispatch(ctx context.Context, global globalFlags, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return runInit(global, rest, out)
	case "plan":
		return withApp(ctx, global, func(a *app) error { return runPlan(ctx, a, rest, out) })
	case "generate", "apply":
		return withApp(ctx, global, func(a *app) error { return runGenerate(ctx, a, rest, out) })
	case "graph":
		return withApp(ctx, global, func(a *app) error { return runGraph(ctx, a, rest, out) })
	case "validate":
		return runValidate(ctx, global, rest, out)
	case "status":
		return withApp(ctx, global, func(a *app) error { return runStatus(ctx, a, rest, out) })
	case "dev":
		return withApp(ctx, global, func(a *app) error { return runDev(ctx, a, rest, out) })
	case "cd":
		return withApp(ctx, global, func(a *app) error { return runCD(a, rest, out) })
	case "mcp":
		return withApp(ctx, global, func(a *app) error { return runMCP(a, rest) })
	case "help":
		printUsage(out)
		return nil
	case "version":
		fmt.Fprintln(out, version)
		return nil
	default:
		return NewInvalidArgumentError(cmd, fmt.Sprintf("unknown command %q", cmd))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{Project: "."}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config", arg == "--set", arg == "--profile", arg == "--env":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for %s", arg)
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--config="), strings.HasPrefix(arg, "--set="),
			strings.HasPrefix(arg, "--profile="), strings.HasPrefix(arg, "--env="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		case arg == "--project" || arg == "-C":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for %s", arg)
			}
			flags.Project = args[i+1]
			i++
		case strings.HasPrefix(arg, "--project="):
			flags.Project = strings.TrimPrefix(arg, "--project=")
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func hasConfigFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--config" || strings.HasPrefix(arg, "--config=") {
			return true
		}
	}
	return false
}

func printJSON(w io.Writer, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `TSera CLI

Usage:
  tsera [global flags] <command> [args]

Global flags:
  --project, -C <dir>    Project directory (default .)
  --config <path>        Config file (default: tsera.config.yaml in the project)
  --profile <name>       Config profile overlay (alias --env)
  --set key=value        Override config (repeatable)
  --json                 JSON output

Commands:
  init <dir> [--name N] [--dialect D] [--ci github|gitlab] [--overwrite]
  plan                   Show what generate would change
  generate [--dry-run]   Write changed artifacts and update the manifest
  graph [--output mermaid|dot|json|yaml]
  validate               Check config, entities and the dependency graph
  status                 Show the applied generation and pending changes
  dev                    Watch entities and config, regenerate on change
  cd sync [--provider P] [--force] [--dry-run]
  mcp                    Serve plan/apply/graph tools over MCP stdio
  version
`)
}
