// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/tsera-dev/tsera/pkg/mcp"
)

// runMCP serves the engine over stdio. Stdout carries the protocol, so logs
// must stay on stderr.
func runMCP(a *app, args []string) error {
	if len(args) > 0 {
		return NewInvalidArgumentError("mcp", fmt.Sprintf("unexpected args: %v", args))
	}
	srv := mcp.NewServer("tsera", version, a.engine, a.logger)
	a.logger.Info("serving MCP over stdio", "project", a.projectDir)
	return srv.ServeStdio()
}
