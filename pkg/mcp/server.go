// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes the engine as Model Context Protocol tools so editors
// and agents can inspect plans and trigger generation over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tsera-dev/tsera/pkg/apply"
	"github.com/tsera-dev/tsera/pkg/engine"
	"github.com/tsera-dev/tsera/pkg/entity"
	"github.com/tsera-dev/tsera/pkg/graph"
	"github.com/tsera-dev/tsera/pkg/plan"
)

// Tool names.
const (
	ToolPlan  = "tsera_plan"
	ToolApply = "tsera_apply"
	ToolGraph = "tsera_graph"
)

// Engine is the subset of *engine.Engine the tools need.
type Engine interface {
	LoadEntities() ([]entity.Entity, error)
	Plan(ctx context.Context, entities []entity.Entity) (*engine.Cycle, error)
	Run(ctx context.Context, entities []entity.Entity, opts engine.RunOptions) (*engine.Result, error)
}

// Server wraps the mcp-go server with the tsera tools registered.
type Server struct {
	mcpServer *server.MCPServer
	engine    Engine
	logger    *slog.Logger

	// applies are serialized; two cycles writing the same tree would race
	// on the manifest.
	mu sync.Mutex
}

// NewServer creates a server named name at version that drives eng.
func NewServer(name, version string, eng Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		engine:    eng,
		logger:    logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(ToolPlan,
		mcp.WithDescription("Compute the create/update/delete plan for the project without writing anything."),
	), s.handlePlan)

	s.mcpServer.AddTool(mcp.NewTool(ToolApply,
		mcp.WithDescription("Generate artifacts and update the manifest. Only changed artifacts are written."),
		mcp.WithBoolean("dry_run", mcp.Description("Plan only, do not write")),
	), s.handleApply)

	s.mcpServer.AddTool(mcp.NewTool(ToolGraph,
		mcp.WithDescription("Render the dependency graph of entities and artifacts."),
		mcp.WithString("format", mcp.Description("mermaid, dot or json (default mermaid)")),
	), s.handleGraph)
}

// ServeStdio starts the server on Stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying server, for transports other than stdio.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

type stepView struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Path   string `json:"path"`
}

type planView struct {
	Summary plan.Summary `json:"summary"`
	Steps   []stepView   `json:"steps"`
}

func viewPlan(p *plan.Plan) planView {
	v := planView{Summary: p.Summary, Steps: make([]stepView, 0, len(p.Steps))}
	for _, st := range p.Steps {
		v.Steps = append(v.Steps, stepView{
			Action: string(st.Action),
			ID:     st.Node.ID,
			Kind:   st.Node.Kind,
			Path:   st.Node.Path,
		})
	}
	return v
}

func (s *Server) handlePlan(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entities, err := s.engine.LoadEntities()
	if err != nil {
		return toolError(err), nil
	}
	cycle, err := s.engine.Plan(ctx, entities)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(viewPlan(cycle.Plan))
}

type applyView struct {
	RunID   string         `json:"runId,omitempty"`
	DryRun  bool           `json:"dryRun"`
	Plan    planView       `json:"plan"`
	Applied []apply.Result `json:"applied,omitempty"`
}

func (s *Server) handleApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	dryRun, _ := args["dry_run"].(bool)

	s.mu.Lock()
	defer s.mu.Unlock()

	entities, err := s.engine.LoadEntities()
	if err != nil {
		return toolError(err), nil
	}
	res, err := s.engine.Run(ctx, entities, engine.RunOptions{DryRun: dryRun})
	if err != nil {
		return toolError(err), nil
	}
	s.logger.InfoContext(ctx, "mcp apply finished", "run_id", res.RunID, "dry_run", dryRun, "steps", len(res.Applied))
	return jsonResult(applyView{
		RunID:   res.RunID,
		DryRun:  res.DryRun,
		Plan:    viewPlan(res.Plan),
		Applied: res.Applied,
	})
}

func (s *Server) handleGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, _ := arguments(req)["format"].(string)
	if format == "" {
		format = "mermaid"
	}
	entities, err := s.engine.LoadEntities()
	if err != nil {
		return toolError(err), nil
	}
	cycle, err := s.engine.Plan(ctx, entities)
	if err != nil {
		return toolError(err), nil
	}
	switch format {
	case "mermaid":
		return mcp.NewToolResultText(cycle.Graph.Mermaid()), nil
	case "dot":
		return mcp.NewToolResultText(cycle.Graph.DOT()), nil
	case "json":
		data, err := graph.MarshalJSON(cycle.Graph, true)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format %q", format)), nil
	}
}

func arguments(req mcp.CallToolRequest) map[string]interface{} {
	args, _ := req.Params.Arguments.(map[string]interface{})
	return args
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Engine failures are reported as tool errors so the client sees them
// instead of a protocol error.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
