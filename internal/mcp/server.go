// Package mcp exposes the tool catalog over the Model Context Protocol, so
// MCP-speaking agents can drive the panel through the same registry and
// dispatch path as the HTTP gateway.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/perch-panel/perch/internal/tool"
)

// Server bridges a tool registry to an MCP stdio server. Every dispatch runs
// as the fixed caller the server was constructed with: the MCP transport
// carries no user identity, so the operator who starts the process decides
// whose permissions apply.
type Server struct {
	mcpServer *server.MCPServer
	registry  *tool.Registry
	caller    tool.Caller
	logger    *slog.Logger
}

// New creates an MCP server exposing every tool in the registry.
func New(registry *tool.Registry, caller tool.Caller, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: server.NewMCPServer(
			"perch",
			version,
			server.WithToolCapabilities(false),
		),
		registry: registry,
		caller:   caller,
		logger:   logger,
	}

	for _, t := range registry.Tools() {
		s.addTool(t)
	}
	return s
}

// addTool registers one catalog tool with the MCP server. Parameter metadata
// is declarative only; real validation happens inside the tool.
func (s *Server) addTool(t tool.Tool) {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description())}
	for name, desc := range t.Parameters() {
		opts = append(opts, mcp.WithString(name, mcp.Description(desc)))
	}

	name := t.Name()
	s.mcpServer.AddTool(mcp.NewTool(name, opts...), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.dispatch(ctx, name, req)
	})
}

// dispatch runs one MCP tool call through the registry. Tool failures become
// MCP error results, never Go errors: the protocol distinguishes a tool that
// reported failure from a transport that broke.
func (s *Server) dispatch(ctx context.Context, name string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	var page tool.PageContext
	if short, ok := args["server_uuid_short"].(string); ok {
		page.ServerShortID = short
		delete(args, "server_uuid_short")
	}

	env := s.registry.Dispatch(ctx, name, tool.Params(args), s.caller, page)
	if !env.Success {
		return mcp.NewToolResultError(env.Error), nil
	}
	if env.Data != nil && !env.Data.Success {
		return mcp.NewToolResultError(env.Data.Message), nil
	}

	data, err := json.MarshalIndent(env.Data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio serves the MCP protocol on stdin/stdout until the peer goes
// away.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server starting", "tools", len(s.registry.Names()))
	return server.ServeStdio(s.mcpServer)
}
