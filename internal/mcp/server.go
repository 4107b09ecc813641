package mcpserver

import (
	"encoding/json"
	"fmt"

	"csvhouse/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	zlog "github.com/rs/zerolog/log"
)

// Server is the MCP server for csvhouse.
// It exposes the load and report workflow as tools so AI agents can drive it.
type Server struct {
	mcp *server.MCPServer
	svc *service.PipelineService
}

// New creates and configures a new MCP server with all tools.
func New(svc *service.PipelineService) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"csvhouse-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerPipelineTools()
	s.registerSourceTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	zlog.Info().Msg("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
