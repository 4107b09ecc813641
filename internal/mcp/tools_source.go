package mcpserver

import (
	"context"
	"fmt"

	"csvhouse/internal/etl"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSourceTools() {
	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List available source types with their config fields"),
	), s.handleListSources)

	s.mcp.AddTool(mcp.NewTool("preview_source",
		mcp.WithDescription("Read the first rows of a source without loading anything"),
		mcp.WithString("sourceType", mcp.Description("Source type from list_sources"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source config as JSON object"), mcp.Required()),
		mcp.WithNumber("rows", mcp.Description("Rows to return (default 5)")),
	), s.handlePreviewSource)
}

func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListSources())
}

func (s *Server) handlePreviewSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceType := req.GetString("sourceType", "")
	sourceConfigStr := req.GetString("sourceConfigJSON", "")
	if sourceType == "" || sourceConfigStr == "" {
		return nil, fmt.Errorf("sourceType and sourceConfigJSON are required")
	}

	var cfg etl.SourceConfig
	if err := parseJSON(sourceConfigStr, &cfg); err != nil {
		return nil, fmt.Errorf("parse sourceConfig: %w", err)
	}

	preview, err := s.svc.PreviewSource(ctx, sourceType, cfg, intArg(req.GetArguments(), "rows", etl.PreviewRows))
	if err != nil {
		return nil, fmt.Errorf("preview source: %w", err)
	}
	return jsonResult(preview)
}
