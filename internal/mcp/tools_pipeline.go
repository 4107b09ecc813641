package mcpserver

import (
	"context"
	"fmt"

	"csvhouse/internal/report"
	"csvhouse/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPipelineTools() {
	s.mcp.AddTool(mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run the configured workflow: bulk load the source file, generate the synthetic partitioned load, and render the histogram reports. A single stage can be selected with command."),
		mcp.WithString("command", mcp.Description("run (default) | load | generate | report")),
	), s.handleRunPipeline)

	s.mcp.AddTool(mcp.NewTool("load_file",
		mcp.WithDescription("Bulk load a delimited file with header id,name,surname,age,salary into the configured table"),
		mcp.WithString("path", mcp.Description("Path to the file"), mcp.Required()),
	), s.handleLoadFile)

	s.mcp.AddTool(mcp.NewTool("column_histogram",
		mcp.WithDescription("Bucket a numeric column of the configured table into equal-width bins"),
		mcp.WithString("column", mcp.Description("Column name, e.g. age or salary"), mcp.Required()),
		mcp.WithNumber("bins", mcp.Description("Number of bins, 1 to 10000 (default 20)")),
	), s.handleColumnHistogram)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent workflow runs, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20)")),
	), s.handleListRuns)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleRunPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := req.GetString("command", service.CommandRun)

	result, err := s.svc.Run(ctx, command)
	if result == nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}
	// A failed run still carries counts worth returning.
	return jsonResult(result)
}

func (s *Server) handleLoadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	result, err := s.svc.LoadFile(ctx, path)
	if result == nil {
		return nil, fmt.Errorf("load file: %w", err)
	}
	return jsonResult(result)
}

func (s *Server) handleColumnHistogram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	column, _ := args["column"].(string)
	if column == "" {
		return nil, fmt.Errorf("column is required")
	}
	bins := intArg(args, "bins", 20)
	if bins <= 0 || bins > report.MaxBins {
		return nil, fmt.Errorf("bins must be between 1 and %d", report.MaxBins)
	}

	h, err := s.svc.ColumnHistogram(ctx, column, bins)
	if err != nil {
		return nil, fmt.Errorf("column histogram: %w", err)
	}
	return jsonResult(h)
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req.GetArguments(), "limit", 20)

	runs, err := s.svc.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return textResult("No runs recorded yet"), nil
	}
	return jsonResult(runs)
}
