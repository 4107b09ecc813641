package app

import (
	"fmt"

	mcpserver "csvhouse/internal/mcp"
)

// ServeMCP runs csvhouse as an MCP server on stdin/stdout until the
// client disconnects or the process is interrupted. Logs go to stderr.
func (a *App) ServeMCP() error {
	srv := mcpserver.New(a.svc)
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
