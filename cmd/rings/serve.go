package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	ringsmcp "github.com/gorewood/rings/internal/mcp"
	"github.com/gorewood/rings/internal/output"
	"github.com/gorewood/rings/internal/repo"
)

// newServeCmd creates the serve command for running as an MCP server.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as MCP server (stdio transport)",
		Long: `Run rings as a Model Context Protocol (MCP) server over stdio, serving the
repository in the current directory.

Configure in your agent's MCP settings:
  {
    "mcpServers": {
      "rings": {
        "command": "rings",
        "args": ["serve"]
      }
    }
  }

Available tools: status, log, branches, tags, diff, metrics, commit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInRepo(cmd, func(_ *output.Printer, r *repo.Repo) error {
				server := ringsmcp.NewServer(buildVersion(), r)
				return server.Run(cmd.Context(), &mcp.StdioTransport{})
			})
		},
	}
}
