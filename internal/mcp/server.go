// Package mcp provides a Model Context Protocol server for rings.
// It exposes repository inspection and commits as MCP tools.
package mcp

import (
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/rings/internal/repo"
)

// NewServer creates an MCP server with all rings tools registered against r.
func NewServer(version string, r *repo.Repo) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "rings",
		Version: version,
	}, nil)
	registerTools(server, &toolset{repo: r})
	return server
}

// toolset serialises tool calls; the repository is not safe for concurrent use.
type toolset struct {
	mu   sync.Mutex
	repo *repo.Repo
}

func boolPtr(b bool) *bool {
	return &b
}

func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}

// writeAnnotations marks tools that only append history.
func writeAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(false),
		OpenWorldHint:   boolPtr(false),
	}
}

func registerTools(server *mcp.Server, tools *toolset) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "status",
		Description: "Show the current branch and whether each tracked file (or the given paths) is unchanged, modified, untracked or missing.",
		Annotations: readOnlyAnnotations(),
	}, tools.handleStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "log",
		Description: "List the commit history of the current branch, optionally for a single file.",
		Annotations: readOnlyAnnotations(),
	}, tools.handleLog)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "branches",
		Description: "List branches with their file, commit and tag counts.",
		Annotations: readOnlyAnnotations(),
	}, tools.handleBranches)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tags",
		Description: "List the tags of the current branch.",
		Annotations: readOnlyAnnotations(),
	}, tools.handleTags)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "diff",
		Description: "Unified diff of a file between two versions or tags. Omit 'to' to compare against the working copy.",
		Annotations: readOnlyAnnotations(),
	}, tools.handleDiff)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "metrics",
		Description: "Count added and deleted lines of a file between two versions or tags.",
		Annotations: readOnlyAnnotations(),
	}, tools.handleMetrics)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "commit",
		Description: "Snapshot a working file on the current branch. The next minor version is used unless 'version' is given.",
		Annotations: writeAnnotations(),
	}, tools.handleCommit)
}
