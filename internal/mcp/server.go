// Package mcp exposes a read-only MCP tool surface over the
// synchronization operations. Only inspection tools are registered:
// export, import, and compile have real side effects against the live
// data source and stay behind the CLI.
package mcp

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/torbennehmer/nav-source-control/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler
// factories.
var toolRegistry = map[string]toolEntry{
	"nav_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"nav_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"nav_object": {
		def:     objectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleObject },
	},
	"nav_cache_info": {
		def:     cacheInfoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCacheInfo },
	},
}

var statusToolDef = mcp.NewTool("nav_status",
	mcp.WithDescription("Report drift between the application database, the working copy, and the cache snapshot"),
)

var listToolDef = mcp.NewTool("nav_list",
	mcp.WithDescription("List objects in the application database"),
	mcp.WithString("type", mcp.Description("Object type filter, e.g. Codeunit or Table")),
	mcp.WithBoolean("modified", mcp.Description("Only objects with the modified flag set")),
)

var objectToolDef = mcp.NewTool("nav_object",
	mcp.WithDescription("Show one object with its derived export path and filter expression"),
	mcp.WithString("key", mcp.Required(), mcp.Description("Object key in <type-ordinal>.<id> form, e.g. 5.99997")),
)

var cacheInfoToolDef = mcp.NewTool("nav_cache_info",
	mcp.WithDescription("Describe the persisted cache snapshot"),
)

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the
// given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the inspection tools
// registered. Tools listed in cfg.DisabledTools are excluded.
func NewServer(database *sql.DB, cfg *config.Config, log *slog.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"navsync",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(database, cfg, log)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(database *sql.DB, cfg *config.Config, log *slog.Logger, version string) error {
	s := NewServer(database, cfg, log, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
