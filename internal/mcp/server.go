package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/teamsfx/tfx/internal/tools"
)

// Options select the tools a server exposes.
type Options struct {
	// Filter is a tool name or a manifest name; empty exposes everything.
	Filter string
	// ReadOnly hides tools that write to disk.
	ReadOnly bool
	Version  string
}

// NewMCPServer creates an MCP server exposing tools from the registry.
func NewMCPServer(registry *tools.Registry, opts Options) *mcpsdk.Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "tfx",
		Version: opts.Version,
	}, nil)

	for _, name := range registry.ToolNames() {
		if opts.Filter != "" && !matchesFilter(registry, name, opts.Filter) {
			continue
		}
		if opts.ReadOnly && registry.IsDangerous(name) {
			slog.Debug("mcp tool hidden, read-only mode", "tool", name)
			continue
		}
		spec := registry.ToolSpec(name)
		if spec == nil {
			continue
		}

		invokable := registry.Tool(name)
		toolName := name

		server.AddTool(toolSpecToMCPTool(spec), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			args := string(req.Params.Arguments)
			result, err := invokable.InvokableRun(ctx, args)
			if err != nil {
				slog.Debug("mcp tool error", "tool", toolName, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result}},
			}, nil
		})

		slog.Debug("mcp tool registered", "tool", name)
	}

	return server
}

// matchesFilter checks if a tool name matches the filter.
// The filter can be a tool name or a manifest name (all of its tools).
func matchesFilter(registry *tools.Registry, toolName, filter string) bool {
	if toolName == filter {
		return true
	}
	for _, t := range registry.GroupTools(filter) {
		if t == toolName {
			return true
		}
	}
	return false
}
