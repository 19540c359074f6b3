// Package mcp provides an MCP server that exposes the tfx tools.
package mcp

import (
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/teamsfx/tfx/internal/tools"
)

// toolSpecToMCPTool converts a tools.ToolSpec to an mcp.Tool with JSON Schema.
func toolSpecToMCPTool(spec *tools.ToolSpec) *mcpsdk.Tool {
	props := make(map[string]any, len(spec.Parameters))
	var required []string

	for name, p := range spec.Parameters {
		props[name] = paramSchema(p)
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	inputSchema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	return &mcpsdk.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: inputSchema,
		Annotations: &mcpsdk.ToolAnnotations{ReadOnlyHint: !spec.Dangerous},
	}
}

func paramSchema(p tools.ParamSpec) map[string]any {
	prop := map[string]any{"type": p.Type}
	if prop["type"] == "" {
		prop["type"] = "string"
	}
	if p.Description != "" {
		prop["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		prop["enum"] = p.Enum
	}
	if p.Default != nil {
		prop["default"] = p.Default
	}
	if p.Items != nil {
		prop["items"] = paramSchema(*p.Items)
	}
	return prop
}
