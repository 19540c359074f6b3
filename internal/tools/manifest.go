// Package tools is the registry of Go-native tools exposed to MCP clients:
// card generation, API sample lookup, project file writes, sample
// scaffolding and one tool per chat skill.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Manifest groups the tools a provider contributes.
type Manifest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Dangerous   bool       `json:"dangerous"` // default for all tools
	Tools       []ToolSpec `json:"tools"`
}

// ToolSpec describes a single tool interface.
type ToolSpec struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters"`
	Dangerous   bool                 `json:"dangerous"` // writes to disk
}

// ParamSpec describes a single tool parameter.
type ParamSpec struct {
	Type        string     `json:"type"` // "string", "number", "boolean", "integer", "array", "object"
	Description string     `json:"description"`
	Required    bool       `json:"required"`
	Enum        []string   `json:"enum,omitempty"`
	Default     any        `json:"default,omitempty"`
	Items       *ParamSpec `json:"items,omitempty"`
}

// ToolInfo converts a ToolSpec to an Eino schema.ToolInfo.
func ToolInfo(spec *ToolSpec) *schema.ToolInfo {
	info := &schema.ToolInfo{
		Name: spec.Name,
		Desc: spec.Description,
	}
	if len(spec.Parameters) > 0 {
		params := make(map[string]*schema.ParameterInfo, len(spec.Parameters))
		for name, p := range spec.Parameters {
			params[name] = paramInfo(p)
		}
		info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	}
	return info
}

func paramInfo(p ParamSpec) *schema.ParameterInfo {
	info := &schema.ParameterInfo{
		Type:     paramTypeToDataType(p.Type),
		Desc:     p.Description,
		Required: p.Required,
		Enum:     p.Enum,
	}
	if p.Items != nil {
		info.ElemInfo = paramInfo(*p.Items)
	}
	return info
}

func paramTypeToDataType(t string) schema.DataType {
	switch t {
	case "number":
		return schema.Number
	case "integer":
		return schema.Integer
	case "boolean":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return schema.String
	}
}

// SpecFromTool derives a ToolSpec from an Eino tool's info. Only flat
// parameter lists are supported.
func SpecFromTool(ctx context.Context, t tool.BaseTool) (*ToolSpec, error) {
	info, err := t.Info(ctx)
	if err != nil {
		return nil, err
	}
	spec := &ToolSpec{Name: info.Name, Description: info.Desc, Parameters: map[string]ParamSpec{}}
	if info.ParamsOneOf == nil {
		return spec, nil
	}
	js, err := info.ParamsOneOf.ToJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("tool %q: schema: %w", info.Name, err)
	}
	data, err := json.Marshal(js)
	if err != nil {
		return nil, fmt.Errorf("tool %q: schema: %w", info.Name, err)
	}
	var flat struct {
		Properties map[string]struct {
			Type        string   `json:"type"`
			Description string   `json:"description"`
			Enum        []string `json:"enum"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("tool %q: schema: %w", info.Name, err)
	}
	required := map[string]bool{}
	for _, r := range flat.Required {
		required[r] = true
	}
	for name, p := range flat.Properties {
		spec.Parameters[name] = ParamSpec{
			Type:        p.Type,
			Description: p.Description,
			Required:    required[name],
			Enum:        p.Enum,
		}
	}
	return spec, nil
}

// decodeArgs unmarshals tool arguments, naming the tool in errors.
func decodeArgs(toolName, argumentsInJSON string, v any) error {
	if strings.TrimSpace(argumentsInJSON) == "" {
		argumentsInJSON = "{}"
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), v); err != nil {
		return fmt.Errorf("%s: parse input: %w", toolName, err)
	}
	return nil
}

// encodeResult marshals a tool result.
func encodeResult(toolName string, v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%s: marshal result: %w", toolName, err)
	}
	return string(out), nil
}
