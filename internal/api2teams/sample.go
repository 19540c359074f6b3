package api2teams

import (
	"github.com/getkin/kin-openapi/openapi3"
)

const maxDepth = 5

// SampleResponse builds a sample JSON value for an operation's response,
// or an empty object when it has none.
func SampleResponse(op Operation) any {
	if op.Response == nil {
		return map[string]any{}
	}
	return sample(op.Response, map[string]bool{}, 0)
}

func sample(ref *openapi3.SchemaRef, seen map[string]bool, depth int) any {
	if ref == nil || ref.Value == nil || depth > maxDepth {
		return nil
	}
	if ref.Ref != "" {
		if seen[ref.Ref] {
			return nil
		}
		seen[ref.Ref] = true
		defer delete(seen, ref.Ref)
	}
	s := ref.Value
	if s.Example != nil {
		return s.Example
	}
	if len(s.Enum) > 0 {
		return s.Enum[0]
	}
	if s.Default != nil {
		return s.Default
	}

	switch {
	case s.Type.Is("array"):
		if item := sample(s.Items, seen, depth+1); item != nil {
			return []any{item}
		}
		return []any{}
	case s.Type.Is("integer"), s.Type.Is("number"):
		return 0
	case s.Type.Is("boolean"):
		return true
	case s.Type.Is("string"):
		return sampleString(s.Format)
	}

	obj := map[string]any{}
	for _, part := range s.AllOf {
		if m, ok := sample(part, seen, depth+1).(map[string]any); ok {
			for k, v := range m {
				obj[k] = v
			}
		}
	}
	for name, p := range s.Properties {
		if v := sample(p, seen, depth+1); v != nil {
			obj[name] = v
		}
	}
	return obj
}

func sampleString(format string) string {
	switch format {
	case "date-time":
		return "2024-01-01T00:00:00Z"
	case "date":
		return "2024-01-01"
	case "email":
		return "user@example.com"
	case "uuid":
		return "00000000-0000-0000-0000-000000000000"
	case "uri", "url":
		return "https://example.com"
	default:
		return "string"
	}
}
