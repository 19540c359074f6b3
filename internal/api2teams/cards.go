package api2teams

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	cardSchema  = "http://adaptivecards.io/schemas/adaptive-card.json"
	cardVersion = "1.5"
)

// Card is an Adaptive Card.
type Card struct {
	Type    string `json:"type"`
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Body    []any  `json:"body"`
	Actions []any  `json:"actions,omitempty"`
}

func newCard(body []any, actions ...any) Card {
	return Card{Type: "AdaptiveCard", Schema: cardSchema, Version: cardVersion, Body: body, Actions: actions}
}

func textBlock(text string, extra map[string]any) map[string]any {
	b := map[string]any{"type": "TextBlock", "text": text, "wrap": true}
	for k, v := range extra {
		b[k] = v
	}
	return b
}

func title(op Operation) string {
	if op.Summary != "" {
		return op.Summary
	}
	return op.Name
}

// RequestCard builds the card collecting an operation's parameters and
// top-level JSON body properties.
func RequestCard(op Operation) Card {
	body := []any{textBlock(title(op), map[string]any{"size": "Large", "weight": "Bolder"})}

	for _, p := range op.Params {
		if p == nil || p.Value == nil || p.Value.In == openapi3.ParameterInCookie {
			continue
		}
		body = append(body, input(p.Value.Name, p.Value.Description, p.Value.Required, p.Value.Schema))
	}
	if op.Body != nil && op.Body.Value != nil {
		props := op.Body.Value.Properties
		for _, name := range sortedKeys(props) {
			s := props[name]
			if s.Value == nil || s.Value.Type.Is("object") || s.Value.Type.Is("array") {
				continue
			}
			body = append(body, input(name, s.Value.Description, contains(op.Body.Value.Required, name), s))
		}
	}

	action := map[string]any{
		"type":  "Action.Execute",
		"verb":  op.Name,
		"title": op.Method,
		"data":  map[string]any{"url": op.URL, "method": op.Method},
	}
	return newCard(body, action)
}

func input(name, desc string, required bool, s *openapi3.SchemaRef) map[string]any {
	in := map[string]any{"type": "Input.Text", "id": name, "label": name}
	if desc != "" {
		in["placeholder"] = desc
	}
	if required {
		in["isRequired"] = true
		in["errorMessage"] = name + " is required"
	}
	if s == nil || s.Value == nil {
		return in
	}
	v := s.Value
	switch {
	case len(v.Enum) > 0:
		in["type"] = "Input.ChoiceSet"
		var choices []map[string]any
		for _, e := range v.Enum {
			text := fmt.Sprint(e)
			choices = append(choices, map[string]any{"title": text, "value": text})
		}
		in["choices"] = choices
	case v.Type.Is("integer"), v.Type.Is("number"):
		in["type"] = "Input.Number"
	case v.Type.Is("boolean"):
		in["type"] = "Input.Toggle"
		in["title"] = name
		delete(in, "placeholder")
	case v.Format == "date":
		in["type"] = "Input.Date"
	}
	return in
}

// ResponseCard builds the card displaying an operation's JSON response.
// ok is false for operations without one.
func ResponseCard(op Operation) (Card, bool) {
	if op.Response == nil || op.Response.Value == nil {
		return Card{}, false
	}
	s := op.Response.Value
	head := textBlock(title(op), map[string]any{"size": "Large", "weight": "Bolder"})

	if s.Type.Is("array") {
		var fields []any
		if s.Items != nil && s.Items.Value != nil {
			fields = fieldBlocks(s.Items.Value, "", 0)
		} else {
			fields = []any{textBlock("${$data}", nil)}
		}
		list := map[string]any{
			"type":      "Container",
			"$data":     "${$root}",
			"separator": true,
			"items":     fields,
		}
		return newCard([]any{head, list}), true
	}
	return newCard(append([]any{head}, fieldBlocks(s, "", 0)...)), true
}

// fieldBlocks renders the properties of s as templated text blocks.
// Nested objects are flattened with dotted paths, arrays of objects become
// repeated containers.
func fieldBlocks(s *openapi3.Schema, prefix string, depth int) []any {
	if len(s.Properties) == 0 {
		if prefix == "" {
			return []any{textBlock("${$data}", nil)}
		}
		return []any{textBlock(prefix+": ${"+prefix+"}", nil)}
	}
	var out []any
	for _, name := range sortedKeys(s.Properties) {
		p := s.Properties[name]
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if p.Value == nil {
			continue
		}
		switch {
		case p.Value.Type.Is("object") && depth < maxDepth:
			out = append(out, fieldBlocks(p.Value, path, depth+1)...)
		case p.Value.Type.Is("array"):
			items := p.Value.Items
			if items != nil && items.Value != nil && items.Value.Type.Is("object") && depth < maxDepth {
				out = append(out, map[string]any{
					"type":  "Container",
					"$data": "${" + path + "}",
					"items": fieldBlocks(items.Value, "", depth+1),
				})
				continue
			}
			out = append(out, textBlock(path+": ${join("+path+", ', ')}", nil))
		default:
			out = append(out, textBlock(path+": ${"+path+"}", nil))
		}
	}
	return out
}

func sortedKeys(m openapi3.Schemas) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
