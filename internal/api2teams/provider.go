package api2teams

import (
	"encoding/json"
	"fmt"
	"strings"
)

const realProviderHeader = "// Update this code to call real backend service\n"

// MockProvider renders mockApiProvider.ts: one class per tag whose methods
// return sample responses.
func MockProvider(ops []Operation) string {
	return providerCode(ops, func(op Operation) string {
		data, err := json.MarshalIndent(SampleResponse(op), "    ", "  ")
		if err != nil {
			data = []byte("{}")
		}
		return "return " + string(data) + ";"
	})
}

// RealProvider renders realApiProvider.ts with empty method bodies.
func RealProvider(ops []Operation) string {
	return realProviderHeader + providerCode(ops, func(Operation) string { return "" })
}

func providerCode(ops []Operation, body func(Operation) string) string {
	var tags []string
	byTag := map[string][]string{}
	for _, op := range ops {
		if _, ok := byTag[op.Tag]; !ok {
			tags = append(tags, op.Tag)
		}
		byTag[op.Tag] = append(byTag[op.Tag], apiFunction(op.Name, body(op)))
	}

	var sb strings.Builder
	for _, tag := range tags {
		fmt.Fprintf(&sb, "export class %sApi {\n%s}\n\n", tag, strings.Join(byTag[tag], "\n"))
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func apiFunction(name, body string) string {
	if body == "" {
		return fmt.Sprintf("  async %s(parameters: any): Promise<any> {}\n", name)
	}
	return fmt.Sprintf("  async %s(parameters: any): Promise<any> {\n    %s\n  }\n", name, body)
}
