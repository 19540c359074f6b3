package secrets

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ReadEntries parses a KEY=VALUE env file. Comments and blank lines are
// skipped, an "export " prefix is dropped and quoted values are unquoted.
// A missing file yields an empty map.
func ReadEntries(path string) (map[string]string, error) {
	entries := make(map[string]string)
	lines, err := readLines(path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("read env file: %w", err)
	}
	for _, line := range lines {
		key, value, ok := parseLine(line)
		if ok {
			entries[key] = value
		}
	}
	return entries, nil
}

// SetEntry writes or updates a KEY=VALUE line in a .env file.
// It preserves comments, ordering, and blank lines.
// If the key already exists, its value is replaced in-place.
// If the key is new, it is appended at the end.
func SetEntry(path, key, value string) error {
	return SetEntries(path, map[string]string{key: value})
}

// SetEntries is SetEntry for several keys with a single write.
// New keys are appended in sorted order.
func SetEntries(path string, values map[string]string) error {
	lines, err := readLines(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read dotenv: %w", err)
	}

	pending := make(map[string]string, len(values))
	for k, v := range values {
		pending[k] = v
	}

	for i, line := range lines {
		k, _, ok := parseLine(line)
		if !ok {
			continue
		}
		if v, want := pending[k]; want {
			lines[i] = k + "=" + quoteValue(v)
			delete(pending, k)
		}
	}

	keys := make([]string, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, k+"="+quoteValue(pending[k]))
	}

	content := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0o600)
}

func parseLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	key, value, ok = strings.Cut(trimmed, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
	return key, unquoteValue(strings.TrimSpace(value)), true
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// quoteValue wraps the value in double quotes if it contains spaces, quotes, or special chars.
func quoteValue(v string) string {
	if strings.ContainsAny(v, " \t\"'\\#$") {
		escaped := strings.ReplaceAll(v, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return `"` + escaped + `"`
	}
	return v
}

func unquoteValue(v string) string {
	if len(v) < 2 {
		return v
	}
	switch {
	case v[0] == '\'' && v[len(v)-1] == '\'':
		return v[1 : len(v)-1]
	case v[0] == '"' && v[len(v)-1] == '"':
		inner := v[1 : len(v)-1]
		inner = strings.ReplaceAll(inner, `\"`, `"`)
		return strings.ReplaceAll(inner, `\\`, `\`)
	}
	return v
}
