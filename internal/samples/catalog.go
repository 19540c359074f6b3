package samples

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

type apiList struct {
	Object  string `json:"object"`
	APIList string `json:"apiList"`
}

var (
	catalogOnce sync.Once
	apiLists    []apiList
	wordObjects string
)

func loadCatalog() {
	catalogOnce.Do(func() {
		data, err := dataFS.ReadFile("data/api_descriptions.json")
		if err == nil {
			err = json.Unmarshal(data, &apiLists)
		}
		if err != nil {
			slog.Error("load api descriptions", "error", err)
		}

		raw, err := dataFS.ReadFile("data/word_objects.json")
		if err != nil {
			slog.Error("load word objects", "error", err)
			return
		}
		var objs map[string]string
		if err := json.Unmarshal(raw, &objs); err != nil {
			slog.Error("parse word objects", "error", err)
			return
		}
		compact, _ := json.Marshal(objs)
		wordObjects = string(compact)
	})
}

// APIListByObjects returns the API member lists of every catalog object
// related to one of objects, each introduced by a "// <object>:" line.
func APIListByObjects(objects []string) string {
	loadCatalog()

	var sb strings.Builder
	for _, item := range apiLists {
		if !isRelated(objects, item.Object) {
			continue
		}
		sb.WriteString("// ")
		sb.WriteString(item.Object)
		sb.WriteString(":\n")
		sb.WriteString(item.APIList)
		sb.WriteString("\n")
	}
	return sb.String()
}

// isRelated reports whether any candidate contains target or is contained
// by it, ignoring case.
func isRelated(candidates []string, target string) bool {
	t := strings.ToLower(target)
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if strings.Contains(c, t) || strings.Contains(t, c) {
			return true
		}
	}
	return false
}

// WordObjectsJSON returns the Word API object catalog (name -> description)
// as compact JSON.
func WordObjectsJSON() string {
	loadCatalog()
	return wordObjects
}
