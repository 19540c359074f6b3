// Package lifecycle runs the provision, deploy and publish stages of a
// teamsapp.yml project file through the registered drivers.
package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the lifecycle file name at the project root.
const ProjectFile = "teamsapp.yml"

// Stages.
const (
	StageProvision = "provision"
	StageDeploy    = "deploy"
	StagePublish   = "publish"
)

// Action is one step of a stage.
type Action struct {
	Uses                   string            `yaml:"uses"`
	Name                   string            `yaml:"name,omitempty"`
	With                   map[string]any    `yaml:"with,omitempty"`
	WriteToEnvironmentFile map[string]string `yaml:"writeToEnvironmentFile,omitempty"`
}

// Label names the action in logs: its name, else its driver.
func (a Action) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Uses
}

// Project is a parsed teamsapp.yml.
type Project struct {
	Version   string   `yaml:"version"`
	Provision []Action `yaml:"provision,omitempty"`
	Deploy    []Action `yaml:"deploy,omitempty"`
	Publish   []Action `yaml:"publish,omitempty"`
}

// Load reads the lifecycle file of the project at dir.
func Load(dir string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, ProjectFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ProjectFile, err)
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ProjectFile, err)
	}
	for _, stage := range [][]Action{p.Provision, p.Deploy, p.Publish} {
		for i, a := range stage {
			if a.Uses == "" {
				return nil, fmt.Errorf("parse %s: step %d has no uses", ProjectFile, i+1)
			}
		}
	}
	return &p, nil
}

// Stage returns the actions of a stage.
func (p *Project) Stage(name string) ([]Action, error) {
	switch name {
	case StageProvision:
		return p.Provision, nil
	case StageDeploy:
		return p.Deploy, nil
	case StagePublish:
		return p.Publish, nil
	default:
		return nil, fmt.Errorf("unknown stage %q", name)
	}
}

var placeholderRe = regexp.MustCompile(`\$\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Expand replaces ${{VAR}} placeholders in strings nested anywhere in v.
// Unset variables are left as they are and reported.
func Expand(v any, env map[string]string) (any, []string) {
	var missing []string
	var walk func(any) any
	walk = func(v any) any {
		switch t := v.(type) {
		case string:
			return placeholderRe.ReplaceAllStringFunc(t, func(m string) string {
				name := placeholderRe.FindStringSubmatch(m)[1]
				if val, ok := env[name]; ok {
					return val
				}
				missing = append(missing, name)
				return m
			})
		case map[string]any:
			out := make(map[string]any, len(t))
			for k, e := range t {
				out[k] = walk(e)
			}
			return out
		case []any:
			out := make([]any, len(t))
			for i, e := range t {
				out[i] = walk(e)
			}
			return out
		default:
			return v
		}
	}
	return walk(v), missing
}
