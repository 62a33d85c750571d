package mapping

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RuntimeFieldsLoader resolves a runtime-fields declaration referenced by an entity.
type RuntimeFieldsLoader interface {
	Load(path string) (map[string]any, error)
}

// FileRuntimeFields reads runtime-field declarations from JSON or YAML files.
// Relative paths are resolved against Dir.
type FileRuntimeFields struct {
	Dir string
}

// Load reads and decodes the declaration at path.
func (l FileRuntimeFields) Load(path string) (map[string]any, error) {
	full := path
	if !filepath.IsAbs(path) && l.Dir != "" {
		full = filepath.Join(l.Dir, path)
	}
	data, err := os.ReadFile(filepath.Clean(full))
	if err != nil {
		return nil, fmt.Errorf("read runtime fields %s: %w", full, err)
	}
	// YAML is a superset of JSON, one decoder serves both.
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse runtime fields %s: %w", full, err)
	}
	return out, nil
}

// StaticRuntimeFields serves declarations from memory, keyed by path.
type StaticRuntimeFields map[string]map[string]any

// Load returns the declaration registered for path.
func (s StaticRuntimeFields) Load(path string) (map[string]any, error) {
	fields, ok := s[path]
	if !ok {
		return nil, fmt.Errorf("runtime fields %s not registered", path)
	}
	return fields, nil
}
