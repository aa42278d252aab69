package inspect

import (
	"encoding/json"
	"fmt"
)

// Manifest is the subset of an npm package.json the grader looks at.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Type            string            `json:"type"`
	Main            string            `json:"main"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
}

// ParseManifest decodes package.json content.
func ParseManifest(content string) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return nil, fmt.Errorf("parsing package.json: %w", err)
	}
	return &m, nil
}

// HasDependency reports whether name is a runtime dependency.
func (m *Manifest) HasDependency(name string) bool {
	_, ok := m.Dependencies[name]
	return ok
}

// HasAnyDependency reports whether name is a runtime or dev dependency.
func (m *Manifest) HasAnyDependency(name string) bool {
	if m.HasDependency(name) {
		return true
	}
	_, ok := m.DevDependencies[name]
	return ok
}

// Script returns the named npm script.
func (m *Manifest) Script(name string) (string, bool) {
	s, ok := m.Scripts[name]
	return s, ok && s != ""
}
