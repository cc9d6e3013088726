package template

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrTemplateNotFound indicates a template name has no definition in the
// registry. Callers must not treat this as a failed match.
var ErrTemplateNotFound = errors.New("template not found")

// Registry resolves named templates loaded from a templates file.
type Registry struct {
	templates map[string]*Template
}

type registryFile struct {
	Keys      map[string]Key    `yaml:"keys"`
	Templates map[string]string `yaml:"templates"`
}

// LoadRegistry reads a YAML templates file:
//
//	keys:
//	  Shot: {type: str}
//	  version: {type: int, format_spec: "03"}
//	templates:
//	  mobu_routine_work: "routines/{Shot}/work/{Shot}.v{version}.fbx"
//
// A missing file yields an empty registry so sites without templates can
// still run lenient publishes.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{templates: map[string]*Template{}}, nil
		}
		return nil, fmt.Errorf("read templates file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates file: %w", err)
	}
	return NewRegistry(file.Templates, file.Keys)
}

// NewRegistry compiles a registry from in-memory definitions.
func NewRegistry(patterns map[string]string, keys map[string]Key) (*Registry, error) {
	templates := make(map[string]*Template, len(patterns))
	for name, pattern := range patterns {
		tmpl, err := Compile(name, pattern, keys)
		if err != nil {
			return nil, err
		}
		templates[name] = tmpl
	}
	return &Registry{templates: templates}, nil
}

// Get resolves a template by name.
func (r *Registry) Get(name string) (*Template, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return tmpl, nil
}

// Matches reports whether path conforms to the named template.
func (r *Registry) Matches(name, path string) (bool, error) {
	tmpl, err := r.Get(name)
	if err != nil {
		return false, err
	}
	return tmpl.Validate(path), nil
}

// Names returns the sorted template names in the registry.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of templates in the registry.
func (r *Registry) Len() int {
	return len(r.templates)
}
