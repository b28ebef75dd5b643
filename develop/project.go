package develop

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/validate"
)

// RouteSpec is one HTTP route of a project and the contract of the
// function that serves it.
type RouteSpec struct {
	Name     string         `yaml:"name" validate:"required"`
	Method   string         `yaml:"method" validate:"required,oneof=get post put patch delete GET POST PUT PATCH DELETE"`
	Path     string         `yaml:"path" validate:"required,startswith=/"`
	Function graph.Contract `yaml:"function"`
}

// Project is the input of a development run: the routes to build and,
// for offline runs, the canned candidates per function name.
type Project struct {
	Name        string                          `yaml:"name" validate:"required"`
	Description string                          `yaml:"description"`
	Routes      []RouteSpec                     `yaml:"routes" validate:"required,min=1,dive"`
	Candidates  map[string][]validate.Candidate `yaml:"candidates"`
}

// ParseProject decodes and checks a project file.
func ParseProject(data []byte) (*Project, error) {
	var p Project
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding project: %w", err)
	}
	if err := graph.Validator().Struct(p); err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}
	for _, r := range p.Routes {
		if err := r.Function.Validate(); err != nil {
			return nil, fmt.Errorf("route %q: %w", r.Name, err)
		}
	}
	return &p, nil
}

// LoadProject reads a project file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	p, err := ParseProject(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
