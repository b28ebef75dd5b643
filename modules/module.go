// Package modules is a registry of well-known Python modules: the names
// they export and, for third-party modules, the distribution that provides
// them. The static fixer uses it to resolve undefined names into imports
// and the validator uses it to infer package requirements.
package modules

import "strings"

// Module describes one importable Python module.
type Module struct {
	// Name is the import path (e.g. "datetime", "pydantic").
	Name string
	// Package is the pip distribution that provides the module. Empty for
	// the standard library.
	Package string
	// Symbols are the names resolved with "from <Name> import <symbol>".
	Symbols []string
	// Bare, when true, resolves the module's own name with "import <Name>".
	Bare bool
}

var (
	registry = make(map[string]*Module)
	symbols  = make(map[string]*Module) // symbol → first module registering it
)

// Register adds a module to the global registry. A symbol keeps the first
// module that registered it.
func Register(m *Module) {
	registry[m.Name] = m
	for _, s := range m.Symbols {
		if _, ok := symbols[s]; !ok {
			symbols[s] = m
		}
	}
}

// ImportFor returns the canonical import line that binds name. Exported
// symbols take precedence over bare module names, so "datetime" resolves
// to the class rather than the module.
func ImportFor(name string) (string, bool) {
	if m, ok := symbols[name]; ok {
		return "from " + m.Name + " import " + name, true
	}
	if m, ok := registry[name]; ok && m.Bare {
		return "import " + m.Name, true
	}
	return "", false
}

// PackageFor returns the distribution providing an imported module path.
// Standard library and unknown modules report false.
func PackageFor(module string) (string, bool) {
	top, _, _ := strings.Cut(module, ".")
	m, ok := registry[top]
	if !ok || m.Package == "" {
		return "", false
	}
	return m.Package, true
}
