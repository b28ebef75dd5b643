// Package schema holds the externally declared database entities a
// generated function may reference. A Context is read-only once built and
// safe for concurrent use.
package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Defaults used when a schema file leaves them out.
const (
	DefaultNamespace = "prisma"
	DefaultSentinel  = "Json"
)

// Kind partitions schema entities.
type Kind int

const (
	Table Kind = iota
	Enum
)

// Module returns the submodule of the namespace that exports entities of
// this kind.
func (k Kind) Module() string {
	if k == Enum {
		return "enums"
	}
	return "models"
}

func (k Kind) String() string {
	if k == Enum {
		return "enum"
	}
	return "table"
}

// KindForModule maps a submodule name back to its kind.
func KindForModule(module string) (Kind, bool) {
	switch module {
	case "models":
		return Table, true
	case "enums":
		return Enum, true
	}
	return Table, false
}

// Context is the set of declared tables and enums.
type Context struct {
	Namespace string   `yaml:"namespace"`
	Tables    []string `yaml:"tables"`
	Enums     []string `yaml:"enums"`
	// Untyped is the generic JSON type name that matches any declared type.
	Untyped string `yaml:"untyped"`

	index map[string]Kind
}

// New builds a Context. An empty namespace selects DefaultNamespace.
func New(namespace string, tables, enums []string) *Context {
	c := &Context{Namespace: namespace, Tables: tables, Enums: enums}
	c.build()
	return c
}

// Parse decodes a YAML schema document.
func Parse(data []byte) (*Context, error) {
	c := &Context{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	c.build()
	for _, name := range c.Enums {
		for _, table := range c.Tables {
			if name == table {
				return nil, fmt.Errorf("parsing schema: %q declared as both table and enum", name)
			}
		}
	}
	return c, nil
}

// Load reads a YAML schema file.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return Parse(data)
}

func (c *Context) build() {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Untyped == "" {
		c.Untyped = DefaultSentinel
	}
	c.index = make(map[string]Kind, len(c.Tables)+len(c.Enums))
	for _, t := range c.Tables {
		c.index[t] = Table
	}
	for _, e := range c.Enums {
		c.index[e] = Enum
	}
}

// NS returns the namespace. A nil Context uses the default.
func (c *Context) NS() string {
	if c == nil {
		return DefaultNamespace
	}
	return c.Namespace
}

// Sentinel returns the untyped object type name.
func (c *Context) Sentinel() string {
	if c == nil {
		return DefaultSentinel
	}
	return c.Untyped
}

// Lookup returns the kind of a declared entity.
func (c *Context) Lookup(name string) (Kind, bool) {
	if c == nil {
		return Table, false
	}
	k, ok := c.index[name]
	return k, ok
}

// ImportFor returns the import line that binds a declared entity.
func (c *Context) ImportFor(name string) (string, bool) {
	k, ok := c.Lookup(name)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("from %s.%s import %s", c.NS(), k.Module(), name), true
}

// Names returns all declared names sorted.
func (c *Context) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.index))
	for n := range c.index {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
