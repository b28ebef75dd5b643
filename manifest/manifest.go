// Package manifest tracks the third-party packages generated code needs and
// renders them as a pip requirements file.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Package is one requirement line.
type Package struct {
	// Name is the distribution name, including extras (e.g. "uvicorn[standard]").
	Name string
	// Specifier is the version constraint as written (e.g. "==0.110.0"), or empty.
	Specifier string
}

func (p Package) String() string {
	return p.Name + p.Specifier
}

// Key returns the deduplication key: the lowercased distribution name
// without extras, with '_' and '.' folded to '-'.
func (p Package) Key() string {
	name, _, _ := strings.Cut(p.Name, "[")
	name = strings.ToLower(name)
	return strings.NewReplacer("_", "-", ".", "-").Replace(name)
}

var requirementRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*(?:\[[A-Za-z0-9,._ -]+\])?)\s*(.*)$`)

// ParseRequirement parses a single requirement line.
func ParseRequirement(line string) (Package, error) {
	m := requirementRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Package{}, fmt.Errorf("invalid requirement %q", line)
	}
	spec := strings.TrimSpace(m[2])
	if !strings.Contains(spec, ";") {
		spec = strings.Join(strings.Fields(spec), "")
	}
	return Package{Name: strings.ReplaceAll(m[1], " ", ""), Specifier: spec}, nil
}

// Manifest is an ordered, deduplicated package set.
type Manifest struct {
	Packages []*Package
	index    map[string]*Package // Key → package
}

// New creates an empty manifest.
func New() *Manifest {
	return &Manifest{index: make(map[string]*Package)}
}

// Of builds a manifest from packages, keeping the first of each name.
func Of(pkgs ...Package) *Manifest {
	m := New()
	for _, p := range pkgs {
		m.Add(p)
	}
	return m
}

// Lookup finds a package by name. Returns nil if not found.
func (m *Manifest) Lookup(name string) *Package {
	if m == nil || m.index == nil {
		return nil
	}
	return m.index[Package{Name: name}.Key()]
}

// Add appends p unless a package with the same key is already present, in
// which case the existing specifier wins. Reports whether p was added.
func (m *Manifest) Add(p Package) bool {
	if m.index == nil {
		m.index = make(map[string]*Package)
	}
	key := p.Key()
	if _, ok := m.index[key]; ok {
		return false
	}
	entry := &Package{Name: p.Name, Specifier: p.Specifier}
	m.Packages = append(m.Packages, entry)
	m.index[key] = entry
	return true
}

// Merge adds every package of other in order.
func (m *Manifest) Merge(other *Manifest) {
	if other == nil {
		return
	}
	for _, p := range other.Packages {
		m.Add(*p)
	}
}

// List returns a copy of the packages in order.
func (m *Manifest) List() []Package {
	if m == nil {
		return nil
	}
	out := make([]Package, len(m.Packages))
	for i, p := range m.Packages {
		out[i] = *p
	}
	return out
}

// Len returns the number of packages.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Packages)
}

// String renders the manifest as requirements.txt content.
func (m *Manifest) String() string {
	var sb strings.Builder
	for _, p := range m.Packages {
		sb.WriteString(p.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Parse reads a dependency block: one requirement per line, blank lines and
// '#' comments ignored, pip options (lines starting with '-') skipped.
func Parse(block string) (*Manifest, error) {
	m := New()
	scanner := bufio.NewScanner(strings.NewReader(block))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		p, err := ParseRequirement(line)
		if err != nil {
			return nil, fmt.Errorf("requirements:%d: %w", lineNum, err)
		}
		m.Add(p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements: %w", err)
	}
	return m, nil
}

// Read reads a requirements file. Returns an empty manifest if the file
// does not exist.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading requirements: %w", err)
	}
	return Parse(string(data))
}
