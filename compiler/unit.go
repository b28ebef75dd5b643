package compiler

import (
	"strings"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/manifest"
)

// CompiledUnit is one route's merged source: every function of the tree
// and every type they reference, each emitted once. It is not modified
// after Compile returns it.
type CompiledUnit struct {
	Route          string
	Root           string // name of the root function
	Contract       graph.Contract
	Async          bool
	Imports        []string
	Globals        []string
	TypeBlocks     []string
	TypeNames      []string // names of the emitted types, in emission order
	FunctionBlocks []string // dependencies before dependents, root last
	Packages       *manifest.Manifest
}

// Source renders the unit: imports, globals, types, functions, separated
// by two blank lines.
func (u *CompiledUnit) Source() string {
	var sections []string
	add := func(blocks []string, sep string) {
		var kept []string
		for _, b := range blocks {
			if b = strings.TrimRight(b, " \t\n"); b != "" {
				kept = append(kept, b)
			}
		}
		if len(kept) > 0 {
			sections = append(sections, strings.Join(kept, sep))
		}
	}
	add(u.Imports, "\n")
	add(u.Globals, "\n")
	add(u.TypeBlocks, "\n\n\n")
	add(u.FunctionBlocks, "\n\n\n")
	if len(sections) == 0 {
		return ""
	}
	return strings.Join(sections, "\n\n\n") + "\n"
}
