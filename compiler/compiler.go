// Package compiler merges a tree of written functions into one compiled
// unit. Children are compiled before their callers, shared types and
// functions are emitted once, and the merged text is parsed again before
// it is handed out.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/ast"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/manifest"
)

// Compiler compiles function trees held in an arena.
type Compiler struct {
	Arena *graph.Arena
	Cache *ast.Cache
	Log   logr.Logger
}

// New creates a compiler over arena.
func New(arena *graph.Arena, cache *ast.Cache, log logr.Logger) *Compiler {
	return &Compiler{Arena: arena, Cache: cache, Log: log}
}

// compilation is the state of one Compile call. The emitted sets are
// threaded through the whole walk and are the only record of what has
// been written to the unit.
type compilation struct {
	arena    *graph.Arena
	route    string
	resolver *Resolver
	emitted  map[graph.FuncID]bool
	visiting map[graph.FuncID]bool
	path     []string
	imports  map[string]bool
	globals  map[string]bool
	unit     *CompiledUnit
}

// Compile walks the tree below root in post order and returns its merged
// unit. Every failure is a *CompilationError.
func (c *Compiler) Compile(ctx context.Context, root graph.FuncID, route string) (*CompiledUnit, error) {
	log := c.Log
	if log.GetSink() == nil {
		log = logr.FromContextOrDiscard(ctx)
	}
	log = log.WithValues("route", route)

	n, ok := c.Arena.Function(root)
	if !ok {
		return nil, fmt.Errorf("compiling route %q: node %d: %w", route, root, graph.ErrUnknownNode)
	}
	cp := &compilation{
		arena:    c.Arena,
		route:    route,
		resolver: NewResolver(c.Arena),
		emitted:  make(map[graph.FuncID]bool),
		visiting: make(map[graph.FuncID]bool),
		imports:  make(map[string]bool),
		globals:  make(map[string]bool),
		unit: &CompiledUnit{
			Route:    route,
			Root:     n.Contract.Name,
			Contract: n.Contract,
			Async:    n.Async,
			Packages: manifest.New(),
		},
	}
	if err := cp.visit(root); err != nil {
		log.Error(err, "compilation failed")
		return nil, err
	}
	if err := c.verify(ctx, cp.unit); err != nil {
		log.Error(err, "compilation failed")
		return nil, err
	}
	log.V(1).Info("compiled unit", "functions", len(cp.unit.FunctionBlocks),
		"types", len(cp.unit.TypeBlocks), "packages", cp.unit.Packages.Len())
	return cp.unit, nil
}

func (cp *compilation) fail(kind ErrorKind, fn, detail string) *CompilationError {
	return &CompilationError{Route: cp.route, Function: fn, Kind: kind, Detail: detail}
}

func (cp *compilation) visit(id graph.FuncID) error {
	if cp.emitted[id] {
		return nil
	}
	n, ok := cp.arena.Function(id)
	if !ok {
		return cp.fail(KindNotWritten, "", fmt.Sprintf("node %d does not exist", id))
	}
	if cp.visiting[id] {
		e := cp.fail(KindCycle, n.Contract.Name, "")
		e.Path = append(slices.Clone(cp.path), n.Contract.Name)
		return e
	}
	if n.State != graph.Written {
		return cp.fail(KindNotWritten, n.Contract.Name, "state is "+n.State.String())
	}

	cp.visiting[id] = true
	cp.path = append(cp.path, n.Contract.Name)
	for _, child := range n.Children {
		if err := cp.visit(child); err != nil {
			return err
		}
	}
	cp.path = cp.path[:len(cp.path)-1]
	delete(cp.visiting, id)

	var types []graph.TypeNode
	for _, a := range n.Contract.Args {
		types = append(types, cp.resolver.Resolve(a.Type)...)
	}
	types = append(types, cp.resolver.Resolve(n.Contract.Return.Type)...)
	types = append(types, cp.resolver.ResolveIDs(n.Types)...)
	for _, t := range types {
		cp.addImports(t.Imports)
		cp.unit.TypeBlocks = append(cp.unit.TypeBlocks, t.Source)
		cp.unit.TypeNames = append(cp.unit.TypeNames, t.Name)
	}

	cp.addImports(n.Imports)
	for _, g := range n.Globals {
		if !cp.globals[g] {
			cp.globals[g] = true
			cp.unit.Globals = append(cp.unit.Globals, g)
		}
	}
	for _, p := range n.Packages {
		cp.unit.Packages.Add(p)
	}
	cp.unit.FunctionBlocks = append(cp.unit.FunctionBlocks, n.Code)
	cp.emitted[id] = true
	return nil
}

func (cp *compilation) addImports(lines []string) {
	for _, l := range lines {
		if !cp.imports[l] {
			cp.imports[l] = true
			cp.unit.Imports = append(cp.unit.Imports, l)
		}
	}
}

// verify parses the merged text and rejects top-level names defined more
// than once.
func (c *Compiler) verify(ctx context.Context, u *CompiledUnit) error {
	frag, err := c.Cache.Parse(ctx, u.Source())
	if err != nil {
		var se *ast.SyntaxError
		if errors.As(err, &se) {
			return &CompilationError{Route: u.Route, Function: u.Root, Kind: KindMergedSyntax, Detail: se.Error()}
		}
		return fmt.Errorf("compiling route %q: %w", u.Route, err)
	}
	seen := make(map[string]bool)
	for _, e := range frag.Entities {
		var name string
		switch d := e.(type) {
		case *ast.FuncDef:
			name = d.Name
		case *ast.ClassDef:
			name = d.Name
		default:
			continue
		}
		if seen[name] {
			return &CompilationError{
				Route:    u.Route,
				Function: name,
				Kind:     KindDuplicateDefinition,
				Detail:   fmt.Sprintf("%q is defined more than once (line %d)", name, e.EntityLine()),
			}
		}
		seen[name] = true
	}
	return nil
}
