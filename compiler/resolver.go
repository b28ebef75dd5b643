package compiler

import (
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/typeexpr"
)

// Resolver discovers the type nodes a type expression transitively
// references. Each node is returned at most once over the resolver's
// lifetime, dependencies before dependents.
type Resolver struct {
	arena   *graph.Arena
	visited map[graph.TypeID]bool
}

// NewResolver creates a resolver with an empty visited set.
func NewResolver(arena *graph.Arena) *Resolver {
	return &Resolver{arena: arena, visited: make(map[graph.TypeID]bool)}
}

// Resolve returns the not yet visited type nodes referenced by expr.
// Builtin and unknown names are skipped.
func (r *Resolver) Resolve(expr string) []graph.TypeNode {
	var out []graph.TypeNode
	for _, name := range typeexpr.Names(expr) {
		t, ok := r.arena.TypeByName(name)
		if !ok {
			continue
		}
		out = r.visit(t.ID, out)
	}
	return out
}

// ResolveIDs is Resolve for type identities.
func (r *Resolver) ResolveIDs(ids []graph.TypeID) []graph.TypeNode {
	var out []graph.TypeNode
	for _, id := range ids {
		out = r.visit(id, out)
	}
	return out
}

func (r *Resolver) visit(id graph.TypeID, out []graph.TypeNode) []graph.TypeNode {
	if r.visited[id] {
		return out
	}
	t, ok := r.arena.Type(id)
	if !ok {
		return out
	}
	// Marked before descending so mutually referencing types terminate.
	r.visited[id] = true
	for _, rel := range t.Related {
		out = r.visit(rel, out)
	}
	for _, f := range t.Fields {
		for _, name := range typeexpr.Names(f.Type) {
			if dep, ok := r.arena.TypeByName(name); ok {
				out = r.visit(dep.ID, out)
			}
		}
	}
	return append(out, t)
}
