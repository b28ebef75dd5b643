// Package graph is the data model of a generation run: function contracts,
// the nodes that implement them and the record and enum types they share.
// Nodes refer to each other only by identity; the Arena owns all of them.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/ast"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/manifest"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/typeexpr"
)

// FuncID identifies a FunctionNode within an Arena. The zero value means
// no node.
type FuncID int

// TypeID identifies a TypeNode within an Arena.
type TypeID int

// State is the lifecycle state of a FunctionNode.
type State int

const (
	Definition State = iota
	Written
	Failed
)

func (s State) String() string {
	switch s {
	case Written:
		return "WRITTEN"
	case Failed:
		return "FAILED"
	default:
		return "DEFINITION"
	}
}

var (
	// ErrFailed is returned for any transition out of the FAILED state.
	ErrFailed = errors.New("node has failed")
	// ErrNotPending is returned when committing a node that is not in the
	// DEFINITION state.
	ErrNotPending = errors.New("node is not awaiting implementation")
	// ErrUnknownNode is returned for identities the arena never issued.
	ErrUnknownNode = errors.New("unknown node")
	// ErrTypeConflict is returned when a commit declares a type whose name
	// is taken by a different declaration.
	ErrTypeConflict = errors.New("type already declared with a different definition")
	// ErrFunctionConflict is returned when a commit declares a function
	// whose name is taken in the same tree by a different signature.
	ErrFunctionConflict = errors.New("function already declared with a different signature")
)

// FunctionNode is one function's generation lifecycle.
type FunctionNode struct {
	ID       FuncID
	Root     FuncID // root of the tree this node belongs to
	Parent   FuncID // zero for roots
	Contract Contract
	State    State
	Code     string   // the function's own definition text
	Imports  []string // canonical import lines
	Globals  []string // top-level statements hoisted above the function
	Children []FuncID
	Types    []TypeID
	Packages []manifest.Package
	Async    bool
	Errors   []string // last aggregated validation errors
}

// TypeNode is a record or enum declaration, created once per name.
type TypeNode struct {
	ID      TypeID
	Name    string
	Kind    ast.TypeKind
	Fields  []ast.Field
	Related []TypeID
	Source  string
	Imports []string
}

// Matches reports whether a declaration with kind and fields is the same
// type: same kind and the same fields in order, with equivalent types and
// equal defaults.
func (t *TypeNode) Matches(kind ast.TypeKind, fields []ast.Field) bool {
	if t.Kind != kind || len(t.Fields) != len(fields) {
		return false
	}
	for i, f := range fields {
		g := t.Fields[i]
		if f.Name != g.Name || !typeexpr.Equal(f.Type, g.Type) || strings.TrimSpace(f.Default) != strings.TrimSpace(g.Default) {
			return false
		}
	}
	return true
}

// NewType describes a type declaration accepted with a function.
type NewType struct {
	Name    string
	Kind    ast.TypeKind
	Fields  []ast.Field
	Source  string
	Imports []string
	Refs    []string // names referenced by the field types
}

// Implementation is everything a successful validation contributes to the
// arena. Commit applies it in one step.
type Implementation struct {
	Code     string
	Imports  []string
	Globals  []string
	Packages []manifest.Package
	Async    bool
	// NewFunctions are sibling definitions that become DEFINITION children.
	NewFunctions []Contract
	// Calls names existing functions of the same tree the node calls.
	Calls []string
	// NewTypes are created, or merged with an existing type of the same name.
	NewTypes []NewType
	// TypeRefs names existing types the node references.
	TypeRefs []string
}

// Arena owns every node of a run. All methods are safe for concurrent use;
// accessors return copies.
type Arena struct {
	mu        sync.RWMutex
	funcs     []*FunctionNode // index ID-1
	types     []*TypeNode     // index ID-1
	typeIndex map[string]TypeID
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{typeIndex: make(map[string]TypeID)}
}

// AddRoot creates the root node of a new tree.
func (a *Arena) AddRoot(c Contract) FuncID {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.newFunction(c, 0)
	n.Root = n.ID
	return n.ID
}

func (a *Arena) newFunction(c Contract, parent FuncID) *FunctionNode {
	n := &FunctionNode{ID: FuncID(len(a.funcs) + 1), Parent: parent, Contract: c}
	if p := a.fn(parent); p != nil {
		n.Root = p.Root
	}
	a.funcs = append(a.funcs, n)
	return n
}

func (a *Arena) fn(id FuncID) *FunctionNode {
	if id <= 0 || int(id) > len(a.funcs) {
		return nil
	}
	return a.funcs[id-1]
}

// Function returns a copy of the node.
func (a *Arena) Function(id FuncID) (FunctionNode, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := a.fn(id)
	if n == nil {
		return FunctionNode{}, false
	}
	return n.clone(), true
}

func (n *FunctionNode) clone() FunctionNode {
	c := *n
	c.Imports = slices.Clone(n.Imports)
	c.Globals = slices.Clone(n.Globals)
	c.Children = slices.Clone(n.Children)
	c.Types = slices.Clone(n.Types)
	c.Packages = slices.Clone(n.Packages)
	c.Errors = slices.Clone(n.Errors)
	c.Contract.Args = slices.Clone(n.Contract.Args)
	return c
}

// Type returns a copy of the type node.
func (a *Arena) Type(id TypeID) (TypeNode, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if id <= 0 || int(id) > len(a.types) {
		return TypeNode{}, false
	}
	return a.types[id-1].clone(), true
}

// TypeByName returns the type node declared under name.
func (a *Arena) TypeByName(name string) (TypeNode, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.typeIndex[name]
	if !ok {
		return TypeNode{}, false
	}
	return a.types[id-1].clone(), true
}

func (t *TypeNode) clone() TypeNode {
	c := *t
	c.Fields = slices.Clone(t.Fields)
	c.Related = slices.Clone(t.Related)
	c.Imports = slices.Clone(t.Imports)
	return c
}

// Types returns every type node in creation order.
func (a *Arena) Types() []TypeNode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]TypeNode, len(a.types))
	for i, t := range a.types {
		out[i] = t.clone()
	}
	return out
}

// Tree returns every node of the tree rooted at root in creation order.
func (a *Arena) Tree(root FuncID) []FunctionNode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []FunctionNode
	for _, n := range a.funcs {
		if n.Root == root {
			out = append(out, n.clone())
		}
	}
	return out
}

// Pending returns the DEFINITION nodes of the tree rooted at root.
func (a *Arena) Pending(root FuncID) []FuncID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []FuncID
	for _, n := range a.funcs {
		if n.Root == root && n.State == Definition {
			out = append(out, n.ID)
		}
	}
	return out
}

// Scope is what a node under validation may use without declaring it.
type Scope struct {
	Functions []FunctionNode
	Types     []TypeNode
}

// FunctionNames returns the names of the scope functions.
func (s Scope) FunctionNames() []string {
	names := make([]string, len(s.Functions))
	for i, f := range s.Functions {
		names[i] = f.Contract.Name
	}
	return names
}

// Scope returns the other functions of id's tree and every known type.
func (a *Arena) Scope(id FuncID) (Scope, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := a.fn(id)
	if n == nil {
		return Scope{}, fmt.Errorf("scope of node %d: %w", id, ErrUnknownNode)
	}
	var s Scope
	for _, f := range a.funcs {
		if f.Root == n.Root && f.ID != id && f.State != Failed {
			s.Functions = append(s.Functions, f.clone())
		}
	}
	for _, t := range a.types {
		s.Types = append(s.Types, t.clone())
	}
	return s, nil
}

// Commit promotes a DEFINITION node to WRITTEN and applies impl: sibling
// definitions become new children, called tree functions are linked and
// declared types are created or identity-merged by name.
func (a *Arena) Commit(id FuncID, impl Implementation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.fn(id)
	switch {
	case n == nil:
		return fmt.Errorf("commit node %d: %w", id, ErrUnknownNode)
	case n.State == Failed:
		return fmt.Errorf("commit %q: %w", n.Contract.Name, ErrFailed)
	case n.State != Definition:
		return fmt.Errorf("commit %q: %w", n.Contract.Name, ErrNotPending)
	}
	for _, t := range impl.NewTypes {
		if tid, ok := a.typeIndex[t.Name]; ok && !a.types[tid-1].Matches(t.Kind, t.Fields) {
			return fmt.Errorf("commit %q: %q: %w", n.Contract.Name, t.Name, ErrTypeConflict)
		}
	}
	// Siblings committed concurrently may declare the same helper. An equal
	// signature merges into the existing node; anything else is a conflict.
	merged := make(map[string]FuncID, len(impl.NewFunctions))
	for _, c := range impl.NewFunctions {
		if _, dup := merged[c.Name]; dup {
			return fmt.Errorf("commit %q: %q: %w", n.Contract.Name, c.Name, ErrFunctionConflict)
		}
		merged[c.Name] = 0
		for _, f := range a.funcs {
			if f.Root != n.Root || f.State == Failed || f.Contract.Name != c.Name {
				continue
			}
			if f.ID == n.ID || !f.Contract.SameSignature(c) {
				return fmt.Errorf("commit %q: %q: %w", n.Contract.Name, c.Name, ErrFunctionConflict)
			}
			merged[c.Name] = f.ID
			break
		}
	}

	n.State = Written
	n.Code = impl.Code
	n.Imports = slices.Clone(impl.Imports)
	n.Globals = slices.Clone(impl.Globals)
	n.Packages = slices.Clone(impl.Packages)
	n.Async = impl.Async
	n.Errors = nil

	var created []TypeID
	for _, t := range impl.NewTypes {
		tid, ok := a.typeIndex[t.Name]
		if !ok {
			tid = TypeID(len(a.types) + 1)
			a.types = append(a.types, &TypeNode{
				ID:      tid,
				Name:    t.Name,
				Kind:    t.Kind,
				Fields:  slices.Clone(t.Fields),
				Source:  t.Source,
				Imports: slices.Clone(t.Imports),
			})
			a.typeIndex[t.Name] = tid
			created = append(created, tid)
		}
		n.Types = appendUnique(n.Types, tid)
	}
	// Related links are resolved after creation so types declared together
	// can refer to each other.
	for i, t := range impl.NewTypes {
		tn := a.types[a.typeIndex[t.Name]-1]
		if !slices.Contains(created, tn.ID) {
			continue
		}
		for _, ref := range impl.NewTypes[i].Refs {
			if rid, ok := a.typeIndex[ref]; ok && rid != tn.ID {
				tn.Related = appendUnique(tn.Related, rid)
			}
		}
	}
	for _, ref := range impl.TypeRefs {
		if tid, ok := a.typeIndex[ref]; ok {
			n.Types = appendUnique(n.Types, tid)
		}
	}

	for _, name := range impl.Calls {
		for _, f := range a.funcs {
			if f.Root == n.Root && f.ID != n.ID && f.Contract.Name == name {
				n.Children = appendUnique(n.Children, f.ID)
				break
			}
		}
	}
	for _, c := range impl.NewFunctions {
		if fid := merged[c.Name]; fid != 0 {
			n.Children = appendUnique(n.Children, fid)
			continue
		}
		child := a.newFunction(c, n.ID)
		n.Children = appendUnique(n.Children, child.ID)
	}
	return nil
}

// Fail marks a node FAILED with its last aggregated errors. FAILED is
// terminal; failing a WRITTEN node is rejected.
func (a *Arena) Fail(id FuncID, errs []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.fn(id)
	if n == nil {
		return fmt.Errorf("fail node %d: %w", id, ErrUnknownNode)
	}
	if n.State == Written {
		return fmt.Errorf("fail %q: %w", n.Contract.Name, ErrNotPending)
	}
	n.State = Failed
	n.Errors = slices.Clone(errs)
	return nil
}

// RecordErrors stores the errors of a rejected attempt on a DEFINITION node.
func (a *Arena) RecordErrors(id FuncID, errs []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.fn(id)
	if n == nil {
		return fmt.Errorf("record errors on node %d: %w", id, ErrUnknownNode)
	}
	if n.State == Failed {
		return fmt.Errorf("record errors on %q: %w", n.Contract.Name, ErrFailed)
	}
	n.Errors = slices.Clone(errs)
	return nil
}

// Roots returns the root node of every tree, ordered by identity.
func (a *Arena) Roots() []FuncID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []FuncID
	for _, n := range a.funcs {
		if n.Parent == 0 {
			out = append(out, n.ID)
		}
	}
	return out
}

func appendUnique[T comparable](s []T, v T) []T {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}
