// Package validate decides whether candidate source text implements a
// function contract. It runs the structural checks, the signature and
// redeclaration checks and the static fixer in a bounded fixed-point loop
// and either accepts the candidate or returns every problem it found.
package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/ast"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/fixer"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/manifest"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/modules"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/schema"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/typeexpr"
)

// DefaultMaxPasses bounds the fix loop when Validator.MaxPasses is unset.
const DefaultMaxPasses = 4

// Candidate is generated source text for one function plus its optional
// dependency block in requirements format.
type Candidate struct {
	Code         string `yaml:"code"`
	Requirements string `yaml:"requirements"`
}

// Request asks for one candidate to be validated against a contract.
type Request struct {
	Contract  graph.Contract
	Candidate Candidate
	Scope     graph.Scope
}

// Result is an accepted candidate.
type Result struct {
	// Node is the accepted node in the WRITTEN state. Its identity is set
	// only once committed into an arena.
	Node graph.FunctionNode
	// Implementation is what committing the node adds to the arena.
	Implementation graph.Implementation
	// Source is the canonical candidate text after automatic fixes.
	// Validating it again yields the same result in one pass.
	Source   string
	Passes   int
	Rewrites []fixer.Rewrite
	Added    []string
}

// Validator validates candidates. The zero value works: no parse cache, no
// static analyzer, default schema and pass limit.
type Validator struct {
	Cache     *ast.Cache
	Fixer     *fixer.Fixer
	Schema    *schema.Context
	MaxPasses int
	Log       logr.Logger
}

func (v *Validator) logger(ctx context.Context) logr.Logger {
	if v.Log.GetSink() != nil {
		return v.Log
	}
	return logr.FromContextOrDiscard(ctx)
}

func (v *Validator) fixer() *fixer.Fixer {
	if v.Fixer != nil {
		return v.Fixer
	}
	return &fixer.Fixer{Schema: v.Schema}
}

// Validate runs the check loop for one request. A rejected candidate
// yields a *ValidationError; any other error is an infrastructure failure.
func (v *Validator) Validate(ctx context.Context, req Request) (*Result, error) {
	name := req.Contract.Name
	log := v.logger(ctx).WithValues("function", name)
	if err := req.Contract.Validate(); err != nil {
		return nil, err
	}
	declared, err := manifest.Parse(req.Candidate.Requirements)
	if err != nil {
		return nil, &ValidationError{Function: name, Messages: []string{err.Error()}}
	}

	maxPasses := v.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	fx := v.fixer()
	untyped := v.Schema.Sentinel()
	text := req.Candidate.Code
	var rewrites []fixer.Rewrite
	var added []string

	for pass := 1; pass <= maxPasses; pass++ {
		log.V(1).Info("validation pass", "pass", pass)
		frag, err := v.Cache.Parse(ctx, text)
		if err != nil {
			var se *ast.SyntaxError
			if errors.As(err, &se) {
				return nil, &ValidationError{Function: name, Messages: []string{"syntax error: " + se.Error()}}
			}
			return nil, err
		}

		redecl := RedeclarationCheck{Primary: name, Scope: req.Scope, Untyped: untyped}
		checks := ast.CheckChain{
			ast.StructureCheck{},
			SignatureCheck{Contract: req.Contract, Untyped: untyped},
			redecl,
			DeclarationCheck{Primary: name, Scope: req.Scope},
		}
		msgs := checks.Run(frag)
		merged := redecl.Merged(frag)

		out, err := fx.Fix(ctx, fixer.Input{
			Imports: frag.CanonicalImports(),
			Prelude: prelude(req.Scope, frag, merged),
			Code:    candidateCode(frag, merged),
		})
		if err != nil {
			return nil, err
		}
		if out.Changed() {
			log.V(1).Info("applied automatic fixes", "added", out.Added, "rewrites", len(out.Rewrites))
			rewrites = append(rewrites, out.Rewrites...)
			added = append(added, out.Added...)
			text = render(out.Imports, out.Code)
			continue
		}

		msgs = append(msgs, out.Errors...)
		if len(msgs) > 0 {
			log.V(1).Info("candidate rejected", "errors", len(msgs))
			return nil, &ValidationError{Function: name, Messages: msgs}
		}
		res := accept(req, frag, merged, out, declared)
		res.Source = render(out.Imports, out.Code)
		res.Passes = pass
		res.Rewrites = rewrites
		res.Added = added
		log.V(1).Info("candidate accepted", "passes", pass)
		return res, nil
	}
	return nil, &ValidationError{
		Function: name,
		Messages: []string{fmt.Sprintf("automatic fixes did not converge after %d passes", maxPasses)},
	}
}

// Implement validates a candidate for an arena node against the node's
// current scope and commits it. Rejections are recorded on the node.
func (v *Validator) Implement(ctx context.Context, arena *graph.Arena, id graph.FuncID, cand Candidate) (*Result, error) {
	node, ok := arena.Function(id)
	if !ok {
		return nil, fmt.Errorf("implement node %d: %w", id, graph.ErrUnknownNode)
	}
	scope, err := arena.Scope(id)
	if err != nil {
		return nil, err
	}
	res, err := v.Validate(ctx, Request{Contract: node.Contract, Candidate: cand, Scope: scope})
	if err != nil {
		if ve, ok := AsValidationError(err); ok {
			if rerr := arena.RecordErrors(id, ve.Messages); rerr != nil {
				return nil, rerr
			}
		}
		return nil, err
	}
	if err := commit(arena, id, node.Contract.Name, res.Implementation); err != nil {
		return nil, err
	}
	res.Node, _ = arena.Function(id)
	v.logger(ctx).Info("function written", "function", node.Contract.Name, "id", id,
		"children", len(res.Node.Children), "types", len(res.Node.Types))
	return res, nil
}

// commit applies impl to the arena. Declarations that lost a race with a
// concurrently committed sibling come back as a ValidationError so the
// caller retries against the refreshed scope.
func commit(arena *graph.Arena, id graph.FuncID, name string, impl graph.Implementation) error {
	err := arena.Commit(id, impl)
	if err == nil || !(errors.Is(err, graph.ErrTypeConflict) || errors.Is(err, graph.ErrFunctionConflict)) {
		return err
	}
	ve := &ValidationError{Function: name, Messages: []string{err.Error()}}
	if rerr := arena.RecordErrors(id, ve.Messages); rerr != nil {
		return rerr
	}
	return ve
}

// ValidateAll validates independent requests concurrently, at most workers
// at a time. Results and errors are returned in request order.
func (v *Validator) ValidateAll(ctx context.Context, reqs []Request, workers int) ([]*Result, []error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		g.Go(func() error {
			results[i], errs[i] = v.Validate(gctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}

// candidateCode renders the fragment without imports and without merged
// forward declarations, one top-level entity per block.
func candidateCode(frag *ast.Fragment, merged map[ast.Entity]bool) string {
	var blocks []string
	for _, e := range frag.Entities {
		if merged[e] {
			continue
		}
		switch d := e.(type) {
		case *ast.FuncDef:
			blocks = append(blocks, d.Source)
		case *ast.ClassDef:
			blocks = append(blocks, d.Source)
		case *ast.GlobalStmt:
			blocks = append(blocks, d.Source)
		}
	}
	return strings.Join(blocks, "\n\n\n")
}

// prelude declares the scope for static analysis: type sources, then
// stubs of the scope functions the candidate does not declare itself.
func prelude(scope graph.Scope, frag *ast.Fragment, merged map[ast.Entity]bool) []string {
	declared := make(map[string]bool)
	for _, e := range frag.Entities {
		if merged[e] {
			continue
		}
		switch d := e.(type) {
		case *ast.FuncDef:
			declared[d.Name] = true
		case *ast.ClassDef:
			declared[d.Name] = true
		}
	}
	var out []string
	for _, t := range scope.Types {
		if !declared[t.Name] {
			out = append(out, t.Source)
		}
	}
	for _, f := range scope.Functions {
		if !declared[f.Contract.Name] {
			out = append(out, f.Contract.Stub(f.Async))
		}
	}
	return out
}

// render joins imports and code into candidate text.
func render(imports []string, code string) string {
	if len(imports) == 0 {
		return code
	}
	return strings.Join(imports, "\n") + "\n\n\n" + code
}

func accept(req Request, frag *ast.Fragment, merged map[ast.Entity]bool, out *fixer.Output, declared *manifest.Manifest) *Result {
	name := req.Contract.Name
	primary := frag.Func(name)

	scopeFuncs := make(map[string]bool)
	for _, n := range req.Scope.FunctionNames() {
		scopeFuncs[n] = true
	}
	scopeTypes := make(map[string]bool)
	for _, t := range req.Scope.Types {
		scopeTypes[t.Name] = true
	}

	pkgs := manifest.New()
	pkgs.Merge(declared)
	for _, imp := range out.Imports {
		if pkg, ok := modules.PackageFor(importedModule(imp)); ok {
			pkgs.Add(manifest.Package{Name: pkg})
		}
	}

	impl := graph.Implementation{
		Code:     primary.Source,
		Imports:  out.Imports,
		Packages: pkgs.List(),
		Async:    primary.Async,
	}
	for _, g := range frag.Globals() {
		impl.Globals = append(impl.Globals, g.Source)
	}

	refs := make(map[string]bool)
	addRef := func(n string) {
		if scopeTypes[n] && !refs[n] {
			refs[n] = true
			impl.TypeRefs = append(impl.TypeRefs, n)
		}
	}
	for _, r := range primary.Refs {
		addRef(r)
	}
	for _, c := range primary.Calls {
		if scopeFuncs[c] {
			impl.Calls = append(impl.Calls, c)
		}
	}
	for _, fn := range frag.Functions() {
		if fn.Name == name || merged[fn] || scopeFuncs[fn.Name] {
			continue
		}
		impl.NewFunctions = append(impl.NewFunctions, contractFrom(fn))
	}
	for _, cls := range frag.Classes() {
		if merged[cls] {
			addRef(cls.Name)
			continue
		}
		var typeRefs []string
		for _, f := range cls.Fields {
			typeRefs = append(typeRefs, typeexpr.Names(f.Type)...)
		}
		typeRefs = append(typeRefs, cls.Bases...)
		for _, r := range typeRefs {
			addRef(r)
		}
		impl.NewTypes = append(impl.NewTypes, graph.NewType{
			Name:    cls.Name,
			Kind:    cls.Kind,
			Fields:  cls.Fields,
			Source:  cls.Source,
			Imports: importsBinding(out.Imports, cls.Refs),
			Refs:    typeRefs,
		})
	}

	node := graph.FunctionNode{
		Contract: req.Contract,
		State:    graph.Written,
		Code:     impl.Code,
		Imports:  impl.Imports,
		Globals:  impl.Globals,
		Packages: impl.Packages,
		Async:    impl.Async,
	}
	return &Result{Node: node, Implementation: impl}
}

func contractFrom(fn *ast.FuncDef) graph.Contract {
	c := graph.Contract{
		Name:        fn.Name,
		Description: fn.Doc,
		Return:      graph.Return{Type: fn.Return},
	}
	for _, p := range fn.Params {
		c.Args = append(c.Args, graph.Arg{Name: p.Name, Type: p.Type})
	}
	return c
}

// importsBinding returns the import lines that bind any of names.
func importsBinding(imports, names []string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []string
	for _, imp := range imports {
		if want[boundName(imp)] {
			out = append(out, imp)
		}
	}
	return out
}

// boundName returns the name a canonical import line binds.
func boundName(line string) string {
	if _, alias, ok := strings.Cut(line, " as "); ok {
		return strings.TrimSpace(alias)
	}
	if strings.HasPrefix(line, "from ") {
		_, name, _ := strings.Cut(line, " import ")
		return strings.TrimSpace(name)
	}
	mod := strings.TrimSpace(strings.TrimPrefix(line, "import "))
	top, _, _ := strings.Cut(mod, ".")
	return top
}

// importedModule returns the module path of a canonical import line.
func importedModule(line string) string {
	if rest, ok := strings.CutPrefix(line, "from "); ok {
		mod, _, _ := strings.Cut(rest, " import ")
		return strings.TrimSpace(mod)
	}
	mod := strings.TrimPrefix(line, "import ")
	mod, _, _ = strings.Cut(mod, " as ")
	return strings.TrimSpace(mod)
}
