package validate

import (
	"fmt"
	"strings"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/ast"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/typeexpr"
)

// SignatureCheck compares the candidate's primary function with its
// contract. Argument order is irrelevant, argument count is exact.
type SignatureCheck struct {
	Contract graph.Contract
	// Untyped is the generic JSON type accepted in place of any declared
	// type.
	Untyped string
}

func (SignatureCheck) Name() string { return "signature" }

func (c SignatureCheck) Check(f *ast.Fragment) []string {
	fn := f.Func(c.Contract.Name)
	if fn == nil {
		return []string{fmt.Sprintf("function %q not found in candidate", c.Contract.Name)}
	}
	msgs := signatureMismatches(fn, c.Contract, c.Untyped)
	if c.Contract.MustImplement && fn.Stub {
		msgs = append(msgs, fmt.Sprintf("function %q has no implementation", fn.Name))
	}
	return msgs
}

func signatureMismatches(fn *ast.FuncDef, contract graph.Contract, untyped string) []string {
	var msgs []string
	if len(fn.Params) != len(contract.Args) {
		msgs = append(msgs, fmt.Sprintf("function %q expects %d arguments but candidate declares %d",
			contract.Name, len(contract.Args), len(fn.Params)))
	}
	declared := make(map[string]string, len(fn.Params))
	for _, p := range fn.Params {
		declared[p.Name] = p.Type
	}
	for _, a := range contract.Args {
		got, ok := declared[a.Name]
		if ok && typeMatches(a.Type, got, untyped) {
			continue
		}
		msg := fmt.Sprintf("argument %q of %q is missing or has a different type", a.Name+": "+a.Type, contract.Name)
		if ok {
			msg += fmt.Sprintf(" (candidate declares %q)", a.Name+": "+got)
		}
		msgs = append(msgs, msg)
	}
	if want := contract.Return.Type; want != "" {
		got := fn.Return
		if got == "" {
			got = "None"
		}
		if !typeMatches(want, got, untyped) {
			msgs = append(msgs, fmt.Sprintf("return type of %q is %q, expected %q", contract.Name, got, want))
		}
	}
	return msgs
}

func typeMatches(want, got, untyped string) bool {
	if got == ast.UnknownType {
		return false
	}
	if untyped != "" && typeexpr.Equal(got, untyped) {
		return true
	}
	return typeexpr.Equal(want, got)
}

// RedeclarationCheck flags candidate declarations whose names are already
// available in scope. Identical type declarations and stub functions whose
// signature equals the scope function's are forward declarations: they
// are merged instead of reported.
type RedeclarationCheck struct {
	Primary string
	Scope   graph.Scope
	Untyped string
}

func (RedeclarationCheck) Name() string { return "redeclaration" }

func (c RedeclarationCheck) Check(f *ast.Fragment) []string {
	collisions, _ := c.analyze(f)
	if len(collisions) == 0 {
		return nil
	}
	return []string{"redeclared names already available in scope: " + strings.Join(collisions, ", ")}
}

// Merged returns the candidate declarations that duplicate scope entries
// and are dropped from the accepted code.
func (c RedeclarationCheck) Merged(f *ast.Fragment) map[ast.Entity]bool {
	_, merged := c.analyze(f)
	return merged
}

func (c RedeclarationCheck) analyze(f *ast.Fragment) ([]string, map[ast.Entity]bool) {
	funcs := make(map[string]graph.FunctionNode, len(c.Scope.Functions))
	for _, fn := range c.Scope.Functions {
		funcs[fn.Contract.Name] = fn
	}
	types := make(map[string]graph.TypeNode, len(c.Scope.Types))
	for _, t := range c.Scope.Types {
		types[t.Name] = t
	}

	var collisions []string
	merged := make(map[ast.Entity]bool)
	for _, e := range f.Entities {
		switch d := e.(type) {
		case *ast.ClassDef:
			if t, ok := types[d.Name]; ok && t.Matches(d.Kind, d.Fields) {
				merged[d] = true
				continue
			}
			_, isType := types[d.Name]
			_, isFunc := funcs[d.Name]
			if isType || isFunc {
				collisions = append(collisions, d.Name+" (type)")
			}
		case *ast.FuncDef:
			if d.Name == c.Primary {
				continue
			}
			if fn, ok := funcs[d.Name]; ok {
				if d.Stub && len(signatureMismatches(d, fn.Contract, c.Untyped)) == 0 {
					merged[d] = true
					continue
				}
				collisions = append(collisions, d.Name+" (function)")
			} else if _, ok := types[d.Name]; ok {
				collisions = append(collisions, d.Name+" (function)")
			}
		}
	}
	return collisions, merged
}

// DeclarationCheck enforces the rules for new sibling functions, which
// become contracts of their own: every argument annotated and no variadic
// arguments. It also rejects names declared twice in one candidate.
type DeclarationCheck struct {
	Primary string
	Scope   graph.Scope
}

func (DeclarationCheck) Name() string { return "declarations" }

func (c DeclarationCheck) Check(f *ast.Fragment) []string {
	inScope := make(map[string]bool)
	for _, name := range c.Scope.FunctionNames() {
		inScope[name] = true
	}
	var msgs []string
	seen := make(map[string]bool)
	for _, e := range f.Entities {
		var name string
		switch d := e.(type) {
		case *ast.ClassDef:
			name = d.Name
		case *ast.FuncDef:
			name = d.Name
			if d.Name != c.Primary && !inScope[d.Name] {
				msgs = append(msgs, siblingProblems(d)...)
			}
		default:
			continue
		}
		if seen[name] {
			msgs = append(msgs, fmt.Sprintf("%q is defined more than once", name))
		}
		seen[name] = true
	}
	return msgs
}

func siblingProblems(fn *ast.FuncDef) []string {
	var msgs []string
	for _, p := range fn.Params {
		switch {
		case strings.HasPrefix(p.Name, "*"):
			msgs = append(msgs, fmt.Sprintf("function %q cannot declare variadic argument %q", fn.Name, p.Name))
		case p.Type == ast.UnknownType:
			msgs = append(msgs, fmt.Sprintf("argument %q of %q has no type annotation", p.Name, fn.Name))
		}
	}
	return msgs
}
