package fixer

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/ast"
)

// RuleUndefined is the rule reported for reads of unbound names.
const RuleUndefined = "reportUndefinedVariable"

// Diagnostic is one finding of a static analyzer. Line and Column are
// 1-based positions in the analyzed text.
type Diagnostic struct {
	Line     int
	Column   int
	Message  string
	Rule     string
	Severity string
}

var undefinedRe = regexp.MustCompile(`^"([^"]+)" is not defined$`)

// UndefinedName returns the name of an undefined-name diagnostic.
func (d Diagnostic) UndefinedName() (string, bool) {
	if m := undefinedRe.FindStringSubmatch(d.Message); m != nil {
		return m[1], true
	}
	return "", false
}

// Analyzer runs static analysis over a complete Python module.
type Analyzer interface {
	Analyze(ctx context.Context, src string) ([]Diagnostic, error)
}

// BuiltinAnalyzer reports undefined names using the tree-sitter scope
// walk. It needs no external tooling.
type BuiltinAnalyzer struct{}

func (BuiltinAnalyzer) Analyze(ctx context.Context, src string) ([]Diagnostic, error) {
	found, err := ast.UndefinedNames(ctx, src)
	if err != nil {
		var se *ast.SyntaxError
		if errors.As(err, &se) {
			return []Diagnostic{{
				Line:     se.Line,
				Column:   se.Column,
				Message:  se.Msg,
				Rule:     "reportSyntaxError",
				Severity: "error",
			}}, nil
		}
		return nil, err
	}
	diags := make([]Diagnostic, 0, len(found))
	for _, u := range found {
		diags = append(diags, Diagnostic{
			Line:     u.Line,
			Column:   u.Column,
			Message:  fmt.Sprintf("%q is not defined", u.Name),
			Rule:     RuleUndefined,
			Severity: "error",
		})
	}
	return diags, nil
}
