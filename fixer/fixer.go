// Package fixer runs static analysis over candidate functions and repairs
// the defects that have exactly one mechanical fix: missing imports of
// well-known symbols, missing imports of schema entities and schema
// references written under the wrong kind. Everything else is reported.
package fixer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-logr/logr"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/modules"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/schema"
)

// Divider separates the scope prelude from the candidate text in the
// analyzed module. Diagnostics above it are not the candidate's.
const Divider = "# --- candidate ---"

// Fixer repairs and checks one candidate at a time. It is safe for
// concurrent use when its Analyzer is.
type Fixer struct {
	Analyzer Analyzer
	Schema   *schema.Context
}

// Input is a candidate split into its parts.
type Input struct {
	Imports []string // canonical import lines of the candidate
	Prelude []string // scope declarations the candidate may use
	Code    string   // candidate text without imports
}

// Output is the result of one fix pass.
type Output struct {
	Imports  []string // Input.Imports plus Added, in order
	Code     string
	Added    []string
	Rewrites []Rewrite
	Errors   []string
}

// Changed reports whether the pass altered imports or code.
func (o *Output) Changed() bool {
	return len(o.Added) > 0 || len(o.Rewrites) > 0
}

// Fix runs one pass: schema normalization, disallowed pattern detection,
// then static analysis with automatic import resolution. Analyzer
// timeouts become validation errors; other analyzer failures are returned.
func (f *Fixer) Fix(ctx context.Context, in Input) (*Output, error) {
	log := logr.FromContextOrDiscard(ctx)
	out := &Output{}

	norm := NormalizeSchemaRefs(in.Code, f.Schema)
	out.Code = norm.Code
	out.Rewrites = append(out.Rewrites, norm.Rewrites...)
	out.Errors = append(out.Errors, norm.Errors...)

	imports, importRewrites, importErrs := FixSchemaImports(in.Imports, f.Schema)
	out.Imports = imports
	out.Rewrites = append(out.Rewrites, importRewrites...)
	out.Errors = append(out.Errors, importErrs...)
	for _, imp := range norm.Imports {
		out.addImport(imp)
	}

	out.Errors = append(out.Errors, Disallowed(out.Code, f.Schema.NS())...)

	if f.Analyzer == nil {
		return out, nil
	}
	src, offset := assemble(out.Imports, in.Prelude, out.Code)
	diags, err := f.Analyzer.Analyze(ctx, src)
	if err != nil {
		var te *TimeoutError
		if errors.As(err, &te) {
			log.Info("static analysis timed out", "after", te.After)
			out.Errors = append(out.Errors, te.Error())
			return out, nil
		}
		return nil, fmt.Errorf("static analysis: %w", err)
	}

	lines := strings.Split(out.Code, "\n")
	reported := make(map[string]bool)
	for _, d := range diags {
		if d.Line <= offset || (d.Severity != "" && d.Severity != "error") {
			continue
		}
		line := d.Line - offset
		if name, ok := d.UndefinedName(); ok {
			if imp, ok := f.resolve(name); ok && out.addImport(imp) {
				continue
			}
		}
		msg := fmt.Sprintf("line %d: %s", line, d.Message)
		if d.Rule != "" {
			msg += " (" + d.Rule + ")"
		}
		if line-1 < len(lines) {
			msg += "\n    " + strings.TrimSpace(lines[line-1])
		}
		if !reported[msg] {
			reported[msg] = true
			out.Errors = append(out.Errors, msg)
		}
	}
	if len(out.Added) > 0 {
		log.V(1).Info("resolved imports", "added", out.Added)
	}
	return out, nil
}

// resolve finds the import for an undefined name: well-known symbols
// first, then schema entities.
func (f *Fixer) resolve(name string) (string, bool) {
	if imp, ok := modules.ImportFor(name); ok {
		return imp, true
	}
	return f.Schema.ImportFor(name)
}

// addImport reports false when line was already imported, in which case
// it cannot cure an undefined name.
func (o *Output) addImport(line string) bool {
	if slices.Contains(o.Imports, line) {
		return false
	}
	o.Imports = append(o.Imports, line)
	o.Added = append(o.Added, line)
	return true
}

// assemble builds the analyzed module and returns the number of lines
// preceding the candidate text.
func assemble(imports, prelude []string, code string) (string, int) {
	var sb strings.Builder
	for _, imp := range imports {
		sb.WriteString(imp)
		sb.WriteByte('\n')
	}
	for _, p := range prelude {
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimRight(p, "\n"))
		sb.WriteByte('\n')
	}
	sb.WriteString("\n\n")
	sb.WriteString(Divider)
	sb.WriteByte('\n')
	offset := strings.Count(sb.String(), "\n")
	sb.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		sb.WriteByte('\n')
	}
	return sb.String(), offset
}
