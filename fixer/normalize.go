package fixer

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/scanner"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/schema"
)

// Rewrite records one silent correction applied to candidate text.
type Rewrite struct {
	Line int
	From string
	To   string
}

func (r Rewrite) String() string {
	return fmt.Sprintf("line %d: %s -> %s", r.Line, r.From, r.To)
}

// Normalized is the outcome of rewriting schema references.
type Normalized struct {
	Code     string
	Imports  []string // module imports the rewritten references need
	Rewrites []Rewrite
	Errors   []string
}

// NormalizeSchemaRefs rewrites references of the form
// [<namespace>.]<models|enums>.<Name> in code, outside strings and
// comments, to <namespace>.<kind>.<Name> using the kind under which Name
// is declared. References to undeclared names are reported. A schema with
// no entities leaves code untouched.
func NormalizeSchemaRefs(code string, sc *schema.Context) Normalized {
	out := Normalized{Code: code}
	if len(sc.Names()) == 0 {
		return out
	}
	ns := sc.NS()
	re := regexp.MustCompile(`(` + regexp.QuoteMeta(ns) + `\.)?(models|enums)\.([A-Za-z_][A-Za-z0-9_]*)`)
	mask := scanner.CodeMask(code)

	var sb strings.Builder
	last := 0
	seenImport := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatchIndex(code, -1) {
		start, end := m[0], m[1]
		if !mask[start] || (start > 0 && isIdentByte(code[start-1])) {
			continue
		}
		qualified := m[2] >= 0
		name := code[m[6]:m[7]]
		if !qualified && !startsUpper(name) {
			continue
		}
		line := strings.Count(code[:start], "\n") + 1
		kind, ok := sc.Lookup(name)
		if !ok {
			out.Errors = append(out.Errors, fmt.Sprintf("line %d: schema entity %q referenced as %q is not defined", line, name, code[start:end]))
			continue
		}
		canonical := ns + "." + kind.Module() + "." + name
		if imp := "import " + ns + "." + kind.Module(); !seenImport[imp] {
			seenImport[imp] = true
			out.Imports = append(out.Imports, imp)
		}
		if code[start:end] == canonical {
			continue
		}
		out.Rewrites = append(out.Rewrites, Rewrite{Line: line, From: code[start:end], To: canonical})
		sb.WriteString(code[last:start])
		sb.WriteString(canonical)
		last = end
	}
	if len(out.Rewrites) == 0 {
		return out
	}
	sb.WriteString(code[last:])
	out.Code = sb.String()
	return out
}

// FixSchemaImports corrects "from <namespace>.<kind> import Name" lines
// that name the wrong kind and reports imports of undeclared names. A
// schema with no entities leaves imports untouched.
func FixSchemaImports(imports []string, sc *schema.Context) (fixed []string, rewrites []Rewrite, errs []string) {
	if len(sc.Names()) == 0 {
		return slices.Clone(imports), nil, nil
	}
	re := regexp.MustCompile(`^from ` + regexp.QuoteMeta(sc.NS()) + `\.(models|enums) import ([A-Za-z_][A-Za-z0-9_]*)(?: as ([A-Za-z_][A-Za-z0-9_]*))?$`)
	for _, line := range imports {
		m := re.FindStringSubmatch(line)
		if m == nil {
			fixed = append(fixed, line)
			continue
		}
		kind, ok := sc.Lookup(m[2])
		if !ok {
			errs = append(errs, fmt.Sprintf("schema entity %q imported by %q is not defined", m[2], line))
			fixed = append(fixed, line)
			continue
		}
		if written, _ := schema.KindForModule(m[1]); written == kind {
			fixed = append(fixed, line)
			continue
		}
		corrected := "from " + sc.NS() + "." + kind.Module() + " import " + m[2]
		if m[3] != "" {
			corrected += " as " + m[3]
		}
		rewrites = append(rewrites, Rewrite{From: line, To: corrected})
		fixed = append(fixed, corrected)
	}
	return fixed, rewrites, errs
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func startsUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}
