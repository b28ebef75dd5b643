// Package typeexpr parses Python type annotation strings into a small
// expression tree so two spellings of the same type compare equal and the
// names a type refers to can be walked.
package typeexpr

import (
	"sort"
	"strings"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/scanner"
)

// Expr is a parsed type expression. A union has Union set and its members
// in Args; a subscripted generic has Name and Args; a literal value (a
// quoted string or number inside Literal[...]) has Value set.
type Expr struct {
	Name  string
	Args  []*Expr
	Union bool
	Value string
}

// lowered maps typing aliases to their builtin spelling.
var lowered = map[string]string{
	"List":      "list",
	"Dict":      "dict",
	"Set":       "set",
	"Tuple":     "tuple",
	"FrozenSet": "frozenset",
	"Type":      "type",
}

// builtins are names the type resolver never looks up.
var builtins = map[string]bool{}

func init() {
	for _, n := range []string{
		"int", "float", "complex", "str", "bytes", "bytearray", "bool", "None",
		"NoneType", "object", "list", "dict", "set", "frozenset", "tuple", "type",
		"Any", "Optional", "Union", "Literal", "Callable", "Iterable", "Iterator",
		"Sequence", "Mapping", "MutableMapping", "MutableSequence", "Generator",
		"AsyncGenerator", "AsyncIterator", "Awaitable", "Coroutine", "Annotated",
		"ClassVar", "Final", "TypeVar", "Generic", "Self",
		"datetime", "date", "time", "timedelta", "Decimal", "UUID", "Path",
		"Json", "unknown", "...",
	} {
		builtins[n] = true
	}
}

// Parse parses s. Parsing is lenient: malformed brackets leave the text as
// an opaque name rather than failing.
func Parse(s string) *Expr {
	return parse(strings.TrimSpace(s), false)
}

func parse(s string, literal bool) *Expr {
	if s == "" {
		return &Expr{Name: ""}
	}
	if isQuoted(s) {
		if literal {
			return &Expr{Value: s}
		}
		return parse(strings.TrimSpace(s[1:len(s)-1]), false)
	}
	if parts := scanner.SplitTopLevel(s, '|'); len(parts) > 1 {
		u := &Expr{Union: true}
		for _, p := range parts {
			u.Args = append(u.Args, parse(p, literal))
		}
		return u.flatten()
	}
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		if literal && !isIdent(s) {
			return &Expr{Value: s}
		}
		return &Expr{Name: normalizeName(s)}
	}
	name := normalizeName(strings.TrimSpace(s[:open]))
	inner := s[open+1 : len(s)-1]
	var args []*Expr
	for _, a := range scanner.SplitTopLevel(inner, ',') {
		args = append(args, parse(a, literal || name == "Literal"))
	}
	switch name {
	case "Optional":
		u := &Expr{Union: true, Args: append(args, &Expr{Name: "None"})}
		return u.flatten()
	case "Union":
		return (&Expr{Union: true, Args: args}).flatten()
	}
	return &Expr{Name: name, Args: args}
}

// flatten merges nested unions, removes duplicates and sorts the members.
// A union of one member collapses to that member.
func (e *Expr) flatten() *Expr {
	var members []*Expr
	var collect func(x *Expr)
	collect = func(x *Expr) {
		if x.Union {
			for _, a := range x.Args {
				collect(a)
			}
			return
		}
		members = append(members, x)
	}
	collect(e)

	seen := make(map[string]bool)
	var uniq []*Expr
	for _, m := range members {
		key := m.String()
		if !seen[key] {
			seen[key] = true
			uniq = append(uniq, m)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].String() < uniq[j].String() })
	if len(uniq) == 1 {
		return uniq[0]
	}
	return &Expr{Union: true, Args: uniq}
}

// String renders the canonical form.
func (e *Expr) String() string {
	switch {
	case e.Value != "":
		return e.Value
	case e.Union:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return strings.Join(parts, "|")
	case len(e.Args) > 0:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return e.Name + "[" + strings.Join(parts, ",") + "]"
	}
	return e.Name
}

// Canonical returns the canonical spelling of a type annotation.
func Canonical(s string) string {
	return Parse(s).String()
}

// Equal reports whether two annotations denote the same type.
func Equal(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// Names returns every non-builtin name referenced by s, in first-seen
// order. Arguments of Literal[...] are values, not names.
func Names(s string) []string {
	var out []string
	seen := make(map[string]bool)
	var visit func(e *Expr)
	visit = func(e *Expr) {
		if e.Value != "" {
			return
		}
		if e.Name != "" && !builtins[e.Name] && !seen[e.Name] {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
		for _, a := range e.Args {
			visit(a)
		}
	}
	visit(Parse(s))
	return out
}

func normalizeName(s string) string {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(s, "typing.")
	if l, ok := lowered[s]; ok {
		return l
	}
	return s
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	return (q == '"' || q == '\'') && s[len(s)-1] == q
}

func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || c == '.':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}
