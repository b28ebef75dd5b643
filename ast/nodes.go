package ast

import "strings"

// UnknownType is the type string recorded for a parameter that carries no
// annotation.
const UnknownType = "unknown"

// Entity is the closed set of top-level declarations a fragment can contain:
// *FuncDef, *ClassDef, *ImportStmt and *GlobalStmt.
type Entity interface {
	entity()
	EntityLine() int
	Span() (start, end int)
}

// BaseEntity provides position information for all entities.
type BaseEntity struct {
	SourceLine int // 1-based start line in the fragment
	Start      int // byte offset of the first byte
	End        int // byte offset one past the last byte
}

func (b BaseEntity) EntityLine() int        { return b.SourceLine }
func (b BaseEntity) Span() (start, end int) { return b.Start, b.End }

// Param is one function parameter. Variadic parameters keep their star
// prefix ("*args", "**kwargs").
type Param struct {
	Name string
	Type string
}

// FuncDef is a top-level def or async def.
type FuncDef struct {
	BaseEntity
	Name   string
	Async  bool
	Params []Param
	Return string // empty when the function declares no return type
	Stub   bool   // body has no real statements
	Doc    string // dedented docstring
	Source string // full definition text including decorators
	Calls  []string
	Refs   []string
}

func (*FuncDef) entity() {}

// TypeKind distinguishes record declarations from enums.
type TypeKind int

const (
	KindRecord TypeKind = iota
	KindEnum
)

func (k TypeKind) String() string {
	if k == KindEnum {
		return "enum"
	}
	return "record"
}

// Field is a record field or an enum member. Enum members have no type.
type Field struct {
	Name        string
	Type        string
	Default     string
	Description string
}

// ClassDef is a top-level class declaration.
type ClassDef struct {
	BaseEntity
	Name   string
	Kind   TypeKind
	Bases  []string
	Fields []Field
	Doc    string
	Source string
	Refs   []string
}

func (*ClassDef) entity() {}

// ImportStmt is a single import binding. Multi-name imports are split into
// one ImportStmt per bound name.
type ImportStmt struct {
	BaseEntity
	From   bool   // from Module import Name
	Module string // dotted module path, may start with dots for relative imports
	Name   string // imported name for from-imports
	Alias  string
}

func (*ImportStmt) entity() {}

// Canonical renders the import in its canonical one-binding form.
func (i *ImportStmt) Canonical() string {
	var sb strings.Builder
	if i.From {
		sb.WriteString("from ")
		sb.WriteString(i.Module)
		sb.WriteString(" import ")
		sb.WriteString(i.Name)
	} else {
		sb.WriteString("import ")
		sb.WriteString(i.Module)
	}
	if i.Alias != "" {
		sb.WriteString(" as ")
		sb.WriteString(i.Alias)
	}
	return sb.String()
}

// Bound returns the name the import introduces into module scope.
func (i *ImportStmt) Bound() string {
	switch {
	case i.Alias != "":
		return i.Alias
	case i.From:
		return i.Name
	default:
		return strings.SplitN(i.Module, ".", 2)[0]
	}
}

// GlobalStmt is any other top-level statement, kept verbatim.
type GlobalStmt struct {
	BaseEntity
	Source string
	Binds  []string // names assigned at module level
}

func (*GlobalStmt) entity() {}

// Problem is a structural violation that does not prevent extraction.
type Problem struct {
	Line    int
	Message string
}

// Fragment is the structural summary of one candidate source text.
type Fragment struct {
	Source   string
	Entities []Entity // source order
	Problems []Problem
}

// Functions returns the function definitions in source order.
func (f *Fragment) Functions() []*FuncDef {
	var out []*FuncDef
	for _, e := range f.Entities {
		if fn, ok := e.(*FuncDef); ok {
			out = append(out, fn)
		}
	}
	return out
}

// Classes returns the class definitions in source order.
func (f *Fragment) Classes() []*ClassDef {
	var out []*ClassDef
	for _, e := range f.Entities {
		if c, ok := e.(*ClassDef); ok {
			out = append(out, c)
		}
	}
	return out
}

// Imports returns the import bindings in source order.
func (f *Fragment) Imports() []*ImportStmt {
	var out []*ImportStmt
	for _, e := range f.Entities {
		if imp, ok := e.(*ImportStmt); ok {
			out = append(out, imp)
		}
	}
	return out
}

// Globals returns the remaining top-level statements in source order.
func (f *Fragment) Globals() []*GlobalStmt {
	var out []*GlobalStmt
	for _, e := range f.Entities {
		if g, ok := e.(*GlobalStmt); ok {
			out = append(out, g)
		}
	}
	return out
}

// Func returns the function named name, or nil.
func (f *Fragment) Func(name string) *FuncDef {
	for _, fn := range f.Functions() {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// CanonicalImports returns the canonical import lines, deduplicated, in
// source order.
func (f *Fragment) CanonicalImports() []string {
	seen := make(map[string]bool)
	var out []string
	for _, imp := range f.Imports() {
		line := imp.Canonical()
		if !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	return out
}

// Body returns the fragment source with every import statement removed.
// Leading and trailing blank lines are dropped.
func (f *Fragment) Body() string {
	type span struct{ start, end int }
	var cut []span
	for _, e := range f.Entities {
		if _, ok := e.(*ImportStmt); !ok {
			continue
		}
		s, end := e.Span()
		// Multi-name imports share one span; keep only the first.
		if len(cut) > 0 && cut[len(cut)-1].start == s {
			continue
		}
		cut = append(cut, span{s, end})
	}
	var sb strings.Builder
	pos := 0
	for _, c := range cut {
		if c.start < pos {
			continue
		}
		sb.WriteString(f.Source[pos:c.start])
		pos = c.end
		if pos < len(f.Source) && f.Source[pos] == '\n' {
			pos++
		}
	}
	sb.WriteString(f.Source[pos:])
	return trimBlankLines(sb.String())
}

func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
