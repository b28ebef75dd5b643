package ast

import (
	"context"
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// SyntaxError reports candidate text that Python cannot parse.
type SyntaxError struct {
	Line   int
	Column int
	Text   string // the offending source line
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Msg, strings.TrimSpace(e.Text))
}

// enumBases are the base class names that mark a class as an enum.
var enumBases = map[string]bool{
	"Enum":    true,
	"StrEnum": true,
	"IntEnum": true,
	"Flag":    true,
	"IntFlag": true,
}

// Parse extracts the structural summary of src.
func Parse(src string) (*Fragment, error) {
	return ParseContext(context.Background(), src)
}

// ParseContext is Parse with a caller-supplied context for the parser.
func ParseContext(ctx context.Context, src string) (*Fragment, error) {
	source := []byte(src)
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, newSyntaxError(root, src)
	}

	x := &extractor{src: source, frag: &Fragment{Source: src}}
	for _, child := range namedChildren(root) {
		x.topLevel(child)
	}
	return x.frag, nil
}

func newSyntaxError(root *sitter.Node, src string) *SyntaxError {
	n := firstErrorNode(root)
	if n == nil {
		n = root
	}
	line := int(n.StartPoint().Row) + 1
	se := &SyntaxError{
		Line:   line,
		Column: int(n.StartPoint().Column) + 1,
		Msg:    "invalid syntax",
	}
	if n.IsMissing() {
		se.Msg = fmt.Sprintf("missing %q", n.Type())
	}
	lines := strings.Split(src, "\n")
	if line-1 < len(lines) {
		se.Text = lines[line-1]
	}
	return se
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for _, c := range allChildren(n) {
		if !c.HasError() && !c.IsMissing() {
			continue
		}
		if e := firstErrorNode(c); e != nil {
			return e
		}
	}
	return nil
}

type extractor struct {
	src  []byte
	frag *Fragment
}

func (x *extractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(x.src)
}

// typeText returns an annotation with whitespace runs collapsed.
func (x *extractor) typeText(n *sitter.Node) string {
	if n == nil {
		return UnknownType
	}
	return strings.Join(strings.Fields(x.text(n)), " ")
}

func (x *extractor) base(n *sitter.Node) BaseEntity {
	return BaseEntity{
		SourceLine: int(n.StartPoint().Row) + 1,
		Start:      int(n.StartByte()),
		End:        int(n.EndByte()),
	}
}

func (x *extractor) add(e Entity) {
	x.frag.Entities = append(x.frag.Entities, e)
}

func (x *extractor) problem(n *sitter.Node, format string, args ...any) {
	x.frag.Problems = append(x.frag.Problems, Problem{
		Line:    int(n.StartPoint().Row) + 1,
		Message: fmt.Sprintf(format, args...),
	})
}

func (x *extractor) topLevel(n *sitter.Node) {
	switch n.Type() {
	case "comment":
	case "import_statement":
		x.importStmt(n)
	case "import_from_statement", "future_import_statement":
		x.importFrom(n)
	case "function_definition":
		x.function(n, n)
	case "class_definition":
		x.class(n, n)
	case "decorated_definition":
		def := n.ChildByFieldName("definition")
		switch {
		case def == nil:
			x.global(n)
		case def.Type() == "function_definition":
			x.function(def, n)
		case def.Type() == "class_definition":
			x.class(def, n)
		default:
			x.global(n)
		}
	default:
		x.global(n)
	}
}

// ---------------------------------------------------------------------------
// Imports
// ---------------------------------------------------------------------------

func (x *extractor) importStmt(n *sitter.Node) {
	for _, c := range namedChildren(n) {
		imp := &ImportStmt{BaseEntity: x.base(n)}
		switch c.Type() {
		case "dotted_name":
			imp.Module = x.text(c)
		case "aliased_import":
			imp.Module = x.text(c.ChildByFieldName("name"))
			imp.Alias = x.text(c.ChildByFieldName("alias"))
		default:
			continue
		}
		x.add(imp)
	}
}

func (x *extractor) importFrom(n *sitter.Node) {
	module := "__future__"
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode != nil {
		module = x.text(moduleNode)
	}
	var visit func(parent *sitter.Node)
	visit = func(parent *sitter.Node) {
		for _, c := range allChildren(parent) {
			if moduleNode != nil && c.StartByte() == moduleNode.StartByte() {
				continue
			}
			imp := &ImportStmt{BaseEntity: x.base(n), From: true, Module: module}
			switch c.Type() {
			case "dotted_name":
				imp.Name = x.text(c)
			case "aliased_import":
				imp.Name = x.text(c.ChildByFieldName("name"))
				imp.Alias = x.text(c.ChildByFieldName("alias"))
			case "wildcard_import":
				imp.Name = "*"
			case "import_list":
				visit(c)
				continue
			default:
				continue
			}
			x.add(imp)
		}
	}
	visit(n)
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

func (x *extractor) function(def, outer *sitter.Node) {
	fn := &FuncDef{
		BaseEntity: x.base(outer),
		Name:       x.text(def.ChildByFieldName("name")),
		Source:     x.text(outer),
	}
	for _, c := range allChildren(def) {
		if c.Type() == "async" {
			fn.Async = true
		}
		if c.Type() == "def" {
			break
		}
	}
	if params := def.ChildByFieldName("parameters"); params != nil {
		fn.Params = x.params(params)
	}
	if ret := def.ChildByFieldName("return_type"); ret != nil {
		fn.Return = x.typeText(ret)
	}
	body := def.ChildByFieldName("body")
	if body != nil {
		fn.Stub = x.isStub(body)
		fn.Doc = x.docstring(body)
		walk(body, func(n *sitter.Node) bool {
			if n.Type() == "function_definition" {
				x.problem(n, "nested function definition %q inside %q is not allowed; define it at the top level",
					x.text(n.ChildByFieldName("name")), fn.Name)
			}
			return true
		})
		fn.Calls = x.calls(body)
	}
	fn.Refs = x.refs(def)
	x.add(fn)
}

func (x *extractor) params(n *sitter.Node) []Param {
	var out []Param
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "identifier", "list_splat_pattern", "dictionary_splat_pattern":
			out = append(out, Param{Name: x.text(c), Type: UnknownType})
		case "typed_parameter":
			var name string
			typeNode := c.ChildByFieldName("type")
			for _, cc := range namedChildren(c) {
				switch cc.Type() {
				case "identifier", "list_splat_pattern", "dictionary_splat_pattern":
					if name == "" {
						name = x.text(cc)
					}
				case "type":
					if typeNode == nil {
						typeNode = cc
					}
				}
			}
			out = append(out, Param{Name: name, Type: x.typeText(typeNode)})
		case "default_parameter":
			out = append(out, Param{Name: x.text(c.ChildByFieldName("name")), Type: UnknownType})
		case "typed_default_parameter":
			out = append(out, Param{
				Name: x.text(c.ChildByFieldName("name")),
				Type: x.typeText(c.ChildByFieldName("type")),
			})
		}
	}
	return out
}

// isStub reports whether a body consists only of a docstring, pass,
// ellipsis or raise NotImplementedError.
func (x *extractor) isStub(body *sitter.Node) bool {
	for _, s := range namedChildren(body) {
		switch s.Type() {
		case "comment", "pass_statement":
		case "expression_statement":
			if s.NamedChildCount() != 1 {
				return false
			}
			if t := s.NamedChild(0).Type(); t != "string" && t != "ellipsis" {
				return false
			}
		case "raise_statement":
			if !strings.Contains(x.text(s), "NotImplementedError") {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (x *extractor) docstring(body *sitter.Node) string {
	for _, s := range namedChildren(body) {
		if s.Type() == "comment" {
			continue
		}
		if s.Type() == "expression_statement" && s.NamedChildCount() == 1 && s.NamedChild(0).Type() == "string" {
			return cleanString(x.text(s.NamedChild(0)))
		}
		return ""
	}
	return ""
}

// cleanString strips prefixes and quotes from a string literal and dedents
// its continuation lines.
func cleanString(lit string) string {
	s := strings.TrimLeft(lit, "rRuUbBfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	first, rest, found := strings.Cut(s, "\n")
	if !found {
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(strings.TrimSpace(first) + "\n" + dedent.Dedent(rest))
}

func (x *extractor) calls(body *sitter.Node) []string {
	var names []string
	seen := make(map[string]bool)
	walk(body, func(n *sitter.Node) bool {
		if n.Type() != "call" {
			return true
		}
		if f := n.ChildByFieldName("function"); f != nil && f.Type() == "identifier" {
			name := x.text(f)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		return true
	})
	return names
}

// refs collects bare identifiers in load position: attribute members and
// keyword argument names are skipped.
func (x *extractor) refs(n *sitter.Node) []string {
	var names []string
	seen := make(map[string]bool)
	var visit func(n, parent *sitter.Node)
	visit = func(n, parent *sitter.Node) {
		if n.Type() == "identifier" && !isMemberName(n, parent) {
			name := x.text(n)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		for _, c := range namedChildren(n) {
			visit(c, n)
		}
	}
	visit(n, nil)
	return names
}

func isMemberName(n, parent *sitter.Node) bool {
	if parent == nil {
		return false
	}
	var field *sitter.Node
	switch parent.Type() {
	case "attribute":
		field = parent.ChildByFieldName("attribute")
	case "keyword_argument":
		field = parent.ChildByFieldName("name")
	default:
		return false
	}
	return field != nil && field.StartByte() == n.StartByte()
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

func (x *extractor) class(def, outer *sitter.Node) {
	c := &ClassDef{
		BaseEntity: x.base(outer),
		Name:       x.text(def.ChildByFieldName("name")),
		Source:     x.text(outer),
	}
	if supers := def.ChildByFieldName("superclasses"); supers != nil {
		for _, s := range namedChildren(supers) {
			switch s.Type() {
			case "identifier", "attribute", "subscript":
				c.Bases = append(c.Bases, x.text(s))
			}
		}
	}
	for _, b := range c.Bases {
		name, _, _ := strings.Cut(b, "[")
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if enumBases[name] {
			c.Kind = KindEnum
		}
	}

	if body := def.ChildByFieldName("body"); body != nil {
		c.Doc = x.docstring(body)
		for _, stmt := range namedChildren(body) {
			node := stmt
			if stmt.Type() == "expression_statement" && stmt.NamedChildCount() == 1 {
				node = stmt.NamedChild(0)
			}
			if node.Type() != "assignment" {
				continue
			}
			left := node.ChildByFieldName("left")
			if left == nil || left.Type() != "identifier" {
				continue
			}
			f := Field{Name: x.text(left)}
			if t := node.ChildByFieldName("type"); t != nil {
				f.Type = x.typeText(t)
			}
			if r := node.ChildByFieldName("right"); r != nil {
				f.Default = x.text(r)
				f.Description = x.fieldDescription(r)
			}
			// Unannotated assignments in a record are class attributes, not fields.
			if c.Kind == KindRecord && f.Type == "" {
				continue
			}
			c.Fields = append(c.Fields, f)
		}
	}
	c.Refs = x.refs(def)
	x.add(c)
}

// fieldDescription returns the description= keyword of a Field(...) call.
func (x *extractor) fieldDescription(n *sitter.Node) string {
	if n.Type() != "call" {
		return ""
	}
	fn := n.ChildByFieldName("function")
	if fn == nil || !strings.HasSuffix(x.text(fn), "Field") {
		return ""
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for _, kw := range namedChildren(args) {
		if kw.Type() != "keyword_argument" || x.text(kw.ChildByFieldName("name")) != "description" {
			continue
		}
		if v := kw.ChildByFieldName("value"); v != nil && v.Type() == "string" {
			return cleanString(x.text(v))
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Globals
// ---------------------------------------------------------------------------

func (x *extractor) global(n *sitter.Node) {
	g := &GlobalStmt{BaseEntity: x.base(n), Source: x.text(n)}
	node := n
	if n.Type() == "expression_statement" && n.NamedChildCount() == 1 {
		node = n.NamedChild(0)
	}
	switch node.Type() {
	case "assignment", "augmented_assignment":
		if left := node.ChildByFieldName("left"); left != nil {
			walk(left, func(id *sitter.Node) bool {
				if id.Type() == "identifier" {
					g.Binds = append(g.Binds, x.text(id))
				}
				return id.Type() != "attribute" && id.Type() != "subscript"
			})
		}
	}
	x.add(g)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	result := make([]*sitter.Node, 0, count)
	for i := range count {
		result = append(result, n.NamedChild(i))
	}
	return result
}

func allChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.ChildCount())
	result := make([]*sitter.Node, 0, count)
	for i := range count {
		result = append(result, n.Child(i))
	}
	return result
}

// walk visits n and its named descendants depth-first. Returning false
// from visit skips the node's children.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if !visit(n) {
		return
	}
	for _, c := range namedChildren(n) {
		walk(c, visit)
	}
}
