package ast

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// builtinNames are always-available names in Python module scope.
var builtinNames = map[string]bool{}

func init() {
	for _, name := range []string{
		// functions and types
		"abs", "aiter", "all", "anext", "any", "ascii", "bin", "bool", "breakpoint",
		"bytearray", "bytes", "callable", "chr", "classmethod", "compile", "complex",
		"copyright", "credits", "delattr", "dict", "dir", "divmod", "enumerate", "eval",
		"exec", "exit", "filter", "float", "format", "frozenset", "getattr", "globals",
		"hasattr", "hash", "help", "hex", "id", "input", "int", "isinstance",
		"issubclass", "iter", "len", "license", "list", "locals", "map", "max",
		"memoryview", "min", "next", "object", "oct", "open", "ord", "pow", "print",
		"property", "quit", "range", "repr", "reversed", "round", "set", "setattr",
		"slice", "sorted", "staticmethod", "str", "sum", "super", "tuple", "type",
		"vars", "zip",
		// module attributes
		"__build_class__", "__builtins__", "__debug__", "__doc__", "__file__",
		"__import__", "__loader__", "__name__", "__package__", "__spec__",
		// constants
		"None", "True", "False", "NotImplemented", "Ellipsis",
		// exceptions
		"BaseException", "BaseExceptionGroup", "Exception", "ExceptionGroup",
		"ArithmeticError", "AssertionError", "AttributeError", "BlockingIOError",
		"BrokenPipeError", "BufferError", "ChildProcessError", "ConnectionAbortedError",
		"ConnectionError", "ConnectionRefusedError", "ConnectionResetError",
		"EOFError", "EnvironmentError", "FileExistsError", "FileNotFoundError",
		"FloatingPointError", "GeneratorExit", "IOError", "ImportError",
		"IndentationError", "IndexError", "InterruptedError", "IsADirectoryError",
		"KeyError", "KeyboardInterrupt", "LookupError", "MemoryError",
		"ModuleNotFoundError", "NameError", "NotADirectoryError", "NotImplementedError",
		"OSError", "OverflowError", "PermissionError", "ProcessLookupError",
		"PythonFinalizationError", "RecursionError", "ReferenceError", "RuntimeError",
		"StopAsyncIteration", "StopIteration", "SyntaxError", "SystemError",
		"SystemExit", "TabError", "TimeoutError", "TypeError", "UnboundLocalError",
		"UnicodeDecodeError", "UnicodeEncodeError", "UnicodeError",
		"UnicodeTranslateError", "ValueError", "ZeroDivisionError",
		// warnings
		"Warning", "BytesWarning", "DeprecationWarning", "EncodingWarning",
		"FutureWarning", "ImportWarning", "PendingDeprecationWarning",
		"ResourceWarning", "RuntimeWarning", "SyntaxWarning", "UnicodeWarning",
		"UserWarning",
	} {
		builtinNames[name] = true
	}
}

// Undefined is a name that is read but never bound in any enclosing scope.
type Undefined struct {
	Name   string
	Line   int
	Column int
}

func (u Undefined) String() string {
	return fmt.Sprintf("line %d: %q is not defined", u.Line, u.Name)
}

// UndefinedNames parses src as a whole module and reports every read of a
// name that is neither a builtin nor bound in module scope or an enclosing
// function scope. Python's function-level scoping is approximated: a name
// bound anywhere in a function body is visible everywhere in that body.
func UndefinedNames(ctx context.Context, src string) ([]Undefined, error) {
	source := []byte(src)
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing module: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, newSyntaxError(root, src)
	}

	w := &identWalker{src: source}
	module := make(map[string]bool, len(builtinNames))
	for name := range builtinNames {
		module[name] = true
	}
	for _, c := range namedChildren(root) {
		w.bind(c, module)
	}
	for _, c := range namedChildren(root) {
		w.check(c, root, module)
	}
	return w.found, nil
}

// identWalker walks tree-sitter nodes checking identifier reads against
// known scopes.
type identWalker struct {
	src   []byte
	found []Undefined
}

func (w *identWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

// bind records every name n binds into scope without entering nested
// function, class or lambda bodies.
func (w *identWalker) bind(n *sitter.Node, scope map[string]bool) {
	switch n.Type() {
	case "function_definition", "class_definition":
		scope[w.text(n.ChildByFieldName("name"))] = true
		return
	case "lambda":
		return
	case "import_statement":
		for _, c := range namedChildren(n) {
			switch c.Type() {
			case "dotted_name":
				scope[firstSegment(w.text(c))] = true
			case "aliased_import":
				scope[w.text(c.ChildByFieldName("alias"))] = true
			}
		}
		return
	case "import_from_statement", "future_import_statement":
		module := n.ChildByFieldName("module_name")
		var visit func(p *sitter.Node)
		visit = func(p *sitter.Node) {
			for _, c := range namedChildren(p) {
				if module != nil && c.StartByte() == module.StartByte() {
					continue
				}
				switch c.Type() {
				case "dotted_name":
					scope[w.text(c)] = true
				case "aliased_import":
					scope[w.text(c.ChildByFieldName("alias"))] = true
				case "import_list":
					visit(c)
				}
			}
		}
		visit(n)
		return
	case "assignment", "augmented_assignment", "for_statement", "for_in_clause":
		w.targets(n.ChildByFieldName("left"), scope)
	case "named_expression":
		w.targets(n.ChildByFieldName("name"), scope)
	case "as_pattern", "with_item":
		w.targets(n.ChildByFieldName("alias"), scope)
	case "except_clause":
		var prev *sitter.Node
		for _, c := range allChildren(n) {
			if prev != nil && prev.Type() == "as" {
				w.targets(c, scope)
			}
			prev = c
		}
	case "global_statement", "nonlocal_statement":
		for _, c := range namedChildren(n) {
			if c.Type() == "identifier" {
				scope[w.text(c)] = true
			}
		}
		return
	}
	for _, c := range namedChildren(n) {
		w.bind(c, scope)
	}
}

// targets binds the identifiers of an assignment target. Attribute and
// subscript targets bind nothing.
func (w *identWalker) targets(n *sitter.Node, scope map[string]bool) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		scope[w.text(n)] = true
		return
	case "attribute", "subscript":
		return
	}
	for _, c := range namedChildren(n) {
		w.targets(c, scope)
	}
}

func (w *identWalker) check(n, parent *sitter.Node, scope map[string]bool) {
	switch n.Type() {
	case "function_definition":
		w.checkFunction(n, scope)
		return
	case "class_definition":
		if supers := n.ChildByFieldName("superclasses"); supers != nil {
			w.check(supers, n, scope)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			local := extend(scope)
			for _, c := range namedChildren(body) {
				w.bind(c, local)
			}
			w.check(body, n, local)
		}
		return
	case "lambda":
		local := extend(scope)
		if params := n.ChildByFieldName("parameters"); params != nil {
			w.targets(params, local)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			w.bind(body, local)
			w.check(body, n, local)
		}
		return
	case "import_statement", "import_from_statement", "future_import_statement",
		"global_statement", "nonlocal_statement", "dotted_name":
		return
	case "identifier":
		if isMemberName(n, parent) {
			return
		}
		if name := w.text(n); !scope[name] {
			w.found = append(w.found, Undefined{
				Name:   name,
				Line:   int(n.StartPoint().Row) + 1,
				Column: int(n.StartPoint().Column) + 1,
			})
		}
		return
	}
	for _, c := range namedChildren(n) {
		w.check(c, n, scope)
	}
}

func (w *identWalker) checkFunction(fn *sitter.Node, scope map[string]bool) {
	local := extend(scope)
	if params := fn.ChildByFieldName("parameters"); params != nil {
		for _, p := range namedChildren(params) {
			switch p.Type() {
			case "identifier", "list_splat_pattern", "dictionary_splat_pattern":
				w.targets(p, local)
			case "typed_parameter":
				for _, c := range namedChildren(p) {
					if c.Type() == "type" {
						w.check(c, p, scope)
					} else {
						w.targets(c, local)
					}
				}
			case "default_parameter", "typed_default_parameter":
				w.targets(p.ChildByFieldName("name"), local)
				if t := p.ChildByFieldName("type"); t != nil {
					w.check(t, p, scope)
				}
				if v := p.ChildByFieldName("value"); v != nil {
					w.check(v, p, scope)
				}
			}
		}
	}
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		w.check(ret, fn, scope)
	}
	if body := fn.ChildByFieldName("body"); body != nil {
		for _, c := range namedChildren(body) {
			w.bind(c, local)
		}
		w.check(body, fn, local)
	}
}

func extend(scope map[string]bool) map[string]bool {
	local := make(map[string]bool, len(scope))
	for k := range scope {
		local[k] = true
	}
	return local
}

func firstSegment(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}
