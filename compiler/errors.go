package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for the kinds of CompilationError, matched with errors.Is.
var (
	ErrCycle         = errors.New("dependency cycle")
	ErrMergedSyntax  = errors.New("merged unit does not parse")
	ErrNotWritten    = errors.New("function not written")
	ErrDuplicateName = errors.New("duplicate top-level definition")
)

// ErrorKind classifies a CompilationError.
type ErrorKind string

const (
	KindCycle               ErrorKind = "cycle"
	KindMergedSyntax        ErrorKind = "merged-syntax"
	KindNotWritten          ErrorKind = "not-written"
	KindDuplicateDefinition ErrorKind = "duplicate-definition"
)

// CompilationError is a non-retryable failure to compile a tree: the
// inputs are structurally inconsistent and compiling them again yields the
// same failure.
type CompilationError struct {
	Route    string
	Function string
	Kind     ErrorKind
	Detail   string
	Path     []string // call path for cycles
}

func (e *CompilationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "compiling route %q: %s", e.Route, e.Kind)
	if e.Function != "" {
		fmt.Fprintf(&sb, " in %q", e.Function)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&sb, ": %s", strings.Join(e.Path, " -> "))
	}
	if e.Detail != "" {
		fmt.Fprintf(&sb, ": %s", e.Detail)
	}
	return sb.String()
}

func (e *CompilationError) Unwrap() error {
	switch e.Kind {
	case KindCycle:
		return ErrCycle
	case KindMergedSyntax:
		return ErrMergedSyntax
	case KindNotWritten:
		return ErrNotWritten
	case KindDuplicateDefinition:
		return ErrDuplicateName
	}
	return nil
}
