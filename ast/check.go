package ast

import "fmt"

// Check validates a fragment without modifying it and reports every
// problem it finds as a human-readable message.
type Check interface {
	Name() string
	Check(f *Fragment) []string
}

// CheckChain runs checks in order and aggregates their messages. Every
// check runs even when an earlier one reported problems.
type CheckChain []Check

// Run executes each check in sequence. Returns nil if all pass.
func (cc CheckChain) Run(f *Fragment) []string {
	var msgs []string
	for _, c := range cc {
		msgs = append(msgs, c.Check(f)...)
	}
	return msgs
}

// StructureCheck reports the problems recorded during extraction, such as
// nested function definitions.
type StructureCheck struct{}

func (StructureCheck) Name() string { return "structure" }

func (StructureCheck) Check(f *Fragment) []string {
	var msgs []string
	for _, p := range f.Problems {
		msgs = append(msgs, p.String())
	}
	return msgs
}

func (p Problem) String() string {
	return fmt.Sprintf("line %d: %s", p.Line, p.Message)
}
