package graph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/typeexpr"
)

// Arg is one required argument of a contract.
type Arg struct {
	Name        string `yaml:"name" validate:"required,pyident"`
	Type        string `yaml:"type" validate:"required"`
	Description string `yaml:"description"`
}

// Return is the required return type of a contract.
type Return struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// Contract is the externally supplied shape of a function. It is never
// mutated once a node is created from it.
type Contract struct {
	Name          string `yaml:"name" validate:"required,pyident"`
	Description   string `yaml:"description"`
	Args          []Arg  `yaml:"args" validate:"dive"`
	Return        Return `yaml:"return"`
	MustImplement bool   `yaml:"must_implement"`
}

var pyIdentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("pyident", func(fl validator.FieldLevel) bool {
		return pyIdentRe.MatchString(fl.Field().String())
	})
	return v
}

// Validator returns the shared struct validator, with the "pyident" tag
// registered, for packages that decode their own input files.
func Validator() *validator.Validate {
	return validate
}

// Validate checks that the contract is well formed.
func (c Contract) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid contract %q: %w", c.Name, err)
	}
	seen := make(map[string]bool, len(c.Args))
	for _, a := range c.Args {
		if seen[a.Name] {
			return fmt.Errorf("invalid contract %q: duplicate argument %q", c.Name, a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}

// SameSignature reports whether o declares the same name, argument names
// and semantically equal argument and return types as c.
func (c Contract) SameSignature(o Contract) bool {
	if c.Name != o.Name || len(c.Args) != len(o.Args) {
		return false
	}
	for i, a := range c.Args {
		b := o.Args[i]
		if a.Name != b.Name || !typeexpr.Equal(a.Type, b.Type) {
			return false
		}
	}
	return typeexpr.Equal(c.Return.Type, o.Return.Type)
}

// Signature renders the contract as a Python def header without the
// trailing colon, e.g. "add(a: int, b: int) -> int".
func (c Contract) Signature() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Name)
		sb.WriteString(": ")
		sb.WriteString(a.Type)
	}
	sb.WriteByte(')')
	if c.Return.Type != "" {
		sb.WriteString(" -> ")
		sb.WriteString(c.Return.Type)
	}
	return sb.String()
}

// Stub renders a placeholder definition carrying the contract's signature
// and description.
func (c Contract) Stub(async bool) string {
	var sb strings.Builder
	if async {
		sb.WriteString("async ")
	}
	fmt.Fprintf(&sb, "def %s:\n", c.Signature())
	if d := strings.TrimSpace(c.Description); d != "" {
		fmt.Fprintf(&sb, "    %q\n", d)
	}
	sb.WriteString("    ...\n")
	return sb.String()
}
