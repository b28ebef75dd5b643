package assemble

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/typeexpr"
)

// ModuleName derives a Python package name from a route name:
// "Add Numbers" and "addNumbers" both become "add_numbers".
func ModuleName(name string) string {
	var sb strings.Builder
	prevLower := false
	sep := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "_") {
			sb.WriteByte('_')
		}
	}
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				sep()
			}
			sb.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevLower = true
		default:
			sep()
			prevLower = false
		}
	}
	s := strings.Trim(sb.String(), "_")
	if s == "" || unicode.IsDigit(rune(s[0])) {
		s = "route_" + s
	}
	return strings.TrimSuffix(s, "_")
}

// renderType renders a type annotation canonically with each name passed
// through qualify.
func renderType(s string, qualify func(string) string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return render(typeexpr.Parse(s), qualify)
}

func render(e *typeexpr.Expr, qualify func(string) string) string {
	switch {
	case e.Value != "":
		return e.Value
	case e.Union:
		// Optional members read as "X | None".
		parts := make([]string, 0, len(e.Args))
		optional := false
		for _, a := range e.Args {
			if a.Name == "None" && len(a.Args) == 0 {
				optional = true
				continue
			}
			parts = append(parts, render(a, qualify))
		}
		if optional {
			parts = append(parts, "None")
		}
		return strings.Join(parts, " | ")
	}
	name := qualify(e.Name)
	if len(e.Args) == 0 {
		return name
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = render(a, qualify)
	}
	return name + "[" + strings.Join(parts, ", ") + "]"
}

// pyQuote renders s as a double-quoted Python string literal.
func pyQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range strings.ToValidUTF8(s, "\uFFFD") {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\x%02x`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
