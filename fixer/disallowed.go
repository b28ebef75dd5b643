package fixer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/scanner"
)

type disallowed struct {
	re      *regexp.Regexp
	message func(match, namespace string) string
}

var disallowedPatterns = []disallowed{
	{
		re: regexp.MustCompile(`\bPrisma\s*\(`),
		message: func(match, ns string) string {
			return fmt.Sprintf("creating a database client with %q is not allowed; use the shared client from %s.get_client()", match, ns)
		},
	},
	{
		re: regexp.MustCompile(`\.(?:connect|disconnect)\(\s*\)`),
		message: func(match, _ string) string {
			return fmt.Sprintf("calling %q is not allowed; the application owns the database connection", match)
		},
	},
	{
		re: regexp.MustCompile(`\basyncio\.run\(`),
		message: func(match, _ string) string {
			return fmt.Sprintf("calling %q is not allowed; declare the function async and await the call instead", match)
		},
	},
}

// Disallowed reports forbidden patterns in code, outside strings and
// comments, each with the suggested replacement.
func Disallowed(code, namespace string) []string {
	mask := scanner.CodeMask(code)
	var msgs []string
	for _, p := range disallowedPatterns {
		for _, loc := range p.re.FindAllStringIndex(code, -1) {
			if !mask[loc[0]] {
				continue
			}
			line := strings.Count(code[:loc[0]], "\n") + 1
			msgs = append(msgs, fmt.Sprintf("line %d: %s", line, p.message(code[loc[0]:loc[1]], namespace)))
		}
	}
	return msgs
}
