package validate

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is the aggregated, retryable rejection of one candidate.
// Messages are meant to be fed back to the generator verbatim.
type ValidationError struct {
	Function string
	Messages []string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "validation of %q failed with %d error(s):", e.Function, len(e.Messages))
	for _, m := range e.Messages {
		sb.WriteString("\n  - ")
		sb.WriteString(strings.ReplaceAll(m, "\n", "\n    "))
	}
	return sb.String()
}

// AsValidationError unwraps err to a ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
