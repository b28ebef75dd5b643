package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/compiler"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/develop"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/validate"
)

var (
	errHeader = color.New(color.FgRed, color.Bold).SprintfFunc()
	errItem   = color.New(color.FgYellow).SprintfFunc()
	okHeader  = color.New(color.FgGreen, color.Bold).SprintfFunc()
)

// printError renders err for the terminal. Aggregated rejections are
// listed one message per item.
func printError(w io.Writer, err error) {
	var (
		ve *validate.ValidationError
		fe *develop.FailedError
		ce *compiler.CompilationError
	)
	switch {
	case errors.As(err, &fe):
		fmt.Fprintln(w, errHeader("error: route %q: function %q failed after %d attempt(s)", fe.Route, fe.Function, fe.Attempts))
		printItems(w, fe.Errors)
	case errors.As(err, &ve):
		fmt.Fprintln(w, errHeader("error: %q rejected with %d error(s)", ve.Function, len(ve.Messages)))
		printItems(w, ve.Messages)
	case errors.As(err, &ce):
		fmt.Fprintln(w, errHeader("compilation failed (%s): %v", ce.Kind, err))
	default:
		fmt.Fprintln(w, errHeader("error: %v", err))
	}
}

func printItems(w io.Writer, msgs []string) {
	for _, m := range msgs {
		fmt.Fprintln(w, errItem("  - %s", strings.ReplaceAll(m, "\n", "\n    ")))
	}
}
