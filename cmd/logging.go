package cmd

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// setupColor disables color when asked to, when NO_COLOR is set or when
// stderr is not a terminal. It reports whether color stays enabled.
func setupColor(noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
		color.NoColor = true
		return false
	}
	color.NoColor = false
	return true
}

// newLogger builds the human log sink used by every command.
func newLogger(w io.Writer, level slog.Level, colored bool) logr.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !colored,
	})
	return logr.FromSlogHandler(handler)
}
