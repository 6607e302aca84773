// Package tty centralizes terminal detection so every console helper
// checks the same thing the same way.
package tty

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// IsStdoutTerminal reports whether stdout is attached to a terminal.
func IsStdoutTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// IsStderrTerminal reports whether stderr is attached to a terminal.
func IsStderrTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd())
}

// IsStdinTerminal reports whether stdin is attached to an interactive
// terminal. The Human Gate (spec.md §4.6) uses this to fall back to
// auto-mode-like behavior when stdin is piped or redirected, even without
// AUTO_MODE explicitly set, since an interactive prompt with no terminal
// to answer it would otherwise hang forever.
func IsStdinTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
