package console

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/continuum-labs/govern/pkg/tty"
)

// SpinnerWrapper wraps briandowns/spinner with TTY detection so callers
// never have to check the environment themselves. It is used while an
// LLM call is in flight, the one long-running suspension point that
// benefits from visual feedback.
type SpinnerWrapper struct {
	s       *spinner.Spinner
	enabled bool
}

// NewSpinner creates a spinner with the given message, disabled outside a
// TTY or when ACCESSIBLE is set.
func NewSpinner(message string) *SpinnerWrapper {
	enabled := tty.IsStderrTerminal() && os.Getenv("ACCESSIBLE") == ""

	w := &SpinnerWrapper{enabled: enabled}
	if enabled {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " " + message
		w.s = s
	}
	return w
}

// Start begins the spinner animation.
func (w *SpinnerWrapper) Start() {
	if w.enabled {
		w.s.Start()
	}
}

// Stop stops the spinner and clears the line.
func (w *SpinnerWrapper) Stop() {
	if w.enabled {
		w.s.Stop()
	}
}

// UpdateMessage changes the spinner's suffix text while it is running.
func (w *SpinnerWrapper) UpdateMessage(message string) {
	if w.enabled {
		w.s.Suffix = " " + message
	}
}

// StopWithMessage stops the spinner and prints a final line in its place.
func (w *SpinnerWrapper) StopWithMessage(message string) {
	if w.enabled {
		w.s.Stop()
	}
	fmt.Fprintln(os.Stderr, message)
}

// IsEnabled reports whether the spinner will actually animate.
func (w *SpinnerWrapper) IsEnabled() bool {
	return w.enabled
}
