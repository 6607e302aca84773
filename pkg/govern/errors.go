// Package govern defines the error vocabulary shared by the workflow graph
// and its collaborators (spec.md §7 ERROR HANDLING DESIGN). It deliberately
// holds no behavior beyond error construction and classification so every
// other package can depend on it without a cycle.
package govern

import (
	"fmt"
	"time"
)

// GateError represents a recoverable stop raised by the Human Gate or by
// the iteration bound: user abort, max iterations reached, or a DISCUSS
// verdict escalating in auto mode. The workflow records it, emits an
// `error` audit event, and does not promote the lineage (spec.md §7,
// "Gate errors").
type GateError struct {
	Reason    string // short machine-readable reason code, e.g. "max_iterations"
	Detail    string
	Timestamp time.Time
}

// NewGateError creates a GateError with the current time recorded.
func NewGateError(reason, detail string) *GateError {
	return &GateError{Reason: reason, Detail: detail, Timestamp: time.Now().UTC()}
}

func (e *GateError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("workflow gated: %s", e.Reason)
	}
	return fmt.Sprintf("workflow gated: %s: %s", e.Reason, e.Detail)
}

// FatalError represents an unrecoverable failure that must reach the driver:
// checkpoint write failure, lineage write failure, all credentials
// exhausted with no retry remaining, or a missing reviewer prompt file
// (spec.md §7, "Fatal"). The driver reports exit code 1; the last
// checkpoint remains authoritative.
type FatalError struct {
	Component string // e.g. "checkpoint", "lineage", "llm"
	Reason    string
	Cause     error
}

// NewFatalError wraps cause with the component and reason that produced it.
func NewFatalError(component, reason string, cause error) *FatalError {
	return &FatalError{Component: component, Reason: reason, Cause: cause}
}

func (e *FatalError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("fatal(%s): %s", e.Component, e.Reason)
	}
	return fmt.Sprintf("fatal(%s): %s: %v", e.Component, e.Reason, e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// RemediationHint returns the single-line, stack-trace-free hint the driver
// prints for a fatal error (spec.md §7, "User-visible failures").
func (e *FatalError) RemediationHint() string {
	switch e.Component {
	case "llm":
		return "auth: run `govern credentials add` to register a working credential"
	case "checkpoint":
		return fmt.Sprintf("checkpoint: verify %s is writable and not corrupted", e.Reason)
	case "lineage":
		return "lineage: verify the target repo's docs/lineage directory is writable"
	default:
		return "see audit log for details"
	}
}
