// Package govconfig is the single choke point where every environment
// variable this engine recognizes is read, once, at startup (spec.md §6,
// "Environment variables"; SPEC_FULL.md §10, "Configuration / env vars").
// Every other package receives the resulting Config explicitly instead of
// calling os.Getenv itself.
package govconfig

import (
	"os"
	"strings"

	"github.com/continuum-labs/govern/pkg/constants"
)

// Config is the fully-resolved set of environment-derived settings for one
// process invocation.
type Config struct {
	// AutoMode runs the workflow without human interaction (spec.md §6,
	// AUTO_MODE).
	AutoMode bool

	// TestMode suppresses external editor launches and forces every
	// interactive prompt to auto-respond with TestResponse (spec.md §6,
	// TEST_MODE; §4.6, "Test-mode override").
	TestMode bool

	// TestResponse is the predetermined character every human-gate prompt
	// auto-answers with when TestMode is set. Defaults to 'A' (approve)
	// when TEST_MODE is set to a truthy value rather than a recognized
	// response letter.
	TestResponse byte

	// WorkflowDB overrides the checkpoint database path (spec.md §6,
	// WORKFLOW_DB). Empty means "use the per-repo default".
	WorkflowDB string
}

var recognizedResponses = "SRWAMX"

// Load reads AUTO_MODE, TEST_MODE, and WORKFLOW_DB exactly once and
// returns the resolved Config.
func Load() Config {
	cfg := Config{
		AutoMode:   os.Getenv(constants.EnvAutoMode) != "",
		WorkflowDB: os.Getenv(constants.EnvWorkflowDB),
	}

	if raw := os.Getenv(constants.EnvTestMode); raw != "" {
		cfg.TestMode = true
		cfg.TestResponse = resolveTestResponse(raw)
	}

	return cfg
}

func resolveTestResponse(raw string) byte {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if len(upper) == 1 && strings.ContainsRune(recognizedResponses, rune(upper[0])) {
		return upper[0]
	}
	return 'A'
}
