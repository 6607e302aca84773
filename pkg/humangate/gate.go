// Package humangate implements the Human Gate (spec.md §4.6, C6): the
// interactive prompt / auto-mode policy that mediates between the
// automated review loop and a human operator, without ever corrupting the
// checkpoint.
package humangate

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/continuum-labs/govern/pkg/checkpoint"
	"github.com/continuum-labs/govern/pkg/console"
	"github.com/continuum-labs/govern/pkg/logger"
	"github.com/continuum-labs/govern/pkg/tty"
)

var log = logger.New("humangate:gate")

// Choice is one of the six fixed options the interactive gate offers
// (spec.md §4.6, "Interactive").
type Choice string

// Known choices.
const (
	ChoiceSendToReviewer Choice = "send_to_reviewer"
	ChoiceRevise         Choice = "revise"
	ChoiceReviseComments Choice = "revise_with_comments"
	ChoiceApprove        Choice = "approve"
	ChoiceSaveAndExit    Choice = "save_and_exit"
	ChoiceAbort          Choice = "abort"
)

// EditorLauncher blocks until a human has inspected (and possibly edited)
// the file at path, returning any edits applied. In TEST_MODE it must be a
// no-op that returns immediately (spec.md §4.6, "Test-mode override").
type EditorLauncher func(path string) error

// PromptInput is everything the gate needs to render a prompt, kept free
// of any dependency on the workflow package's State so humangate
// never imports workflow (spec.md §4.6).
type PromptInput struct {
	ThreadID     string
	WorkflowType string // "issue" or "lld"
	DraftPath    string
	VerdictPath  string
	Decision     string // APPROVED or DISCUSS; BLOCK never reaches the gate
}

// Gate mediates one human-gate prompt.
type Gate struct {
	AutoMode     bool
	TestMode     bool
	TestResponse byte
	Editor       EditorLauncher
}

// New returns a Gate configured from already-resolved settings (spec.md §6,
// environment variables are read once by pkg/govconfig and threaded in
// here explicitly). When neither AUTO_MODE nor TEST_MODE is set and stdin
// is not an interactive terminal, the gate falls back to auto-mode
// behavior rather than issuing a prompt that can never be answered.
func New(autoMode, testMode bool, testResponse byte, editor EditorLauncher) *Gate {
	if editor == nil {
		editor = defaultEditorLauncher
		if testMode {
			editor = func(string) error { return nil }
		}
	}
	if !autoMode && !testMode && !tty.IsStdinTerminal() {
		log.Printf("stdin is not a terminal; falling back to auto-mode gate behavior")
		autoMode = true
	}
	return &Gate{AutoMode: autoMode, TestMode: testMode, TestResponse: testResponse, Editor: editor}
}

// Resolve decides what happens at the human gate. In auto mode it never
// prompts: APPROVED routes straight through (ChoiceApprove); DISCUSS
// escalates by ending the workflow (ChoiceAbort), since the reviewer's
// DISCUSS verdict is a designed escape hatch with no auto-mode resolution
// (spec.md §4.5, "Routing tie-breaks"; §4.6, "Auto").
//
// In interactive mode it launches the blocking external editor (a no-op
// under TEST_MODE) on the draft, then prompts the operator with the fixed
// option set, auto-answering with TestResponse under TEST_MODE so tests
// never block on real input (spec.md §4.6, "Test-mode override").
func (g *Gate) Resolve(input PromptInput) (Choice, error) {
	if g.AutoMode {
		switch input.Decision {
		case "APPROVED":
			log.Printf("auto mode: APPROVED verdict routes directly, thread=%s", input.ThreadID)
			return ChoiceApprove, nil
		case "DISCUSS":
			log.Printf("auto mode: DISCUSS escalates to abort, thread=%s", input.ThreadID)
			return ChoiceAbort, nil
		default:
			return "", fmt.Errorf("humangate: unexpected decision %q reached the gate", input.Decision)
		}
	}

	if err := g.Editor(input.DraftPath); err != nil {
		return "", fmt.Errorf("humangate: editor launch failed: %w", err)
	}

	if g.TestMode {
		choice := choiceFromResponse(g.TestResponse)
		log.Printf("test mode: auto-responding %q, thread=%s", choice, input.ThreadID)
		if choice == ChoiceSaveAndExit {
			return choice, fmt.Errorf("humangate: save and exit: %w", checkpoint.ErrPauseRequested)
		}
		return choice, nil
	}

	return g.promptInteractive(input)
}

func choiceFromResponse(r byte) Choice {
	switch r {
	case 'S':
		return ChoiceSendToReviewer
	case 'R':
		return ChoiceRevise
	case 'W':
		return ChoiceReviseComments
	case 'A':
		return ChoiceApprove
	case 'M':
		return ChoiceSaveAndExit
	case 'X':
		return ChoiceAbort
	default:
		return ChoiceApprove
	}
}

func (g *Gate) promptInteractive(input PromptInput) (Choice, error) {
	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Review gate for %s (%s)", input.ThreadID, input.Decision)).
				Options(
					huh.NewOption("Send to reviewer", string(ChoiceSendToReviewer)),
					huh.NewOption("Revise (use file edits)", string(ChoiceRevise)),
					huh.NewOption("Write revision with comments", string(ChoiceReviseComments)),
					huh.NewOption("Approve / file", string(ChoiceApprove)),
					huh.NewOption("Save and exit", string(ChoiceSaveAndExit)),
					huh.NewOption("Abort", string(ChoiceAbort)),
				).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("humangate: prompt failed: %w", err)
	}

	choice := Choice(selected)
	log.Printf("operator chose %q, thread=%s", choice, input.ThreadID)

	if choice == ChoiceSaveAndExit {
		return choice, fmt.Errorf("humangate: save and exit: %w", checkpoint.ErrPauseRequested)
	}
	return choice, nil
}

// defaultEditorLauncher blocks on the real $EDITOR (falling back to a
// console notice when unset), matching the teacher's pattern of treating
// editor launch as a blocking external side effect.
func defaultEditorLauncher(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("inspect %s, then continue", path)))
		return nil
	}
	fmt.Fprintln(os.Stderr, console.FormatPromptMessage(fmt.Sprintf("opening %s in %s", path, editor)))
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}
