package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReviewerPromptLoader resolves the Reviewer's versioned system instruction
// for a workflow type (spec.md §4.5, "Reviewer prompt composition": "a
// versioned opaque string ... loaded from a repository-internal file
// identified by a stable role id"). The default implementation reads
// prompts/reviewer-{workflowType}.md under the target repo, falling back
// to a minimal built-in instruction when no such file exists, so a missing
// file is a deliberate choice rather than an unexplained fatal error.
type ReviewerPromptLoader func(targetRepo, workflowType string) (roleID, text string, err error)

// DefaultReviewerPromptID names the built-in fallback instruction's role
// id when no repository-internal prompt file overrides it.
const DefaultReviewerPromptID = "reviewer/builtin-v1"

func defaultReviewerPrompt(targetRepo, workflowType string) (string, string, error) {
	roleID := fmt.Sprintf("reviewer/%s-v2", workflowType)
	path := filepath.Join(targetRepo, "prompts", fmt.Sprintf("reviewer-%s.md", workflowType))

	data, err := os.ReadFile(path)
	if err == nil {
		return roleID, string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", "", fmt.Errorf("workflow: read reviewer prompt %s: %w", path, err)
	}

	return DefaultReviewerPromptID, builtinReviewerPrompt, nil
}

const builtinReviewerPrompt = `You are an adversarial reviewer. Respond with a "## Verdict" section containing
a checked box for exactly one of APPROVED, REVISE, or DISCUSS, followed by
"## Tier 1" (blocking issues), "## Tier 2" (high priority issues), and
"## Suggestions" bullet lists. Prefer JSON output with a "decision" field
when able.`

// composeDraftPrompt builds the Drafter's prompt from the immutable input,
// the full accumulated-requirements checklist, and the most recent
// verdict's raw text (spec.md §4.5, "Drafter prompt composition").
func composeDraftPrompt(st *State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Produce a %s artifact for target %q.\n\n", st.WorkflowType, st.TargetID)
	b.WriteString("## Input\n")
	b.WriteString(st.InputContent)
	b.WriteString("\n\n")

	if len(st.AccumulatedRequirements) > 0 {
		b.WriteString("## Standing requirements (MUST address, do not regress)\n")
		for i, req := range st.AccumulatedRequirements {
			fmt.Fprintf(&b, "%d. %s\n", i+1, req)
		}
		b.WriteString("\nPreserve any template section no prior verdict has critiqued.\n\n")
	}

	if st.CurrentVerdict != nil {
		b.WriteString("## Most recent reviewer verdict\n")
		b.WriteString(st.CurrentVerdict.RawText)
		b.WriteString("\n\n")
	}

	if st.CurrentDraft != "" {
		b.WriteString("## Previous draft\n")
		b.WriteString(st.CurrentDraft)
		b.WriteString("\n")
	}

	return b.String()
}

// composeReviewPrompt builds the Reviewer's prompt from the versioned
// system instruction, the current draft, and the standing requirements
// (spec.md §4.5, "Reviewer prompt composition").
func composeReviewPrompt(st *State, roleID, systemInstruction string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## System instruction (%s)\n", roleID)
	b.WriteString(systemInstruction)
	b.WriteString("\n\n## Draft under review\n")
	b.WriteString(st.CurrentDraft)
	b.WriteString("\n")

	if len(st.AccumulatedRequirements) > 0 {
		b.WriteString("\n## Standing requirements from prior reviews\n")
		for i, req := range st.AccumulatedRequirements {
			fmt.Fprintf(&b, "%d. %s\n", i+1, req)
		}
	}

	return b.String()
}
