// Package workflow implements the Workflow Graph (spec.md §4.5, C5): the
// state machine that drives an artifact through drafting, adversarial
// review, human gating, filing, and finalization, persisting a checkpoint
// around every node transition.
package workflow

import (
	"fmt"
	"time"

	"github.com/continuum-labs/govern/pkg/stringutil"
	"github.com/continuum-labs/govern/pkg/verdict"
)

// Node names (spec.md §4.5).
const (
	NodeIngest    = "N0_Ingest"
	NodeDraft     = "N1_Draft"
	NodeReview    = "N2_Review"
	NodeHumanEdit = "N3_HumanEdit"
	NodeFile      = "N4_File"
	NodeFinalize  = "N5_Finalize"
	NodeError     = "N_Error"
)

// State is the single mutable object threaded through every node
// (spec.md §3, "Workflow State").
type State struct {
	ThreadID     string `json:"thread_id"`
	RunID        string `json:"run_id"`
	WorkflowType string `json:"workflow_type"`
	TargetID     string `json:"target_id"`
	TargetRepo   string `json:"target_repo"`

	// TrackerRepoSlug is the external issue tracker's "owner/name"
	// identifier, distinct from TargetRepo's filesystem path. Empty means
	// the Filer relies on the tracker CLI's own working-directory
	// inference (spec.md §4.7 leaves this detail to the CLI contract).
	TrackerRepoSlug string `json:"tracker_repo_slug,omitempty"`

	InputContent string `json:"input_content"`

	CurrentDraft            string           `json:"current_draft"`
	CurrentVerdict          *verdict.Verdict `json:"current_verdict,omitempty"`
	AccumulatedRequirements []string         `json:"accumulated_requirements"`

	IterationCount int `json:"iteration_count"`
	DraftCount     int `json:"draft_count"`
	VerdictCount   int `json:"verdict_count"`

	NextNode     string `json:"next_node"`
	ErrorMessage string `json:"error_message,omitempty"`
	Terminal     string `json:"terminal,omitempty"`

	FiledNumber int    `json:"filed_number,omitempty"`
	FiledURL    string `json:"filed_url,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// ThreadID derives the stable identifier for one workflow run
// (spec.md §3, "thread_id"; §6, "External Interfaces").
func ThreadID(workflowType, targetID, slugSource string) string {
	return fmt.Sprintf("%s-%s-%s", workflowType, targetID, stringutil.Slugify(slugSource))
}
