package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/continuum-labs/govern/pkg/checkpoint"
	"github.com/continuum-labs/govern/pkg/constants"
	"github.com/continuum-labs/govern/pkg/filer"
	"github.com/continuum-labs/govern/pkg/govern"
	"github.com/continuum-labs/govern/pkg/humangate"
	"github.com/continuum-labs/govern/pkg/lineage"
	"github.com/continuum-labs/govern/pkg/verdict"
)

// nIngest loads the input, creates the lineage directory, writes the
// seed artifact, and initializes counters (spec.md §4.5, N0_Ingest).
func (e *Engine) nIngest(ctx context.Context, st *State) error {
	if len(st.InputContent) == 0 {
		return govern.NewFatalError("ingest", "empty input content", nil)
	}

	if st.RunID == "" {
		st.RunID = lineage.NewRunID()
	}
	if st.StartedAt.IsZero() {
		st.StartedAt = time.Now().UTC()
	}

	seedKind := lineage.KindBrief
	if st.WorkflowType == constants.WorkflowTypeLLD {
		seedKind = lineage.KindIssue
	}

	dir := e.Lineage.ActiveDir(st.ThreadID)
	if _, _, err := e.Lineage.WriteArtifact(dir, seedKind, []byte(st.InputContent)); err != nil {
		return govern.NewFatalError("lineage", "write seed artifact", err)
	}

	e.audit(st, constants.EventStart, map[string]interface{}{"workflow_type": st.WorkflowType})
	st.NextNode = NodeDraft
	return nil
}

// nDraft calls the Drafter, writes the draft artifact, and advances to
// review (spec.md §4.5, N1_Draft).
func (e *Engine) nDraft(ctx context.Context, st *State) error {
	prompt := composeDraftPrompt(st)

	output, err := e.Invoker.Invoke(ctx, e.DrafterModel, prompt)
	if err != nil {
		return govern.NewFatalError("llm", "drafter invocation failed", err)
	}
	st.CurrentDraft = output

	dir := e.Lineage.ActiveDir(st.ThreadID)
	seq, _, err := e.Lineage.WriteArtifact(dir, lineage.KindDraft, []byte(output))
	if err != nil {
		return govern.NewFatalError("lineage", "write draft artifact", err)
	}

	st.DraftCount++
	st.IterationCount++
	e.audit(st, constants.EventDraft, map[string]interface{}{"sequence": seq, "model": e.DrafterModel})

	st.NextNode = NodeReview
	return nil
}

// nReview calls the Reviewer, parses its output into a Verdict, updates
// the standing requirements, and routes (spec.md §4.5, N2_Review).
func (e *Engine) nReview(ctx context.Context, st *State) error {
	roleID, instruction, err := e.LoadReviewerPrompt(st.TargetRepo, st.WorkflowType)
	if err != nil {
		return govern.NewFatalError("llm", "missing reviewer prompt file", err)
	}

	prompt := composeReviewPrompt(st, roleID, instruction)
	isValid := func(raw string) bool {
		return !verdict.Parse(raw, e.ReviewerModel).ParseFailure
	}

	raw, _, err := e.Invoker.InvokeStructured(ctx, e.ReviewerModel, prompt, isValid)
	if err != nil {
		return govern.NewFatalError("llm", "reviewer invocation failed", err)
	}

	v := verdict.Parse(raw, e.ReviewerModel)
	decision := v.Decision

	// Routing tie-break (spec.md §4.5, "Routing tie-breaks"; §8 B3): a
	// verdict claiming APPROVED while still listing blocking issues
	// contradicts itself and is treated as BLOCK for routing purposes.
	if decision == verdict.Approved && len(v.BlockingIssues) > 0 {
		decision = verdict.Block
	}

	dir := e.Lineage.ActiveDir(st.ThreadID)
	seq, _, err := e.Lineage.WriteArtifact(dir, lineage.KindVerdict, []byte(v.RawText))
	if err != nil {
		return govern.NewFatalError("lineage", "write verdict artifact", err)
	}

	st.CurrentVerdict = &v
	st.AccumulatedRequirements = verdict.MergeRequirements(st.AccumulatedRequirements, v.BlockingIssues)
	st.VerdictCount++
	e.audit(st, constants.EventReview, map[string]interface{}{"sequence": seq, "decision": string(decision)})

	switch decision {
	case verdict.Approved:
		st.NextNode = NodeHumanEdit
	case verdict.Discuss:
		st.NextNode = NodeHumanEdit
	case verdict.Block:
		if st.IterationCount >= e.maxIterations(st.WorkflowType) {
			ge := govern.NewGateError("max_iterations", fmt.Sprintf("reached %d iterations", st.IterationCount))
			st.ErrorMessage = ge.Error()
			st.Terminal = constants.TerminalMaxIterations
			st.NextNode = NodeError
		} else {
			st.NextNode = NodeDraft
		}
	default:
		return govern.NewFatalError("verdict", fmt.Sprintf("unrecognized decision %q", decision), nil)
	}
	return nil
}

// nHumanEdit mediates the Human Gate (spec.md §4.5, N3_HumanEdit; §4.6).
func (e *Engine) nHumanEdit(ctx context.Context, st *State) error {
	dir := e.Lineage.ActiveDir(st.ThreadID)
	artifacts, err := lineage.ListArtifacts(dir)
	if err != nil {
		return govern.NewFatalError("lineage", "list artifacts for human gate", err)
	}

	input := humangate.PromptInput{
		ThreadID:     st.ThreadID,
		WorkflowType: st.WorkflowType,
		Decision:     string(st.CurrentVerdict.Decision),
	}
	if n := len(artifacts); n >= 2 {
		input.VerdictPath = filepath.Join(dir, artifacts[n-1])
		input.DraftPath = filepath.Join(dir, artifacts[n-2])
	}

	choice, err := e.Gate.Resolve(input)
	if err != nil {
		if checkpoint.IsPauseRequested(err) {
			return err
		}
		return govern.NewFatalError("humangate", "prompt failed", err)
	}

	// Auto mode routes by policy without a human decision, so only an
	// interactive (or test-mode) choice is recorded as a human_edit event.
	if !e.Gate.AutoMode {
		e.audit(st, constants.EventHumanEdit, map[string]interface{}{"choice": string(choice)})
	}

	switch choice {
	case humangate.ChoiceApprove:
		if st.WorkflowType == constants.WorkflowTypeIssue {
			st.NextNode = NodeFile
		} else {
			st.NextNode = NodeFinalize
		}
	case humangate.ChoiceSendToReviewer:
		st.NextNode = NodeReview
	case humangate.ChoiceRevise, humangate.ChoiceReviseComments:
		st.NextNode = NodeDraft
	case humangate.ChoiceAbort:
		ge := govern.NewGateError("user_abort", "operator aborted at human gate")
		st.ErrorMessage = ge.Error()
		st.Terminal = constants.TerminalUserAbort
		st.NextNode = NodeError
	default:
		return govern.NewFatalError("humangate", fmt.Sprintf("unrecognized choice %q", choice), nil)
	}
	return nil
}

// nFile invokes the Filer for the issue workflow only (spec.md §4.5,
// N4_File; §4.7).
func (e *Engine) nFile(ctx context.Context, st *State) error {
	dir := e.Lineage.ActiveDir(st.ThreadID)
	draft, err := lineage.LatestOfKind(dir, lineage.KindDraft)
	if err != nil {
		return govern.NewFatalError("lineage", "list artifacts for filing", err)
	}
	if draft == "" {
		return govern.NewFatalError("lineage", "no draft artifact to file", nil)
	}
	bodyPath := filepath.Join(dir, draft)

	if len(e.Labels) > 0 {
		if err := e.Filer.EnsureLabels(st.TrackerRepoSlug, e.Labels); err != nil {
			return govern.NewFatalError("filer", "ensure labels", err)
		}
	}

	meta := filer.Metadata{
		ReviewerDecision: string(st.CurrentVerdict.Decision),
		ReviewerModel:    st.CurrentVerdict.ReviewerModel,
		FiledAt:          time.Now().UTC(),
		ReviewRounds:     st.VerdictCount,
	}
	result, err := e.Filer.CreateIssue(st.TrackerRepoSlug, bodyPath, e.Labels, meta)
	if err != nil {
		return govern.NewFatalError("filer", "create issue", err)
	}

	st.FiledNumber = result.Number
	st.FiledURL = result.URL
	e.audit(st, constants.EventFile, map[string]interface{}{"number": result.Number, "url": result.URL})

	st.NextNode = NodeFinalize
	return nil
}

// nFinalize writes terminal metadata and promotes the lineage directory
// from active to done (spec.md §4.5, N5_Finalize).
func (e *Engine) nFinalize(ctx context.Context, st *State) error {
	st.Terminal = constants.TerminalApprovedFiled

	meta := newTerminalMetadata(st)
	payload, err := json.Marshal(meta)
	if err != nil {
		return govern.NewFatalError("lineage", "marshal terminal metadata", err)
	}

	dir := e.Lineage.ActiveDir(st.ThreadID)
	if _, _, err := e.Lineage.WriteArtifact(dir, lineage.KindMetadata, payload); err != nil {
		return govern.NewFatalError("lineage", "write metadata artifact", err)
	}

	e.audit(st, constants.EventComplete, map[string]interface{}{"filed_number": st.FiledNumber})

	if err := e.Lineage.PromoteToDone(st.ThreadID); err != nil {
		return govern.NewFatalError("lineage", "promote to done", err)
	}
	return nil
}

// nError records the fatal/gated terminal state without promoting the
// lineage (spec.md §4.5, N_Error; §7, "Gate errors").
func (e *Engine) nError(ctx context.Context, st *State) error {
	e.audit(st, constants.EventError, map[string]interface{}{
		"reason":  st.Terminal,
		"message": st.ErrorMessage,
	})
	return nil
}
