package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/continuum-labs/govern/pkg/checkpoint"
	"github.com/continuum-labs/govern/pkg/constants"
	"github.com/continuum-labs/govern/pkg/filer"
	"github.com/continuum-labs/govern/pkg/govern"
	"github.com/continuum-labs/govern/pkg/humangate"
	"github.com/continuum-labs/govern/pkg/lineage"
	"github.com/continuum-labs/govern/pkg/llm"
	"github.com/continuum-labs/govern/pkg/logger"
)

var log = logger.New("workflow:engine")

// Exit codes (spec.md §6, "CLI contract (surface, not design)").
const (
	ExitApproved = 0
	ExitError    = 1
	ExitPaused   = 2
)

// Engine wires together every component the Workflow Graph coordinates.
type Engine struct {
	Lineage    *lineage.Store
	Checkpoint *checkpoint.Store
	Invoker    *llm.Invoker
	Gate       *humangate.Gate
	Filer      *filer.Filer

	DrafterModel  string
	ReviewerModel string

	// LoadReviewerPrompt resolves the versioned reviewer system
	// instruction; defaults to defaultReviewerPrompt.
	LoadReviewerPrompt ReviewerPromptLoader

	// Labels are attached to filed issues (issue workflow only).
	Labels []string

	// MaxIterationsLLD / MaxIterationsIssue override the default
	// iteration bounds (spec.md §4.5, "Iteration bound").
	MaxIterationsLLD   int
	MaxIterationsIssue int

	nodes map[string]func(context.Context, *State) error
}

// New returns an Engine with its node dispatch table initialized.
func New(lineageStore *lineage.Store, checkpointStore *checkpoint.Store, invoker *llm.Invoker, gate *humangate.Gate, f *filer.Filer) *Engine {
	e := &Engine{
		Lineage:            lineageStore,
		Checkpoint:         checkpointStore,
		Invoker:            invoker,
		Gate:               gate,
		Filer:              f,
		LoadReviewerPrompt: defaultReviewerPrompt,
		MaxIterationsLLD:   constants.DefaultMaxIterationsLLD,
		MaxIterationsIssue: constants.DefaultMaxIterationsIssue,
	}
	e.nodes = map[string]func(context.Context, *State) error{
		NodeIngest:    e.nIngest,
		NodeDraft:     e.nDraft,
		NodeReview:    e.nReview,
		NodeHumanEdit: e.nHumanEdit,
		NodeFile:      e.nFile,
		NodeFinalize:  e.nFinalize,
		NodeError:     e.nError,
	}
	return e
}

func (e *Engine) maxIterations(workflowType string) int {
	if workflowType == constants.WorkflowTypeLLD {
		return e.MaxIterationsLLD
	}
	return e.MaxIterationsIssue
}

func (e *Engine) audit(st *State, event string, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["run_id"] = st.RunID
	e.Lineage.AppendAudit(st.WorkflowType, st.TargetID, event, details)
}

func (e *Engine) saveCheckpoint(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return govern.NewFatalError("checkpoint", "marshal workflow state", err)
	}
	if err := e.Checkpoint.Save(ctx, st.ThreadID, data, st.Terminal); err != nil {
		return govern.NewFatalError("checkpoint", "save checkpoint", err)
	}
	return nil
}

// Run drives st through the node graph until it pauses, reaches a
// terminal state, or hits a fatal error, returning the exit code the CLI
// contract promises (spec.md §6).
func (e *Engine) Run(ctx context.Context, st *State) (int, error) {
	for {
		if st.Terminal != "" {
			// Gate errors set Terminal and route to N_Error; run it once so
			// the error audit event is recorded before returning.
			if st.NextNode == NodeError {
				st.NextNode = ""
				_ = e.nError(ctx, st)
				if err := e.saveCheckpoint(ctx, st); err != nil {
					return ExitError, err
				}
			}
			if st.Terminal == constants.TerminalApprovedFiled {
				return ExitApproved, nil
			}
			return ExitError, nil
		}

		node := st.NextNode
		if node == "" {
			node = NodeIngest
		}

		if err := e.saveCheckpoint(ctx, st); err != nil {
			return ExitError, err
		}

		fn, ok := e.nodes[node]
		if !ok {
			return ExitError, fmt.Errorf("workflow: unknown node %q", node)
		}

		log.Printf("entering node %s thread=%s", node, st.ThreadID)
		nodeErr := fn(ctx, st)

		if nodeErr != nil {
			if checkpoint.IsPauseRequested(nodeErr) {
				e.audit(st, constants.EventHumanPause, map[string]interface{}{"node": node})
				log.Printf("paused at node %s thread=%s", node, st.ThreadID)
				return ExitPaused, nil
			}

			var fatal *govern.FatalError
			if errors.As(nodeErr, &fatal) {
				st.ErrorMessage = fatal.Error()
				st.Terminal = constants.TerminalFatal
				e.audit(st, constants.EventError, map[string]interface{}{"reason": fatal.Reason, "node": node})
				_ = e.saveCheckpoint(ctx, st)
				return ExitError, fatal
			}
			return ExitError, nodeErr
		}

		if err := e.saveCheckpoint(ctx, st); err != nil {
			return ExitError, err
		}
	}
}

// Resume loads the checkpoint for threadID and continues execution from
// the pending node, emitting the "resume" audit event on entry
// (spec.md §4.2, "Resume behaviour"; §4.6, "the same prompt re-appears").
func (e *Engine) Resume(ctx context.Context, threadID string) (int, error) {
	data, terminal, found, err := e.Checkpoint.Load(ctx, threadID)
	if err != nil {
		return ExitError, govern.NewFatalError("checkpoint", "load checkpoint", err)
	}
	if !found {
		return ExitError, fmt.Errorf("workflow: no checkpoint for thread %q", threadID)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return ExitError, govern.NewFatalError("checkpoint", "unmarshal workflow state", err)
	}
	st.Terminal = terminal

	if st.Terminal != "" {
		log.Printf("resume: thread=%s already terminal=%s, no-op", threadID, st.Terminal)
		if st.Terminal == constants.TerminalApprovedFiled {
			return ExitApproved, nil
		}
		return ExitError, nil
	}

	e.audit(&st, constants.EventResume, map[string]interface{}{"node": st.NextNode})
	return e.Run(ctx, &st)
}
