package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/continuum-labs/govern/pkg/checkpoint"
	"github.com/continuum-labs/govern/pkg/console"
	"github.com/continuum-labs/govern/pkg/constants"
	"github.com/continuum-labs/govern/pkg/govconfig"
	"github.com/continuum-labs/govern/pkg/govern"
	"github.com/continuum-labs/govern/pkg/workflow"
	"github.com/spf13/cobra"
)

// NewResumeCommand creates the resume command: the minimal `--all` batch
// driver spec.md marks out of scope beyond the Checkpoint Store's
// list_active operation (spec.md §4.2; SPEC_FULL.md §12, "resume --all
// batch driver's minimal surface").
func NewResumeCommand() *cobra.Command {
	resumeCmd := &cobra.Command{
		Use:   "resume [thread-id]",
		Short: "Resume one paused workflow, or every paused workflow with --all",
		Long: `Resume continues a workflow from its last saved checkpoint. A single
thread id resumes that workflow; --all serially resumes every thread whose
checkpoint has no terminal state set (spec.md §5, "batch execution is
serial").

Examples:
  ` + constants.CLIExtensionPrefix + ` resume issue-brief.md-a1b2c3 --repo .
  ` + constants.CLIExtensionPrefix + ` resume --all --repo .`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd, args)
		},
	}

	resumeCmd.Flags().String("repo", ".", "Path to the target repository")
	resumeCmd.Flags().Bool("all", false, "Resume every active (non-terminal) workflow")

	return resumeCmd
}

func runResume(cmd *cobra.Command, args []string) error {
	repoFlag, _ := cmd.Flags().GetString("repo")
	all, _ := cmd.Flags().GetBool("all")

	if all == (len(args) == 1) {
		return errors.New("resume: pass exactly one of a thread id or --all")
	}

	repo, err := filepath.Abs(repoFlag)
	if err != nil {
		return fmt.Errorf("resume: resolve --repo: %w", err)
	}

	cfg := govconfig.Load()
	engine, cleanup, err := buildEngine(cfg, repo, "claude", cfg.TestMode, "claude-opus", "claude-sonnet", nil)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()

	if !all {
		code, runErr := engine.Resume(ctx, args[0])
		return exitWith(code, runErr)
	}

	ids, err := engine.Checkpoint.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("resume: list active workflows: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage("no active workflows to resume"))
		return nil
	}

	activeDir := filepath.Join(repo, constants.LineageRootDir, constants.LineageActiveDir)
	watcher, watchErr := checkpoint.WatchActiveDir(activeDir)
	if watchErr == nil {
		defer watcher.Close()
	}

	sawPaused := false
	var firstFatal error
	for _, id := range ids {
		fmt.Fprintln(os.Stderr, console.FormatProgressMessage(fmt.Sprintf("resuming %s", id)))
		code, runErr := engine.Resume(ctx, id)
		switch code {
		case workflow.ExitPaused:
			sawPaused = true
		case workflow.ExitError:
			var fatal *govern.FatalError
			if errors.As(runErr, &fatal) && firstFatal == nil {
				firstFatal = fatal
			}
		}
	}

	if firstFatal != nil {
		return exitWith(workflow.ExitError, firstFatal)
	}
	if sawPaused {
		return exitWith(workflow.ExitPaused, nil)
	}
	return exitWith(workflow.ExitApproved, nil)
}
