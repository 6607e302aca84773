package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/continuum-labs/govern/pkg/console"
	"github.com/continuum-labs/govern/pkg/constants"
	"github.com/continuum-labs/govern/pkg/lineage"
	"github.com/spf13/cobra"
)

// NewAuditCommand creates the audit command: the read path spec.md §4.1
// defines a writer for (append_audit) but never a consumer (SPEC_FULL.md
// §12, "govern audit read path"). The audit log, not the terminal display,
// is the authoritative record of a workflow's counters (spec.md §9, Open
// Questions).
func NewAuditCommand() *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit <thread-id>",
		Short: "Print a workflow's audit trail",
		Long: `Audit tails the per-repo audit log (docs/lineage/workflow-audit.jsonl)
and pretty-prints every event recorded for one thread id, in file order.

Example:
  ` + constants.CLIExtensionPrefix + ` audit issue-brief.md-a1b2c3 --repo .`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, args[0])
		},
	}

	auditCmd.Flags().String("repo", ".", "Path to the target repository")
	auditCmd.Flags().Bool("json", false, "Print raw JSON lines instead of a formatted summary")

	return auditCmd
}

func runAudit(cmd *cobra.Command, threadID string) error {
	repoFlag, _ := cmd.Flags().GetString("repo")
	asJSON, _ := cmd.Flags().GetBool("json")

	repo, err := filepath.Abs(repoFlag)
	if err != nil {
		return fmt.Errorf("audit: resolve --repo: %w", err)
	}

	store := lineage.New(repo)
	entries, err := store.ReadAuditLog(threadID)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage(fmt.Sprintf("no audit events found for %q", threadID)))
		return nil
	}

	for _, e := range entries {
		if asJSON {
			line, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("audit: encode event: %w", err)
			}
			fmt.Println(string(line))
			continue
		}
		fmt.Printf("%s  %-12s %s\n", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Event, formatDetails(e.Details))
	}

	if !asJSON {
		printArtifactListing(store, threadID)
	}
	return nil
}

// printArtifactListing shows every lineage artifact recorded for threadID
// alongside its size, so `govern audit` doubles as a quick lineage
// inspection tool without having to shell out to ls.
func printArtifactListing(store *lineage.Store, threadID string) {
	dir := store.ActiveDir(threadID)
	names, err := lineage.ListArtifacts(dir)
	if err != nil || len(names) == 0 {
		dir = store.DoneDir(threadID)
		names, err = lineage.ListArtifacts(dir)
	}
	if err != nil || len(names) == 0 {
		return
	}

	fmt.Println()
	fmt.Println(console.FormatInfoMessage("artifacts"))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		size := "?"
		if err == nil {
			size = console.FormatFileSize(info.Size())
		}
		fmt.Printf("  %-40s %s\n", name, size)
	}
}

func formatDetails(details interface{}) string {
	if details == nil {
		return ""
	}
	b, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	return console.TruncateString(string(b), 160)
}
