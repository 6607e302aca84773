package main

import (
	"fmt"
	"os"

	"github.com/continuum-labs/govern/pkg/console"
	"github.com/continuum-labs/govern/pkg/constants"
	"github.com/spf13/cobra"
)

// Build-time variable set by GoReleaser.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     constants.CLIExtensionPrefix,
	Short:   "Drive governance artifacts through draft, review, and filing",
	Version: version,
	Long: `govern — a durable, resumable workflow engine that drives GitHub issue
drafts and Low-Level Designs through iterative rounds of generation,
adversarial review, and human gating.

Common tasks:
  govern run --brief brief.md --repo . --auto   # draft and review an issue
  govern run --issue 62 --repo . --auto         # draft and review an LLD
  govern resume --all --repo .                  # resume interrupted workflows
  govern audit <thread-id> --repo .             # inspect a workflow's audit trail
  govern credentials add                        # register an LLM credential

For detailed help on any command, use:
  govern [command] --help`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "execution", Title: "Execution Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "analysis", Title: "Analysis Commands:"})

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.SetOut(os.Stderr)
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n",
		console.FormatInfoMessage(fmt.Sprintf("%s version {{.Version}}", constants.CLIExtensionPrefix))))

	runCmd := NewRunCommand()
	resumeCmd := NewResumeCommand()
	credentialsCmd := NewCredentialsCommand()
	auditCmd := NewAuditCommand()

	runCmd.GroupID = "execution"
	resumeCmd.GroupID = "execution"
	credentialsCmd.GroupID = "setup"
	auditCmd.GroupID = "analysis"

	rootCmd.AddCommand(runCmd, resumeCmd, credentialsCmd, auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}
