package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/continuum-labs/govern/pkg/console"
	"github.com/continuum-labs/govern/pkg/constants"
	"github.com/continuum-labs/govern/pkg/govconfig"
	"github.com/continuum-labs/govern/pkg/llm"
	"github.com/continuum-labs/govern/pkg/tty"
	"github.com/spf13/cobra"
)

// NewCredentialsCommand creates the credentials command group: the
// bootstrap write path for the per-user credential registry spec.md §4.3
// describes the shape of but not the creation of (SPEC_FULL.md §12,
// "Credential registry bootstrap").
func NewCredentialsCommand() *cobra.Command {
	credentialsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the LLM credential registry",
		Long: `Credentials reads and writes the per-user registry the Invoker (spec.md
§4.3, C3) selects from in registry order.

Examples:
  ` + constants.CLIExtensionPrefix + ` credentials add --name work --kind oauth --account-label "work account"
  ` + constants.CLIExtensionPrefix + ` credentials list`,
	}

	credentialsCmd.AddCommand(newCredentialsAddCommand())
	credentialsCmd.AddCommand(newCredentialsListCommand())

	return credentialsCmd
}

func newCredentialsAddCommand() *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialsAdd(cmd)
		},
	}

	addCmd.Flags().String("name", "", "Unique credential name (required)")
	addCmd.Flags().String("kind", string(llm.KindOAuth), "Credential kind: api_key or oauth")
	addCmd.Flags().String("account-label", "", "Human-readable label shown when this credential is selected")
	addCmd.Flags().String("key", "", "API key value, required when --kind=api_key")
	addCmd.Flags().Bool("disabled", false, "Register the credential as disabled")
	addCmd.Flags().Bool("yes", false, "Skip the confirmation prompt when overwriting an existing credential")
	_ = addCmd.MarkFlagRequired("name")

	return addCmd
}

func runCredentialsAdd(cmd *cobra.Command) error {
	name, _ := cmd.Flags().GetString("name")
	kind, _ := cmd.Flags().GetString("kind")
	accountLabel, _ := cmd.Flags().GetString("account-label")
	key, _ := cmd.Flags().GetString("key")
	disabled, _ := cmd.Flags().GetBool("disabled")
	yes, _ := cmd.Flags().GetBool("yes")

	credKind := llm.CredentialKind(kind)
	if credKind != llm.KindAPIKey && credKind != llm.KindOAuth {
		return fmt.Errorf("credentials add: --kind must be %q or %q, got %q", llm.KindAPIKey, llm.KindOAuth, kind)
	}
	if credKind == llm.KindAPIKey && key == "" {
		return errors.New("credentials add: --key is required for --kind=api_key")
	}

	path, err := llm.DefaultCredentialsPath()
	if err != nil {
		return fmt.Errorf("credentials add: resolve registry path: %w", err)
	}
	store := llm.NewCredentialStore(path)

	if !yes {
		ok, err := confirmOverwriteIfExists(store, name)
		if err != nil {
			return fmt.Errorf("credentials add: %w", err)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage("aborted"))
			return nil
		}
	}

	cred := llm.Credential{
		Name:         name,
		Kind:         credKind,
		Enabled:      !disabled,
		AccountLabel: accountLabel,
		Key:          key,
	}
	if err := store.Add(cred); err != nil {
		return fmt.Errorf("credentials add: %w", err)
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("registered credential %q (%s)", name, credKind)))
	return nil
}

// confirmOverwriteIfExists prompts before overwriting an already-registered
// credential (Add silently replaces same-name entries). In AUTO_MODE,
// TEST_MODE, or when stdin has no terminal to answer an interactive prompt,
// it proceeds without asking, matching the Human Gate's own fallback
// policy (pkg/humangate).
func confirmOverwriteIfExists(store *llm.CredentialStore, name string) (bool, error) {
	existing, err := store.List()
	if err != nil {
		return false, err
	}
	found := false
	for _, c := range existing {
		if c.Name == name {
			found = true
			break
		}
	}
	if !found {
		return true, nil
	}

	cfg := govconfig.Load()
	if cfg.AutoMode || cfg.TestMode || !tty.IsStdinTerminal() {
		return true, nil
	}

	return console.ConfirmAction(
		fmt.Sprintf("Credential %q already exists. Overwrite it?", name),
		"Overwrite",
		"Cancel",
	)
}

func newCredentialsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered credentials in try order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialsList()
		},
	}
}

func runCredentialsList() error {
	path, err := llm.DefaultCredentialsPath()
	if err != nil {
		return fmt.Errorf("credentials list: resolve registry path: %w", err)
	}
	store := llm.NewCredentialStore(path)

	creds, err := store.List()
	if err != nil {
		return fmt.Errorf("credentials list: %w", err)
	}
	if len(creds) == 0 {
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage("no credentials registered; see `govern credentials add --help`"))
		return nil
	}

	fmt.Print(console.RenderStruct(creds))
	return nil
}
