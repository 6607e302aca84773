package llm

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// NewSubprocessCall returns a CallFunc that invokes the external LLM tool
// at toolPath once per call, mirroring the Filer's list-form subprocess
// contract (spec.md §4.3, "classified from the external tool's stderr and
// exit code"; §4.7 "Security" for the no-shell-interpolation convention
// this also follows). The tool receives the prompt on stdin and the
// requested model and credential via flags; it is expected to print the
// model it actually used as the first line of stdout, prefixed
// "model: ", with the response body following.
func NewSubprocessCall(toolPath string) CallFunc {
	return func(ctx context.Context, cred Credential, model, prompt string) (CallResult, error) {
		args := []string{"--model", model}
		if cred.Key != "" {
			args = append(args, "--api-key", cred.Key)
		} else if cred.Name != "" {
			args = append(args, "--credential", cred.Name)
		}

		cmd := exec.CommandContext(ctx, toolPath, args...)
		cmd.Stdin = strings.NewReader(prompt)
		cmd.Env = os.Environ()

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()

		exitCode := 0
		if runErr != nil {
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				return CallResult{}, runErr
			}
		}

		output, modelUsed := splitModelHeader(stdout.String(), model)
		return CallResult{
			Output:    output,
			ModelUsed: modelUsed,
			ExitCode:  exitCode,
			Stderr:    stderr.String(),
		}, nil
	}
}

// splitModelHeader extracts a leading "model: <name>" line if present,
// falling back to the requested model when the tool doesn't report one.
func splitModelHeader(raw, requested string) (body, modelUsed string) {
	const prefix = "model: "
	if !strings.HasPrefix(raw, prefix) {
		return raw, requested
	}
	nl := strings.IndexByte(raw, '\n')
	if nl < 0 {
		return "", strings.TrimSpace(strings.TrimPrefix(raw, prefix))
	}
	header := strings.TrimSpace(strings.TrimPrefix(raw[:nl], prefix))
	return raw[nl+1:], header
}
