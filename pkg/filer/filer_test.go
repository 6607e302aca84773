package filer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBody(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "draft.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEnsureLabelsCreatesOnlyMissing(t *testing.T) {
	var created []string
	f := &Filer{
		Exec: func(args ...string) (bytes.Buffer, bytes.Buffer, error) {
			if args[0] == "label" && args[1] == "list" {
				var out bytes.Buffer
				out.WriteString(`{"name":"existing"}`)
				return out, bytes.Buffer{}, nil
			}
			created = append(created, args[2])
			return bytes.Buffer{}, bytes.Buffer{}, nil
		},
	}

	err := f.EnsureLabels("owner/repo", []string{"existing", "new-one"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new-one"}, created)
}

func TestEnsureLabelsPropagatesCreationFailure(t *testing.T) {
	f := &Filer{
		Exec: func(args ...string) (bytes.Buffer, bytes.Buffer, error) {
			if args[0] == "label" && args[1] == "list" {
				return bytes.Buffer{}, bytes.Buffer{}, nil
			}
			return bytes.Buffer{}, bytes.Buffer{}, assertErr
		},
	}

	err := f.EnsureLabels("owner/repo", []string{"missing"})
	assert.Error(t, err)
}

var assertErr = &testExecError{}

type testExecError struct{}

func (e *testExecError) Error() string { return "label create failed" }

func TestCreateIssueExtractsTitleAndAppendsFooter(t *testing.T) {
	path := writeBody(t, "# My Issue Title\n\nSome body text.\n")

	var gotArgs []string
	f := &Filer{
		Exec: func(args ...string) (bytes.Buffer, bytes.Buffer, error) {
			gotArgs = args
			var out bytes.Buffer
			out.WriteString("https://github.com/owner/repo/issues/42\n")
			return out, bytes.Buffer{}, nil
		},
	}

	meta := Metadata{
		ReviewerDecision: "APPROVED",
		ReviewerModel:    "reviewer-model",
		FiledAt:          time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		ReviewRounds:     2,
	}
	result, err := f.CreateIssue("owner/repo", path, []string{"governance"}, meta)
	require.NoError(t, err)
	assert.Equal(t, 42, result.Number)
	assert.Equal(t, "https://github.com/owner/repo/issues/42", result.URL)

	foundTitle := false
	foundBody := false
	for i, a := range gotArgs {
		if a == "--title" && gotArgs[i+1] == "My Issue Title" {
			foundTitle = true
		}
		if a == "--body" {
			assert.Contains(t, gotArgs[i+1], "Reviewer decision: APPROVED")
			assert.Contains(t, gotArgs[i+1], "Review rounds: 2")
			foundBody = true
		}
	}
	assert.True(t, foundTitle)
	assert.True(t, foundBody)
}

func TestCreateIssueFailsWithoutHeading(t *testing.T) {
	path := writeBody(t, "no heading here\n")
	f := &Filer{Exec: func(args ...string) (bytes.Buffer, bytes.Buffer, error) {
		return bytes.Buffer{}, bytes.Buffer{}, nil
	}}

	_, err := f.CreateIssue("owner/repo", path, nil, Metadata{})
	assert.Error(t, err)
}

func TestColourForIsDeterministic(t *testing.T) {
	assert.Equal(t, colourFor("governance"), colourFor("governance"))
}

func TestCreateIssueOmitsRepoFlagWhenEmpty(t *testing.T) {
	path := writeBody(t, "# Title\n\nbody\n")
	var gotArgs []string
	f := &Filer{Exec: func(args ...string) (bytes.Buffer, bytes.Buffer, error) {
		gotArgs = args
		var out bytes.Buffer
		out.WriteString("https://github.com/owner/repo/issues/7\n")
		return out, bytes.Buffer{}, nil
	}}

	_, err := f.CreateIssue("", path, nil, Metadata{})
	require.NoError(t, err)
	assert.NotContains(t, gotArgs, "--repo")
}
