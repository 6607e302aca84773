package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONApproved(t *testing.T) {
	raw := `{"decision":"approved","blocking_issues":[],"suggestions":["nit: rename var"]}`
	v := Parse(raw, "claude-reviewer")
	assert.Equal(t, Approved, v.Decision)
	assert.Empty(t, v.BlockingIssues)
	assert.Equal(t, []string{"nit: rename var"}, v.Suggestions)
	assert.False(t, v.ParseFailure)
}

func TestParseJSONBlockWithCodeFence(t *testing.T) {
	raw := "```json\n{\"decision\":\"BLOCK\",\"blocking_issues\":[\"define worktree scope\"]}\n```"
	v := Parse(raw, "claude-reviewer")
	assert.Equal(t, Block, v.Decision)
	assert.Equal(t, []string{"define worktree scope"}, v.BlockingIssues)
}

func TestParseJSONInvalidDecisionFallsThroughToMarkdown(t *testing.T) {
	raw := "{\"decision\":\"MAYBE\"}\n\n## Verdict\n\n- [x] APPROVED\n"
	v := Parse(raw, "m")
	assert.Equal(t, Approved, v.Decision)
}

func TestParseMarkdownApproved(t *testing.T) {
	raw := `
## Verdict

- [x] APPROVED
- [ ] REVISE
- [ ] DISCUSS
`
	v := Parse(raw, "gpt-reviewer")
	assert.Equal(t, Approved, v.Decision)
	assert.False(t, v.ParseFailure)
}

func TestParseMarkdownBlockWithTierLists(t *testing.T) {
	raw := `
## Verdict

- [x] REVISE

## Tier 1

- define worktree scope
- add observability
- define worktree scope

## Tier 2

- consider caching

## Suggestions

- rename the package
`
	v := Parse(raw, "reviewer")
	require.Equal(t, Block, v.Decision)
	assert.Equal(t, []string{"define worktree scope", "add observability"}, v.BlockingIssues)
	assert.Equal(t, []string{"consider caching"}, v.HighPriorityIssues)
	assert.Equal(t, []string{"rename the package"}, v.Suggestions)
}

func TestParseMarkdownDiscuss(t *testing.T) {
	raw := "## Verdict\n\n- [x] DISCUSS\n"
	v := Parse(raw, "reviewer")
	assert.Equal(t, Discuss, v.Decision)
}

func TestParseUnparseableFailsClosedToBlock(t *testing.T) {
	raw := "I think this looks fine overall, ship it!"
	v := Parse(raw, "reviewer")
	assert.Equal(t, Block, v.Decision)
	assert.Equal(t, []string{ParseFailureReason}, v.BlockingIssues)
	assert.True(t, v.ParseFailure)
	assert.Equal(t, raw, v.RawText)
}

func TestParseDeduplicatesBlockingIssuesCaseInsensitive(t *testing.T) {
	raw := `{"decision":"BLOCK","blocking_issues":["Define worktree scope","define WORKTREE scope","add logging"]}`
	v := Parse(raw, "reviewer")
	assert.Equal(t, []string{"Define worktree scope", "add logging"}, v.BlockingIssues)
}

func TestMergeRequirementsNeverShrinksAndDedupes(t *testing.T) {
	acc := MergeRequirements(nil, []string{"define worktree scope", "add observability"})
	assert.Equal(t, []string{"define worktree scope", "add observability"}, acc)

	acc = MergeRequirements(acc, []string{"Define Worktree Scope", "add tests"})
	assert.Equal(t, []string{"define worktree scope", "add observability", "add tests"}, acc)

	// A later round with fewer issues must not remove anything already accumulated.
	acc2 := MergeRequirements(acc, nil)
	assert.Equal(t, acc, acc2)
	assert.GreaterOrEqual(t, len(acc2), len(acc))
}
