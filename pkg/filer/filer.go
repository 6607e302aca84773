// Package filer implements the Filer Adapter (spec.md §4.7, C7): the only
// component that talks to the external issue tracker, and only for the
// issue workflow.
package filer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"time"

	"github.com/cli/go-gh/v2"
	"github.com/continuum-labs/govern/pkg/logger"
	"github.com/continuum-labs/govern/pkg/ratelimit"
	"github.com/continuum-labs/govern/pkg/sliceutil"
)

var log = logger.New("filer:adapter")

// labelPalette assigns a deterministic colour to a label by hashing its
// name into a small fixed set, so repeated runs never create the same
// label with a different colour (spec.md §4.7, "ensure_labels").
var labelPalette = []string{"0E8A16", "1D76DB", "5319E7", "B60205", "FBCA04", "C5DEF5"}

func colourFor(label string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return labelPalette[int(h.Sum32())%len(labelPalette)]
}

// Filer publishes approved drafts to the GitHub issue tracker via the gh
// CLI, invoked exclusively with list-form arguments (spec.md §4.7,
// "Security").
type Filer struct {
	// Exec runs a gh CLI command and returns stdout/stderr/error. Defaults
	// to go-gh/v2's Exec, overridable in tests.
	Exec func(args ...string) (stdout, stderr bytes.Buffer, err error)
}

// New returns a Filer wired to the real gh CLI.
func New() *Filer {
	return &Filer{Exec: gh.Exec}
}

// repoArgs returns the "--repo <repo>" flag pair, or nil when repo is
// empty so gh falls back to inferring the repository from the current
// working directory (spec.md §6, "--repo <path>" names the filesystem
// worktree, not necessarily an owner/name slug the tracker CLI expects).
func repoArgs(repo string) []string {
	if repo == "" {
		return nil
	}
	return []string{"--repo", repo}
}

// EnsureLabels guarantees every label in labels exists on repo, creating
// any that are missing with a deterministic colour. Creation failures are
// fatal (spec.md §4.7, "ensure_labels").
func (f *Filer) EnsureLabels(repo string, labels []string) error {
	if err := ratelimit.Wait(context.Background(), ratelimit.OperationFilerAPI); err != nil {
		return fmt.Errorf("filer: rate limit wait: %w", err)
	}

	existing, err := f.listLabels(repo)
	if err != nil {
		return fmt.Errorf("filer: list labels: %w", err)
	}

	var created []string
	for _, label := range labels {
		if existing[label] || sliceutil.Contains(created, label) {
			continue
		}
		args := append([]string{"label", "create", label}, repoArgs(repo)...)
		args = append(args, "--color", colourFor(label), "--force")
		if _, _, err := f.Exec(args...); err != nil {
			return fmt.Errorf("filer: create label %q: %w", label, err)
		}
		created = append(created, label)
		log.Printf("created label %q on %s", label, repo)
	}
	return nil
}

func (f *Filer) listLabels(repo string) (map[string]bool, error) {
	args := append([]string{"label", "list"}, repoArgs(repo)...)
	args = append(args, "--json", "name")
	stdout, _, err := f.Exec(args...)
	if err != nil {
		return nil, err
	}

	names := map[string]bool{}
	for _, line := range strings.Split(stdout.String(), "\n") {
		idx := strings.Index(line, `"name":"`)
		if idx < 0 {
			continue
		}
		rest := line[idx+len(`"name":"`):]
		if end := strings.Index(rest, `"`); end >= 0 {
			names[rest[:end]] = true
		}
	}
	return names, nil
}

// Result is the outcome of a successful CreateIssue call.
type Result struct {
	Number int
	URL    string
}

// Metadata is appended as a footer to the issue body before submission
// (spec.md §4.7, "Appends a metadata footer").
type Metadata struct {
	ReviewerDecision string
	ReviewerModel    string
	FiledAt          time.Time
	ReviewRounds     int
}

// CreateIssue publishes bodyPath (title taken from its first "# " heading,
// body taken verbatim, with a metadata footer appended) to repo with
// labels attached (spec.md §4.7, "create_issue").
func (f *Filer) CreateIssue(repo, bodyPath string, labels []string, meta Metadata) (Result, error) {
	if err := ratelimit.Wait(context.Background(), ratelimit.OperationFilerAPI); err != nil {
		return Result{}, fmt.Errorf("filer: rate limit wait: %w", err)
	}

	title, body, err := readTitleAndBody(bodyPath)
	if err != nil {
		return Result{}, fmt.Errorf("filer: read body: %w", err)
	}
	if title == "" {
		return Result{}, fmt.Errorf("filer: %s has no '# ' heading to use as a title", bodyPath)
	}

	fullBody := body + "\n\n" + renderFooter(meta)

	args := append([]string{"issue", "create"}, repoArgs(repo)...)
	args = append(args, "--title", title, "--body", fullBody)
	for _, label := range labels {
		args = append(args, "--label", label)
	}

	stdout, stderr, err := f.Exec(args...)
	if err != nil {
		return Result{}, fmt.Errorf("filer: create issue: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	url := strings.TrimSpace(stdout.String())
	return Result{Number: extractIssueNumber(url), URL: url}, nil
}

// readTitleAndBody reads path and extracts the first "# " heading as the
// title, returning the full file content as the body.
func readTitleAndBody(path string) (title, body string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	body = string(data)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			break
		}
	}
	return title, body, scanner.Err()
}

// renderFooter formats the metadata footer recorded at the bottom of every
// filed issue body (spec.md §4.7).
func renderFooter(meta Metadata) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "Reviewer decision: %s\n", meta.ReviewerDecision)
	fmt.Fprintf(&b, "Reviewer model: %s\n", meta.ReviewerModel)
	fmt.Fprintf(&b, "Filed: %s\n", meta.FiledAt.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Review rounds: %d\n", meta.ReviewRounds)
	return b.String()
}

// extractIssueNumber pulls the trailing /<number> off a gh issue create
// URL, returning 0 if it can't be parsed (the URL itself remains
// authoritative).
func extractIssueNumber(url string) int {
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(url[idx+1:], "%d", &n); err != nil {
		return 0
	}
	return n
}
