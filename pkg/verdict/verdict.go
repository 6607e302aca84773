// Package verdict implements the Verdict Parser (spec.md §4.4, C4): it
// converts reviewer output — JSON or free-form markdown — into a
// structured Verdict, failing closed to BLOCK whenever the output cannot
// be confidently understood as an approval.
package verdict

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/continuum-labs/govern/pkg/constants"
	"github.com/continuum-labs/govern/pkg/logger"
	"github.com/continuum-labs/govern/pkg/stringutil"
)

var log = logger.New("verdict:parser")

// Decision is one of the allowed review outcomes (spec.md §3, Verdict).
type Decision string

// Allowed decisions.
const (
	Approved Decision = constants.DecisionApproved
	Block    Decision = constants.DecisionBlock
	Discuss  Decision = constants.DecisionDiscuss
)

var allowedDecisions = map[Decision]bool{Approved: true, Block: true, Discuss: true}

// ParseFailureReason is recorded when the reviewer's output could not be
// understood at all (spec.md §4.3, "raw_response_parse_failure").
const ParseFailureReason = "Verdict could not be parsed"

// Verdict is the structured result of one review (spec.md §3).
type Verdict struct {
	Decision            Decision `json:"decision"`
	BlockingIssues      []string `json:"blocking_issues"`
	HighPriorityIssues  []string `json:"high_priority_issues"`
	Suggestions         []string `json:"suggestions"`
	ReviewerModel       string   `json:"reviewer_model"`
	RawText             string   `json:"raw_text"`
	ParseFailure        bool     `json:"parse_failure,omitempty"`
}

// jsonCandidate is the shape a well-behaved reviewer emits when asked for
// structured JSON output.
type jsonCandidate struct {
	Decision           string   `json:"decision"`
	BlockingIssues     []string `json:"blocking_issues"`
	HighPriorityIssues []string `json:"high_priority_issues"`
	Suggestions        []string `json:"suggestions"`
}

var (
	verdictHeading  = regexp.MustCompile(`(?im)^##\s*verdict\b`)
	tier1Heading    = regexp.MustCompile(`(?im)^##\s*tier\s*1\b`)
	tier2Heading    = regexp.MustCompile(`(?im)^##\s*tier\s*2\b`)
	suggestHeading  = regexp.MustCompile(`(?im)^##\s*suggestions?\b`)
	anyHeading      = regexp.MustCompile(`(?m)^##\s`)
	checkedBox      = regexp.MustCompile(`(?i)\[(x|X)\]\s*(APPROVED|REVISE|BLOCK|DISCUSS)`)
	bulletLine      = regexp.MustCompile(`^\s*[-*]\s+(.*\S)\s*$`)
)

// Parse converts reviewerModel's raw output into a Verdict, applying the
// rules in spec.md §4.4 in order: JSON-first, then markdown checkbox
// fallback, then fail-closed BLOCK.
func Parse(rawText, reviewerModel string) Verdict {
	if v, ok := parseJSON(rawText); ok {
		v.ReviewerModel = reviewerModel
		v.RawText = rawText
		return normalize(v)
	}

	if v, ok := parseMarkdown(rawText); ok {
		v.ReviewerModel = reviewerModel
		v.RawText = rawText
		return normalize(v)
	}

	log.Printf("reviewer output unparseable, failing closed to BLOCK")
	return Verdict{
		Decision:       Block,
		BlockingIssues: []string{ParseFailureReason},
		ReviewerModel:  reviewerModel,
		RawText:        rawText,
		ParseFailure:   true,
	}
}

// parseJSON implements rule 1: valid JSON with a decision field.
func parseJSON(raw string) (Verdict, bool) {
	trimmed := strings.TrimSpace(raw)
	trimmed = stripCodeFence(trimmed)
	if trimmed == "" || trimmed[0] != '{' {
		return Verdict{}, false
	}

	var c jsonCandidate
	if err := json.Unmarshal([]byte(trimmed), &c); err != nil {
		return Verdict{}, false
	}
	if c.Decision == "" {
		return Verdict{}, false
	}

	decision := Decision(strings.ToUpper(strings.TrimSpace(c.Decision)))
	if !allowedDecisions[decision] {
		return Verdict{}, false
	}

	return Verdict{
		Decision:           decision,
		BlockingIssues:     c.BlockingIssues,
		HighPriorityIssues: c.HighPriorityIssues,
		Suggestions:        c.Suggestions,
	}, true
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ``` fence,
// a common wrapping a reviewer LLM adds around JSON output.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.SplitN(s, "\n", 2)
	if len(lines) < 2 {
		return s
	}
	body := lines[1]
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

// parseMarkdown implements rules 2 and 3: scan for a "## Verdict" section
// with a checked box, then extract bullet lists under "## Tier 1" (and the
// analogous "## Tier 2" / "## Suggestions" headings for non-blocking
// guidance).
func parseMarkdown(raw string) (Verdict, bool) {
	loc := verdictHeading.FindStringIndex(raw)
	if loc == nil {
		return Verdict{}, false
	}
	section := raw[loc[1]:]
	if end := anyHeading.FindStringIndex(section); end != nil {
		section = section[:end[0]]
	}

	m := checkedBox.FindStringSubmatch(section)
	if m == nil {
		return Verdict{}, false
	}

	keyword := strings.ToUpper(m[2])
	var decision Decision
	switch keyword {
	case "APPROVED":
		decision = Approved
	case "REVISE", "BLOCK":
		decision = Block
	case "DISCUSS":
		decision = Discuss
	default:
		return Verdict{}, false
	}

	return Verdict{
		Decision:           decision,
		BlockingIssues:     extractBullets(raw, tier1Heading),
		HighPriorityIssues: extractBullets(raw, tier2Heading),
		Suggestions:        extractBullets(raw, suggestHeading),
	}, true
}

// extractBullets enumerates bullet lines immediately under the first
// heading matched by re, stopping at the next "## " heading.
func extractBullets(raw string, re *regexp.Regexp) []string {
	loc := re.FindStringIndex(raw)
	if loc == nil {
		return nil
	}
	section := raw[loc[1]:]
	if end := anyHeading.FindStringIndex(section); end != nil {
		section = section[:end[0]]
	}

	var bullets []string
	for _, line := range strings.Split(section, "\n") {
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[1])
		if text != "" {
			bullets = append(bullets, text)
		}
	}
	return bullets
}

// normalize strips whitespace, discards empty bullets, and de-duplicates
// blocking issues within a single verdict by case-insensitive equality
// (spec.md §4.4, "Normalization").
func normalize(v Verdict) Verdict {
	v.BlockingIssues = dedupeTrimmed(v.BlockingIssues)
	v.HighPriorityIssues = dedupeTrimmed(v.HighPriorityIssues)
	v.Suggestions = dedupeTrimmed(v.Suggestions)
	return v
}

func dedupeTrimmed(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := stringutil.NormalizeRequirementText(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}
