package stringutil

import (
	"regexp"
	"strings"
)

var nonSlugChar = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of non alphanumeric characters
// into a single hyphen, trimming leading/trailing hyphens. It is used to
// build the {workflow_type}-{target_id}-{slug} thread id (spec.md §3
// Workflow State) from free-form brief names and issue titles.
func Slugify(s string) string {
	lowered := strings.ToLower(s)
	slug := nonSlugChar.ReplaceAllString(lowered, "-")
	return strings.Trim(slug, "-")
}

// NormalizeRequirementText lower-cases and collapses internal whitespace so
// that two differently-formatted renderings of the same blocking issue
// compare equal. Used by the verdict parser's de-duplication (spec.md §4.4,
// "duplicate blocking issues ... de-duplicated by case-insensitive
// equality") and by the accumulated-requirements merge (spec.md §4.4,
// "normalized text (lower-case, whitespace-collapsed)").
func NormalizeRequirementText(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}
