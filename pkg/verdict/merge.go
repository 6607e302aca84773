package verdict

import "github.com/continuum-labs/govern/pkg/stringutil"

// MergeRequirements appends every blockingIssue whose normalized text is
// not already present in accumulated, preserving order and never removing
// an existing entry (spec.md §4.4, "Accumulated requirements update";
// §3 invariant I3; §9 "Requirement accumulation prevents regression").
//
// Callers must not "trim" a requirement once satisfied: the accumulated
// list is the only mechanism that makes convergence monotonic.
func MergeRequirements(accumulated []string, blockingIssues []string) []string {
	seen := make(map[string]bool, len(accumulated))
	for _, r := range accumulated {
		seen[stringutil.NormalizeRequirementText(r)] = true
	}

	merged := append([]string(nil), accumulated...)
	for _, issue := range blockingIssues {
		key := stringutil.NormalizeRequirementText(issue)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, issue)
	}
	return merged
}
