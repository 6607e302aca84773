package llm

import (
	"regexp"
	"strings"

	"github.com/continuum-labs/govern/pkg/gitutil"
)

// ErrorClass is the taxonomy an external tool's stderr and exit code are
// classified into (spec.md §4.3, "Error taxonomy").
type ErrorClass string

// Known error classes.
const (
	ClassCapacityExhausted ErrorClass = "capacity_exhausted"
	ClassQuotaExhausted    ErrorClass = "quota_exhausted"
	ClassRateLimited       ErrorClass = "rate_limited"
	ClassAuthError         ErrorClass = "auth_error"
	ClassModelDowngrade    ErrorClass = "model_downgrade"
	ClassAPIError          ErrorClass = "api_error"
	ClassNone              ErrorClass = "" // success
)

var (
	capacityPattern = regexp.MustCompile(`(?i)\b529\b|overloaded|capacity`)
	quotaPattern    = regexp.MustCompile(`(?i)quota|daily limit|usage limit`)
	rateLimPattern  = regexp.MustCompile(`(?i)rate.?limit|429|too many requests`)
	authPattern     = regexp.MustCompile(`(?i)unauthorized|forbidden|invalid.*(api.?key|credential)|not logged in|401|403`)
)

// Classify inspects an external tool invocation's stderr and exit code and
// returns the error class driving the retry strategy (spec.md §4.3). A
// zero exit code with no model mismatch is success (ClassNone); callers
// check model identity separately via modelUsed.
func Classify(stderr string, exitCode int) ErrorClass {
	if exitCode == 0 {
		return ClassNone
	}

	switch {
	case capacityPattern.MatchString(stderr):
		return ClassCapacityExhausted
	case quotaPattern.MatchString(stderr):
		return ClassQuotaExhausted
	case rateLimPattern.MatchString(stderr):
		return ClassRateLimited
	case authPattern.MatchString(stderr) || gitutil.IsAuthError(stderr):
		return ClassAuthError
	default:
		return ClassAPIError
	}
}

// classifyDowngrade reports whether modelUsed (as claimed by the external
// tool) differs from the model requested — a silent downgrade to a
// smaller model, which this domain treats as a correctness issue rather
// than a successful call (spec.md §4.3, "Model-identity verification").
func classifyDowngrade(requestedModel, modelUsed string) bool {
	if modelUsed == "" {
		return false // tool did not report a model; nothing to verify
	}
	return !strings.EqualFold(strings.TrimSpace(requestedModel), strings.TrimSpace(modelUsed))
}
