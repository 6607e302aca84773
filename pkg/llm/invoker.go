package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/continuum-labs/govern/pkg/govern"
	"github.com/continuum-labs/govern/pkg/logger"
	"github.com/continuum-labs/govern/pkg/ratelimit"
	"github.com/continuum-labs/govern/pkg/stringutil"
)

var invokeLog = logger.New("llm:invoker")

// CallResult is what a single external-tool invocation reports back to the
// invoker (spec.md §4.3: "classified from the external tool's stderr and
// exit code").
type CallResult struct {
	Output    string
	ModelUsed string
	ExitCode  int
	Stderr    string
	ResetTime *time.Time // reported quota reset time, if the tool provides one
}

// CallFunc performs one external-tool invocation with the given
// credential. A non-nil err indicates the process itself could not be
// run (distinct from the process running and reporting a nonzero exit).
type CallFunc func(ctx context.Context, cred Credential, model, prompt string) (CallResult, error)

// Invoker is the single-call LLM primitive (spec.md §4.3, C3). It hides
// credential selection, rotation, retry, and model-identity verification
// behind Invoke / InvokeStructured.
type Invoker struct {
	Credentials *CredentialStore
	Exhaustion  *ExhaustionRegistry
	APILog      *APILogger
	Call        CallFunc

	// Sleep and Jitter are overridable for deterministic tests.
	Sleep  func(time.Duration)
	Jitter func() float64
}

// NewInvoker wires the three registries together with real sleep/jitter.
func NewInvoker(creds *CredentialStore, exhaustion *ExhaustionRegistry, apiLog *APILogger, call CallFunc) *Invoker {
	return &Invoker{
		Credentials: creds,
		Exhaustion:  exhaustion,
		APILog:      apiLog,
		Call:        call,
		Sleep:       time.Sleep,
		Jitter:      randomJitter,
	}
}

// Invoke produces a string response from model for prompt, handling all
// transient-error classes internally and returning only once a call
// succeeds or every avenue is exhausted (spec.md §4.3).
func (inv *Invoker) Invoke(ctx context.Context, model, prompt string) (string, error) {
	creds, err := inv.Credentials.Enabled()
	if err != nil {
		return "", govern.NewFatalError("llm", "read credential registry", err)
	}
	if len(creds) == 0 {
		return "", govern.NewFatalError("llm", "no enabled credentials registered", nil)
	}

	var lastReason string
	for i, cred := range creds {
		if inv.Exhaustion.IsExhausted(cred.Name) {
			invokeLog.Printf("skipping exhausted credential %s", cred.Name)
			continue
		}

		output, ok, reason := inv.invokeWithCredential(ctx, cred, model, prompt)
		if ok {
			return output, nil
		}
		lastReason = reason

		if i < len(creds)-1 {
			if err := ratelimit.Wait(ctx, ratelimit.OperationCredentialRotate); err != nil {
				return "", govern.NewFatalError("llm", "credential rotation rate limit wait", err)
			}
			inv.APILog.Log(EventCredentialRotated, cred.Name, model, reason, nil)
		}
	}

	inv.APILog.Log(EventAllExhausted, "", model, lastReason, nil)
	return "", govern.NewFatalError("llm", fmt.Sprintf("all credentials exhausted: %s", lastReason), nil)
}

// invokeWithCredential retries a single credential through the
// capacity_exhausted backoff ladder, the rate_limited fixed wait, and a
// single api_error retry, returning ok=false to signal "try the next
// credential" for quota_exhausted, auth_error, and model_downgrade.
func (inv *Invoker) invokeWithCredential(ctx context.Context, cred Credential, model, prompt string) (output string, ok bool, reason string) {
	capacityAttempts := 0
	apiErrorRetried := false

	for {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err().Error()
		default:
		}

		if err := ratelimit.Wait(ctx, ratelimit.OperationLLMInvoke); err != nil {
			return "", false, "llm_invoke rate limit wait: " + err.Error()
		}

		inv.APILog.Log(EventAttempt, cred.Name, model, "", nil)
		result, callErr := inv.Call(ctx, cred, model, prompt)

		var class ErrorClass
		if callErr != nil {
			class = ClassAPIError
			result.Stderr = callErr.Error()
		} else {
			class = Classify(result.Stderr, result.ExitCode)
		}

		if class == ClassNone {
			if classifyDowngrade(model, result.ModelUsed) {
				class = ClassModelDowngrade
			} else {
				inv.APILog.Log(EventSuccess, cred.Name, model, "", nil)
				return result.Output, true, ""
			}
		}

		switch class {
		case ClassCapacityExhausted:
			capacityAttempts++
			inv.APILog.Log(EventCapacityExhausted, cred.Name, model, "", nil)
			if capacityAttempts > maxCapacityRetries {
				return "", false, "capacity_exhausted: retries exceeded"
			}
			inv.Sleep(Backoff(capacityAttempts, inv.Jitter()))
			continue

		case ClassQuotaExhausted:
			until := NextMidnightUTC(time.Now())
			if result.ResetTime != nil {
				until = *result.ResetTime
			}
			if err := inv.Exhaustion.MarkExhausted(cred.Name, until); err != nil {
				invokeLog.Printf("failed to persist exhaustion for %s: %v", cred.Name, err)
			}
			inv.APILog.Log(EventQuotaExhausted, cred.Name, model, "", &until)
			return "", false, "quota_exhausted"

		case ClassRateLimited:
			inv.APILog.Log(EventRateLimited, cred.Name, model, "", nil)
			inv.Sleep(rateLimitWait)
			continue

		case ClassAuthError:
			inv.APILog.Log(EventAuthError, cred.Name, model, "", nil)
			return "", false, "auth_error"

		case ClassModelDowngrade:
			invokeLog.Printf("model downgrade detected: requested=%s got=%s", model, result.ModelUsed)
			return "", false, "model_downgrade"

		case ClassAPIError:
			if apiErrorRetried {
				return "", false, "api_error: " + stringutil.Truncate(result.Stderr, 200)
			}
			apiErrorRetried = true
			continue

		default:
			return "", false, "unknown_error_class"
		}
	}
}

// ReminderPreamble is prepended to the prompt on the single structured-
// output retry (spec.md §4.3, "Structured output").
const ReminderPreamble = "Your previous response could not be parsed as JSON. Respond with ONLY a single valid JSON object and no surrounding prose.\n\n"

// InvokeStructured asks the model for JSON output and validates the shape
// with isValid. On a first parse failure it retries once with
// ReminderPreamble; on a second failure it returns the raw text with
// parseFailure=true rather than an error, so the caller (the Reviewer
// path) can fail-safe to BLOCK (spec.md §4.3, "Structured output").
func (inv *Invoker) InvokeStructured(ctx context.Context, model, prompt string, isValid func(string) bool) (raw string, parseFailure bool, err error) {
	raw, err = inv.Invoke(ctx, model, prompt)
	if err != nil {
		return "", false, err
	}
	if isValid(raw) {
		return raw, false, nil
	}

	raw, err = inv.Invoke(ctx, model, ReminderPreamble+prompt)
	if err != nil {
		return "", false, err
	}
	if isValid(raw) {
		return raw, false, nil
	}

	return raw, true, nil
}
