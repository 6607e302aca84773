package llm

import (
	"math/rand"
	"time"
)

const (
	backoffBase       = 30 * time.Second
	backoffCap        = 600 * time.Second
	backoffJitterFrac = 0.2
	maxCapacityRetries = 20
	rateLimitWait      = 60 * time.Second
)

// Backoff computes the delay for the n-th capacity_exhausted retry
// (1-indexed), implementing spec.md §4.3's formula:
//
//	d_n = min(base * 2^(n-1) * (1 ± 0.2*U), cap), U uniform in [-1, 1]
//
// jitter must return a value in [-1, 1]; pass rand.Float64()*2-1 in
// production and a fixed value in tests for determinism.
func Backoff(n int, jitter float64) time.Duration {
	if n < 1 {
		n = 1
	}
	if jitter < -1 {
		jitter = -1
	}
	if jitter > 1 {
		jitter = 1
	}

	pow := 1 << uint(n-1)
	base := float64(backoffBase) * float64(pow)
	jittered := base * (1 + backoffJitterFrac*jitter)
	if jittered < 0 {
		jittered = 0
	}
	if jittered > float64(backoffCap) {
		return backoffCap
	}
	return time.Duration(jittered)
}

// randomJitter returns a uniform value in [-1, 1] using the package's
// default random source.
func randomJitter() float64 {
	return rand.Float64()*2 - 1
}
