/*
Package retry implements the retry/backoff policy described in
spec.md §4.E: the policy is a pure function of (attempt, reason) that
the effect executors call to decide how long to wait before a
reconnect attempt, or whether to give up entirely.

It is grounded on the Config/Status shape of cuemby/warren/pkg/health
(Interval/Timeout/Retries, a consecutive-failure counter that flips a
status once a threshold is reached) generalized from a fixed container
health-check retry count into the three policies spec.md requires:
None, Linear, and Exponential backoff, each able to exclude certain
HTTP status codes from retry altogether.
*/
package retry

import (
	"time"
)

// Reason carries enough information about a failure for a Policy to
// decide whether to keep retrying, mirroring the excluded_status_codes
// knob in spec.md's Linear/Exponential policies.
type Reason struct {
	StatusCode int
	Err        error
}

// Decision is what a Policy returns for one attempt.
type Decision struct {
	// GiveUp, when true, means the caller should stop retrying and
	// emit the engine's *GiveUp event instead of *Failure.
	GiveUp bool

	// Delay is how long to wait before the next attempt, valid only
	// when GiveUp is false.
	Delay time.Duration
}

// Policy computes the next decision for a given attempt count (1-based,
// per spec.md: "attempts start at 1 for the first reconnect") and
// failure reason.
type Policy interface {
	Next(attempt int, reason Reason) Decision
}

// None never retries: the first failure is a give-up.
type None struct{}

func (None) Next(int, Reason) Decision { return Decision{GiveUp: true} }

// Linear retries up to MaxAttempts times with a constant delay between
// attempts.
type Linear struct {
	Delay              time.Duration
	MaxAttempts        int
	ExcludedStatusCode map[int]struct{}
}

// NewLinear builds a Linear policy, treating a non-positive MaxAttempts
// as "retry forever".
func NewLinear(delay time.Duration, maxAttempts int, excluded ...int) Linear {
	return Linear{Delay: delay, MaxAttempts: maxAttempts, ExcludedStatusCode: toSet(excluded)}
}

func (l Linear) Next(attempt int, reason Reason) Decision {
	if excluded(l.ExcludedStatusCode, reason) {
		return Decision{GiveUp: true}
	}
	if l.MaxAttempts > 0 && attempt >= l.MaxAttempts {
		return Decision{GiveUp: true}
	}
	return Decision{Delay: l.Delay}
}

// Exponential retries up to MaxAttempts times, doubling the delay each
// attempt starting from Min and capping at Max.
type Exponential struct {
	Min                time.Duration
	Max                time.Duration
	MaxAttempts        int
	ExcludedStatusCode map[int]struct{}
}

// NewExponential builds an Exponential policy.
func NewExponential(min, max time.Duration, maxAttempts int, excluded ...int) Exponential {
	return Exponential{Min: min, Max: max, MaxAttempts: maxAttempts, ExcludedStatusCode: toSet(excluded)}
}

func (e Exponential) Next(attempt int, reason Reason) Decision {
	if excluded(e.ExcludedStatusCode, reason) {
		return Decision{GiveUp: true}
	}
	if e.MaxAttempts > 0 && attempt >= e.MaxAttempts {
		return Decision{GiveUp: true}
	}
	delay := e.Min
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= e.Max {
			delay = e.Max
			break
		}
	}
	if delay > e.Max {
		delay = e.Max
	}
	return Decision{Delay: delay}
}

func toSet(codes []int) map[int]struct{} {
	if len(codes) == 0 {
		return nil
	}
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

func excluded(set map[int]struct{}, reason Reason) bool {
	if set == nil || reason.StatusCode == 0 {
		return false
	}
	_, ok := set[reason.StatusCode]
	return ok
}
