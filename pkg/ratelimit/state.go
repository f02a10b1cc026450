// Package ratelimit tracks origin rate limit signals per host and gates
// requests until the origin's window resets.
//
// Signals come from the RateLimit-Remaining and RateLimit-Reset response
// headers. A 429 or 503 response carrying Retry-After counts as an exhausted
// window.
package ratelimit

import (
	"time"
)

// Defaults for request gating.
const (
	// DefaultWarningThreshold throttles requests when fewer than this many
	// remain in the window.
	DefaultWarningThreshold = 5

	// DefaultThrottleDelay is the pause applied to throttled requests.
	DefaultThrottleDelay = time.Second
)

// State is the last known rate limit window of one origin host.
type State struct {
	// Remaining is the number of requests the origin still accepts in the window
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was observed
	LastUpdate time.Time `json:"last_update"`
}

// Blocked reports whether the window is exhausted and has not reset yet.
func (s *State) Blocked(now time.Time) bool {
	return s.Remaining <= 0 && now.Before(s.ResetAt)
}

// Throttled reports whether requests should be slowed down.
func (s *State) Throttled(now time.Time, warning int) bool {
	return s.Remaining > 0 && s.Remaining < warning && now.Before(s.ResetAt)
}

// TimeUntilReset returns the duration until the window resets, or 0 if it
// already has.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
