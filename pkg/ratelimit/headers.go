package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Response headers read by the tracker, in canonical form so they can key
// http.Header literals.
const (
	HeaderRemaining  = "Ratelimit-Remaining"
	HeaderReset      = "Ratelimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// ParseRetryAfter reads a Retry-After value given in seconds or as an HTTP
// date. Missing, malformed or past values yield 0.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// stateFromResponse derives the window state from a response. ok is false
// when the response carries no rate limit signal.
func stateFromResponse(status int, header http.Header, now time.Time) (state State, ok bool, err error) {
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		if wait := ParseRetryAfter(header.Get(HeaderRetryAfter), now); wait > 0 {
			return State{Remaining: 0, ResetAt: now.Add(wait), LastUpdate: now}, true, nil
		}
	}

	remainStr := header.Get(HeaderRemaining)
	if remainStr == "" {
		return State{}, false, nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return State{}, false, fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := header.Get(HeaderReset)
	if resetStr == "" {
		return State{}, false, fmt.Errorf("%s header missing", HeaderReset)
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return State{}, false, fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	return State{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
	}, true, nil
}
