package cache

import (
	"net/http"
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Freshness decides whether a stored response may be reused as is.
type Freshness struct {
	clock Clock
}

// NewFreshness returns an evaluator using clock, or SystemClock when nil.
func NewFreshness(clock Clock) Freshness {
	if clock == nil {
		clock = SystemClock
	}
	return Freshness{clock: clock}
}

// Age returns how old resp is, measured from its Date header or, when that
// is missing or unparseable, from ReceivedAt.
func (f Freshness) Age(resp *Response) time.Duration {
	origin := resp.ReceivedAt
	if raw := resp.Header.Get(HeaderDate); raw != "" {
		if date, err := http.ParseTime(raw); err == nil {
			origin = date
		}
	}
	return f.clock.Now().Sub(origin)
}

// IsFresh reports whether resp can be served without contacting the origin.
// Only max-age bounds the lifetime; without it a response stays fresh until
// it is overwritten. no-cache and no-store were settled at store time and are
// not looked at here.
func (f Freshness) IsFresh(resp *Response) bool {
	maxAge, ok := ParseHeader(resp.Header).MaxAge()
	if !ok {
		return true
	}
	return f.Age(resp) < maxAge
}
