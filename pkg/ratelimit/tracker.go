package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	remainingGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "httpcache_ratelimit_remaining",
		Help: "Requests remaining in the origin's current rate limit window",
	}, []string{"host"})

	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpcache_ratelimit_blocks_total",
		Help: "Total origin requests blocked because the rate limit window is exhausted",
	}, []string{"host"})

	throttlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpcache_ratelimit_throttles_total",
		Help: "Total origin requests delayed because the rate limit window is nearly exhausted",
	}, []string{"host"})
)

// ErrBlocked is matched by errors.Is for every *BlockedError.
var ErrBlocked = errors.New("origin rate limit exhausted")

// BlockedError is returned by Allow while a host's window is exhausted.
type BlockedError struct {
	Host       string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("%v for %s, retry in %v", ErrBlocked, e.Host, e.RetryAfter.Round(time.Second))
}

// Unwrap returns ErrBlocked.
func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}

// Tracker records origin rate limit state and gates requests.
type Tracker struct {
	store    StateStore
	warning  int
	throttle time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithWarningThreshold sets the remaining count below which requests are
// throttled. Zero disables throttling.
func WithWarningThreshold(n int) TrackerOption {
	return func(t *Tracker) { t.warning = n }
}

// WithThrottleDelay sets the pause applied to throttled requests.
func WithThrottleDelay(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.throttle = d }
}

// WithNow replaces the tracker's time source.
func WithNow(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a new rate limit tracker.
func NewTracker(store StateStore, logger zerolog.Logger, opts ...TrackerOption) *Tracker {
	if store == nil {
		panic("ratelimit: state store must not be nil")
	}

	t := &Tracker{
		store:    store,
		warning:  DefaultWarningThreshold,
		throttle: DefaultThrottleDelay,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the stored state of host, or nil if none is known.
func (t *Tracker) State(ctx context.Context, host string) (*State, error) {
	return t.store.Get(ctx, host)
}

// Observe updates the state of host from an origin response. Responses
// without rate limit signals leave the state untouched.
func (t *Tracker) Observe(ctx context.Context, host string, status int, header http.Header) error {
	state, ok, err := stateFromResponse(status, header, t.now())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := t.store.Set(ctx, host, state); err != nil {
		return err
	}

	remainingGauge.WithLabelValues(host).Set(float64(state.Remaining))

	now := t.now()
	switch {
	case state.Blocked(now):
		t.logger.Error().
			Str("host", host).
			Time("reset_at", state.ResetAt).
			Msg("Origin rate limit exhausted - requests will be blocked")
	case state.Throttled(now, t.warning):
		t.logger.Warn().
			Str("host", host).
			Int("remaining", state.Remaining).
			Msg("Origin rate limit low - requests will be throttled")
	default:
		t.logger.Debug().
			Str("host", host).
			Int("remaining", state.Remaining).
			Msg("Origin rate limit state updated")
	}

	return nil
}

// Allow gates a request to host. It returns a *BlockedError while the window
// is exhausted and sleeps for the throttle delay while it is nearly so.
func (t *Tracker) Allow(ctx context.Context, host string) error {
	state, err := t.store.Get(ctx, host)
	if err != nil {
		return fmt.Errorf("get rate limit state: %w", err)
	}
	if state == nil {
		return nil
	}

	now := t.now()

	if state.Blocked(now) {
		wait := state.TimeUntilReset(now)
		t.logger.Warn().
			Str("host", host).
			Dur("wait_duration", wait).
			Msg("Origin rate limit exhausted - blocking request")

		blocksTotal.WithLabelValues(host).Inc()
		return &BlockedError{Host: host, RetryAfter: wait}
	}

	if state.Throttled(now, t.warning) && t.throttle > 0 {
		t.logger.Debug().
			Str("host", host).
			Int("remaining", state.Remaining).
			Msg("Origin rate limit low - throttling request")

		throttlesTotal.WithLabelValues(host).Inc()

		timer := time.NewTimer(t.throttle)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}
