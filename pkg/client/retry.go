package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpcache_client_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "httpcache_client_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpcache_client_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// NoRetry sends every request exactly once.
func NoRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

// ForErrorClass scales the configuration for an error class.
// Rate limiting waits longest, network errors a little longer than server errors.
func (c RetryConfig) ForErrorClass(errorClass ErrorClass) RetryConfig {
	scaled := c
	switch errorClass {
	case ErrorClassRateLimit:
		scaled.InitialBackoff *= 5
		scaled.MaxBackoff *= 2
	case ErrorClassNetwork:
		scaled.InitialBackoff *= 2
	}
	return scaled
}

// backoff returns the un-jittered delay before attempt+1.
func (c RetryConfig) backoff(attempt int) time.Duration {
	multiplier := c.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := time.Duration(float64(c.InitialBackoff) * math.Pow(multiplier, float64(attempt-1)))
	if c.MaxBackoff > 0 && delay > c.MaxBackoff {
		delay = c.MaxBackoff
	}
	return delay
}

// attemptFunc runs one attempt and reports the class of its failure.
// A nil error ends the loop.
type attemptFunc func(attempt int) (ErrorClass, error)

// retryWithBackoff runs fn until it succeeds, fails with a non-retriable class
// or runs out of attempts. Delays grow exponentially with ±20% jitter; a
// Retry-After from the origin is honoured up to MaxBackoff.
func retryWithBackoff(ctx context.Context, config RetryConfig, logger zerolog.Logger, fn attemptFunc) error {
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	var errorClass ErrorClass

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		errorClass, lastErr = fn(attempt)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		if !shouldRetry(errorClass) {
			return lastErr
		}

		// If this was the last attempt, don't wait
		if attempt >= maxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()

		classConfig := config.ForErrorClass(errorClass)
		backoff := classConfig.backoff(attempt)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		if retryAfter := retryAfterOf(lastErr); retryAfter > jitter {
			jitter = retryAfter
			if classConfig.MaxBackoff > 0 && jitter > classConfig.MaxBackoff {
				jitter = classConfig.MaxBackoff
			}
		}
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(jitter.Seconds())

		logger.Debug().
			Err(lastErr).
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	logger.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}

func retryAfterOf(err error) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.RetryAfter
	}
	return 0
}
