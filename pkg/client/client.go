// Package client provides an http.RoundTripper that answers requests through
// the HTTP cache and sends misses to the origin with retries.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/httpcache/pkg/cache"
	"github.com/Sternrassler/httpcache/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Sternrassler/httpcache/pkg/client"

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpcache_client_requests_total",
		Help: "Total round trips through the caching transport by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "httpcache_client_request_duration_seconds",
		Help:    "Round trip duration in seconds, cache hits included",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	originErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpcache_client_origin_errors_total",
		Help: "Total origin errors by class",
	}, []string{"class"})
)

// Config holds the transport configuration.
type Config struct {
	// Cache answers requests and decides what is stored (required)
	Cache *cache.Cache

	// Base sends requests to the origin. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// Retry governs origin retries
	Retry RetryConfig

	// UserAgent is set on origin requests that carry none
	UserAgent string

	// Limiter gates origin requests per host. Nil disables gating.
	Limiter *ratelimit.Tracker

	// TracerProvider creates the transport's tracer. Defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Logger defaults to the global logger with component "httpcache-client"
	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration with default retries.
func DefaultConfig(c *cache.Cache, userAgent string) Config {
	return Config{
		Cache:     c,
		Retry:     DefaultRetryConfig(),
		UserAgent: userAgent,
	}
}

// RequestOptions travel through the cache to the origin call unchanged.
type RequestOptions struct {
	// Original is the request the caller handed to RoundTrip
	Original *http.Request

	// Retry overrides the transport's retry configuration for this request
	Retry RetryConfig
}

// Transport is a caching http.RoundTripper.
type Transport struct {
	cache     *cache.Cache
	base      http.RoundTripper
	retry     RetryConfig
	userAgent string
	limiter   *ratelimit.Tracker
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewTransport creates a caching transport.
func NewTransport(cfg Config) (*Transport, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}

	if cfg.Retry.MaxAttempts < 0 {
		return nil, fmt.Errorf("retry max attempts must be >= 0 (got %d)", cfg.Retry.MaxAttempts)
	}

	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport
	}

	provider := cfg.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	logger := log.With().Str("component", "httpcache-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Transport{
		cache:     cfg.Cache,
		base:      base,
		retry:     cfg.Retry,
		userAgent: cfg.UserAgent,
		limiter:   cfg.Limiter,
		tracer:    provider.Tracer(tracerName),
		logger:    logger,
	}, nil
}

// NewClient returns an HTTP client that uses a caching transport.
func NewClient(cfg Config) (*http.Client, error) {
	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), "httpcache.round_trip",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
		),
	)
	defer span.End()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(req.Method).Observe(time.Since(startTime).Seconds())
	}()

	opts := &RequestOptions{Original: req, Retry: t.retry}
	var resp *cache.Response
	var err error
	if cacheableMethod(req.Method) {
		resp, err = t.cache.Perform(ctx, cache.FromHTTPRequest(req), opts, t)
	} else {
		// unsafe methods always reach the origin and are never stored
		span.SetAttributes(attribute.Bool("httpcache.bypass", true))
		resp, err = t.Perform(ctx, cache.FromHTTPRequest(req), opts)
	}

	// served from cache, the base transport never saw the body
	if req.Body != nil {
		req.Body.Close()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		requestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	return cache.ToHTTPResponse(resp, req), nil
}

// cacheableMethod reports whether requests with method may be answered from
// or written to the cache.
func cacheableMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// Perform sends req to the origin. It is the cache's performer and expects
// *RequestOptions; other option values fall back to the transport defaults.
func (t *Transport) Perform(ctx context.Context, req *cache.Request, opts any) (*cache.Response, error) {
	o, ok := opts.(*RequestOptions)
	if !ok || o == nil {
		o = &RequestOptions{Retry: t.retry}
	}

	outReq, err := t.originRequest(ctx, req, o.Original)
	if err != nil {
		return nil, err
	}

	logger := t.logger.With().Str("method", outReq.Method).Str("url", req.URL).Logger()
	logger.Debug().Msg("Sending request to origin")

	var resp *http.Response
	retryErr := retryWithBackoff(ctx, o.Retry, logger, func(attempt int) (ErrorClass, error) {
		attemptReq, err := replayable(outReq, attempt)
		if err != nil {
			return "", err
		}

		if t.limiter != nil {
			if err := t.limiter.Allow(ctx, outReq.URL.Host); err != nil {
				return "", err
			}
		}

		r, err := t.base.RoundTrip(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Origin request failed")
			originErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return ErrorClassNetwork, err
		}

		if t.limiter != nil {
			if err := t.limiter.Observe(ctx, outReq.URL.Host, r.StatusCode, r.Header); err != nil {
				logger.Warn().Err(err).Msg("Failed to record origin rate limit")
			}
		}

		errClass := classifyStatus(r.StatusCode)
		if errClass != "" {
			originErrorsTotal.WithLabelValues(string(errClass)).Inc()
			logger.Warn().
				Int("status", r.StatusCode).
				Str("error_class", string(errClass)).
				Int("attempt", attempt).
				Msg("Origin returned error status")
		}

		if shouldRetry(errClass) {
			statusErr := &StatusError{
				StatusCode: r.StatusCode,
				ErrorClass: errClass,
				Message:    r.Status,
				RetryAfter: ratelimit.ParseRetryAfter(r.Header.Get(ratelimit.HeaderRetryAfter), time.Now()),
			}
			// drain so the connection can be reused
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return errClass, statusErr
		}

		// client errors are handed back to the caller as responses
		resp = r
		return "", nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	converted, err := cache.FromHTTPResponse(resp)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("status", converted.StatusCode).Msg("Origin responded")
	return converted, nil
}

// originRequest builds the outgoing request from the cache's view, which may
// carry revalidation headers the original lacks.
func (t *Transport) originRequest(ctx context.Context, req *cache.Request, original *http.Request) (*http.Request, error) {
	var outReq *http.Request
	if original != nil {
		outReq = original.Clone(ctx)
	} else {
		var err error
		outReq, err = http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
	}

	outReq.Header = req.Header.Clone()
	if outReq.Header == nil {
		outReq.Header = http.Header{}
	}
	if t.userAgent != "" && outReq.Header.Get("User-Agent") == "" {
		outReq.Header.Set("User-Agent", t.userAgent)
	}
	return outReq, nil
}

// replayable returns the request to send on the given attempt, rewinding the
// body through GetBody after the first one.
func replayable(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, ErrBodyNotReplayable
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, errors.Join(ErrBodyNotReplayable, err)
	}
	next := req.Clone(req.Context())
	next.Body = body
	return next, nil
}
