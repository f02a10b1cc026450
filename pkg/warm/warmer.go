package warm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int

	// Timeout per URL fetch
	Timeout time.Duration

	// Header is sent with every warm-up request
	Header http.Header
}

// DefaultConfig returns the default warmer configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
	}
}

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the outcome of warming one URL.
type Result struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code,omitempty"`
	Bytes      int64         `json:"bytes"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// Warmer fetches URL lists through a caching client.
type Warmer struct {
	client Doer
	config Config
	logger zerolog.Logger
}

// NewWarmer creates a new warmer.
func NewWarmer(client Doer, config Config) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Warmer{
		client: client,
		config: config,
		logger: log.With().Str("component", "warm").Logger(),
	}
}

// Warm fetches every URL once. Results keep the order of first appearance.
// The returned error joins all per-URL failures; results are complete either way.
func (w *Warmer) Warm(ctx context.Context, urls []string) ([]Result, error) {
	start := time.Now()
	unique := dedupe(urls)

	w.logger.Info().
		Int("urls", len(unique)).
		Int("concurrency", w.config.MaxConcurrency).
		Msg("Starting cache warm-up")

	results := make([]Result, len(unique))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.MaxConcurrency)

	for i, target := range unique {
		g.Go(func() error {
			result, err := w.fetch(gCtx, target)
			results[i] = result
			if err != nil {
				w.logger.Warn().Err(err).Str("url", target).Msg("Warm-up fetch failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", target, err))
				mu.Unlock()
			}
			// a failed URL must not cancel the others
			return nil
		})
	}
	g.Wait()

	w.logger.Info().
		Int("urls", len(unique)).
		Int("failed", len(errs)).
		Dur("duration", time.Since(start)).
		Msg("Cache warm-up complete")

	return results, errors.Join(errs...)
}

func (w *Warmer) fetch(ctx context.Context, target string) (Result, error) {
	start := time.Now()
	result := Result{URL: target}
	fail := func(err error) (Result, error) {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target, nil)
	if err != nil {
		return fail(err)
	}
	for name, values := range w.config.Header {
		req.Header[name] = append([]string(nil), values...)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Bytes, err = io.Copy(io.Discard, resp.Body)
	if err != nil {
		return fail(err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok || u == "" {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}
