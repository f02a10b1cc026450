package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/httpcache/pkg/cache"
	"github.com/Sternrassler/httpcache/pkg/client"
	"github.com/Sternrassler/httpcache/pkg/config"
	"github.com/Sternrassler/httpcache/pkg/logging"
	"github.com/Sternrassler/httpcache/pkg/metrics"
	"github.com/Sternrassler/httpcache/pkg/ratelimit"
	"github.com/Sternrassler/httpcache/pkg/store"
	"github.com/Sternrassler/httpcache/pkg/warm"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	maxWarmURLs     = 1000
)

// forwardedHeaders are copied from the proxy request to the origin request.
var forwardedHeaders = []string{"Accept", "Accept-Language", "Cache-Control"}

func main() {
	configPath := flag.String("config", os.Getenv("HTTPCACHE_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.Log.Level),
		Pretty:  cfg.Log.Pretty,
		Output:  os.Stderr,
		Service: "httpcache-proxy",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Proxy failed")
	}
}

// run serves until ctx is cancelled, then shuts the server down.
func run(ctx context.Context, cfg config.Config) error {
	logger := logging.NewLogger("proxy")

	backend, err := store.New(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer backend.Close()
	logger.Info().Str("backend", cfg.Store.Backend).Msg("Store ready")

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	httpClient, err := newHTTPClient(cfg, backend, limiter)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newRouter(httpClient, backend, newWarmer(cfg, httpClient), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("addr", cfg.Listen).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting HTTP cache proxy")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info().Msg("Shutting down HTTP cache proxy")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newLimiter builds the origin rate limit tracker. State lives in Redis when
// the cache does, so every proxy instance honours the same limits.
func newLimiter(ctx context.Context, cfg config.Config) (*ratelimit.Tracker, func(), error) {
	if !cfg.RateLimit.Enabled {
		return nil, func() {}, nil
	}

	opts := []ratelimit.TrackerOption{
		ratelimit.WithWarningThreshold(cfg.RateLimit.WarningThreshold),
		ratelimit.WithThrottleDelay(cfg.RateLimit.ThrottleDelay),
	}
	logger := logging.NewLogger("ratelimit")

	if cfg.Store.Backend != config.BackendRedis {
		return ratelimit.NewTracker(ratelimit.NewMemoryStateStore(), logger, opts...), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Store.Redis.Addr,
		Password: cfg.Store.Redis.Password,
		DB:       cfg.Store.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect rate limit store to redis at %s: %w", cfg.Store.Redis.Addr, err)
	}

	stateStore := ratelimit.NewRedisStateStore(client, cfg.Store.Redis.KeyPrefix)
	return ratelimit.NewTracker(stateStore, logger, opts...), func() { client.Close() }, nil
}

func newHTTPClient(cfg config.Config, backend cache.Adapter, limiter *ratelimit.Tracker) (*http.Client, error) {
	c := cache.New(backend, cache.WithLogger(logging.NewLogger("httpcache")))

	clientLogger := logging.NewLogger("httpcache-client")
	return client.NewClient(client.Config{
		Cache: c,
		Retry: client.RetryConfig{
			MaxAttempts:       cfg.Retry.MaxAttempts,
			InitialBackoff:    cfg.Retry.InitialBackoff,
			MaxBackoff:        cfg.Retry.MaxBackoff,
			BackoffMultiplier: 2.0,
		},
		UserAgent: cfg.UserAgent,
		Limiter:   limiter,
		Logger:    &clientLogger,
	})
}

func newWarmer(cfg config.Config, httpClient *http.Client) *warm.Warmer {
	return warm.NewWarmer(httpClient, warm.Config{
		MaxConcurrency: cfg.Warm.Concurrency,
		Timeout:        cfg.Warm.Timeout,
		Header:         http.Header{"User-Agent": []string{cfg.UserAgent}},
	})
}

func newRouter(httpClient *http.Client, backend cache.Adapter, warmer *warm.Warmer, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(backend))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/fetch", fetchHandler(httpClient, logger))
	r.Post("/warm", warmHandler(warmer, logger))

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler probes the store with a lookup that is expected to miss.
func readyHandler(backend cache.Adapter) http.HandlerFunc {
	probe := cache.NewRequest(http.MethodGet, "http://httpcache.invalid/ready", nil)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if _, err := backend.Lookup(ctx, probe); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// fetchHandler fetches ?url= through the caching client and relays the
// response.
func fetchHandler(httpClient *http.Client, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		u, err := url.Parse(target)
		if target == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			http.Error(w, "query parameter url must be an absolute http(s) URL", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		for _, name := range forwardedHeaders {
			if values := r.Header.Values(name); len(values) > 0 {
				req.Header[name] = append([]string(nil), values...)
			}
		}

		resp, err := httpClient.Do(req)
		var blocked *ratelimit.BlockedError
		if errors.As(err, &blocked) {
			w.Header().Set("Retry-After", strconv.Itoa(int(blocked.RetryAfter.Seconds()+0.5)))
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			logger.Warn().Err(err).Str("url", target).Msg("Fetch failed")
			http.Error(w, fmt.Sprintf("fetch failed: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)

		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.Warn().Err(err).Str("url", target).Msg("Failed to write response")
		}
	}
}

type warmRequest struct {
	URLs []string `json:"urls"`
}

type warmResponse struct {
	Results []warm.Result `json:"results"`
	Error   string        `json:"error,omitempty"`
}

// warmHandler fetches a JSON list of URLs through the cache and reports the
// outcome per URL.
func warmHandler(warmer *warm.Warmer, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body warmRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if len(body.URLs) == 0 || len(body.URLs) > maxWarmURLs {
			http.Error(w, fmt.Sprintf("urls must contain 1 to %d entries", maxWarmURLs), http.StatusBadRequest)
			return
		}
		for _, target := range body.URLs {
			u, err := url.Parse(target)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				http.Error(w, fmt.Sprintf("invalid url %q", target), http.StatusBadRequest)
				return
			}
		}

		results, err := warmer.Warm(r.Context(), body.URLs)
		resp := warmResponse{Results: results}
		if err != nil {
			resp.Error = err.Error()
			logger.Warn().Err(err).Int("urls", len(body.URLs)).Msg("Warm-up finished with errors")
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn().Err(err).Msg("Failed to write warm-up response")
		}
	}
}
