// Package warm prefetches URLs through a caching http.Client so later
// requests are answered from the store.
//
// Example usage:
//
//	warmer := warm.NewWarmer(httpClient, warm.DefaultConfig())
//	results, err := warmer.Warm(ctx, []string{"https://api.example.com/a", "https://api.example.com/b"})
//
// The warmer:
//   - Deduplicates the URL list
//   - Fetches with a bounded number of parallel requests (default 10)
//   - Applies a timeout per URL
//   - Reads and discards every body so the cache sees complete responses
//   - Keeps going after failures and returns every result with a joined error
package warm
