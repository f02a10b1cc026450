package cache

import (
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a stored response: method plus normalised URL.
// Request headers are not part of the key.
type CacheKey struct {
	Method string
	URL    string
}

// KeyFor returns the key of req.
func KeyFor(req *Request) CacheKey {
	return CacheKey{Method: req.Method, URL: req.URL}
}

// String generates a deterministic cache key string.
// Format: httpcache:METHOD:scheme://host/path?sorted-query
//
// Example:
//
//	httpcache:GET:http://example.com/items?a=1&b=2
func (k CacheKey) String() string {
	method := strings.ToUpper(k.Method)
	if method == "" {
		method = "GET"
	}
	return strings.Join([]string{"httpcache", method, normalizeURL(k.URL)}, ":")
}

// normalizeURL lower-cases scheme and host, drops the fragment and sorts
// query parameters. Unparseable input is used verbatim.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}

	if u.RawQuery != "" {
		query := u.Query()
		keys := make([]string, 0, len(query))
		for key := range query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			values := append([]string(nil), query[key]...)
			sort.Strings(values)
			for _, value := range values {
				parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
			}
		}
		u.RawQuery = strings.Join(parts, "&")
	}

	return u.String()
}
