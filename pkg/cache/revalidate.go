package cache

import (
	"net/http"
	"time"
)

// DefaultMergeHeaders are the headers a 304 response refreshes on the
// stored response.
var DefaultMergeHeaders = []string{HeaderETag, HeaderDate}

// BuildConditional derives a conditional request from original using the
// validators of cached. If-None-Match carries the cached Etag and
// If-Modified-Since the cached Last-Modified; each is only set when the
// cached response has the source header.
func BuildConditional(original *Request, cached *Response) *Request {
	return original.WithHeader(map[string]string{
		HeaderIfNoneMatch:     cached.Header.Get(HeaderETag),
		HeaderIfModifiedSince: cached.Header.Get(HeaderLastModified),
	})
}

// MergeNotModified builds the response served after a 304: status, body and
// headers come from cached, except that every header listed in names is
// replaced when notModified carries it. The result is unstamped.
func MergeNotModified(cached, notModified *Response, names []string) *Response {
	merged := cached.Clone()
	if merged.Header == nil {
		merged.Header = http.Header{}
	}

	for _, name := range names {
		values := notModified.Header.Values(name)
		if len(values) == 0 {
			continue
		}
		merged.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}

	merged.stamp(time.Time{}, time.Time{})
	return merged
}
