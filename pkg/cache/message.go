package cache

import (
	"net/http"
	"net/textproto"
	"time"
)

// Header names the cache reads or writes.
const (
	HeaderCacheControl    = "Cache-Control"
	HeaderDate            = "Date"
	HeaderETag            = "Etag"
	HeaderLastModified    = "Last-Modified"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"
)

// Request is the cache's view of an outgoing HTTP request.
// Treat it as immutable once built; use WithHeader to derive variants.
type Request struct {
	// Method is the request method token (GET, POST, ...)
	Method string

	// URL is the absolute target URI
	URL string

	// Header holds canonicalised header names, so Get is case-insensitive
	Header http.Header
}

// NewRequest builds a Request, canonicalising header names.
func NewRequest(method, url string, header http.Header) *Request {
	return &Request{
		Method: method,
		URL:    url,
		Header: canonicalHeader(header),
	}
}

// WithHeader returns a copy of r with the given headers set.
// Empty values are skipped.
func (r *Request) WithHeader(values map[string]string) *Request {
	derived := &Request{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header.Clone(),
	}
	if derived.Header == nil {
		derived.Header = http.Header{}
	}
	for name, value := range values {
		if value == "" {
			continue
		}
		derived.Header.Set(name, value)
	}
	return derived
}

// Response is a response as seen by the cache.
//
// RequestedAt and ReceivedAt are only set on responses that passed through
// the cache. RequestTime overrides RequestedAt for revalidation bookkeeping
// and falls back to it when zero.
type Response struct {
	StatusCode int
	Proto      string
	Header     http.Header
	Body       []byte

	RequestedAt time.Time
	ReceivedAt  time.Time
	RequestTime time.Time
}

// NewResponse builds an unstamped Response, canonicalising header names.
func NewResponse(status int, proto string, header http.Header, body []byte) *Response {
	return &Response{
		StatusCode: status,
		Proto:      proto,
		Header:     canonicalHeader(header),
		Body:       body,
	}
}

// Stamped reports whether the response carries cache timestamps.
func (r *Response) Stamped() bool {
	return !r.RequestedAt.IsZero() && !r.ReceivedAt.IsZero()
}

// EffectiveRequestTime returns RequestTime, or RequestedAt when unset.
func (r *Response) EffectiveRequestTime() time.Time {
	if r.RequestTime.IsZero() {
		return r.RequestedAt
	}
	return r.RequestTime
}

// Clone returns a deep copy of r.
func (r *Response) Clone() *Response {
	c := *r
	c.Header = r.Header.Clone()
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

func (r *Response) stamp(requestedAt, receivedAt time.Time) {
	r.RequestedAt = requestedAt
	r.ReceivedAt = receivedAt
	r.RequestTime = time.Time{}
}

func canonicalHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		key := textproto.CanonicalMIMEHeaderKey(name)
		out[key] = append(out[key], values...)
	}
	return out
}
