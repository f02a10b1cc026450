package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrInvalidEntry indicates a stored entry could not be decoded.
var ErrInvalidEntry = errors.New("invalid cache entry")

// Entry is the serialised form of a stored response and its request key.
type Entry struct {
	// Method and URL identify the request that produced the response
	Method string `json:"method"`
	URL    string `json:"url"`

	// StatusCode is the HTTP status code of the stored response
	StatusCode int `json:"status_code"`

	// Proto is the protocol version, e.g. "HTTP/1.1"
	Proto string `json:"proto"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// Data is the response body
	Data []byte `json:"data"`

	// RequestedAt is when the request producing this response was sent
	RequestedAt time.Time `json:"requested_at"`

	// ReceivedAt is when the response was fully received
	ReceivedAt time.Time `json:"received_at"`

	// RequestTime overrides RequestedAt for revalidation bookkeeping
	RequestTime time.Time `json:"request_time,omitempty"`
}

// NewEntry captures req and resp for storage.
func NewEntry(req *Request, resp *Response) *Entry {
	return &Entry{
		Method:      req.Method,
		URL:         req.URL,
		StatusCode:  resp.StatusCode,
		Proto:       resp.Proto,
		Headers:     resp.Header.Clone(),
		Data:        append([]byte(nil), resp.Body...),
		RequestedAt: resp.RequestedAt,
		ReceivedAt:  resp.ReceivedAt,
		RequestTime: resp.RequestTime,
	}
}

// Response rebuilds the stored response, timestamps included.
func (e *Entry) Response() *Response {
	resp := NewResponse(e.StatusCode, e.Proto, e.Headers, append([]byte(nil), e.Data...))
	resp.RequestedAt = e.RequestedAt
	resp.ReceivedAt = e.ReceivedAt
	resp.RequestTime = e.RequestTime
	return resp
}

// Encode marshals the entry as JSON.
func (e *Entry) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

// DecodeEntry unmarshals an entry produced by Encode.
func DecodeEntry(data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}
