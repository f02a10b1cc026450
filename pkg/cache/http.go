package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// FromHTTPRequest converts an outgoing request to the cache's form.
// The body is not read.
func FromHTTPRequest(req *http.Request) *Request {
	return NewRequest(req.Method, req.URL.String(), req.Header)
}

// FromHTTPResponse reads resp fully and converts it to an unstamped Response.
// The body is restored so the caller can still read it.
func FromHTTPResponse(resp *http.Response) (*Response, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		resp.Body.Close()
	}

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return NewResponse(resp.StatusCode, resp.Proto, resp.Header, body), nil
}

// ToHTTPResponse builds a net/http response for req from resp.
func ToHTTPResponse(resp *Response, req *http.Request) *http.Response {
	major, minor, ok := http.ParseHTTPVersion(resp.Proto)
	proto := resp.Proto
	if !ok {
		major, minor, proto = 1, 1, "HTTP/1.1"
	}

	header := resp.Header.Clone()
	if header == nil {
		header = http.Header{}
	}

	return &http.Response{
		Status:        strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode),
		StatusCode:    resp.StatusCode,
		Proto:         proto,
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}
}
