package cache

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestEntry_EncodeDecode(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	req := NewRequest("GET", "http://example.com/items", nil)
	resp := NewResponse(http.StatusOK, "HTTP/1.1", http.Header{
		"Cache-Control": []string{"max-age=60"},
		"Etag":          []string{`"v1"`},
	}, []byte(`{"id":1}`))
	resp.RequestedAt = now
	resp.ReceivedAt = now.Add(time.Second)
	resp.RequestTime = now.Add(-time.Minute)

	data, err := NewEntry(req, resp).Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	entry, err := DecodeEntry(data)
	if err != nil {
		t.Fatalf("DecodeEntry failed: %v", err)
	}
	if entry.Method != "GET" || entry.URL != "http://example.com/items" {
		t.Errorf("Entry key = %s %s, want GET http://example.com/items", entry.Method, entry.URL)
	}

	got := entry.Response()
	if got.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", got.StatusCode, http.StatusOK)
	}
	if got.Proto != "HTTP/1.1" {
		t.Errorf("Proto = %q, want HTTP/1.1", got.Proto)
	}
	if string(got.Body) != `{"id":1}` {
		t.Errorf("Body = %q", got.Body)
	}
	if got.Header.Get("Etag") != `"v1"` {
		t.Errorf("Etag = %q, want %q", got.Header.Get("Etag"), `"v1"`)
	}
	if !got.RequestedAt.Equal(resp.RequestedAt) || !got.ReceivedAt.Equal(resp.ReceivedAt) {
		t.Errorf("Timestamps = %v/%v, want %v/%v", got.RequestedAt, got.ReceivedAt, resp.RequestedAt, resp.ReceivedAt)
	}
	if !got.RequestTime.Equal(resp.RequestTime) {
		t.Errorf("RequestTime = %v, want %v", got.RequestTime, resp.RequestTime)
	}
}

func TestNewEntry_Copies(t *testing.T) {
	req := NewRequest("GET", "http://example.com/", nil)
	resp := NewResponse(http.StatusOK, "HTTP/1.1", http.Header{"Etag": []string{"a"}}, []byte("body"))

	entry := NewEntry(req, resp)
	resp.Body[0] = 'X'
	resp.Header.Set("Etag", "b")

	if string(entry.Data) != "body" {
		t.Errorf("Entry data changed with response: %q", entry.Data)
	}
	if entry.Headers.Get("Etag") != "a" {
		t.Errorf("Entry headers changed with response: %q", entry.Headers.Get("Etag"))
	}
}

func TestDecodeEntry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "garbage", data: []byte("not json")},
		{name: "truncated", data: []byte(`{"status_code": 200`)},
		{name: "wrong type", data: []byte(`{"status_code": "ok"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEntry(tt.data)
			if !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("DecodeEntry error = %v, want ErrInvalidEntry", err)
			}
		})
	}
}
