package client

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{
			name:       "client error should not retry",
			errorClass: ErrorClassClient,
			expected:   false,
		},
		{
			name:       "server error should retry",
			errorClass: ErrorClassServer,
			expected:   true,
		},
		{
			name:       "rate limit should retry",
			errorClass: ErrorClassRateLimit,
			expected:   true,
		},
		{
			name:       "network error should retry",
			errorClass: ErrorClassNetwork,
			expected:   true,
		},
		{
			name:       "empty error class should not retry",
			errorClass: "",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{status: http.StatusOK, want: ""},
		{status: http.StatusNotModified, want: ""},
		{status: http.StatusFound, want: ""},
		{status: http.StatusBadRequest, want: ErrorClassClient},
		{status: http.StatusNotFound, want: ErrorClassClient},
		{status: http.StatusTooManyRequests, want: ErrorClassRateLimit},
		{status: http.StatusInternalServerError, want: ErrorClassServer},
		{status: http.StatusServiceUnavailable, want: ErrorClassServer},
		{status: 520, want: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestStatusError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *StatusError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &StatusError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "internal server error",
				Err:        errors.New("connection reset"),
			},
			expected: "origin server error (status 500): internal server error: connection reset",
		},
		{
			name: "error without wrapped error",
			err: &StatusError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "not found",
			},
			expected: "origin client error (status 404): not found",
		},
		{
			name: "rate limit error",
			err: &StatusError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Message:    "too many requests",
				RetryAfter: time.Second,
			},
			expected: "origin rate_limit error (status 429): too many requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.err.Error(); result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestStatusError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	statusErr := &StatusError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	if unwrapped := statusErr.Unwrap(); unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}
	if !errors.Is(statusErr, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	if (&StatusError{StatusCode: 404}).Unwrap() != nil {
		t.Error("Unwrap() without cause should be nil")
	}
}
