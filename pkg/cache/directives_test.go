package cache

import (
	"net/http"
	"testing"
	"time"
)

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantFlags  []string
		wantMaxAge time.Duration
		hasMaxAge  bool
	}{
		{name: "empty", value: ""},
		{name: "single", value: "no-store", wantFlags: []string{DirectiveNoStore}},
		{
			name:       "multiple with spaces",
			value:      "private, max-age=60 , no-cache",
			wantFlags:  []string{DirectivePrivate, DirectiveNoCache, DirectiveMaxAge},
			wantMaxAge: 60 * time.Second,
			hasMaxAge:  true,
		},
		{name: "case insensitive", value: "No-Cache, PUBLIC", wantFlags: []string{DirectiveNoCache, DirectivePublic}},
		{name: "quoted max-age", value: `max-age="120"`, wantFlags: []string{DirectiveMaxAge}, wantMaxAge: 2 * time.Minute, hasMaxAge: true},
		{name: "zero max-age", value: "max-age=0", wantFlags: []string{DirectiveMaxAge}, hasMaxAge: true},
		{name: "malformed max-age", value: "max-age=abc, public", wantFlags: []string{DirectivePublic}},
		{name: "negative max-age", value: "max-age=-5"},
		{name: "empty max-age", value: "max-age="},
		{name: "first max-age wins", value: "max-age=10, max-age=20", wantFlags: []string{DirectiveMaxAge}, wantMaxAge: 10 * time.Second, hasMaxAge: true},
		{name: "empty elements", value: ",,public,,", wantFlags: []string{DirectivePublic}},
		{name: "unknown directive kept", value: "s-maxage=30", wantFlags: []string{"s-maxage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDirectives(tt.value)

			for _, flag := range tt.wantFlags {
				if !d.Has(flag) {
					t.Errorf("Has(%q) = false, want true", flag)
				}
			}
			if len(tt.wantFlags) == 0 && !d.Empty() {
				t.Errorf("Directives not empty for %q", tt.value)
			}

			maxAge, ok := d.MaxAge()
			if ok != tt.hasMaxAge {
				t.Errorf("MaxAge present = %v, want %v", ok, tt.hasMaxAge)
			}
			if maxAge != tt.wantMaxAge {
				t.Errorf("MaxAge = %v, want %v", maxAge, tt.wantMaxAge)
			}
		})
	}
}

func TestParseHeader_MultipleLines(t *testing.T) {
	h := http.Header{}
	h.Add("Cache-Control", "private")
	h.Add("Cache-Control", "max-age=30")

	d := ParseHeader(h)
	if !d.Private() {
		t.Error("Expected private from first line")
	}
	if maxAge, ok := d.MaxAge(); !ok || maxAge != 30*time.Second {
		t.Errorf("MaxAge = %v/%v, want 30s", maxAge, ok)
	}
}

func TestParseHeader_Missing(t *testing.T) {
	d := ParseHeader(http.Header{})
	if !d.Empty() || d.NoCache() || d.NoStore() || d.Private() || d.Public() {
		t.Error("Missing header should yield no directives")
	}
	if _, ok := d.MaxAge(); ok {
		t.Error("Missing header should yield no max-age")
	}
}
