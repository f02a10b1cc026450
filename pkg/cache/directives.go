package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Cache-Control directive names the cache acts on.
const (
	DirectivePrivate = "private"
	DirectivePublic  = "public"
	DirectiveNoCache = "no-cache"
	DirectiveNoStore = "no-store"
	DirectiveMaxAge  = "max-age"
)

// Directives is the set of directives parsed from a Cache-Control value.
// It is derived on demand and never stored.
type Directives struct {
	flags     map[string]string
	maxAge    time.Duration
	hasMaxAge bool
}

// ParseHeader parses all Cache-Control lines of h.
func ParseHeader(h http.Header) Directives {
	return ParseDirectives(strings.Join(h.Values(HeaderCacheControl), ","))
}

// ParseDirectives parses a single Cache-Control header value.
// Names are lower-cased, arguments unquoted. A max-age that is not a
// non-negative integer is dropped as if it were absent.
func ParseDirectives(value string) Directives {
	d := Directives{flags: make(map[string]string)}

	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, arg, _ := strings.Cut(part, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		arg = strings.Trim(strings.TrimSpace(arg), `"`)

		if name == DirectiveMaxAge {
			seconds, err := strconv.ParseUint(arg, 10, 32)
			if err != nil {
				continue
			}
			// first occurrence wins
			if !d.hasMaxAge {
				d.maxAge = time.Duration(seconds) * time.Second
				d.hasMaxAge = true
			}
		}

		if _, seen := d.flags[name]; !seen {
			d.flags[name] = arg
		}
	}

	return d
}

// Has reports whether the named directive is present.
func (d Directives) Has(name string) bool {
	_, ok := d.flags[strings.ToLower(name)]
	return ok
}

// MaxAge returns the max-age lifetime and whether it was present and valid.
func (d Directives) MaxAge() (time.Duration, bool) {
	return d.maxAge, d.hasMaxAge
}

// NoCache reports whether no-cache is present.
func (d Directives) NoCache() bool { return d.Has(DirectiveNoCache) }

// NoStore reports whether no-store is present.
func (d Directives) NoStore() bool { return d.Has(DirectiveNoStore) }

// Private reports whether private is present.
func (d Directives) Private() bool { return d.Has(DirectivePrivate) }

// Public reports whether public is present.
func (d Directives) Public() bool { return d.Has(DirectivePublic) }

// Empty reports whether no directive was parsed.
func (d Directives) Empty() bool {
	return len(d.flags) == 0
}
