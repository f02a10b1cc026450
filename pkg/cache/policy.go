package cache

// ShouldLookup reports whether req may be answered from the cache.
// A request carrying Cache-Control: no-cache always goes to the origin.
func ShouldLookup(req *Request) bool {
	return !ParseHeader(req.Header).NoCache()
}

// ShouldStore reports whether resp may be written to the cache.
//
// Storage needs an explicit caching directive. no-cache disqualifies a
// response exactly like no-store does; a stored no-cache response is never
// kept for later revalidation.
func ShouldStore(resp *Response) bool {
	d := ParseHeader(resp.Header)
	if d.NoStore() || d.NoCache() {
		return false
	}
	if _, ok := d.MaxAge(); ok {
		return true
	}
	return d.Private() || d.Public()
}
