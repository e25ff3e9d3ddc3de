package rest

import (
	"net/http"
	"sort"
	"strings"
)

// AuthenticationHeader is a prebuilt Authorization value.
type AuthenticationHeader struct {
	Scheme    string
	Parameter string
}

// String formats the header value.
func (a AuthenticationHeader) String() string {
	if a.Parameter == "" {
		return a.Scheme
	}
	return a.Scheme + " " + a.Parameter
}

type headerEntry struct {
	key   string
	value string
}

// Headers is an ordered set of request headers. Lookup ignores case; keys
// are sent as supplied. Setting an existing key replaces its value and
// spelling in place.
type Headers struct {
	auth    *AuthenticationHeader
	entries []headerEntry
	index   map[string]int
}

// NewHeaders creates an empty header set.
func NewHeaders() *Headers {
	return &Headers{index: make(map[string]int)}
}

// Set adds or replaces a header.
func (h *Headers) Set(key, value string) *Headers {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	lower := strings.ToLower(key)
	if i, ok := h.index[lower]; ok {
		h.entries[i] = headerEntry{key: key, value: value}
		return h
	}
	h.index[lower] = len(h.entries)
	h.entries = append(h.entries, headerEntry{key: key, value: value})
	return h
}

// Get returns the value for key.
func (h *Headers) Get(key string) (string, bool) {
	if h == nil {
		return "", false
	}
	i, ok := h.index[strings.ToLower(key)]
	if !ok {
		return "", false
	}
	return h.entries[i].value, true
}

// Del removes key.
func (h *Headers) Del(key string) {
	if h == nil {
		return
	}
	lower := strings.ToLower(key)
	i, ok := h.index[lower]
	if !ok {
		return
	}
	h.entries = append(h.entries[:i], h.entries[i+1:]...)
	delete(h.index, lower)
	for j := i; j < len(h.entries); j++ {
		h.index[strings.ToLower(h.entries[j].key)] = j
	}
}

// Len returns the number of custom headers.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Range calls fn for each header in insertion order.
func (h *Headers) Range(fn func(key, value string)) {
	if h == nil {
		return
	}
	for _, e := range h.entries {
		fn(e.key, e.value)
	}
}

// SetAuthentication sets the Authorization scheme and parameter.
func (h *Headers) SetAuthentication(auth AuthenticationHeader) *Headers {
	h.auth = &auth
	return h
}

// ClearAuthentication removes the Authorization value.
func (h *Headers) ClearAuthentication() {
	if h != nil {
		h.auth = nil
	}
}

// Authentication returns the Authorization value, if any.
func (h *Headers) Authentication() (AuthenticationHeader, bool) {
	if h == nil || h.auth == nil {
		return AuthenticationHeader{}, false
	}
	return *h.auth, true
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	c := NewHeaders()
	if h == nil {
		return c
	}
	if h.auth != nil {
		a := *h.auth
		c.auth = &a
	}
	for _, e := range h.entries {
		c.Set(e.key, e.value)
	}
	return c
}

// ResponseHeaders is a read-only view of the headers of a response.
type ResponseHeaders struct {
	header http.Header
}

func newResponseHeaders(h http.Header) *ResponseHeaders {
	return &ResponseHeaders{header: h.Clone()}
}

// Get returns the first value for key.
func (r *ResponseHeaders) Get(key string) string {
	if r == nil {
		return ""
	}
	return r.header.Get(key)
}

// Values returns a copy of all values for key.
func (r *ResponseHeaders) Values(key string) []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.header.Values(key)...)
}

// Has reports whether key is present.
func (r *ResponseHeaders) Has(key string) bool {
	return len(r.Values(key)) > 0
}

// RedirectLocation returns the Location header, or "" if absent.
func (r *ResponseHeaders) RedirectLocation() string {
	return r.Get("Location")
}

// Keys returns the canonical header names in sorted order.
func (r *ResponseHeaders) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.header))
	for k := range r.header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Header returns a copy of the underlying header map.
func (r *ResponseHeaders) Header() http.Header {
	if r == nil {
		return http.Header{}
	}
	return r.header.Clone()
}
