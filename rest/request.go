package rest

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/amdevit/restling/pkg/serialization"
)

// URIValidator decides whether a URI may be used. When set on a request it
// replaces the default absolute-URI check.
type URIValidator func(uri string) bool

// NoLocalhost accepts absolute URIs whose host is not a loopback name.
func NoLocalhost(uri string) bool {
	u, ok := parseAbsolute(uri)
	if !ok {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && (ip.Equal(net.IPv4(127, 0, 0, 1)) || ip.Equal(net.IPv6loopback)) {
		return false
	}
	return true
}

func parseAbsolute(uri string) (*url.URL, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}

// Request describes one HTTP call. Configure it before handing it to a
// Client and do not modify it while a call is in flight.
type Request struct {
	uri            string
	method         Method
	customVerb     string
	allowUnsafeURI bool
	validator      URIValidator
	serializer     *serialization.Library

	// Headers are sent after the body headers, so they may override
	// Content-Type.
	Headers *Headers

	// Payload is encoded as JSON by the typed execution paths.
	Payload any

	// Form is sent as application/x-www-form-urlencoded.
	Form url.Values

	// RawBody is sent unchanged with ContentType.
	RawBody []byte

	// ContentType overrides the media type of Payload or labels RawBody.
	ContentType string

	// Accept sets the Accept header when non-empty.
	Accept string
}

// RequestOption configures a Request.
type RequestOption func(*Request)

// NewRequest creates a request and validates uri after applying options.
func NewRequest(method Method, uri string, options ...RequestOption) (*Request, error) {
	r := &Request{
		method:  method,
		Headers: NewHeaders(),
	}

	for _, option := range options {
		option(r)
	}

	if err := r.SetURI(uri); err != nil {
		return nil, err
	}
	return r, nil
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		r.Headers.Set(key, value)
	}
}

// WithHeaders copies all headers and the authentication value from h.
func WithHeaders(h *Headers) RequestOption {
	return func(r *Request) {
		h.Range(func(k, v string) { r.Headers.Set(k, v) })
		if auth, ok := h.Authentication(); ok {
			r.Headers.SetAuthentication(auth)
		}
	}
}

// WithAuthentication sets the Authorization value.
func WithAuthentication(auth AuthenticationHeader) RequestOption {
	return func(r *Request) {
		r.Headers.SetAuthentication(auth)
	}
}

// WithPayload sets the value encoded as the JSON body.
func WithPayload(payload any) RequestOption {
	return func(r *Request) {
		r.Payload = payload
	}
}

// WithForm sets form fields as the body.
func WithForm(form url.Values) RequestOption {
	return func(r *Request) {
		r.Form = form
	}
}

// WithRawBody sets a pre-encoded body.
func WithRawBody(body []byte, contentType string) RequestOption {
	return func(r *Request) {
		r.RawBody = body
		r.ContentType = contentType
	}
}

// WithContentType overrides the body media type.
func WithContentType(contentType string) RequestOption {
	return func(r *Request) {
		r.ContentType = contentType
	}
}

// WithAccept sets the Accept header.
func WithAccept(accept string) RequestOption {
	return func(r *Request) {
		r.Accept = accept
	}
}

// WithSerializerOverride forces the JSON engine for this request's payload
// and response, taking precedence over the client default.
func WithSerializerOverride(lib serialization.Library) RequestOption {
	return func(r *Request) {
		r.serializer = &lib
	}
}

// WithUnsafeURI disables URI validation.
func WithUnsafeURI() RequestOption {
	return func(r *Request) {
		r.allowUnsafeURI = true
	}
}

// WithURIValidator sets a custom URI validator.
func WithURIValidator(v URIValidator) RequestOption {
	return func(r *Request) {
		r.validator = v
	}
}

// WithCustomMethod switches the request to MethodCustom with verb.
func WithCustomMethod(verb string) RequestOption {
	return func(r *Request) {
		r.method = MethodCustom
		r.customVerb = verb
	}
}

// URI returns the request URI.
func (r *Request) URI() string {
	return r.uri
}

// SetURI validates and assigns uri.
func (r *Request) SetURI(uri string) error {
	if err := r.validate(uri); err != nil {
		return err
	}
	r.uri = uri
	return nil
}

func (r *Request) validate(uri string) error {
	if strings.TrimSpace(uri) == "" {
		return fmt.Errorf("%w: empty uri", ErrInvalidURI)
	}
	if r.allowUnsafeURI {
		return nil
	}
	if r.validator != nil {
		if !r.validator(uri) {
			return fmt.Errorf("%w: %q rejected by validator", ErrInvalidURI, uri)
		}
		return nil
	}
	if _, ok := parseAbsolute(uri); !ok {
		return fmt.Errorf("%w: %q is not an absolute uri", ErrInvalidURI, uri)
	}
	return nil
}

// Method returns the request method.
func (r *Request) Method() Method {
	return r.method
}

// SetMethod changes the method. The custom verb is kept but only used with
// MethodCustom.
func (r *Request) SetMethod(m Method) {
	r.method = m
}

// CustomVerb returns the verb used with MethodCustom.
func (r *Request) CustomVerb() string {
	return r.customVerb
}

// SetCustomVerb sets the verb used with MethodCustom.
func (r *Request) SetCustomVerb(verb string) {
	r.customVerb = verb
}

// Verb returns the verb that will be sent.
func (r *Request) Verb() (string, error) {
	return wireMethod(r.method, r.customVerb)
}

// SerializerOverride returns the per-request engine override, if any.
func (r *Request) SerializerOverride() (serialization.Library, bool) {
	if r.serializer == nil {
		return serialization.Automatic, false
	}
	return *r.serializer, true
}
