package rest

import (
	"sync"
	"time"

	"github.com/amdevit/restling/pkg/charset"
	"github.com/amdevit/restling/pkg/content"
)

// successCodes are the statuses for which IsSuccessful reports true.
var successCodes = map[int]bool{
	200: true, 201: true, 202: true, 203: true, 204: true,
	205: true, 206: true, 207: true, 208: true, 226: true,
}

// IsSuccessStatus reports whether code is in the 2xx range. It decides
// whether decode failures are returned to the caller.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code <= 299
}

// Result is the outcome of one request attempt. It is not modified after
// it is returned.
type Result struct {
	request     *Request
	statusCode  int
	status      string
	elapsed     time.Duration
	raw         []byte
	contentType string
	charset     charset.Charset
	retrieved   *content.Classified
	headers     *ResponseHeaders
	err         error
	timing      *Timing
	requestID   string

	renderOnce sync.Once
	rendered   string
}

func newFailedResult(req *Request, elapsed time.Duration, err error) *Result {
	return &Result{
		request: req,
		elapsed: elapsed,
		err:     err,
		headers: newResponseHeaders(nil),
	}
}

// Request returns the request that produced the result.
func (r *Result) Request() *Request {
	return r.request
}

// StatusCode returns the response status, or 0 when no response arrived.
func (r *Result) StatusCode() int {
	return r.statusCode
}

// HasStatus reports whether a response status is available.
func (r *Result) HasStatus() bool {
	return r.statusCode != 0
}

// Status returns the status line text, for example "200 OK".
func (r *Result) Status() string {
	return r.status
}

// Elapsed returns the time from send to receipt of the response headers.
func (r *Result) Elapsed() time.Duration {
	return r.elapsed
}

// ElapsedMillis returns Elapsed in milliseconds.
func (r *Result) ElapsedMillis() int64 {
	return r.elapsed.Milliseconds()
}

// RawContent returns the body bytes exactly as received.
func (r *Result) RawContent() []byte {
	return r.raw
}

// ContentType returns the declared media type without parameters.
func (r *Result) ContentType() string {
	return r.contentType
}

// Charset returns the body charset, UTF8 when none was declared.
func (r *Result) Charset() charset.Charset {
	return r.charset
}

// Retrieved returns the classified body, or nil when no body was read.
func (r *Result) Retrieved() *content.Classified {
	return r.retrieved
}

// Headers returns the response headers.
func (r *Result) Headers() *ResponseHeaders {
	return r.headers
}

// Err returns the transport failure, if any.
func (r *Result) Err() error {
	return r.err
}

// Timing returns the phase breakdown when the client records it.
func (r *Result) Timing() *Timing {
	return r.timing
}

// RequestID returns the correlation id sent with the request, if any.
func (r *Result) RequestID() string {
	return r.requestID
}

// IsSuccessful reports whether the request completed without failure and
// with one of the success statuses.
func (r *Result) IsSuccessful() bool {
	return r.err == nil && successCodes[r.statusCode]
}

// IsRedirect reports whether the status is 3xx.
func (r *Result) IsRedirect() bool {
	return r.statusCode >= 300 && r.statusCode < 400
}

// IsClientError reports whether the status is 4xx.
func (r *Result) IsClientError() bool {
	return r.statusCode >= 400 && r.statusCode < 500
}

// IsServerError reports whether the status is 5xx.
func (r *Result) IsServerError() bool {
	return r.statusCode >= 500 && r.statusCode < 600
}

// Content renders the body as a string: base64 for binary content, decoded
// text for text content. It is computed on first use.
func (r *Result) Content() string {
	r.renderOnce.Do(func() {
		if r.retrieved != nil {
			r.rendered = r.retrieved.String()
		}
	})
	return r.rendered
}

// TypedResult is a Result with decoded data.
type TypedResult[T any] struct {
	*Result

	data    T
	hasData bool
}

// Data returns the decoded value, or the zero value when nothing was
// decoded.
func (r *TypedResult[T]) Data() T {
	return r.data
}

// HasData reports whether Data holds a decoded value.
func (r *TypedResult[T]) HasData() bool {
	return r.hasData
}
