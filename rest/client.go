package rest

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amdevit/restling/pkg/mediatype"
	"github.com/amdevit/restling/pkg/serialization"
)

// DefaultRequestIDHeader is the header used by WithRequestID("").
const DefaultRequestIDHeader = "X-Request-ID"

// Transport sends a wire request. *http.Client satisfies it. It must be
// safe for concurrent use.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer is notified of every completed attempt, including transport
// failures. It is not called when a request fails to build or when a
// decode error is returned.
type Observer interface {
	Observe(req *Request, res *Result)
}

var defaultResolver = sync.OnceValue(func() *serialization.Resolver {
	return serialization.NewResolver()
})

// Client executes requests and decodes their responses.
type Client struct {
	transport        Transport
	ownsTransport    bool
	logger           *zap.Logger
	resolver         *serialization.Resolver
	decoder          *Decoder
	serializer       serialization.Library
	payloadMediaType string
	strictPayloads   bool
	allowUnsafeXML   bool
	timing           bool
	requestIDHeader  string
	observers        []Observer
}

// NewClient creates a client with the given options. Without a transport
// it creates an *http.Client with a 30 second timeout and owns it.
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		logger: zap.NewNop(),
	}

	for _, option := range options {
		option(client)
	}

	if client.transport == nil {
		client.transport = &http.Client{Timeout: 30 * time.Second}
		client.ownsTransport = true
	}
	if client.resolver == nil {
		client.resolver = serialization.NewResolver(serialization.WithLogger(client.logger))
	}
	client.decoder = &Decoder{
		Logger:         client.logger,
		Resolver:       client.resolver,
		AllowUnsafeXML: client.allowUnsafeXML,
	}

	return client
}

// Close releases idle connections when the client owns its transport.
func (c *Client) Close() error {
	if !c.ownsTransport {
		return nil
	}
	if closer, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	if closer, ok := c.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Resolver returns the serializer resolver used by the client.
func (c *Client) Resolver() *serialization.Resolver {
	return c.resolver
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, uri string, options ...RequestOption) (*Result, error) {
	return c.verb(ctx, MethodGet, uri, nil, options)
}

// Post sends payload as JSON with a POST request.
func (c *Client) Post(ctx context.Context, uri string, payload any, options ...RequestOption) (*Result, error) {
	return c.verb(ctx, MethodPost, uri, payload, options)
}

// Put sends payload as JSON with a PUT request.
func (c *Client) Put(ctx context.Context, uri string, payload any, options ...RequestOption) (*Result, error) {
	return c.verb(ctx, MethodPut, uri, payload, options)
}

// Patch sends payload as JSON with a PATCH request.
func (c *Client) Patch(ctx context.Context, uri string, payload any, options ...RequestOption) (*Result, error) {
	return c.verb(ctx, MethodPatch, uri, payload, options)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, uri string, options ...RequestOption) (*Result, error) {
	return c.verb(ctx, MethodDelete, uri, nil, options)
}

func (c *Client) verb(ctx context.Context, m Method, uri string, payload any, options []RequestOption) (*Result, error) {
	req, err := buildVerbRequest(m, uri, payload, options)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, req, true)
}

func buildVerbRequest(m Method, uri string, payload any, options []RequestOption) (*Request, error) {
	if payload != nil {
		options = append([]RequestOption{WithPayload(payload)}, options...)
	}
	return NewRequest(m, uri, options...)
}

// Execute sends req and classifies the response without decoding it.
// Payload is not encoded on this path: with strict payloads enabled a
// request carrying one is rejected with ErrUntypedPayload, otherwise the
// payload is dropped with a warning. Form and RawBody are sent.
func (c *Client) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if req.Payload != nil {
		if c.strictPayloads {
			return nil, ErrUntypedPayload
		}
		c.logger.Warn("dropping payload on untyped execution",
			zap.String("uri", req.URI()),
		)
	}
	return c.execute(ctx, req, false)
}

func (c *Client) execute(ctx context.Context, req *Request, encodePayload bool) (*Result, error) {
	ex, failed, err := c.roundTrip(ctx, req, encodePayload)
	if err != nil {
		return nil, err
	}
	if failed != nil {
		return failed, nil
	}

	res := c.decoder.Decode(ctx, ex.resp, req, ex.elapsed)
	ex.annotate(res)
	c.observe(req, res)
	return res, nil
}

// Get sends a GET request and decodes the response into T.
func Get[T any](ctx context.Context, c *Client, uri string, options ...RequestOption) (*TypedResult[T], error) {
	return typedVerb[T](ctx, c, MethodGet, uri, nil, options)
}

// Post sends payload with a POST request and decodes the response into T.
func Post[T any](ctx context.Context, c *Client, uri string, payload any, options ...RequestOption) (*TypedResult[T], error) {
	return typedVerb[T](ctx, c, MethodPost, uri, payload, options)
}

// Put sends payload with a PUT request and decodes the response into T.
func Put[T any](ctx context.Context, c *Client, uri string, payload any, options ...RequestOption) (*TypedResult[T], error) {
	return typedVerb[T](ctx, c, MethodPut, uri, payload, options)
}

// Patch sends payload with a PATCH request and decodes the response into T.
func Patch[T any](ctx context.Context, c *Client, uri string, payload any, options ...RequestOption) (*TypedResult[T], error) {
	return typedVerb[T](ctx, c, MethodPatch, uri, payload, options)
}

// Delete sends a DELETE request and decodes the response into T.
func Delete[T any](ctx context.Context, c *Client, uri string, options ...RequestOption) (*TypedResult[T], error) {
	return typedVerb[T](ctx, c, MethodDelete, uri, nil, options)
}

func typedVerb[T any](ctx context.Context, c *Client, m Method, uri string, payload any, options []RequestOption) (*TypedResult[T], error) {
	req, err := buildVerbRequest(m, uri, payload, options)
	if err != nil {
		return nil, err
	}
	return Execute[T](ctx, c, req)
}

// Execute sends req, encoding its payload, and decodes the response into T.
//
// Transport failures are reported through the result's Err. The returned
// error covers requests that cannot be built and 2xx responses whose body
// cannot be decoded into T.
func Execute[T any](ctx context.Context, c *Client, req *Request) (*TypedResult[T], error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	ex, failed, err := c.roundTrip(ctx, req, true)
	if err != nil {
		return nil, err
	}
	if failed != nil {
		return &TypedResult[T]{Result: failed}, nil
	}

	res, err := DecodeAs[T](ctx, c.decoder, ex.resp, req, ex.elapsed, c.serializerFor(req))
	if err != nil {
		c.logger.Error("decoding successful response failed",
			zap.String("method", ex.method),
			zap.String("uri", req.URI()),
			zap.Error(err),
		)
		return nil, err
	}

	ex.annotate(res.Result)
	c.observe(req, res.Result)
	return res, nil
}

func (c *Client) serializerFor(req *Request) serialization.Library {
	if lib, ok := req.SerializerOverride(); ok {
		return lib
	}
	return c.serializer
}

// exchange is a completed round trip awaiting decode.
type exchange struct {
	method    string
	resp      *http.Response
	elapsed   time.Duration
	timing    *Timing
	requestID string
}

func (ex *exchange) annotate(res *Result) {
	res.timing = ex.timing
	res.requestID = ex.requestID
}

// roundTrip builds and sends req. A non-nil error means the request could
// not be built and nothing was sent. A non-nil *Result is a transport
// failure that is already logged and observed.
func (c *Client) roundTrip(ctx context.Context, req *Request, encodePayload bool) (*exchange, *Result, error) {
	httpReq, err := c.buildWireRequest(ctx, req, encodePayload)
	if err != nil {
		return nil, nil, err
	}

	ex := &exchange{method: httpReq.Method}
	if c.requestIDHeader != "" {
		ex.requestID = httpReq.Header.Get(c.requestIDHeader)
		if ex.requestID == "" {
			ex.requestID = uuid.NewString()
			httpReq.Header.Set(c.requestIDHeader, ex.requestID)
		}
	}

	var trace *timingTrace
	if c.timing {
		trace = newTimingTrace()
		httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), trace.clientTrace()))
	}

	fields := []zap.Field{
		zap.String("method", httpReq.Method),
		zap.String("uri", req.URI()),
	}
	if ex.requestID != "" {
		fields = append(fields, zap.String("request_id", ex.requestID))
	}
	c.logger.Debug("executing request", fields...)

	start := time.Now()
	if trace != nil {
		trace.start(start)
	}
	resp, err := c.transport.Do(httpReq)
	ex.elapsed = time.Since(start)
	if trace != nil {
		ex.timing = trace.finish(ex.elapsed)
	}

	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		c.logger.Error("request failed", append(fields,
			zap.Duration("elapsed", ex.elapsed),
			zap.Error(err),
		)...)

		res := newFailedResult(req, ex.elapsed, &TransportError{Method: httpReq.Method, URI: req.URI(), Err: err})
		ex.annotate(res)
		c.observe(req, res)
		return nil, res, nil
	}

	if resp != nil {
		c.logger.Debug("request completed", append(fields,
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", ex.elapsed),
		)...)
	}

	ex.resp = resp
	return ex, nil, nil
}

func (c *Client) buildWireRequest(ctx context.Context, req *Request, encodePayload bool) (*http.Request, error) {
	method, err := req.Verb()
	if err != nil {
		return nil, err
	}
	if err := req.validate(req.URI()); err != nil {
		return nil, err
	}

	body, contentType, err := c.buildBody(req, encodePayload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URI(), body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	if auth, ok := req.Headers.Authentication(); ok {
		httpReq.Header.Set("Authorization", auth.String())
	}
	req.Headers.Range(func(key, value string) {
		httpReq.Header.Set(key, value)
	})

	return httpReq, nil
}

// buildBody returns the body reader and its Content-Type. At most one of
// Payload (when encoded), Form and RawBody may be set.
func (c *Client) buildBody(req *Request, encodePayload bool) (io.Reader, string, error) {
	hasPayload := encodePayload && req.Payload != nil
	sources := 0
	for _, set := range []bool{hasPayload, req.Form != nil, req.RawBody != nil} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return nil, "", ErrConflictingBody
	}

	switch {
	case hasPayload:
		s, err := c.resolver.Serialize(req.Payload, c.serializerFor(req))
		if err != nil {
			return nil, "", err
		}
		return strings.NewReader(s), utf8MediaType(c.payloadMediaTypeFor(req)), nil

	case req.Form != nil:
		return strings.NewReader(req.Form.Encode()), mediatype.ApplicationFormURL, nil

	case req.RawBody != nil:
		return bytes.NewReader(req.RawBody), req.ContentType, nil
	}

	return nil, "", nil
}

func (c *Client) payloadMediaTypeFor(req *Request) string {
	switch {
	case req.ContentType != "":
		return req.ContentType
	case c.payloadMediaType != "":
		return c.payloadMediaType
	default:
		return mediatype.ApplicationJSON
	}
}

// utf8MediaType returns mt with its charset parameter set to utf-8.
func utf8MediaType(mt string) string {
	base, params, err := mime.ParseMediaType(mt)
	if err != nil {
		base, _, _ = strings.Cut(mt, ";")
		base = strings.TrimSpace(base)
		params = map[string]string{}
	}
	params["charset"] = "utf-8"
	if formatted := mime.FormatMediaType(base, params); formatted != "" {
		return formatted
	}
	return base + "; charset=utf-8"
}

func (c *Client) observe(req *Request, res *Result) {
	for _, o := range c.observers {
		o.Observe(req, res)
	}
}
