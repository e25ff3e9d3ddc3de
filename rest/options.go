package rest

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/amdevit/restling/pkg/serialization"
)

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithTransport sets the transport. The client does not close it unless
// WithOwnedTransport is also given.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHTTPClient uses hc as the transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.transport = hc
		}
	}
}

// WithOwnedTransport makes Close release the transport's idle connections.
func WithOwnedTransport() ClientOption {
	return func(c *Client) {
		c.ownsTransport = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithResolver sets the serializer resolver.
func WithResolver(r *serialization.Resolver) ClientOption {
	return func(c *Client) {
		c.resolver = r
	}
}

// WithSerializer sets the default JSON engine used when a request carries
// no override.
func WithSerializer(lib serialization.Library) ClientOption {
	return func(c *Client) {
		c.serializer = lib
	}
}

// WithPayloadMediaType sets the media type of encoded payloads. The
// charset parameter is always utf-8.
func WithPayloadMediaType(mediaType string) ClientOption {
	return func(c *Client) {
		c.payloadMediaType = mediaType
	}
}

// WithStrictPayloads makes Execute fail instead of dropping a payload.
func WithStrictPayloads(strict bool) ClientOption {
	return func(c *Client) {
		c.strictPayloads = strict
	}
}

// WithUnsafeXML allows XML responses that declare a DTD.
func WithUnsafeXML(allow bool) ClientOption {
	return func(c *Client) {
		c.allowUnsafeXML = allow
	}
}

// WithTiming records the httptrace phase breakdown on each result.
func WithTiming(enabled bool) ClientOption {
	return func(c *Client) {
		c.timing = enabled
	}
}

// WithObserver registers an observer called after every attempt.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithRequestID sends a generated correlation id in header. An empty
// header name uses X-Request-ID.
func WithRequestID(header string) ClientOption {
	return func(c *Client) {
		if header == "" {
			header = DefaultRequestIDHeader
		}
		c.requestIDHeader = header
	}
}
