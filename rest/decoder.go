package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amdevit/restling/pkg/charset"
	"github.com/amdevit/restling/pkg/content"
	"github.com/amdevit/restling/pkg/mediatype"
	"github.com/amdevit/restling/pkg/serialization"
)

// Decoder turns transport responses into results. The zero value is ready
// to use with a no-op logger and a default resolver.
type Decoder struct {
	// Logger receives decode diagnostics.
	Logger *zap.Logger

	// Resolver selects the JSON engine.
	Resolver *serialization.Resolver

	// AllowUnsafeXML permits XML documents that declare a DTD.
	AllowUnsafeXML bool
}

func (d *Decoder) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Decoder) resolver() *serialization.Resolver {
	if d.Resolver == nil {
		return defaultResolver()
	}
	return d.Resolver
}

// Decode reads and classifies the response body. It never decodes
// structurally. A nil resp yields a result carrying ErrNoResponse.
func (d *Decoder) Decode(ctx context.Context, resp *http.Response, req *Request, elapsed time.Duration) *Result {
	log := d.logger()

	if resp == nil {
		log.Error("no response received",
			zap.String("uri", requestURI(req)),
			zap.Duration("elapsed", elapsed),
		)
		return newFailedResult(req, elapsed, ErrNoResponse)
	}

	res := &Result{
		request:    req,
		statusCode: resp.StatusCode,
		status:     resp.Status,
		elapsed:    elapsed,
		headers:    newResponseHeaders(resp.Header),
	}

	declared, hasType := mediatype.ParseContentType(resp.Header.Get("Content-Type"))
	if hasType {
		res.contentType = declared.MediaType
		res.charset = charset.Parse(declared.Charset)
	}

	raw, err := readBody(ctx, resp)
	if err != nil {
		method := ""
		if resp.Request != nil {
			method = resp.Request.Method
		}
		log.Error("reading response body failed",
			zap.String("uri", requestURI(req)),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		res.err = &TransportError{Method: method, URI: requestURI(req), Err: err}
		return res
	}
	res.raw = raw

	if hasType {
		res.retrieved = content.Retrieve(raw, &declared)
	} else {
		res.retrieved = content.Retrieve(raw, nil)
	}

	return res
}

func readBody(ctx context.Context, resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return []byte{}, nil
	}
	defer resp.Body.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// DecodeAs decodes the response into T. choice selects the JSON engine.
//
// When the body cannot be decoded and the status is 2xx, a *DecodeError is
// returned and the result is nil. For other statuses the failure is logged
// and the result is returned without data.
func DecodeAs[T any](ctx context.Context, d *Decoder, resp *http.Response, req *Request, elapsed time.Duration, choice serialization.Library) (*TypedResult[T], error) {
	res := d.Decode(ctx, resp, req, elapsed)
	typed := &TypedResult[T]{Result: res}
	if res.err != nil || res.retrieved == nil {
		return typed, nil
	}

	data, ok, err := decodeData[T](d, res.retrieved, choice, bodyless(req, res.statusCode))
	if err != nil {
		if IsSuccessStatus(res.statusCode) {
			return nil, &DecodeError{
				Target:     typeNameOf[T](),
				MediaType:  res.contentType,
				StatusCode: res.statusCode,
				Err:        err,
			}
		}
		d.logger().Error("discarding undecodable response body",
			zap.String("uri", requestURI(req)),
			zap.Int("status", res.statusCode),
			zap.String("type", typeNameOf[T]()),
			zap.Error(err),
		)
		return typed, nil
	}

	if ok {
		typed.data = data
		typed.hasData = true
	}
	return typed, nil
}

// bodyless reports whether an empty body is the expected answer: HEAD
// requests and statuses that never carry content.
func bodyless(req *Request, status int) bool {
	if req != nil && req.Method() == MethodHead {
		return true
	}
	switch status {
	case http.StatusNoContent, http.StatusResetContent, http.StatusNotModified:
		return true
	}
	return false
}

// decodeData produces T from classified content. ok is false when nothing
// was decoded; err is set only for failures subject to escalation. A blank
// structured body is only accepted when allowBlank is set.
func decodeData[T any](d *Decoder, c *content.Classified, choice serialization.Library, allowBlank bool) (data T, ok bool, err error) {
	log := d.logger()
	target := targetOf[T]()

	switch target {
	case targetRawBytes:
		return any(c.Raw()).(T), true, nil

	case targetText:
		return any(c.String()).(T), true, nil

	case targetPrimitive:
		if c.IsBinary() {
			log.Error("primitive conversion failed",
				zap.String("type", typeNameOf[T]()),
				zap.String("reason", "binary content"),
			)
			return data, false, nil
		}
		v, perr := parsePrimitive[T](c.String())
		if perr != nil {
			log.Error("primitive conversion failed",
				zap.String("type", typeNameOf[T]()),
				zap.Error(perr),
			)
			return data, false, nil
		}
		return v, true, nil
	}

	ct, declared := c.ContentType()
	if !declared {
		log.Warn("unsupported conversion target",
			zap.String("type", typeNameOf[T]()),
			zap.String("reason", "no content type"),
		)
		return data, false, nil
	}
	text, _ := c.Text()

	switch {
	case mediatype.IsJSON(ct.MediaType):
		if allowBlank && strings.TrimSpace(text) == "" {
			return data, false, nil
		}
		if err := d.resolver().DeserializeInto(text, &data, choice); err != nil {
			return data, false, err
		}
		return data, true, nil

	case mediatype.IsXML(ct.MediaType):
		if strings.TrimSpace(text) == "" {
			if allowBlank {
				return data, false, nil
			}
			return data, false, fmt.Errorf("error deserializing xml into %s: %w", typeNameOf[T](), io.ErrUnexpectedEOF)
		}
		if err := decodeXML(text, &data, d.AllowUnsafeXML); err != nil {
			return data, false, fmt.Errorf("error deserializing xml into %s: %w", typeNameOf[T](), err)
		}
		return data, true, nil
	}

	log.Warn("unsupported media type",
		zap.String("media_type", ct.MediaType),
		zap.String("type", typeNameOf[T]()),
	)
	return data, false, nil
}

func requestURI(req *Request) string {
	if req == nil {
		return ""
	}
	return req.URI()
}
