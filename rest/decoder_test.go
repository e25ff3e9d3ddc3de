package rest

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/amdevit/restling/pkg/charset"
	"github.com/amdevit/restling/pkg/serialization"
)

type origin struct {
	Origin string `json:"origin"`
}

type legacyOrigin struct {
	Origin string `jsoniter:"client_ip"`
}

type slideshow struct {
	XMLName xml.Name `xml:"slideshow"`
	Title   string   `xml:"title,attr"`
	Slides  []struct {
		Title string `xml:"title"`
	} `xml:"slide"`
}

func response(status int, contentType string, body []byte) *http.Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(string(body))),
	}
}

func testRequest(t *testing.T) *Request {
	t.Helper()
	req, err := NewRequest(MethodGet, "https://example.com/resource")
	require.NoError(t, err)
	return req
}

func observedDecoder() (*Decoder, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Decoder{Logger: zap.New(core)}, logs
}

func TestDecode_NilResponse(t *testing.T) {
	d, logs := observedDecoder()
	req := testRequest(t)

	res := d.Decode(context.Background(), nil, req, 15*time.Millisecond)

	assert.ErrorIs(t, res.Err(), ErrNoResponse)
	assert.False(t, res.HasStatus())
	assert.False(t, res.IsSuccessful())
	assert.Equal(t, 15*time.Millisecond, res.Elapsed())
	assert.Same(t, req, res.Request())
	assert.Equal(t, 1, logs.FilterMessage("no response received").Len())
}

func TestDecode_ClassifiesOnly(t *testing.T) {
	d := &Decoder{}
	body := []byte(`{"origin":"1.2.3.4"}`)
	resp := response(200, "application/json; charset=utf-8", body)
	resp.Header.Set("Location", "https://example.com/elsewhere")

	res := d.Decode(context.Background(), resp, testRequest(t), time.Millisecond)

	require.NoError(t, res.Err())
	assert.True(t, res.IsSuccessful())
	assert.Equal(t, 200, res.StatusCode())
	assert.Equal(t, "application/json", res.ContentType())
	assert.Equal(t, charset.UTF8, res.Charset())
	assert.Equal(t, body, res.RawContent())
	assert.Equal(t, string(body), res.Content())
	assert.Equal(t, "https://example.com/elsewhere", res.Headers().RedirectLocation())
	require.NotNil(t, res.Retrieved())
	assert.False(t, res.Retrieved().IsBinary())
}

func TestDecode_BinaryContentRendersBase64(t *testing.T) {
	d := &Decoder{}
	body := []byte{0x89, 'P', 'N', 'G', 0x00}

	res := d.Decode(context.Background(), response(200, "image/png", body), testRequest(t), 0)

	assert.True(t, res.Retrieved().IsBinary())
	assert.Equal(t, base64.StdEncoding.EncodeToString(body), res.Content())
}

func TestDecode_CharsetFromHeader(t *testing.T) {
	d := &Decoder{}
	res := d.Decode(context.Background(), response(200, "text/plain; charset=iso-8859-1", []byte{'c', 'a', 'f', 0xE9}), testRequest(t), 0)

	assert.Equal(t, charset.ISO88591, res.Charset())
	assert.Equal(t, "café", res.Content())
}

func TestDecode_NoContentType(t *testing.T) {
	d := &Decoder{}
	res := d.Decode(context.Background(), response(200, "", []byte("plain bytes")), testRequest(t), 0)

	assert.Empty(t, res.ContentType())
	assert.False(t, res.Retrieved().IsBinary())
	assert.False(t, res.Retrieved().IsText())
	assert.Equal(t, "plain bytes", res.Content())
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (failingBody) Close() error             { return nil }

func TestDecode_BodyReadFailure(t *testing.T) {
	d := &Decoder{}
	resp := response(200, "text/plain", nil)
	resp.Body = failingBody{}

	res := d.Decode(context.Background(), resp, testRequest(t), 0)

	var terr *TransportError
	require.True(t, errors.As(res.Err(), &terr))
	assert.False(t, res.IsSuccessful())
}

func TestDecodeAs_JSON(t *testing.T) {
	d := &Decoder{}
	resp := response(200, "application/json; charset=utf-8", []byte(`{"origin":"1.2.3.4"}`))

	res, err := DecodeAs[origin](context.Background(), d, resp, testRequest(t), 0, serialization.Automatic)

	require.NoError(t, err)
	require.True(t, res.HasData())
	assert.Equal(t, "1.2.3.4", res.Data().Origin)
	assert.True(t, res.IsSuccessful())
}

func TestDecodeAs_JSONLegacyModel(t *testing.T) {
	d := &Decoder{}
	resp := response(200, "application/json", []byte(`{"client_ip":"5.6.7.8"}`))

	res, err := DecodeAs[legacyOrigin](context.Background(), d, resp, testRequest(t), 0, serialization.Automatic)

	require.NoError(t, err)
	assert.Equal(t, "5.6.7.8", res.Data().Origin)
}

func TestDecodeAs_MalformedJSONOnSuccessEscalates(t *testing.T) {
	d := &Decoder{}
	resp := response(200, "application/json", []byte(`{"origin":`))

	res, err := DecodeAs[origin](context.Background(), d, resp, testRequest(t), 0, serialization.Automatic)

	require.Error(t, err)
	assert.Nil(t, res)

	var derr *DecodeError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 200, derr.StatusCode)
	assert.Equal(t, "application/json", derr.MediaType)

	var serr *serialization.Error
	assert.True(t, errors.As(err, &serr))
}

func TestDecodeAs_MismatchedBodyOnFailureIsSwallowed(t *testing.T) {
	d, logs := observedDecoder()
	resp := response(500, "application/json", []byte(`["not","an","object"]`))

	res, err := DecodeAs[origin](context.Background(), d, resp, testRequest(t), 0, serialization.Automatic)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.IsSuccessful())
	assert.False(t, res.HasData())
	assert.NoError(t, res.Err())
	assert.Equal(t, 500, res.StatusCode())
	assert.Equal(t, 1, logs.FilterMessage("discarding undecodable response body").Len())
}

func TestDecodeAs_RawBytesAlwaysExact(t *testing.T) {
	body := []byte{0x00, 0xFF, 'x'}
	for _, ct := range []string{"", "application/json", "image/png", "text/plain"} {
		t.Run(ct, func(t *testing.T) {
			d := &Decoder{}
			res, err := DecodeAs[[]byte](context.Background(), d, response(200, ct, body), testRequest(t), 0, serialization.Automatic)

			require.NoError(t, err)
			assert.Equal(t, body, res.Data())
		})
	}
}

func TestDecodeAs_String(t *testing.T) {
	d := &Decoder{}

	res, err := DecodeAs[string](context.Background(), d, response(200, "text/plain", []byte("hello")), testRequest(t), 0, serialization.Automatic)
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Data())

	png := []byte{0x89, 'P', 'N', 'G'}
	res, err = DecodeAs[string](context.Background(), d, response(200, "image/png", png), testRequest(t), 0, serialization.Automatic)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(png), res.Data())
}

func TestDecodeAs_Primitive(t *testing.T) {
	d, logs := observedDecoder()

	res, err := DecodeAs[int](context.Background(), d, response(200, "text/plain", []byte("42")), testRequest(t), 0, serialization.Automatic)
	require.NoError(t, err)
	assert.True(t, res.HasData())
	assert.Equal(t, 42, res.Data())

	res, err = DecodeAs[int](context.Background(), d, response(200, "text/plain", []byte("forty-two")), testRequest(t), 0, serialization.Automatic)
	require.NoError(t, err)
	assert.False(t, res.HasData())
	assert.Equal(t, 1, logs.FilterMessage("primitive conversion failed").Len())

	res, err = DecodeAs[int](context.Background(), d, response(200, "application/json", []byte(`"42"`)), testRequest(t), 0, serialization.Automatic)
	require.NoError(t, err)
	assert.True(t, res.HasData())
	assert.Equal(t, 42, res.Data())

	bres, err := DecodeAs[bool](context.Background(), d, response(200, "application/octet-stream", []byte("true")), testRequest(t), 0, serialization.Automatic)
	require.NoError(t, err)
	assert.False(t, bres.HasData())
}

func TestDecodeAs_XML(t *testing.T) {
	d := &Decoder{}
	body := `<?xml version='1.0' encoding='us-ascii'?>
<slideshow title="Sample Slide Show"><slide><title>Wake up to WonderWidgets!</title></slide><slide><title>Overview</title></slide></slideshow>`

	for _, ct := range []string{"application/xml", "text/xml", "application/atom+xml"} {
		t.Run(ct, func(t *testing.T) {
			res, err := DecodeAs[slideshow](context.Background(), d, response(200, ct, []byte(body)), testRequest(t), 0, serialization.Automatic)

			require.NoError(t, err)
			assert.Equal(t, "Sample Slide Show", res.Data().Title)
			require.Len(t, res.Data().Slides, 2)
			assert.Equal(t, "Overview", res.Data().Slides[1].Title)
		})
	}
}

func TestDecodeAs_XMLExternalEntityRefused(t *testing.T) {
	d := &Decoder{}
	resp := response(200, "application/xml", []byte(xxeDocument))

	res, err := DecodeAs[fooDoc](context.Background(), d, resp, testRequest(t), 0, serialization.Automatic)

	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafeXML)
}

func TestDecodeAs_XMLExternalEntityAllowed(t *testing.T) {
	d := &Decoder{AllowUnsafeXML: true}
	resp := response(200, "application/xml", []byte(xxeDocument))

	res, err := DecodeAs[fooDoc](context.Background(), d, resp, testRequest(t), 0, serialization.Automatic)

	require.NoError(t, err)
	assert.Equal(t, "&xxe;", res.Data().Value)
}

func TestDecodeAs_UnsupportedMediaType(t *testing.T) {
	d, logs := observedDecoder()
	resp := response(200, "text/html", []byte("<html></html>"))

	res, err := DecodeAs[origin](context.Background(), d, resp, testRequest(t), 0, serialization.Automatic)

	require.NoError(t, err)
	assert.False(t, res.HasData())
	assert.Equal(t, 1, logs.FilterMessage("unsupported media type").FilterField(zap.String("media_type", "text/html")).Len())
}

func TestDecodeAs_NoContentTypeStructured(t *testing.T) {
	d, logs := observedDecoder()
	res, err := DecodeAs[origin](context.Background(), d, response(200, "", []byte(`{"origin":"x"}`)), testRequest(t), 0, serialization.Automatic)

	require.NoError(t, err)
	assert.False(t, res.HasData())
	assert.Equal(t, 1, logs.FilterMessage("unsupported conversion target").Len())
}

func TestDecodeAs_EmptyJSONBody(t *testing.T) {
	d := &Decoder{}
	res, err := DecodeAs[origin](context.Background(), d, response(204, "application/json", nil), testRequest(t), 0, serialization.Automatic)

	require.NoError(t, err)
	assert.True(t, res.IsSuccessful())
	assert.False(t, res.HasData())
}

func TestDecodeAs_BlankBodyOnSuccessEscalates(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
	}{
		{"json", "application/json"},
		{"xml", "application/xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Decoder{}
			res, err := DecodeAs[origin](context.Background(), d, response(200, tt.contentType, []byte("   ")), testRequest(t), 0, serialization.Automatic)

			var derr *DecodeError
			require.True(t, errors.As(err, &derr), "got %v", err)
			assert.Nil(t, res)
			assert.Equal(t, 200, derr.StatusCode)
		})
	}
}

func TestDecodeAs_BlankBodyOnHeadIsAccepted(t *testing.T) {
	req, err := NewRequest(MethodHead, "https://example.com/resource")
	require.NoError(t, err)

	res, err := DecodeAs[origin](context.Background(), &Decoder{}, response(200, "application/json", nil), req, 0, serialization.Automatic)
	require.NoError(t, err)
	assert.True(t, res.IsSuccessful())
	assert.False(t, res.HasData())
}

func TestDecodeAs_BlankBodyOnFailureIsSwallowed(t *testing.T) {
	d, logs := observedDecoder()
	res, err := DecodeAs[origin](context.Background(), d, response(502, "application/json", nil), testRequest(t), 0, serialization.Automatic)

	require.NoError(t, err)
	assert.False(t, res.HasData())
	assert.Equal(t, 1, logs.FilterMessage("discarding undecodable response body").Len())
}

func TestDecodeAs_NilResponse(t *testing.T) {
	d := &Decoder{}
	res, err := DecodeAs[origin](context.Background(), d, nil, testRequest(t), time.Second, serialization.Automatic)

	require.NoError(t, err)
	assert.ErrorIs(t, res.Err(), ErrNoResponse)
	assert.False(t, res.HasData())
}
