package output

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/amdevit/restling/internal/stats"
	"github.com/amdevit/restling/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userJSON = `{"id":1,"name":"John Doe","email":"john@example.com"}`

func testRequest(t *testing.T) *rest.Request {
	t.Helper()
	req, err := rest.NewRequest(rest.MethodPost, "https://api.example.com/users",
		rest.WithPayload(map[string]any{"name": "John Doe"}),
		rest.WithAccept("application/json"),
		rest.WithHeader("X-Trace", "abc"),
		rest.WithAuthentication(rest.AuthenticationHeader{Scheme: "Bearer", Parameter: "token123"}),
	)
	require.NoError(t, err)
	return req
}

func testResult(t *testing.T, status int, contentType string, body []byte) *rest.Result {
	t.Helper()
	req, err := rest.NewRequest(rest.MethodGet, "https://api.example.com/users/1")
	require.NoError(t, err)

	header := make(http.Header)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	header.Set("X-Rate-Limit", "100")
	resp := &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(string(body))),
	}
	return (&rest.Decoder{}).Decode(context.Background(), resp, req, 123*time.Millisecond)
}

func TestFormatter_FormatRequest(t *testing.T) {
	out := NewFormatter(false, true).FormatRequest(testRequest(t))

	assert.Contains(t, out, "▶ REQUEST: POST https://api.example.com/users")
	assert.Contains(t, out, "Accept: application/json")
	assert.Contains(t, out, "X-Trace: abc")
	assert.Contains(t, out, "Authorization: Bearer ****")
	assert.NotContains(t, out, "token123")
	assert.Contains(t, out, `Body: {"name":"John Doe"}`)
}

func TestFormatter_FormatResult(t *testing.T) {
	res := testResult(t, 200, "application/json", []byte(userJSON))

	out := NewFormatter(false, true).FormatResult(res)
	assert.Contains(t, out, "◀ RESPONSE: OK (123ms)")
	assert.Contains(t, out, `"name": "John Doe"`)
	assert.NotContains(t, out, "X-Rate-Limit")

	verbose := NewFormatter(true, true).FormatResult(res)
	assert.Contains(t, verbose, "X-Rate-Limit: 100")
	assert.Contains(t, verbose, "Content-Type: application/json")
}

func TestFormatter_FormatResult_Binary(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	out := NewFormatter(false, true).FormatResult(testResult(t, 200, "image/png", png))

	assert.Contains(t, out, "<binary 16 bytes, image/png>")
}

func TestFormatter_FormatResult_Text(t *testing.T) {
	out := NewFormatter(false, true).FormatResult(testResult(t, 404, "text/plain", []byte("not here")))

	assert.Contains(t, out, "Not Found")
	assert.Contains(t, out, "not here")
}

func TestFormatter_FormatResult_NoResponse(t *testing.T) {
	req, err := rest.NewRequest(rest.MethodGet, "https://api.example.com")
	require.NoError(t, err)
	res := (&rest.Decoder{}).Decode(context.Background(), nil, req, time.Millisecond)

	out := NewFormatter(false, true).FormatResult(res)
	assert.Contains(t, out, "no response")
	assert.Contains(t, out, rest.ErrNoResponse.Error())
}

func TestFormatter_FormatSummary(t *testing.T) {
	rec := stats.NewRecorder()
	rec.Record("GET", 10*time.Millisecond, 200, true, 100)
	rec.Record("GET", 20*time.Millisecond, 500, false, 20)

	out := NewFormatter(false, true).FormatSummary(rec.Summary())
	assert.Contains(t, out, "✗ SUMMARY: 2 requests, 1 succeeded, 1 failed (50.0%)")
	assert.Contains(t, out, "200×1 500×1")
	assert.Contains(t, out, "Received: 120 bytes")
}

func TestColorScheme(t *testing.T) {
	scheme := NoColorScheme()
	assert.Equal(t, "GET", scheme.Method.Sprint("GET"))
	assert.Same(t, scheme.StatusOK, scheme.Status(204))
	assert.Same(t, scheme.StatusWarn, scheme.Status(302))
	assert.Same(t, scheme.StatusError, scheme.Status(503))

	colored := SchemeFor(false)
	assert.NotEqual(t, "GET", colored.Method.Sprint("GET"))

	assert.Equal(t, "✓", SuccessIcon(true))
	assert.Equal(t, "✗", ErrorIcon(true))
}
