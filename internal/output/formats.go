package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/amdevit/restling/internal/stats"
	"github.com/amdevit/restling/rest"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a --output value.
func ParseFormat(name string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(name)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text, json or yaml)", name)
}

// FormatProvider is an interface for different output formatters
type FormatProvider interface {
	FormatRequest(req *rest.Request) string
	FormatResult(res *rest.Result) string
	FormatSummary(s stats.Summary) string
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// RequestData represents the structured data of an HTTP request
type RequestData struct {
	Method    string            `json:"method" yaml:"method"`
	URL       string            `json:"url" yaml:"url"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body      any               `json:"body,omitempty" yaml:"body,omitempty"`
	Timestamp string            `json:"timestamp" yaml:"timestamp"`
}

// TimingData represents detailed timing information for an HTTP request
type TimingData struct {
	DNSLookup        int64 `json:"dnsLookupMs,omitempty" yaml:"dnsLookupMs,omitempty"`
	TCPConnection    int64 `json:"tcpConnectionMs,omitempty" yaml:"tcpConnectionMs,omitempty"`
	TLSHandshake     int64 `json:"tlsHandshakeMs,omitempty" yaml:"tlsHandshakeMs,omitempty"`
	TimeToFirstByte  int64 `json:"timeToFirstByteMs,omitempty" yaml:"timeToFirstByteMs,omitempty"`
	Total            int64 `json:"totalMs" yaml:"totalMs"`
	ConnectionReused bool  `json:"connectionReused,omitempty" yaml:"connectionReused,omitempty"`
}

// ResponseData represents the structured data of a result
type ResponseData struct {
	RequestID     string            `json:"requestId,omitempty" yaml:"requestId,omitempty"`
	StatusCode    int               `json:"statusCode" yaml:"statusCode"`
	Status        string            `json:"status,omitempty" yaml:"status,omitempty"`
	Successful    bool              `json:"successful" yaml:"successful"`
	Headers       map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body          any               `json:"body,omitempty" yaml:"body,omitempty"`
	ResponseTime  int64             `json:"responseTimeMs" yaml:"responseTimeMs"`
	Timing        *TimingData       `json:"timing,omitempty" yaml:"timing,omitempty"`
	ContentLength int64             `json:"contentLength,omitempty" yaml:"contentLength,omitempty"`
	Error         string            `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp     string            `json:"timestamp" yaml:"timestamp"`
}

// SummaryData is the structured form of stats.Summary, durations in milliseconds
type SummaryData struct {
	Total       int64            `json:"total" yaml:"total"`
	Success     int64            `json:"success" yaml:"success"`
	Failed      int64            `json:"failed" yaml:"failed"`
	SuccessRate float64          `json:"successRate" yaml:"successRate"`
	Bytes       int64            `json:"bytes" yaml:"bytes"`
	Latency     map[string]int64 `json:"latencyMs" yaml:"latencyMs"`
	Statuses    map[int]int64    `json:"statuses,omitempty" yaml:"statuses,omitempty"`
}

// NewRequestData extracts the structured data of req
func NewRequestData(req *rest.Request) RequestData {
	verb, err := req.Verb()
	if err != nil {
		verb = req.Method().String()
	}

	data := RequestData{
		Method:    verb,
		URL:       req.URI(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if headers := requestHeaders(req); len(headers) > 0 {
		data.Headers = make(map[string]string, len(headers))
		for _, h := range headers {
			data.Headers[h[0]] = h[1]
		}
	}
	switch {
	case req.Payload != nil:
		data.Body = req.Payload
	case len(req.Form) > 0:
		data.Body = req.Form.Encode()
	case len(req.RawBody) > 0:
		data.Body = string(req.RawBody)
	}
	return data
}

// NewResponseData extracts the structured data of res
func NewResponseData(res *rest.Result) ResponseData {
	data := ResponseData{
		RequestID:    res.RequestID(),
		StatusCode:   res.StatusCode(),
		Status:       res.Status(),
		Successful:   res.IsSuccessful(),
		Body:         bodyValue(res),
		ResponseTime: res.ElapsedMillis(),
		Timestamp:    time.Now().Format(time.RFC3339),
	}

	if keys := res.Headers().Keys(); len(keys) > 0 {
		data.Headers = make(map[string]string, len(keys))
		for _, key := range keys {
			data.Headers[key] = strings.Join(res.Headers().Values(key), ", ")
		}
	}

	if t := res.Timing(); t != nil {
		data.Timing = &TimingData{
			DNSLookup:        t.DNSLookup.Milliseconds(),
			TCPConnection:    t.TCPConnect.Milliseconds(),
			TLSHandshake:     t.TLSHandshake.Milliseconds(),
			TimeToFirstByte:  t.TimeToFirstByte.Milliseconds(),
			Total:            t.Total.Milliseconds(),
			ConnectionReused: t.ConnectionReused,
		}
	}

	if res.HasStatus() {
		data.ContentLength = int64(len(res.RawContent()))
	}
	if err := res.Err(); err != nil {
		data.Error = err.Error()
	}
	return data
}

// NewSummaryData converts a stats snapshot
func NewSummaryData(s stats.Summary) SummaryData {
	return SummaryData{
		Total:       s.Total,
		Success:     s.Success,
		Failed:      s.Failed,
		SuccessRate: s.SuccessRate(),
		Bytes:       s.Bytes,
		Latency: map[string]int64{
			"min":  s.Latency.Min.Milliseconds(),
			"mean": s.Latency.Mean.Milliseconds(),
			"p50":  s.Latency.P50.Milliseconds(),
			"p90":  s.Latency.P90.Milliseconds(),
			"p95":  s.Latency.P95.Milliseconds(),
			"p99":  s.Latency.P99.Milliseconds(),
			"max":  s.Latency.Max.Milliseconds(),
		},
		Statuses: s.Statuses,
	}
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

// FormatRequest formats a request as JSON
func (f *JSONFormatter) FormatRequest(req *rest.Request) string {
	return f.marshal("request", NewRequestData(req))
}

// FormatResult formats a result as JSON
func (f *JSONFormatter) FormatResult(res *rest.Result) string {
	return f.marshal("response", NewResponseData(res))
}

// FormatSummary formats a stats snapshot as JSON
func (f *JSONFormatter) FormatSummary(s stats.Summary) string {
	return f.marshal("summary", NewSummaryData(s))
}

func (f *JSONFormatter) marshal(what string, v any) string {
	var out []byte
	var err error
	if f.Pretty {
		out, err = jsonAPI.MarshalIndent(v, "", "  ")
	} else {
		out, err = jsonAPI.Marshal(v)
	}
	if err != nil {
		return fmt.Sprintf(`{"error":"Failed to marshal %s: %s"}`, what, err)
	}
	return string(out) + "\n"
}

// YAMLFormatter formats output as YAML documents
type YAMLFormatter struct{}

// FormatRequest formats a request as YAML
func (f *YAMLFormatter) FormatRequest(req *rest.Request) string {
	return f.marshal("request", NewRequestData(req))
}

// FormatResult formats a result as YAML
func (f *YAMLFormatter) FormatResult(res *rest.Result) string {
	return f.marshal("response", NewResponseData(res))
}

// FormatSummary formats a stats snapshot as YAML
func (f *YAMLFormatter) FormatSummary(s stats.Summary) string {
	return f.marshal("summary", NewSummaryData(s))
}

func (f *YAMLFormatter) marshal(what string, v any) string {
	out, err := yaml.Marshal(map[string]any{what: v})
	if err != nil {
		return fmt.Sprintf("error: failed to marshal %s: %s\n", what, err)
	}
	return "---\n" + string(out)
}

// GetFormatter returns the formatter for format
func GetFormatter(format OutputFormat, verbose bool, noColor bool) FormatProvider {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Pretty: true}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return NewFormatter(verbose, noColor)
	}
}

// requestHeaders lists the headers set on req, body headers first and the
// Authorization parameter masked.
func requestHeaders(req *rest.Request) [][2]string {
	var out [][2]string
	if req.ContentType != "" {
		out = append(out, [2]string{"Content-Type", req.ContentType})
	}
	if req.Accept != "" {
		out = append(out, [2]string{"Accept", req.Accept})
	}
	if auth, ok := req.Headers.Authentication(); ok {
		out = append(out, [2]string{"Authorization", maskAuthorization(auth.String())})
	}
	var custom [][2]string
	req.Headers.Range(func(key, value string) {
		if strings.EqualFold(key, "Authorization") {
			value = maskAuthorization(value)
		}
		custom = append(custom, [2]string{key, value})
	})
	return append(out, custom...)
}

func maskAuthorization(value string) string {
	scheme, _, _ := strings.Cut(value, " ")
	return scheme + " ****"
}

func requestBody(req *rest.Request) string {
	switch {
	case req.Payload != nil:
		b, err := jsonAPI.Marshal(req.Payload)
		if err != nil {
			return fmt.Sprintf("%v", req.Payload)
		}
		return string(b)
	case len(req.Form) > 0:
		return req.Form.Encode()
	case len(req.RawBody) > 0:
		return string(req.RawBody)
	}
	return ""
}
