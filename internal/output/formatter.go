package output

import (
	"fmt"
	"strings"

	"github.com/amdevit/restling/internal/stats"
	"github.com/amdevit/restling/rest"
)

// Formatter renders requests and results as human-readable text
type Formatter struct {
	Verbose bool
	NoColor bool
	scheme  *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	return &Formatter{
		Verbose: verbose,
		NoColor: noColor,
		scheme:  SchemeFor(noColor),
	}
}

// FormatRequest formats a request for display
func (f *Formatter) FormatRequest(req *rest.Request) string {
	var buf strings.Builder

	verb, err := req.Verb()
	if err != nil {
		verb = req.Method().String()
	}
	fmt.Fprintf(&buf, "▶ REQUEST: %s %s\n", f.scheme.Method.Sprint(verb), f.scheme.URL.Sprint(req.URI()))

	headers := requestHeaders(req)
	if len(headers) > 0 {
		buf.WriteString("  Headers:\n")
		for _, h := range headers {
			fmt.Fprintf(&buf, "    %s: %s\n", f.scheme.HeaderKey.Sprint(h[0]), f.scheme.HeaderValue.Sprint(h[1]))
		}
	}

	if body := requestBody(req); body != "" {
		buf.WriteString("  Body: ")
		buf.WriteString(body)
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatResult formats the outcome of a request for display
func (f *Formatter) FormatResult(res *rest.Result) string {
	var buf strings.Builder

	if !res.HasStatus() {
		fmt.Fprintf(&buf, "◀ RESPONSE: %s (%dms)\n", f.scheme.Error.Sprint("no response"), res.ElapsedMillis())
		if err := res.Err(); err != nil {
			fmt.Fprintf(&buf, "  Error: %v\n", err)
		}
		return buf.String()
	}

	fmt.Fprintf(&buf, "◀ RESPONSE: %s (%dms)\n",
		f.scheme.Status(res.StatusCode()).Sprint(res.Status()),
		res.ElapsedMillis())

	if loc := res.Headers().RedirectLocation(); loc != "" {
		fmt.Fprintf(&buf, "  Location: %s\n", f.scheme.URL.Sprint(loc))
	}

	if f.Verbose {
		if id := res.RequestID(); id != "" {
			fmt.Fprintf(&buf, "  Request ID: %s\n", id)
		}
		if t := res.Timing(); t != nil {
			buf.WriteString("  Timing:\n")
			f.timingLine(&buf, "DNS Lookup", t.DNSLookup.Milliseconds())
			f.timingLine(&buf, "TCP Connection", t.TCPConnect.Milliseconds())
			f.timingLine(&buf, "TLS Handshake", t.TLSHandshake.Milliseconds())
			f.timingLine(&buf, "Time to First Byte", t.TimeToFirstByte.Milliseconds())
			f.timingLine(&buf, "Total", t.Total.Milliseconds())
			if t.ConnectionReused {
				buf.WriteString("    (connection reused)\n")
			}
		}

		buf.WriteString("  Headers:\n")
		for _, key := range res.Headers().Keys() {
			for _, value := range res.Headers().Values(key) {
				fmt.Fprintf(&buf, "    %s: %s\n", f.scheme.HeaderKey.Sprint(key), f.scheme.HeaderValue.Sprint(value))
			}
		}
	}

	if body := renderBody(res, !f.NoColor); body != "" {
		buf.WriteString("  Body:\n")
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// FormatSummary formats the statistics of repeated requests
func (f *Formatter) FormatSummary(s stats.Summary) string {
	var buf strings.Builder

	icon := SuccessIcon(f.NoColor)
	if s.Failed > 0 {
		icon = ErrorIcon(f.NoColor)
	}
	fmt.Fprintf(&buf, "%s %s: %d requests, %d succeeded, %d failed (%.1f%%)\n",
		icon, f.scheme.Highlight.Sprint("SUMMARY"), s.Total, s.Success, s.Failed, s.SuccessRate()*100)
	fmt.Fprintf(&buf, "  Latency: min %s, p50 %s, p90 %s, p99 %s, max %s\n",
		s.Latency.Min, s.Latency.P50, s.Latency.P90, s.Latency.P99, s.Latency.Max)

	codes := s.StatusCodes()
	if len(codes) > 0 {
		parts := make([]string, len(codes))
		for i, code := range codes {
			parts[i] = fmt.Sprintf("%s×%d", f.scheme.Status(code).Sprint(code), s.Statuses[code])
		}
		fmt.Fprintf(&buf, "  Statuses: %s\n", strings.Join(parts, " "))
	}
	fmt.Fprintf(&buf, "  Received: %d bytes\n", s.Bytes)

	return buf.String()
}

func (f *Formatter) timingLine(buf *strings.Builder, label string, ms int64) {
	fmt.Fprintf(buf, "    %s %dms\n", f.scheme.Label.Sprintf("%-19s", label+":"), ms)
}
