package cli

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// requestFlags holds the per-command flags
type requestFlags struct {
	headers     []string
	data        string
	jsonData    string
	form        []string
	contentType string
	accept      string
	user        string
	bearer      string
	timeout     time.Duration
	serializer  string
	unsafeXML   bool
	unsafeURI   bool
	noLocalhost bool
	cookieFile  string
	rate        float64
	repeat      int
	extract     []string
	schema      string
	report      string
	metricsFile string
}

func (f *requestFlags) bind(cmd *cobra.Command, withBody bool) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "HTTP headers to include (can be used multiple times)")
	if withBody {
		flags.StringVarP(&f.data, "data", "d", "", "Raw request body")
		flags.StringVarP(&f.jsonData, "json", "j", "", "JSON request body, sent as given after validation")
		flags.StringArrayVarP(&f.form, "form", "f", nil, "Form field key=value (can be used multiple times)")
		flags.StringVar(&f.contentType, "content-type", "", "Content-Type of the request body")
	}
	flags.StringVar(&f.accept, "accept", "", "Accept header")
	flags.StringVarP(&f.user, "user", "u", "", "Basic credentials user[:password]; prompts when the password is omitted")
	flags.StringVar(&f.bearer, "bearer", "", "Bearer token")
	flags.DurationVarP(&f.timeout, "timeout", "t", 0, "Request timeout (default 30s or the profile timeout)")
	flags.StringVar(&f.serializer, "serializer", "", "JSON engine: automatic, jsoniter or sonic")
	flags.BoolVar(&f.unsafeXML, "unsafe-xml", false, "Allow XML responses that declare a DTD")
	flags.BoolVar(&f.unsafeURI, "unsafe-uri", false, "Skip URI validation")
	flags.BoolVar(&f.noLocalhost, "no-localhost", false, "Reject loopback targets")
	flags.StringVar(&f.cookieFile, "cookies", "", "Cookie file loaded before and saved after the request")
	flags.Float64Var(&f.rate, "rate", 0, "Maximum requests per second")
	flags.IntVar(&f.repeat, "repeat", 1, "Send the request this many times and print a summary")
	flags.StringArrayVar(&f.extract, "extract", nil, "JSONPath expression to extract from the response (can be used multiple times)")
	flags.StringVar(&f.schema, "schema", "", "JSON Schema file the response must satisfy")
	flags.StringVar(&f.report, "report", "", "Write an HTML statistics report to this file")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
}

func (f *requestFlags) validate() error {
	bodies := 0
	for _, set := range []bool{f.data != "", f.jsonData != "", len(f.form) > 0} {
		if set {
			bodies++
		}
	}
	if bodies > 1 {
		return fmt.Errorf("--data, --json and --form are mutually exclusive")
	}
	if f.user != "" && f.bearer != "" {
		return fmt.Errorf("--user and --bearer are mutually exclusive")
	}
	if f.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1")
	}
	if f.rate < 0 {
		return fmt.Errorf("--rate must not be negative")
	}
	return nil
}

// parseHeader splits "Key: value"
func parseHeader(header string) (string, string, error) {
	key, value, ok := strings.Cut(header, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid header %q, expected \"Key: value\"", header)
	}
	return key, strings.TrimSpace(value), nil
}

// parseForm collects key=value pairs
func parseForm(fields []string) (url.Values, error) {
	form := url.Values{}
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid form field %q, expected key=value", field)
		}
		form.Add(key, value)
	}
	return form, nil
}

// normalizeURL adds a missing scheme and lifts user info out of the URL.
func normalizeURL(raw string) (string, *url.Userinfo, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return "", nil, fmt.Errorf("invalid URL %q: missing host", raw)
	}

	user := u.User
	u.User = nil
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), user, nil
}
