// Package report renders request statistics as a standalone HTML page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/amdevit/restling/internal/stats"
)

// Data is the input of the report template.
type Data struct {
	Title     string
	Method    string
	URL       string
	Generated time.Time
	Summary   stats.Summary
}

type methodRow struct {
	Method  string
	Latency stats.Latency
}

type statusRow struct {
	Code  int
	Count int64
	Class string
}

// GenerateHTML renders data and writes it to outputPath.
func GenerateHTML(data Data, outputPath string) error {
	html, err := GenerateHTMLString(data)
	if err != nil {
		return fmt.Errorf("failed to generate HTML: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}

// GenerateHTMLString renders data.
func GenerateHTMLString(data Data) (string, error) {
	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	if data.Title == "" {
		data.Title = "Request Report"
	}
	if data.Generated.IsZero() {
		data.Generated = time.Now()
	}

	view := struct {
		Data
		Methods  []methodRow
		Statuses []statusRow
	}{Data: data}

	for method, latency := range data.Summary.Methods {
		view.Methods = append(view.Methods, methodRow{Method: method, Latency: latency})
	}
	sort.Slice(view.Methods, func(i, j int) bool { return view.Methods[i].Method < view.Methods[j].Method })

	for _, code := range data.Summary.StatusCodes() {
		view.Statuses = append(view.Statuses, statusRow{
			Code:  code,
			Count: data.Summary.Statuses[code],
			Class: statusClass(code),
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatLatency": formatLatency,
		"formatBytes":   formatBytes,
		"formatNumber":  formatNumber,
		"percent":       func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	}
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "none"
	case code < 300:
		return "ok"
	case code < 400:
		return "redirect"
	default:
		return "error"
	}
}

// formatLatency formats a latency duration in a human-readable way.
func formatLatency(d time.Duration) string {
	switch {
	case d == 0:
		return "0"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		ms := float64(d.Microseconds()) / 1000
		if ms < 10 {
			return fmt.Sprintf("%.2fms", ms)
		}
		return fmt.Sprintf("%.1fms", ms)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// formatNumber adds thousands separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := strconv.FormatInt(n, 10)
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1e293b; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #e2e8f0; padding: .4rem .8rem; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.ok { color: #16a34a; } .redirect { color: #d97706; } .error, .none { color: #dc2626; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p><strong>{{.Method}}</strong> {{.URL}}<br>Generated {{.Generated.Format "2006-01-02 15:04:05 MST"}}</p>

<h2>Totals</h2>
<table>
<tr><th>Requests</th><th>Succeeded</th><th>Failed</th><th>Success rate</th><th>Received</th></tr>
<tr><td>{{formatNumber .Summary.Total}}</td><td>{{formatNumber .Summary.Success}}</td><td>{{formatNumber .Summary.Failed}}</td><td>{{percent .Summary.SuccessRate}}</td><td>{{formatBytes .Summary.Bytes}}</td></tr>
</table>

<h2>Latency</h2>
<table>
<tr><th>Method</th><th>Min</th><th>Mean</th><th>P50</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th></tr>
{{with .Summary.Latency}}<tr><td>all</td><td>{{formatLatency .Min}}</td><td>{{formatLatency .Mean}}</td><td>{{formatLatency .P50}}</td><td>{{formatLatency .P90}}</td><td>{{formatLatency .P95}}</td><td>{{formatLatency .P99}}</td><td>{{formatLatency .Max}}</td></tr>{{end}}
{{range .Methods}}<tr><td>{{.Method}}</td>{{with .Latency}}<td>{{formatLatency .Min}}</td><td>{{formatLatency .Mean}}</td><td>{{formatLatency .P50}}</td><td>{{formatLatency .P90}}</td><td>{{formatLatency .P95}}</td><td>{{formatLatency .P99}}</td><td>{{formatLatency .Max}}</td>{{end}}</tr>
{{end}}</table>

{{if .Statuses}}<h2>Statuses</h2>
<table>
<tr><th>Status</th><th>Count</th></tr>
{{range .Statuses}}<tr><td class="{{.Class}}">{{if .Code}}{{.Code}}{{else}}no response{{end}}</td><td>{{formatNumber .Count}}</td></tr>
{{end}}</table>{{end}}
</body>
</html>
`
