package output

import (
	"fmt"

	"github.com/amdevit/restling/pkg/mediatype"
	"github.com/amdevit/restling/rest"
	"github.com/gabriel-vasile/mimetype"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

var bodyStyle = &pretty.Options{Width: 80, Prefix: "  ", Indent: "  "}

// describeBinary summarizes a body that should not be printed.
func describeBinary(raw []byte) string {
	return fmt.Sprintf("<binary %d bytes, %s>", len(raw), mimetype.Detect(raw).String())
}

// renderBody returns the printable body of res. JSON is indented and,
// when colorize is set, highlighted.
func renderBody(res *rest.Result, colorize bool) string {
	raw := res.RawContent()
	if len(raw) == 0 {
		return ""
	}
	if retrieved := res.Retrieved(); retrieved != nil && retrieved.IsBinary() {
		return describeBinary(raw)
	}

	text := res.Content()
	if looksJSON(res.ContentType(), text) {
		formatted := pretty.PrettyOptions([]byte(text), bodyStyle)
		if colorize {
			formatted = pretty.Color(formatted, nil)
		}
		return string(formatted)
	}
	return text
}

// bodyValue returns the body as a structured value for json/yaml output.
// JSON bodies are parsed, binary bodies are summarized and everything else
// is returned as text.
func bodyValue(res *rest.Result) any {
	raw := res.RawContent()
	if len(raw) == 0 {
		return nil
	}
	if retrieved := res.Retrieved(); retrieved != nil && retrieved.IsBinary() {
		return describeBinary(raw)
	}

	text := res.Content()
	if looksJSON(res.ContentType(), text) {
		return gjson.Parse(text).Value()
	}
	return text
}

func looksJSON(contentType, text string) bool {
	if contentType != "" && !mediatype.IsJSON(contentType) {
		return false
	}
	return gjson.Valid(text)
}
