// Package jsonpath extracts values from JSON documents with a JSONPath
// subset: dotted and bracketed member names, array indexes, the [*]
// wildcard and the length() function. Paths are compiled to gjson syntax.
package jsonpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrEmptyDocument is returned for blank input.
	ErrEmptyDocument = errors.New("empty JSON document")
	// ErrInvalidDocument is returned when the input is not JSON.
	ErrInvalidDocument = errors.New("invalid JSON document")
	// ErrNotFound is returned when a path matches nothing.
	ErrNotFound = errors.New("path not found")
)

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Expr   string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("jsonpath %q at offset %d: %s", e.Expr, e.Offset, e.Msg)
}

// Path is a compiled expression.
type Path struct {
	expr  string
	gpath string
}

// String returns the source expression.
func (p Path) String() string {
	return p.expr
}

// Compile parses expr. A leading "$" is optional.
func Compile(expr string) (Path, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Path{}, &SyntaxError{Expr: expr, Msg: "empty expression"}
	}

	var parts []string
	s := strings.TrimPrefix(expr, "$")
	pos := len(expr) - len(s)

	for s != "" {
		switch s[0] {
		case '.':
			s, pos = s[1:], pos+1
			n := strings.IndexAny(s, ".[")
			if n < 0 {
				n = len(s)
			}
			switch name := s[:n]; name {
			case "":
				return Path{}, &SyntaxError{Expr: expr, Offset: pos, Msg: "empty member name"}
			case "*", "length()":
				parts = append(parts, "#")
			default:
				parts = append(parts, escape(name))
			}
			s, pos = s[n:], pos+n
		case '[':
			end := closingBracket(s)
			if end < 0 {
				return Path{}, &SyntaxError{Expr: expr, Offset: pos, Msg: "unterminated bracket"}
			}
			part, err := bracket(s[1:end])
			if err != nil {
				return Path{}, &SyntaxError{Expr: expr, Offset: pos, Msg: err.Error()}
			}
			parts = append(parts, part)
			s, pos = s[end+1:], pos+end+1
		default:
			if len(parts) > 0 || pos > 0 {
				return Path{}, &SyntaxError{Expr: expr, Offset: pos, Msg: fmt.Sprintf("unexpected %q", s[0])}
			}
			// bare "users.0.name"
			s, pos = "."+s, pos-1
		}
	}

	gpath := strings.Join(parts, ".")
	if gpath == "" {
		gpath = "@this"
	}
	return Path{expr: expr, gpath: gpath}, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(expr string) Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// closingBracket returns the index of the ] closing s[0], skipping quoted names.
func closingBracket(s string) int {
	var quote byte
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ']':
			return i
		}
	}
	return -1
}

func bracket(inner string) (string, error) {
	inner = strings.TrimSpace(inner)
	switch {
	case inner == "*":
		return "#", nil
	case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
		name := strings.ReplaceAll(inner[1:len(inner)-1], `\`+inner[:1], inner[:1])
		return escape(name), nil
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 0 {
		return "", fmt.Errorf("invalid index %q", inner)
	}
	return strconv.Itoa(n), nil
}

// escape quotes gjson metacharacters in a member name.
func escape(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		switch c := name[i]; c {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Lookup evaluates p against doc.
func (p Path) Lookup(doc string) (gjson.Result, error) {
	if strings.TrimSpace(doc) == "" {
		return gjson.Result{}, ErrEmptyDocument
	}
	if !gjson.Valid(doc) {
		return gjson.Result{}, ErrInvalidDocument
	}
	result := gjson.Get(doc, p.gpath)
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrNotFound, p.expr)
	}
	return result, nil
}

// Extract evaluates p and renders the match as text. Strings are returned
// unquoted, null as "null" and everything else as raw JSON.
func (p Path) Extract(doc string) (string, error) {
	result, err := p.Lookup(doc)
	if err != nil {
		return "", err
	}
	switch result.Type {
	case gjson.Null:
		return "null", nil
	case gjson.String:
		return result.Str, nil
	}
	return result.Raw, nil
}

// Extract compiles expr and extracts it from doc
func Extract(doc, expr string) (string, error) {
	p, err := Compile(expr)
	if err != nil {
		return "", err
	}
	return p.Extract(doc)
}

// Extraction is one result of ExtractAll.
type Extraction struct {
	Expr  string
	Value string
	Err   error
}

// ExtractAll evaluates every expression in order. The returned error joins
// the individual failures; successful extractions are still reported.
func ExtractAll(doc string, exprs []string) ([]Extraction, error) {
	out := make([]Extraction, len(exprs))
	var errs []error
	for i, expr := range exprs {
		value, err := Extract(doc, expr)
		out[i] = Extraction{Expr: expr, Value: value, Err: err}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", expr, err))
		}
	}
	return out, errors.Join(errs...)
}
