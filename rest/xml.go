package rest

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Body text reaches the XML decoder already converted to UTF-8, so the
// encoding named in the prolog is ignored.
func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

// decodeXML unmarshals text into target. Unless allowUnsafe is set,
// documents declaring a DTD are refused before any element is decoded.
// encoding/xml never loads external entities; in unsafe mode undeclared
// entity references are kept as literal text.
func decodeXML(text string, target any, allowUnsafe bool) error {
	if !allowUnsafe {
		if err := rejectDirectives(text); err != nil {
			return err
		}
	}

	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = passthroughCharset
	dec.Strict = !allowUnsafe
	return dec.Decode(target)
}

// rejectDirectives scans the prolog for <!DOCTYPE ...> or other markup
// declarations. Syntax errors are left for the real decode to report.
func rejectDirectives(text string) error {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = passthroughCharset
	dec.Strict = false

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return nil
		}
		switch tok := tok.(type) {
		case xml.Directive:
			name := "directive"
			if fields := strings.Fields(string(tok)); len(fields) > 0 {
				name = fields[0]
			}
			return &xmlDirectiveError{name: name}
		case xml.StartElement:
			return nil
		}
	}
}

type xmlDirectiveError struct {
	name string
}

func (e *xmlDirectiveError) Error() string {
	return ErrUnsafeXML.Error() + ": found <!" + e.name + ">"
}

func (e *xmlDirectiveError) Unwrap() error {
	return ErrUnsafeXML
}
