// Package content turns a raw response body plus its declared content type
// into a classified value, without structural decoding.
package content

import (
	"encoding/base64"

	"github.com/amdevit/restling/pkg/charset"
	"github.com/amdevit/restling/pkg/mediatype"
)

// Classified is the intermediate form of a response body.
//
// Exactly one of three shapes holds:
//   - no declared content type: Raw is kept, IsBinary is false, IsText is false
//   - text-like media type: Text holds the charset-decoded string
//   - binary-like or unknown media type: Raw is kept and IsBinary is true
type Classified struct {
	raw      []byte
	text     string
	isText   bool
	binary   bool
	declared *mediatype.ContentType
}

// Retrieve classifies raw using the declared content type. A nil declared
// type means the response carried no Content-Type header.
func Retrieve(raw []byte, declared *mediatype.ContentType) *Classified {
	c := &Classified{raw: raw}
	if declared == nil {
		return c
	}

	ct := *declared
	c.declared = &ct

	if mediatype.Classify(ct.MediaType) == mediatype.TextLike {
		c.text = charset.Parse(ct.Charset).Decode(raw)
		c.isText = true
		return c
	}

	c.binary = true
	return c
}

// Raw returns the body bytes exactly as received.
func (c *Classified) Raw() []byte {
	return c.raw
}

// Text returns the decoded string and whether the body was decoded.
func (c *Classified) Text() (string, bool) {
	return c.text, c.isText
}

// IsText reports whether the decoded value is a string.
func (c *Classified) IsText() bool {
	return c.isText
}

// IsBinary reports whether the body was classified as binary. It is false
// when no content type was declared.
func (c *Classified) IsBinary() bool {
	return c.binary
}

// ContentType returns the declared content type, if any.
func (c *Classified) ContentType() (mediatype.ContentType, bool) {
	if c.declared == nil {
		return mediatype.ContentType{}, false
	}
	return *c.declared, true
}

// Value returns the decoded value: a string for text content and the raw
// bytes otherwise.
func (c *Classified) Value() any {
	if c.isText {
		return c.text
	}
	return c.raw
}

// String renders the content: base64 for binary bodies, the decoded text
// for text bodies and the bytes as-is when no type was declared.
func (c *Classified) String() string {
	switch {
	case c.binary:
		return base64.StdEncoding.EncodeToString(c.raw)
	case c.isText:
		return c.text
	default:
		return string(c.raw)
	}
}
