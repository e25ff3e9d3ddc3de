// Package mediatype classifies declared body media types as text-like or
// binary-like and parses Content-Type header values.
package mediatype

import (
	"mime"
	"strings"
)

// Well-known media types.
const (
	ApplicationJSON        = "application/json"
	ApplicationXML         = "application/xml"
	ApplicationAtomXML     = "application/atom+xml"
	ApplicationOctetStream = "application/octet-stream"
	ApplicationFormURL     = "application/x-www-form-urlencoded"
	TextXML                = "text/xml"
	TextPlain              = "text/plain"
	TextHTML               = "text/html"
	TextCSS                = "text/css"
	TextJavaScript         = "text/javascript"
	ImageSVG               = "image/svg+xml"
	ImagePNG               = "image/png"
	ImageJPEG              = "image/jpeg"
	ImageGIF               = "image/gif"
	ImageBMP               = "image/bmp"
	ImageWebP              = "image/webp"
	VideoMP4               = "video/mp4"
	VideoMPEG              = "video/mpeg"
	VideoOGG               = "video/ogg"
	VideoWebM              = "video/webm"
	VideoQuickTime         = "video/quicktime"
)

// Kind is the classification of a media type.
type Kind int

const (
	// Unknown means the media type has no entry in the table.
	Unknown Kind = iota
	// TextLike bodies are decoded to strings.
	TextLike
	// BinaryLike bodies are kept as raw bytes.
	BinaryLike
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case TextLike:
		return "text"
	case BinaryLike:
		return "binary"
	default:
		return "unknown"
	}
}

var kinds = map[string]Kind{
	ApplicationJSON:    TextLike,
	ApplicationXML:     TextLike,
	TextXML:            TextLike,
	TextPlain:          TextLike,
	TextHTML:           TextLike,
	TextCSS:            TextLike,
	TextJavaScript:     TextLike,
	ImageSVG:           TextLike,
	ApplicationAtomXML: TextLike,

	ImagePNG:               BinaryLike,
	ImageJPEG:              BinaryLike,
	ImageGIF:               BinaryLike,
	ImageBMP:               BinaryLike,
	ImageWebP:              BinaryLike,
	ApplicationOctetStream: BinaryLike,
	VideoMP4:               BinaryLike,
	VideoMPEG:              BinaryLike,
	VideoOGG:               BinaryLike,
	VideoWebM:              BinaryLike,
	VideoQuickTime:         BinaryLike,
}

// Classify looks up a media type. Matching ignores ASCII case and
// surrounding whitespace. Types missing from the table are Unknown.
func Classify(mediaType string) Kind {
	return kinds[strings.ToLower(strings.TrimSpace(mediaType))]
}

// IsBinary reports whether content of the given media type must be kept as
// opaque bytes. Unknown types are treated as binary.
func IsBinary(mediaType string) bool {
	return Classify(mediaType) != TextLike
}

// IsJSON reports whether the media type selects the JSON decode path.
func IsJSON(mediaType string) bool {
	return strings.EqualFold(strings.TrimSpace(mediaType), ApplicationJSON)
}

// IsXML reports whether the media type selects the XML decode path.
func IsXML(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case ApplicationXML, TextXML, ApplicationAtomXML:
		return true
	}
	return false
}

// ContentType is a parsed Content-Type header value.
type ContentType struct {
	// MediaType is lower-cased, without parameters.
	MediaType string
	// Charset is the charset parameter as sent, or empty.
	Charset string
}

// String formats the value back into header form.
func (c ContentType) String() string {
	if c.Charset == "" {
		return c.MediaType
	}
	return mime.FormatMediaType(c.MediaType, map[string]string{"charset": c.Charset})
}

// ParseContentType parses a Content-Type header value. It returns false when
// the header is empty. Values that mime.ParseMediaType rejects still yield
// the part before the first ';' as the media type.
func ParseContentType(header string) (ContentType, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ContentType{}, false
	}

	mt, params, err := mime.ParseMediaType(header)
	if err != nil {
		mt, _, _ = strings.Cut(header, ";")
		mt = strings.ToLower(strings.TrimSpace(mt))
		if mt == "" {
			return ContentType{}, false
		}
		return ContentType{MediaType: mt}, true
	}

	return ContentType{MediaType: mt, Charset: params["charset"]}, true
}
