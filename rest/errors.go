package rest

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResponse is recorded when the transport returns neither a
	// response nor an error.
	ErrNoResponse = errors.New("http response object is null")

	// ErrCustomMethodRequired is returned when MethodCustom is used without
	// a verb.
	ErrCustomMethodRequired = errors.New("custom method requires a non-empty verb")

	// ErrUnsupportedMethod is returned for method values outside the enum.
	ErrUnsupportedMethod = errors.New("unsupported http method")

	// ErrInvalidURI is returned when a URI fails validation.
	ErrInvalidURI = errors.New("invalid uri")

	// ErrUntypedPayload is returned by Client.Execute in strict mode when the
	// request carries a payload that the untyped path would drop.
	ErrUntypedPayload = errors.New("request payload cannot be sent through an untyped execution")

	// ErrConflictingBody is returned when more than one body source is set.
	ErrConflictingBody = errors.New("request has more than one body source")

	// ErrUnsafeXML is returned when XML content carries a DTD or entity
	// declaration and unsafe XML processing is disabled.
	ErrUnsafeXML = errors.New("DTD processing is prohibited in this XML document")

	// ErrNilRequest is returned when a nil request is executed.
	ErrNilRequest = errors.New("request is nil")
)

// TransportError is the failure recorded on a Result when the request
// could not be sent or the response could not be read.
type TransportError struct {
	Method string
	URI    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URI, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a successful response cannot be decoded
// into the requested type.
type DecodeError struct {
	Target     string
	MediaType  string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response (status %d) into %s: %v", e.MediaType, e.StatusCode, e.Target, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
