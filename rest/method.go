package rest

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is the HTTP method of a request.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
	MethodHead
	MethodOptions
	MethodTrace
	MethodPatch
	// MethodCustom sends the verb configured on the request.
	MethodCustom
)

var methodNames = map[Method]string{
	MethodGet:     http.MethodGet,
	MethodPost:    http.MethodPost,
	MethodPut:     http.MethodPut,
	MethodDelete:  http.MethodDelete,
	MethodHead:    http.MethodHead,
	MethodOptions: http.MethodOptions,
	MethodTrace:   http.MethodTrace,
	MethodPatch:   http.MethodPatch,
}

// String returns the verb for standard methods and "CUSTOM" otherwise.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	if m == MethodCustom {
		return "CUSTOM"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a verb to a Method. Verbs outside the standard set map
// to MethodCustom and are returned upper-cased as the custom verb.
func ParseMethod(verb string) (Method, string) {
	verb = strings.ToUpper(strings.TrimSpace(verb))
	for m, name := range methodNames {
		if name == verb {
			return m, ""
		}
	}
	return MethodCustom, verb
}

// wireMethod returns the verb to send. The custom verb is ignored unless
// the method is MethodCustom.
func wireMethod(m Method, custom string) (string, error) {
	if name, ok := methodNames[m]; ok {
		return name, nil
	}
	if m == MethodCustom {
		if strings.TrimSpace(custom) == "" {
			return "", ErrCustomMethodRequired
		}
		return custom, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMethod, m)
}
