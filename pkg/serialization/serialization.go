// Package serialization picks one of two JSON engines per model type.
//
// Models written for the legacy engine (json-iterator) describe their shape
// with `jsoniter:"..."` struct tags or declare the JSONIterModel marker.
// Everything else goes through sonic, which follows encoding/json tags.
// The two tag conventions are never merged: a type is handled by exactly
// one engine.
package serialization

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// TagKey is the struct tag read by the legacy engine.
const TagKey = "jsoniter"

// Library selects a JSON engine.
type Library int

const (
	// Automatic resolves the engine from the target type.
	Automatic Library = iota
	// JSONIter is the legacy, tag-driven engine.
	JSONIter
	// Sonic is the modern engine using encoding/json conventions.
	Sonic
)

// String returns the library name.
func (l Library) String() string {
	switch l {
	case JSONIter:
		return "jsoniter"
	case Sonic:
		return "sonic"
	case Automatic:
		return "automatic"
	default:
		return fmt.Sprintf("library(%d)", int(l))
	}
}

// ParseLibrary parses a library name as produced by String.
func ParseLibrary(name string) (Library, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "automatic", "auto":
		return Automatic, nil
	case "jsoniter", "json-iterator", "legacy":
		return JSONIter, nil
	case "sonic", "modern":
		return Sonic, nil
	}
	return Automatic, fmt.Errorf("unknown serializer %q", name)
}

// JSONIterModel is implemented by model types that must be handled by the
// legacy engine regardless of their field tags.
type JSONIterModel interface {
	JSONIterModel()
}

var markerType = reflect.TypeOf((*JSONIterModel)(nil)).Elem()

var (
	registry sync.Map // reflect.Type -> Library
	shapes   sync.Map // reflect.Type -> bool
)

// Register pins the engine used for T in Automatic mode. Registering
// Automatic removes the entry. Call it during program initialization.
func Register[T any](lib Library) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if lib == Automatic {
		registry.Delete(t)
		return
	}
	registry.Store(t, lib)
}

// UsesJSONIterMarkers reports whether t, after stripping pointer, slice,
// array and map wrappers, declares the JSONIterModel marker or has a field
// carrying a jsoniter tag. Embedded structs are inspected as well.
func UsesJSONIterMarkers(t reflect.Type) bool {
	if t == nil {
		return false
	}
	t = element(t)
	if v, ok := shapes.Load(t); ok {
		return v.(bool)
	}
	uses := inspect(t, map[reflect.Type]bool{})
	shapes.Store(t, uses)
	return uses
}

func element(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		default:
			return t
		}
	}
}

func inspect(t reflect.Type, seen map[reflect.Type]bool) bool {
	t = element(t)
	if seen[t] {
		return false
	}
	seen[t] = true

	if t.Implements(markerType) || reflect.PointerTo(t).Implements(markerType) {
		return true
	}
	if t.Kind() != reflect.Struct {
		return false
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if _, ok := f.Tag.Lookup(TagKey); ok {
			return true
		}
		if f.Anonymous && inspect(f.Type, seen) {
			return true
		}
	}
	return false
}

// Error wraps an engine failure with the type and engine involved.
type Error struct {
	Op      string
	Type    string
	Library Library
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("error %s object of type %s with %s: %v", e.Op, e.Type, e.Library, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// engine is the surface both libraries share.
type engine interface {
	MarshalToString(v interface{}) (string, error)
	UnmarshalFromString(str string, v interface{}) error
}

// errUnknownLibrary is wrapped when a Library outside the enum is requested.
var errUnknownLibrary = errors.New("unknown serialization library")

// Resolver serializes and deserializes values with the engine selected for
// their type. It is safe for concurrent use.
type Resolver struct {
	logger  *zap.Logger
	engines map[Library]engine
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for engine selection traces.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver with both engines configured.
func NewResolver(options ...Option) *Resolver {
	r := &Resolver{
		logger: zap.NewNop(),
		engines: map[Library]engine{
			JSONIter: jsoniter.Config{
				EscapeHTML:             true,
				SortMapKeys:            true,
				ValidateJsonRawMessage: true,
				TagKey:                 TagKey,
			}.Froze(),
			Sonic: sonic.ConfigStd,
		},
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// Resolve returns the engine to use for t. Forced choices are returned
// unchanged. In Automatic mode registered types win, then marker
// inspection decides.
func (r *Resolver) Resolve(t reflect.Type, choice Library) Library {
	if choice != Automatic {
		return choice
	}
	if t != nil {
		if lib, ok := registry.Load(element(t)); ok {
			return lib.(Library)
		}
	}
	if UsesJSONIterMarkers(t) {
		return JSONIter
	}
	return Sonic
}

// ResolveFor is Resolve for the static type T.
func ResolveFor[T any](r *Resolver, choice Library) Library {
	return r.Resolve(reflect.TypeOf((*T)(nil)).Elem(), choice)
}

// Serialize encodes v with the engine chosen for its dynamic type.
func (r *Resolver) Serialize(v any, choice Library) (string, error) {
	t := reflect.TypeOf(v)
	lib := r.Resolve(t, choice)

	r.logger.Debug("serializing payload",
		zap.String("type", typeName(t)),
		zap.Stringer("library", lib),
	)

	e, ok := r.engines[lib]
	if !ok {
		return "", &Error{Op: "serializing", Type: typeName(t), Library: lib, Err: errUnknownLibrary}
	}
	s, err := e.MarshalToString(v)
	if err != nil {
		return "", &Error{Op: "serializing", Type: typeName(t), Library: lib, Err: err}
	}
	return s, nil
}

// DeserializeInto decodes data into target, which must be a non-nil
// pointer. The engine is chosen from the pointed-to type.
func (r *Resolver) DeserializeInto(data string, target any, choice Library) error {
	t := reflect.TypeOf(target)
	if t == nil || t.Kind() != reflect.Pointer {
		return &Error{Op: "deserializing", Type: typeName(t), Library: choice, Err: fmt.Errorf("target must be a non-nil pointer")}
	}

	lib := r.Resolve(t.Elem(), choice)
	e, ok := r.engines[lib]
	if !ok {
		return &Error{Op: "deserializing", Type: typeName(t.Elem()), Library: lib, Err: errUnknownLibrary}
	}

	r.logger.Debug("deserializing content",
		zap.String("type", typeName(t.Elem())),
		zap.Stringer("library", lib),
	)

	if err := e.UnmarshalFromString(data, target); err != nil {
		return &Error{Op: "deserializing", Type: typeName(t.Elem()), Library: lib, Err: err}
	}
	return nil
}

// Deserialize decodes data into a new T.
func Deserialize[T any](r *Resolver, data string, choice Library) (T, error) {
	var v T
	err := r.DeserializeInto(data, &v, choice)
	return v, err
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
