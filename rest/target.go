package rest

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// decodeTarget is the closed set of shapes a caller can ask for.
type decodeTarget int

const (
	targetStructured decodeTarget = iota
	targetRawBytes
	targetText
	targetPrimitive
)

func (t decodeTarget) String() string {
	switch t {
	case targetRawBytes:
		return "raw bytes"
	case targetText:
		return "text"
	case targetPrimitive:
		return "primitive"
	default:
		return "structured"
	}
}

// targetOf maps T onto a decode target. Only the exact built-in types
// select the non-structured targets; named types are decoded structurally.
func targetOf[T any]() decodeTarget {
	var zero T
	switch any(zero).(type) {
	case []byte:
		return targetRawBytes
	case string:
		return targetText
	case bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return targetPrimitive
	default:
		return targetStructured
	}
}

func typeNameOf[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// parsePrimitive converts s to the primitive T selected by targetOf. A
// JSON string literal such as "42" is unquoted first.
func parsePrimitive[T any](s string) (T, error) {
	var zero T
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return zero, fmt.Errorf("invalid quoted value %s: %w", s, err)
		}
		s = strings.TrimSpace(unquoted)
	}

	var (
		v   any
		err error
	)
	switch any(zero).(type) {
	case bool:
		v, err = strconv.ParseBool(s)
	case int:
		var n int64
		n, err = strconv.ParseInt(s, 10, strconv.IntSize)
		v = int(n)
	case int8:
		var n int64
		n, err = strconv.ParseInt(s, 10, 8)
		v = int8(n)
	case int16:
		var n int64
		n, err = strconv.ParseInt(s, 10, 16)
		v = int16(n)
	case int32:
		var n int64
		n, err = strconv.ParseInt(s, 10, 32)
		v = int32(n)
	case int64:
		v, err = strconv.ParseInt(s, 10, 64)
	case uint:
		var n uint64
		n, err = strconv.ParseUint(s, 10, strconv.IntSize)
		v = uint(n)
	case uint8:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 8)
		v = uint8(n)
	case uint16:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 16)
		v = uint16(n)
	case uint32:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 32)
		v = uint32(n)
	case uint64:
		v, err = strconv.ParseUint(s, 10, 64)
	case float32:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		v = float32(f)
	case float64:
		v, err = strconv.ParseFloat(s, 64)
	default:
		return zero, fmt.Errorf("%T is not a primitive type", zero)
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
