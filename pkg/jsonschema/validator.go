// Package jsonschema validates response documents against JSON Schema.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const inlineURL = "restling://schema.json"

// ValidationErrors collects the leaf failures of one validation
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, err := range ve {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Schema is a compiled schema. It is safe for concurrent use.
type Schema struct {
	schema *jsonschema.Schema
}

// Compile compiles schema text. Documents without $schema are treated as
// draft 2020-12.
func Compile(schemaText string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(inlineURL, strings.NewReader(schemaText)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	s, err := compiler.Compile(inlineURL)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// CompileFile reads and compiles the schema at path.
func CompileFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading schema: %w", err)
	}
	return Compile(string(data))
}

// Validate checks doc. It returns nil when doc is valid, ValidationErrors
// when it violates the schema, and a plain error when doc is not JSON.
func (s *Schema) Validate(doc []byte) error {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("invalid JSON: trailing data after document")
	}

	err := s.schema.Validate(value)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		if leaves := flatten(verr); len(leaves) > 0 {
			return leaves
		}
	}
	return ValidationErrors{err}
}

// Validate compiles schemaText and validates doc against it.
func Validate(doc, schemaText string) error {
	s, err := Compile(schemaText)
	if err != nil {
		return err
	}
	return s.Validate([]byte(doc))
}

// flatten keeps the leaves of the cause tree; inner nodes only say that a
// child failed.
func flatten(err *jsonschema.ValidationError) ValidationErrors {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		return ValidationErrors{fmt.Errorf("validation error at %s: %s", location, err.Message)}
	}

	var out ValidationErrors
	for _, cause := range err.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
