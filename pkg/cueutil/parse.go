// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxFileSize caps the size of files handed to the CUE compiler.
const DefaultMaxFileSize int64 = 1 << 20 // 1 MiB

type options struct {
	filename    string
	maxFileSize int64
	concrete    bool
}

func defaultOptions() options {
	return options{maxFileSize: DefaultMaxFileSize}
}

// Option configures ParseAndDecode.
type Option func(*options)

// WithFilename sets the filename used in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithMaxFileSize overrides the maximum accepted input size.
func WithMaxFileSize(n int64) Option {
	return func(o *options) { o.maxFileSize = n }
}

// WithConcrete requires all values to be concrete during validation.
func WithConcrete() Option {
	return func(o *options) { o.concrete = true }
}

// ParseResult contains the result of a successful CUE parse operation.
type ParseResult[T any] struct {
	// Value is the decoded Go value.
	Value *T

	// Unified is the unified CUE value, available for advanced use cases.
	Unified cue.Value
}

// ParseAndDecode performs the 3-step CUE parsing flow: compile the schema,
// compile the user data and unify it with the schema definition at
// schemaPath, then validate and decode into T. Errors carry the offending
// CUE path formatted by FormatError.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	filename := o.filename
	if filename == "" {
		filename = "<input>"
	}

	// Early size check to prevent OOM from oversized inputs
	if err := CheckFileSize(data, o.maxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)

	if o.concrete {
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			return nil, FormatError(err, filename)
		}
	} else {
		if err := unified.Validate(); err != nil {
			return nil, FormatError(err, filename)
		}
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}

	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}

// ValidateAgainst unifies an arbitrary Go value with the schema definition
// at schemaPath and validates it. Used when the data did not originate from
// a CUE file (e.g., a decoded TOML section).
func ValidateAgainst(schema []byte, value any, schemaPath, filename string) error {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	encoded := ctx.Encode(value)
	if encoded.Err() != nil {
		return FormatError(encoded.Err(), filename)
	}

	unified := schemaRoot.Unify(encoded)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return FormatError(err, filename)
	}

	return nil
}
