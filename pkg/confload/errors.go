package confload

import (
	"errors"
	"fmt"
)

// ErrEmptyDelimiter is returned before any file is read when the env
// delimiter option is the empty string.
var ErrEmptyDelimiter = errors.New("delimiter cannot be an empty string")

// ErrNilSchema is returned when a load is started without a schema.
var ErrNilSchema = errors.New("schema must not be nil")

// ReadError reports a config file that exists but could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading config file %q: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError reports a config file that is not valid JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing config file %q: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TypeMismatchError reports a config file holding valid JSON that is not an
// object. Actual is one of array, string, number, boolean or null.
type TypeMismatchError struct {
	Path   string
	Actual string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("config file %q must contain a JSON object, got %s", e.Path, e.Actual)
}

// EnvParseError reports an override for an object or array field whose
// value is not valid JSON.
type EnvParseError struct {
	Name string
	Err  error
}

func (e *EnvParseError) Error() string {
	return fmt.Sprintf("Failed to parse environment variable %q: %v", e.Name, e.Err)
}

func (e *EnvParseError) Unwrap() error { return e.Err }
