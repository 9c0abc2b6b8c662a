// Package errors provides error handling for voxelprep.
//
// It re-exports the parts of github.com/cockroachdb/errors used across the module
// and defines the four error kinds callers are expected to tell apart:
//
//   - ErrConfiguration: malformed or incomplete descriptor or transform settings.
//     Always raised at construction time.
//   - ErrPath: a declared path does not resolve to an existing file or directory.
//   - ErrIO: a container could not be opened or read during materialization.
//   - ErrKeyLookup: a declared internal location is missing from a container.
//
// Kinds are attached with errors.Mark, so they survive further wrapping:
//
//	err := errors.Configurationf("every image needs a label")
//	wrapped := errors.Wrap(err, "loading manifest")
//	errors.IsConfiguration(wrapped) // true
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New    = crdb.New
	Newf   = crdb.Newf
	Wrap   = crdb.Wrap
	Wrapf  = crdb.Wrapf
	Is     = crdb.Is
	As     = crdb.As
	Mark   = crdb.Mark
	Unwrap = crdb.Unwrap

	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	FlattenHints = crdb.FlattenHints
)

// Error kinds. Compare with Is or the Is* helpers, never by message.
var (
	ErrConfiguration = crdb.New("configuration error")
	ErrPath          = crdb.New("path error")
	ErrIO            = crdb.New("io error")
	ErrKeyLookup     = crdb.New("key lookup error")
)

// Configurationf returns a new error of kind ErrConfiguration.
func Configurationf(format string, args ...interface{}) error {
	return crdb.Mark(crdb.NewWithDepthf(1, format, args...), ErrConfiguration)
}

// Pathf returns a new error of kind ErrPath.
func Pathf(format string, args ...interface{}) error {
	return crdb.Mark(crdb.NewWithDepthf(1, format, args...), ErrPath)
}

// IOf returns a new error of kind ErrIO.
func IOf(format string, args ...interface{}) error {
	return crdb.Mark(crdb.NewWithDepthf(1, format, args...), ErrIO)
}

// WrapIO wraps err with a message and marks it as ErrIO. A nil err stays nil.
func WrapIO(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return crdb.Mark(crdb.WrapWithDepthf(1, err, format, args...), ErrIO)
}

// KeyLookupf returns a new error of kind ErrKeyLookup.
func KeyLookupf(format string, args ...interface{}) error {
	return crdb.Mark(crdb.NewWithDepthf(1, format, args...), ErrKeyLookup)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return err != nil && crdb.Is(err, ErrConfiguration) }

// IsPath reports whether err is a path error.
func IsPath(err error) bool { return err != nil && crdb.Is(err, ErrPath) }

// IsIO reports whether err is an I/O error.
func IsIO(err error) bool { return err != nil && crdb.Is(err, ErrIO) }

// IsKeyLookup reports whether err is a key lookup error.
func IsKeyLookup(err error) bool { return err != nil && crdb.Is(err, ErrKeyLookup) }

// Kind returns a short name for the kind of err, for use in log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConfiguration(err):
		return "configuration"
	case IsPath(err):
		return "path"
	case IsKeyLookup(err):
		return "key_lookup"
	case IsIO(err):
		return "io"
	default:
		return "unknown"
	}
}
