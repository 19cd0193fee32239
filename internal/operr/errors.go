// Package operr defines the error kinds surfaced by operators to their
// callers. Per-row conversion failures are never errors; they are absorbed by
// the active handling policy and show up in the output data instead.
//
// Callers match kinds with errors.As or the Is* helpers:
//
//	if operr.IsSchemaMismatch(err) { ... }
package operr

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports a missing, invalid or out-of-range operator parameter.
// It is always fatal and never retried.
type ConfigError struct {
	// Param names the offending parameter (may be empty for general errors).
	Param string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	var sb strings.Builder
	if e.Param != "" {
		fmt.Fprintf(&sb, "invalid parameter %q: ", e.Param)
	}
	sb.WriteString(e.Msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a ConfigError for param with a formatted message.
func Configf(param, format string, args ...any) error {
	return &ConfigError{Param: param, Msg: fmt.Sprintf(format, args...)}
}

// SchemaMismatchError reports that a schema's column set disagrees with the
// table it is applied to. It is raised before any row-level work begins.
type SchemaMismatchError struct {
	Msg     string
	Missing []string // in the schema, not in the table
	Extra   []string // in the table, not in the schema
}

func (e *SchemaMismatchError) Error() string {
	msg := "schema mismatch: " + e.Msg
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf("; columns not in table: %s", strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		msg += fmt.Sprintf("; columns not in schema: %s", strings.Join(e.Extra, ", "))
	}
	return msg
}

// SerializationError reports a configuration value that cannot be
// canonically encoded for hashing.
type SerializationError struct {
	Path string
	Msg  string
}

func (e *SerializationError) Error() string {
	if e.Path == "" {
		return "object not supported for serialization: " + e.Msg
	}
	return fmt.Sprintf("object not supported for serialization at %s: %s", e.Path, e.Msg)
}

// IsConfig reports whether err (or anything it wraps) is a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsSchemaMismatch reports whether err wraps a SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var se *SchemaMismatchError
	return errors.As(err, &se)
}

// IsSerialization reports whether err wraps a SerializationError.
func IsSerialization(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}
