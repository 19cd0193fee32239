package operr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := Configf("handling_policy", "unknown policy %q", "keep")
	if got := err.Error(); got != `invalid parameter "handling_policy": unknown policy "keep"` {
		t.Fatalf("Error() = %q", got)
	}
	wrapped := fmt.Errorf("step types: %w", err)
	if !IsConfig(wrapped) || IsSchemaMismatch(wrapped) || IsSerialization(wrapped) {
		t.Fatalf("predicates mismatch for %v", wrapped)
	}

	withCause := &ConfigError{Msg: "bad date pattern", Err: io.ErrUnexpectedEOF}
	if got := withCause.Error(); got != "bad date pattern: unexpected EOF" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(withCause, io.ErrUnexpectedEOF) {
		t.Fatalf("Unwrap does not expose the cause")
	}
}

func TestSchemaMismatchError(t *testing.T) {
	err := &SchemaMismatchError{Msg: "column sets differ", Missing: []string{"a", "b"}, Extra: []string{"z"}}
	want := "schema mismatch: column sets differ; columns not in table: a, b; columns not in schema: z"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !IsSchemaMismatch(fmt.Errorf("wrap: %w", err)) {
		t.Fatalf("IsSchemaMismatch = false")
	}
}

func TestSerializationError(t *testing.T) {
	err := &SerializationError{Path: "m.k[1]", Msg: "chan int"}
	if got := err.Error(); got != "object not supported for serialization at m.k[1]: chan int" {
		t.Fatalf("Error() = %q", got)
	}
	if got := (&SerializationError{Msg: "func"}).Error(); got != "object not supported for serialization: func" {
		t.Fatalf("Error() = %q", got)
	}
	if !IsSerialization(err) || IsConfig(err) {
		t.Fatalf("predicates mismatch")
	}
}
