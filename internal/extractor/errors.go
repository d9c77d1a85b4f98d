// internal/extractor/errors.go
package extractor

import (
	"errors"
	"fmt"
)

// ErrorKind вид ошибки извлечения
type ErrorKind string

const (
	KindMissingField    ErrorKind = "missing_field"
	KindMalformedNumber ErrorKind = "malformed_number"
)

var (
	ErrMissingField    = errors.New("missing field")
	ErrMalformedNumber = errors.New("malformed number")
)

// ExtractionError сигнал о том, что разметка страницы изменилась
type ExtractionError struct {
	Kind  ErrorKind
	Field string
	Value string
}

func (e *ExtractionError) Error() string {
	if e.Kind == KindMalformedNumber {
		return fmt.Sprintf("extraction: %s: %s %q", e.Kind, e.Field, e.Value)
	}
	return fmt.Sprintf("extraction: %s: %s", e.Kind, e.Field)
}

// Unwrap позволяет проверять вид ошибки через errors.Is
func (e *ExtractionError) Unwrap() error {
	if e.Kind == KindMalformedNumber {
		return ErrMalformedNumber
	}
	return ErrMissingField
}

func missing(field string) error {
	return &ExtractionError{Kind: KindMissingField, Field: field}
}

func malformed(field, value string) error {
	return &ExtractionError{Kind: KindMalformedNumber, Field: field, Value: value}
}
