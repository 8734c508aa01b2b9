package schema

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/jhump/autoreg/parser"
)

// ErrorCode classifies a schema violation.
type ErrorCode int

const (
	// UnknownKey means the annotation used a key that no mixin of its schema
	// claims.
	UnknownKey ErrorCode = iota + 1
	// MissingKey means a required key was absent.
	MissingKey
	// DuplicateKey means a non-repeatable key appeared more than once with
	// the same value.
	DuplicateKey
	// ConflictingValue means a key appeared more than once with different
	// values.
	ConflictingValue
	// InvalidValue means a key's value had the wrong shape.
	InvalidValue
)

func (c ErrorCode) String() string {
	switch c {
	case UnknownKey:
		return "unknown key"
	case MissingKey:
		return "missing key"
	case DuplicateKey:
		return "duplicate key"
	case ConflictingValue:
		return "conflicting value"
	case InvalidValue:
		return "invalid value"
	default:
		return fmt.Sprintf("?%d?", int(c))
	}
}

// Error is a single schema violation. It records the span of the offending
// key (or of the whole annotation, for missing keys).
type Error struct {
	Code ErrorCode
	Key  string
	Span parser.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Span, e.Msg)
}

// Pos returns the span where the violation was found.
func (e *Error) Pos() parser.Span {
	return e.Span
}

// NewError returns a schema violation. It is for Validator implementations.
func NewError(code ErrorCode, key string, span parser.Span, format string, args ...interface{}) *Error {
	return newError(code, key, span, format, args...)
}

func newError(code ErrorCode, key string, span parser.Span, format string, args ...interface{}) *Error {
	return &Error{Code: code, Key: key, Span: span, Msg: fmt.Sprintf(format, args...)}
}

// Errors returns the individual violations in an error returned from Parse.
// Errors that are not schema violations are omitted.
func Errors(err error) []*Error {
	var res []*Error
	for _, e := range multierr.Errors(err) {
		if se, ok := e.(*Error); ok {
			res = append(res, se)
		}
	}
	return res
}
