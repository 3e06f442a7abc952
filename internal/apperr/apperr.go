// Package apperr is the closed set of failure kinds the API can report, and the
// single mapping from those kinds to an HTTP status and a client-safe message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies a failure category.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindBadRequest
	KindUnauthorized
	KindValidation
	KindInternal
	KindDatabase
)

// InternalMessage is the only message ever returned for server-side failures.
const InternalMessage = "internal server error"

type policy struct {
	status int
	// exposeDetail reports whether the caller-facing detail may be echoed.
	exposeDetail bool
}

var policies = map[Kind]policy{
	KindNotFound:     {status: http.StatusNotFound, exposeDetail: true},
	KindBadRequest:   {status: http.StatusBadRequest, exposeDetail: true},
	KindUnauthorized: {status: http.StatusUnauthorized, exposeDetail: true},
	KindValidation:   {status: http.StatusUnprocessableEntity, exposeDetail: true},
	KindInternal:     {status: http.StatusInternalServerError},
	KindDatabase:     {status: http.StatusInternalServerError},
}

// Kinds lists every declared kind.
func Kinds() []Kind {
	return []Kind{KindNotFound, KindBadRequest, KindUnauthorized, KindValidation, KindInternal, KindDatabase}
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindInternal:
		return "internal"
	case KindDatabase:
		return "database"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Violation is a single failed field constraint.
type Violation struct {
	Field string
	Rule  string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Rule
}

// Error is a taxonomy error. Detail is caller-facing for the kinds whose policy
// allows it; cause is never exposed.
type Error struct {
	Kind       Kind
	Detail     string
	Violations []Violation

	cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.String()
	if d := e.detail(); d != "" {
		msg += ": " + d
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) detail() string {
	if e.Kind == KindValidation && len(e.Violations) > 0 {
		parts := make([]string, 0, len(e.Violations))
		for _, v := range e.Violations {
			parts = append(parts, v.String())
		}
		return strings.Join(parts, "; ")
	}
	return e.Detail
}

func NotFound(detail string) *Error     { return &Error{Kind: KindNotFound, Detail: detail} }
func BadRequest(detail string) *Error   { return &Error{Kind: KindBadRequest, Detail: detail} }
func Unauthorized(detail string) *Error { return &Error{Kind: KindUnauthorized, Detail: detail} }

// Validation reports every violated constraint at once.
func Validation(vs []Violation) *Error {
	return &Error{Kind: KindValidation, Violations: append([]Violation(nil), vs...)}
}

// Internal wraps an unexpected failure. detail is for logs only.
func Internal(detail string, cause error) *Error {
	return &Error{Kind: KindInternal, Detail: detail, cause: cause}
}

// Database wraps a persistence failure.
func Database(cause error) *Error {
	return &Error{Kind: KindDatabase, cause: cause}
}

// KindOf returns the kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae != nil && ae.Kind == k
}
