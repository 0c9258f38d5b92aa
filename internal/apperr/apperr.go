// Package apperr defines the error kinds surfaced to API clients and their
// mapping to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

type Kind int

const (
	KindInternal Kind = iota
	KindAuth
	KindMethodNotAllowed
	KindValidation
	KindNotFound
	KindConflict
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Status maps a kind to the HTTP status returned to clients. Conflicts are
// reported as 400 to match the existing forum client.
func (k Kind) Status() int {
	switch k {
	case KindAuth:
		return http.StatusForbidden
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error. Two errors with the same Kind and
// Code match under errors.Is, so sentinels can be refined with a message.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	Err     error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithField returns a copy of e naming the offending input field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

var (
	ErrUnauthorized       = New(KindAuth, "forbidden", "Forbidden")
	ErrMethodNotAllowed   = New(KindMethodNotAllowed, "method_not_allowed", "Method not allowed")
	ErrNotFound           = New(KindNotFound, "not_found", "Not found")
	ErrAlreadyDeleted     = New(KindConflict, "already_deleted", "Already deleted")
	ErrCannotModify       = New(KindConflict, "cannot_modify_deleted", "Cannot modify a deleted record")
	ErrVerificationFailed = New(KindInternal, "verification_failed", "Verification after write failed")
	ErrUpstream           = New(KindUpstream, "upstream", "Upstream service failed")
)

const internalMessage = "Internal server error"

// KindOf classifies err. PostgreSQL constraint violations are mapped
// explicitly; anything unclassified is internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return KindConflict
		case "23503":
			return KindNotFound
		case "23514":
			return KindValidation
		}
	}
	return KindInternal
}

// PublicMessage is the text safe to return in an error body.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Kind == KindInternal {
			return internalMessage
		}
		return appErr.Message
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return "Record already exists"
		case "23503":
			return "Referenced record not found"
		case "23514":
			return "Value violates a constraint"
		}
	}
	return internalMessage
}
