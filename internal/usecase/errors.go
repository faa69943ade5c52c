package usecase

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the transport layer can pick a status code.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindNotFound
	KindPermission
	KindExternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by services.
type Error struct {
	Kind    ErrorKind
	Message string
	// Details carries a structured outcome, e.g. the conflicting table ids.
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func permissionError(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

func externalError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindExternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// wrapCause keeps err as the cause of a typed error.
func wrapCause(e *Error, err error) *Error {
	e.Err = err
	return e
}

// KindOf returns the kind of a typed error anywhere in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
