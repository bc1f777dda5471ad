package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindPreconditionFailed ErrorKind = "PRECONDITION_FAILED"
	KindConflict           ErrorKind = "CONFLICT"
	KindInternal           ErrorKind = "INTERNAL"
)

// Error carries one of the distinguishable failure kinds callers render
// different user-facing messages for. Two Errors match under errors.Is when
// their kinds are equal, so sentinel comparisons keep working across wrapping.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

var ErrRecordNotFound = &Error{Kind: KindNotFound, Message: "Record not found"}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func PreconditionFailedf(format string, args ...any) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Internalf(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies an arbitrary error. Unrecognized errors are internal:
// they indicate a bug or an infrastructure failure, not a user outcome.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}

// AsError converts err into a *Error, wrapping unrecognized errors as
// internal so batch outcomes always carry a classified kind.
func AsError(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}
