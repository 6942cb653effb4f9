package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures so handlers can map them to HTTP
// status codes without string matching.
type ErrorKind int

const (
	// KindValidation: client-detectable input problem. No collaborator
	// call was made.
	KindValidation ErrorKind = iota
	// KindNotFound: record missing or owned by another user. The two are
	// indistinguishable on purpose.
	KindNotFound
	// KindPersistence: the database rejected a read or write. Local state
	// is left unmodified.
	KindPersistence
	// KindPayment: the gateway call failed or returned no authorization
	// URL. Never retried.
	KindPayment
	// KindUpload: wrong file type or oversize, rejected before any
	// storage call.
	KindUpload
	// KindConflict: an identical operation is already in flight or the
	// record already exists.
	KindConflict
)

// Error carries a kind alongside the message and an optional cause.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a service error without a cause.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying failure.
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err (or anything it wraps) is a service error of
// the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
