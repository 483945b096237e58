// Package bolterr defines the error taxonomy of the Bolt wire stack.
//
// Every layer (transport, chunking, packstream, messaging, session) wraps
// its failures in one of the six classes below before returning them, the
// way the oryx http package distinguishes SystemError from SystemComplexError
// so a caller can branch on the *kind* of failure instead of parsing a
// message string. github.com/pkg/errors supplies the wrap/cause chain.
package bolterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Class identifies which of the six taxonomy members an error belongs to.
type Class int

const (
	// ClassTransport covers socket connect/read/write/TLS failures.
	ClassTransport Class = iota
	// ClassProtocol covers chunk framing and PackStream structural violations.
	ClassProtocol
	// ClassSecurity covers authentication and trust-strategy failures.
	ClassSecurity
	// ClassServiceUnavailable covers a server that could not be reached at
	// any resolved address.
	ClassServiceUnavailable
	// ClassClient covers caller misuse of the API surface.
	ClassClient
	// ClassDatabase covers a FAILURE message returned by the server.
	ClassDatabase
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "TransportError"
	case ClassProtocol:
		return "ProtocolError"
	case ClassSecurity:
		return "SecurityError"
	case ClassServiceUnavailable:
		return "ServiceUnavailable"
	case ClassClient:
		return "ClientError"
	case ClassDatabase:
		return "DatabaseError"
	default:
		return "UnknownError"
	}
}

// Error is the concrete type every taxonomy member wraps into. Callers use
// errors.As to recover it and branch on Class.
type Error struct {
	class Class
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%v: %v: %v", e.class, e.msg, e.cause)
	}
	return fmt.Sprintf("%v: %v", e.class, e.msg)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// Class reports which taxonomy member this error belongs to.
func (e *Error) Class() Class { return e.class }

func newErr(class Class, cause error, format string, a ...interface{}) *Error {
	return &Error{class: class, msg: fmt.Sprintf(format, a...), cause: cause}
}

// Transport wraps a socket/TLS failure as a TransportError.
func Transport(cause error, format string, a ...interface{}) *Error {
	return newErr(ClassTransport, cause, format, a...)
}

// Protocol wraps a framing or codec violation as a ProtocolError.
func Protocol(cause error, format string, a ...interface{}) *Error {
	return newErr(ClassProtocol, cause, format, a...)
}

// Security wraps an authentication or trust failure as a SecurityError.
func Security(cause error, format string, a ...interface{}) *Error {
	return newErr(ClassSecurity, cause, format, a...)
}

// ServiceUnavailable wraps a failure to reach the server at any resolved
// address.
func ServiceUnavailable(cause error, format string, a ...interface{}) *Error {
	return newErr(ClassServiceUnavailable, cause, format, a...)
}

// Client wraps a caller-misuse condition as a ClientError.
func Client(cause error, format string, a ...interface{}) *Error {
	return newErr(ClassClient, cause, format, a...)
}

// Database wraps a server-reported FAILURE as a DatabaseError.
func Database(cause error, format string, a ...interface{}) *Error {
	return newErr(ClassDatabase, cause, format, a...)
}

// Is reports whether err (or any error it wraps) belongs to class.
func Is(err error, class Class) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.class == class
}

// Wrap is a thin alias over pkg/errors.Wrap, used when a layer needs to
// attach positional context (offset, marker, tag) without yet knowing which
// taxonomy class applies — the caller upgrades it at the boundary where the
// class is known.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf is the formatted variant of Wrap.
func Wrapf(err error, format string, a ...interface{}) error {
	return errors.Wrapf(err, format, a...)
}
