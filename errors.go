package calc

import (
	"fmt"
	"strings"
)

// ParseError is a compile-time diagnostic for malformed formula text. It is
// returned to the caller and never stored as a cell value.
type ParseError struct {
	Formula  string
	Position int // rune offset into Formula
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d in %q: %s", e.Position, e.Formula, e.Message)
}

// CircularReferenceError fails the read of every cell that takes part in a
// reference cycle. Cycle holds the in-progress chain, innermost last.
type CircularReferenceError struct {
	Cell  CellAddress
	Cycle []CellAddress

	// labels renders Cell followed by Cycle with sheet names. Without them
	// the message falls back to sheet ids.
	labels []string
}

func (e *CircularReferenceError) Error() string {
	labels := e.labels
	if len(labels) != len(e.Cycle)+1 {
		labels = make([]string, 0, len(e.Cycle)+1)
		labels = append(labels, e.Cell.String())
		for _, a := range e.Cycle {
			labels = append(labels, a.String())
		}
	}
	return fmt.Sprintf("circular reference at %s (%s)", labels[0], strings.Join(labels[1:], " -> "))
}

// UnknownFunctionError fails evaluation of a call to a function that is not
// in the function table.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return "Unknown function: " + e.Name
}

// AppErrorCode classifies host-level failures, modeled on gRPC status codes.
type AppErrorCode int

const (
	// OK indicates the operation was successful
	OK AppErrorCode = 0

	// Unknown error. for example, this error may be returned when a status
	// value received from another address space belongs to an error space
	// that is not known in this address space.
	Unknown AppErrorCode = 2

	// InvalidArgument indicates client specified an invalid argument, such
	// as a malformed address.
	InvalidArgument AppErrorCode = 3

	// NotFound means some requested entity (e.g., worksheet) was not found.
	NotFound AppErrorCode = 5

	// AlreadyExists means an attempt to create an entity failed because one
	// already exists.
	AlreadyExists AppErrorCode = 6

	// FailedPrecondition indicates operation was rejected because the
	// system is not in a state required for the operation's execution.
	FailedPrecondition AppErrorCode = 9

	// OutOfRange means operation was attempted past the valid range, such
	// as a row past the last row of a sheet.
	OutOfRange AppErrorCode = 11

	// Unimplemented indicates operation is not implemented or not
	// supported/enabled.
	Unimplemented AppErrorCode = 12

	// Internal errors.
	Internal AppErrorCode = 13
)

// AppError is an application-level error with a code.
type AppError struct {
	Code    AppErrorCode
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// NewApplicationError creates a new application error.
func NewApplicationError(code AppErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}
