// Package engine implements the DBF record store and XDX B-tree index
// engine: the fixed-length record file format and the persistent B-tree
// index format that a dBASE III+-compatible system reads and writes.
package engine

import "fmt"

// Kind is a wire-stable error identifier. Values match the error
// taxonomy every layer of this module (and the dispatcher above it)
// reports through.
type Kind int

const (
	KindNone Kind = iota
	KindFileNotFound
	KindFileCreate
	KindFileRead
	KindFileWrite
	KindInvalidDbf
	KindInvalidIndex
	KindInvalidField
	KindInvalidRecord
	KindOutOfMemory
	KindSyntax
	KindTypeMismatch
	KindUndefinedVariable
	KindUndefinedFunction
	KindDivisionByZero
	KindOverflow
	KindNoDatabase
	KindDuplicateKey
	KindEof
	KindBof
	KindNotImplemented
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindFileNotFound:
		return "FileNotFound"
	case KindFileCreate:
		return "FileCreate"
	case KindFileRead:
		return "FileRead"
	case KindFileWrite:
		return "FileWrite"
	case KindInvalidDbf:
		return "InvalidDbf"
	case KindInvalidIndex:
		return "InvalidIndex"
	case KindInvalidField:
		return "InvalidField"
	case KindInvalidRecord:
		return "InvalidRecord"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindSyntax:
		return "Syntax"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindUndefinedVariable:
		return "UndefinedVariable"
	case KindUndefinedFunction:
		return "UndefinedFunction"
	case KindDivisionByZero:
		return "DivisionByZero"
	case KindOverflow:
		return "Overflow"
	case KindNoDatabase:
		return "NoDatabase"
	case KindDuplicateKey:
		return "DuplicateKey"
	case KindEof:
		return "Eof"
	case KindBof:
		return "Bof"
	case KindNotImplemented:
		return "NotImplemented"
	default:
		return "Internal"
	}
}

// Error is the value every fallible operation in this module returns
// instead of panicking. The dispatcher above this package catches it at
// command granularity (the current command is abandoned, the error is
// reported, the session stays usable).
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// newError builds an *Error, the only constructor used throughout engine.
func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewError is newError's exported counterpart, for the session package
// to report dispatcher-level failures through the same taxonomy
// without reaching into Error's fields directly.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return newError(kind, format, args...)
}
