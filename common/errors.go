package common

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way a status code would. Every error
// produced by the engine carries exactly one kind.
type Kind int

const (
	InvalidArgument Kind = iota + 1
	FailedPrecondition
	NotFound
	OutOfBounds
	AlreadyExists
	Internal
	DataLoss
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case FailedPrecondition:
		return "FAILED_PRECONDITION"
	case NotFound:
		return "NOT_FOUND"
	case OutOfBounds:
		return "OUT_OF_BOUNDS"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case Internal:
		return "INTERNAL"
	case DataLoss:
		return "DATA_LOSS"
	}
	return "UNKNOWN"
}

// Error is a (kind, message) pair, optionally wrapping a cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is works against a
// bare kind probe like &Error{Kind: NotFound}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Msg == ""
}

// Errorf builds an error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func InvalidArgumentf(format string, args ...any) *Error {
	return Errorf(InvalidArgument, format, args...)
}

func FailedPreconditionf(format string, args ...any) *Error {
	return Errorf(FailedPrecondition, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return Errorf(NotFound, format, args...)
}

func OutOfBoundsf(format string, args ...any) *Error {
	return Errorf(OutOfBounds, format, args...)
}

func AlreadyExistsf(format string, args ...any) *Error {
	return Errorf(AlreadyExists, format, args...)
}

func Internalf(format string, args ...any) *Error {
	return Errorf(Internal, format, args...)
}

func DataLossf(format string, args ...any) *Error {
	return Errorf(DataLoss, format, args...)
}

// KindOf extracts the kind from anywhere in err's chain, or 0 when err
// carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool      { return KindOf(err) == NotFound }
func IsOutOfBounds(err error) bool   { return KindOf(err) == OutOfBounds }
func IsAlreadyExists(err error) bool { return KindOf(err) == AlreadyExists }
func IsDataLoss(err error) bool      { return KindOf(err) == DataLoss }
