// Package errors defines the failure taxonomy shared by the filter pipeline.
// Every failure that ends up in a run summary, a metric label or an event is
// classified into a Kind.
package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrNotFound       = errors.New("document not found")
	ErrUnavailable    = errors.New("service unavailable")
	ErrInvalidValue   = errors.New("invalid value")
	ErrInvalidInput   = errors.New("invalid input")
	ErrIO             = errors.New("i/o failure")
	ErrTimeout        = errors.New("operation timed out")
	ErrInternal       = errors.New("internal error")
)

// Kind is the coarse failure class reported to operators.
type Kind string

const (
	KindNone       Kind = ""
	KindParse      Kind = "parse"
	KindNotFound   Kind = "not_found"
	KindService    Kind = "service"
	KindValidation Kind = "validation"
	KindIO         Kind = "io"
	KindTimeout    Kind = "timeout"
	KindCancelled  Kind = "cancelled"
	KindInternal   Kind = "internal"
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf classifies err. Context errors are checked first so a lookup that
// failed because the run deadline expired is reported as a timeout rather
// than as a service failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrMalformedInput):
		return KindParse
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidValue):
		return KindValidation
	case errors.Is(err, ErrUnavailable):
		return KindService
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindInternal
	}
}

// Is and As re-export the standard helpers so callers importing this package
// under the name errors keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
