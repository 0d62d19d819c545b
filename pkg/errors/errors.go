package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedLattice    = errors.New("malformed lattice")
	ErrInvalidNodeDelta    = errors.New("invalid node delta")
	ErrNonTerminalBoundary = errors.New("phrase must start and end with a terminal")
	ErrInvalidInput        = errors.New("invalid input")
	ErrCorruptSegment      = errors.New("corrupt precomputation segment")
	ErrNotFound            = errors.New("not found")
	ErrStalePrecomputation = errors.New("precomputation does not match corpus or settings")
)

// AppError attaches a diagnostic message and, for parse failures, the byte
// offset into the offending input.
type AppError struct {
	Err     error
	Message string
	Offset  int
}

func (e *AppError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset %d: %s", e.Err.Error(), e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
		Offset:  -1,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
		Offset:  -1,
	}
}

func AtOffset(sentinel error, offset int, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
		Offset:  offset,
	}
}

// IsFatal reports whether err is an input or contract violation that must
// abort the whole extraction run instead of being retried or skipped.
func IsFatal(err error) bool {
	switch {
	case errors.Is(err, ErrMalformedLattice),
		errors.Is(err, ErrInvalidNodeDelta),
		errors.Is(err, ErrNonTerminalBoundary),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrCorruptSegment),
		errors.Is(err, ErrStalePrecomputation):
		return true
	default:
		return false
	}
}

// Is and As re-export the standard helpers so callers importing this package
// under its own name do not also need the stdlib one.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
