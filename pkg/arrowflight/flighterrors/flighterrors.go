// Package flighterrors defines the error taxonomy shared by every
// arrowflight component and the gRPC status codes each maps to at the
// Flight RPC boundary.
package flighterrors

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/grpc/codes"
)

// Sentinel errors. Use errors.Is against these, or errors.Mark when
// wrapping a lower-level cause that should still classify as one of these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfMemory    = errors.New("out of memory")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrBatchTooLarge  = errors.New("batch too large")
	ErrCancelled      = errors.New("cancelled")
	ErrInternal       = errors.New("internal")
	ErrLeakedBuffers  = errors.New("leaked buffers")
)

// NotFound wraps a formatted message as ErrNotFound.
func NotFound(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

// InvalidArgument wraps a formatted message as ErrInvalidArgument.
func InvalidArgument(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// OutOfMemory wraps a formatted message as ErrOutOfMemory.
func OutOfMemory(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrOutOfMemory)
}

// TypeMismatch wraps a formatted message as ErrTypeMismatch.
func TypeMismatch(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrTypeMismatch)
}

// BatchTooLarge wraps a formatted message as ErrBatchTooLarge.
func BatchTooLarge(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrBatchTooLarge)
}

// Cancelled wraps a formatted message as ErrCancelled.
func Cancelled(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCancelled)
}

// Internal wraps a formatted message as ErrInternal.
func Internal(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInternal)
}

// Wrap marks err with kind, preserving err as the cause so errors.Is(err,
// ...) and message text both survive.
func Wrap(err error, kind error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), kind)
}

// Code maps a taxonomy error to its wire-visible gRPC status code. Errors
// that match none of the sentinels are treated as Internal, matching the
// "latched first-error fallback" rule in the error handling design.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, ErrOutOfMemory):
		return codes.ResourceExhausted
	case errors.Is(err, ErrTypeMismatch):
		return codes.Internal
	case errors.Is(err, ErrBatchTooLarge):
		return codes.InvalidArgument
	case errors.Is(err, ErrCancelled):
		return codes.Canceled
	case errors.Is(err, ErrInternal):
		return codes.Internal
	default:
		return codes.Internal
	}
}
