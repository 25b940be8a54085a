package models

import (
	"errors"
	"fmt"
)

// Error kinds for remote fetches. Aggregators match on these with errors.Is
// and convert every kind to the member's fallback; none escape a batch.
var (
	// ErrTransport marks network or remote-side failures.
	ErrTransport = errors.New("transport failure")
	// ErrEmptyResult marks a call that succeeded but returned no usable data.
	ErrEmptyResult = errors.New("empty result")
	// ErrNormalization marks an unexpected result shape, e.g. a short tuple
	// or a value that does not parse as a decimal.
	ErrNormalization = errors.New("unexpected result shape")
)

// TransportErrorf wraps err as an ErrTransport with operation context.
func TransportErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// EmptyResultError reports an empty response for op.
func EmptyResultError(op string) error {
	return fmt.Errorf("%s: %w", op, ErrEmptyResult)
}

// NormalizationErrorf reports a malformed result for op.
func NormalizationErrorf(op, format string, a ...interface{}) error {
	return fmt.Errorf("%s: %w: %s", op, ErrNormalization, fmt.Sprintf(format, a...))
}

// ErrorKind returns a short label for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyResult):
		return "empty_result"
	case errors.Is(err, ErrNormalization):
		return "normalization"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
