// Package errs defines the error taxonomy shared across the assistant core.
// Four sentinel kinds cover every failure mode the API boundary needs to
// distinguish:
//
//   - ErrValidation: bad caller input. Surfaced as 400, never retried.
//   - ErrConfiguration: bad corpus/index/config at startup. Fatal, the
//     process must not serve.
//   - ErrUpstream: the external model API failed. Surfaced as 502 with a
//     generic message; the core performs no automatic retry.
//   - ErrSafetyRejection: a tool call failed allowlist validation. Not a
//     crash; converted to a conversational refusal.
//
// Packages wrap these with %w and callers classify with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrConfiguration   = errors.New("configuration invalid")
	ErrUpstream        = errors.New("upstream model unavailable")
	ErrSafetyRejection = errors.New("tool call rejected")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrValidation, args)...)
}

// Configurationf wraps ErrConfiguration with a formatted message.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrConfiguration, args)...)
}

// Upstreamf wraps ErrUpstream with a formatted message.
func Upstreamf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrUpstream, args)...)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

func prepend(sentinel error, args []any) []any {
	out := make([]any, 0, len(args)+1)
	out = append(out, sentinel)
	return append(out, args...)
}
