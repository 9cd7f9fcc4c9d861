// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Audio matches exactly one of these
// through errors.Is; the struct types below carry the numbers.
var (
	ErrEmpty             = errors.New("audio is empty (no samples)")
	ErrInvalidSampleRate = errors.New("unexpected sample rate")
	ErrTooLong           = errors.New("audio too long")
	ErrTooShort          = errors.New("audio too short")
	ErrContainsNaN       = errors.New("audio contains NaN values")
	ErrContainsInfinite  = errors.New("audio contains infinite values")
)

// SampleRateError reports a clip captured at the wrong rate.
type SampleRateError struct {
	Actual   int
	Expected int
}

func (e *SampleRateError) Error() string {
	return fmt.Sprintf("unexpected sample rate: %dHz (expected %dHz)", e.Actual, e.Expected)
}

func (e *SampleRateError) Is(target error) bool {
	return target == ErrInvalidSampleRate
}

// DurationError reports a clip outside the accepted duration window. Limit
// is the bound that was crossed.
type DurationError struct {
	Kind     error // ErrTooLong or ErrTooShort
	Duration float32
	Limit    float32
}

func (e *DurationError) Error() string {
	if e.Kind == ErrTooLong {
		return fmt.Sprintf("audio too long: %.1fs exceeds maximum %.1fs", e.Duration, e.Limit)
	}
	return fmt.Sprintf("audio too short: %.3fs below minimum %.3fs", e.Duration, e.Limit)
}

func (e *DurationError) Is(target error) bool {
	return target == e.Kind
}

// NonFiniteError reports how many NaN or infinite samples a clip held.
type NonFiniteError struct {
	Kind  error // ErrContainsNaN or ErrContainsInfinite
	Count int
}

func (e *NonFiniteError) Error() string {
	if e.Kind == ErrContainsNaN {
		return fmt.Sprintf("audio contains %d NaN values", e.Count)
	}
	return fmt.Sprintf("audio contains %d infinite values", e.Count)
}

func (e *NonFiniteError) Is(target error) bool {
	return target == e.Kind
}

// Reason returns a short, stable label for err suitable for metric
// attributes and log fields. Unknown errors map to "other".
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmpty):
		return "empty"
	case errors.Is(err, ErrInvalidSampleRate):
		return "sample_rate"
	case errors.Is(err, ErrTooLong):
		return "too_long"
	case errors.Is(err, ErrTooShort):
		return "too_short"
	case errors.Is(err, ErrContainsNaN):
		return "nan"
	case errors.Is(err, ErrContainsInfinite):
		return "infinite"
	}
	return "other"
}
