// SPDX-License-Identifier: MIT
package ringbuffer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when start > end.
	ErrInvalidRange = errors.New("ringbuffer: invalid range")
	// ErrOutOfBounds is returned when end lies beyond the samples written so far.
	ErrOutOfBounds = errors.New("ringbuffer: range extends past written data")
	// ErrDataEvicted is matched by *EvictedError.
	ErrDataEvicted = errors.New("ringbuffer: data evicted")
	// ErrNoMark is returned by ExtractSinceMark before Mark was ever called.
	ErrNoMark = errors.New("ringbuffer: no mark set")
)

// EvictedError reports a request for samples that have already been
// overwritten. Earliest is the oldest absolute index still retrievable, so a
// caller can retry with ExtractChunk(err.Earliest, end).
type EvictedError struct {
	Start    uint64
	Earliest uint64
}

func (e *EvictedError) Error() string {
	return fmt.Sprintf("ringbuffer: data evicted: start %d is before earliest retained index %d",
		e.Start, e.Earliest)
}

// Is reports whether target is ErrDataEvicted.
func (e *EvictedError) Is(target error) bool {
	return target == ErrDataEvicted
}

// Lost returns how many requested samples are gone.
func (e *EvictedError) Lost() uint64 {
	return e.Earliest - e.Start
}
