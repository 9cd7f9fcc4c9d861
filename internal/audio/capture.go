// SPDX-License-Identifier: MIT
/*
Package audio connects host audio to the capture buffer.

A Capturer is a pure producer: it delivers mono 16 kHz float32 chunks to a
Sink from the driver's callback thread. Platform specifics stay behind the
Capturer interface, so nothing downstream is conditional on the backend.

The package also decodes audio files for offline checks and writes WAV
dumps of accepted clips.
*/
package audio

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAlreadyStarted = errors.New("capture already started")
	ErrUnknownHandle  = errors.New("unknown capture handle")
)

// Sink receives captured samples on the driver thread. It must not block or
// retain the slice; the ring buffer's PushSamples is the usual sink.
type Sink func(samples []float32)

// Handle identifies a running capture.
type Handle struct {
	ID uuid.UUID
}

// Capturer is the single capability every capture backend provides.
type Capturer interface {
	Start(sink Sink) (Handle, error)
	Stop(h Handle) error
}
