// SPDX-License-Identifier: MIT
package transport

// Transport delivers level frames and transcription events to observers.
// Implementations must be safe for concurrent use and must not block the
// caller; a slow observer loses messages rather than stalling the pipeline.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans a message out to several transports. The first error is
// returned after every transport has been tried.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = Multi(nil)
