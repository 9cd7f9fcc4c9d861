// SPDX-License-Identifier: MIT
/*
Package pipeline turns marked ranges of the capture ring buffer into
transcription jobs.

A Dictation brackets one utterance: Begin marks the buffer, Flush cuts
interim chunks while the user is still talking, and End returns the whole
session. Clips go to a Worker, which conditions, validates and transcribes
them off the capture path.
*/
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"openhush/internal/log"
	"openhush/internal/ringbuffer"
	"openhush/internal/telemetry"
)

var logger = log.Component("pipeline")

var (
	ErrNotActive     = errors.New("no dictation in progress")
	ErrAlreadyActive = errors.New("dictation already in progress")
)

// Clip is a detached range of 16 kHz mono samples taken from the buffer.
type Clip struct {
	Session uuid.UUID
	Chunk   int  // 1-based interim chunk number, 0 for the final clip.
	Final   bool // The whole session, returned by End.
	Start   uint64
	End     uint64
	Lost    uint64 // Samples of the requested range that had been evicted.
	Samples []float32
}

// Dictation tracks one session at a time over a shared ring buffer.
type Dictation struct {
	buf     *ringbuffer.RingBuffer
	metrics *telemetry.Metrics

	mu       sync.Mutex
	active   bool
	session  uuid.UUID
	start    uint64
	chunkEnd uint64
	chunks   int
}

// NewDictation returns an idle Dictation. metrics may be nil.
func NewDictation(buf *ringbuffer.RingBuffer, metrics *telemetry.Metrics) *Dictation {
	return &Dictation{buf: buf, metrics: metrics}
}

// Begin marks the current buffer position and opens a new session.
func (d *Dictation) Begin() (uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return uuid.Nil, ErrAlreadyActive
	}
	d.active = true
	d.session = uuid.New()
	d.start = d.buf.Mark()
	d.chunkEnd = d.start
	d.chunks = 0
	logger.Debugf("session %s started at sample %d", d.session, d.start)
	return d.session, nil
}

// Active reports whether a session is open.
func (d *Dictation) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Flush returns the samples captured since the previous Flush (or Begin)
// as an interim chunk. The session stays open.
func (d *Dictation) Flush() (Clip, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return Clip{}, ErrNotActive
	}
	clip, err := d.extract(d.chunkEnd)
	if err != nil {
		return Clip{}, err
	}
	d.chunks++
	d.chunkEnd = clip.End
	clip.Chunk = d.chunks
	return clip, nil
}

// End closes the session and returns everything captured since Begin. If
// the buffer wrapped during a long session the clip starts at the oldest
// retained sample and Lost reports how many were dropped.
func (d *Dictation) End() (Clip, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return Clip{}, ErrNotActive
	}
	d.active = false

	clip, err := d.extract(d.start)
	if err != nil {
		return Clip{}, err
	}
	clip.Final = true
	logger.Debugf("session %s ended: %d samples, %d interim chunks", d.session, len(clip.Samples), d.chunks)
	return clip, nil
}

// extract copies [from, now). Must be called with d.mu held.
func (d *Dictation) extract(from uint64) (Clip, error) {
	end := d.buf.CurrentPosition()
	clip := Clip{Session: d.session, Start: from, End: end}

	samples, err := d.buf.ExtractChunk(from, end)
	var evicted *ringbuffer.EvictedError
	if errors.As(err, &evicted) {
		// The writer only moves forward, so a retry from Earliest succeeds
		// unless the whole range was overwritten in between.
		clip.Start = evicted.Earliest
		clip.Lost = evicted.Lost()
		samples, err = d.buf.ExtractChunk(clip.Start, end)
	}
	if err != nil {
		return Clip{}, err
	}

	if clip.Lost > 0 {
		logger.Warnf("session %s: buffer wrapped, %d samples lost", d.session, clip.Lost)
		d.metrics.AddEvicted(context.Background(), clip.Lost)
	}
	clip.Samples = samples
	return clip, nil
}
