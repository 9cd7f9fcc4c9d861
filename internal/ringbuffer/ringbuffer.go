// SPDX-License-Identifier: MIT
/*
Package ringbuffer implements the always-on capture buffer that sits between
the audio driver callback and the dictation trigger.

Addressing:
  - Every sample ever pushed has an absolute index in [0, total).
  - Only the last min(total, capacity) samples are retained.
  - Slot for absolute index i is i % capacity, so the write cursor is always
    total % capacity and no separate wrap bookkeeping is needed.

Thread Safety:
  - One mutex guards storage, cursor, total and mark.
  - PushSamples holds it for O(len(data)) copies with no allocation or I/O.
  - Extraction copies out under the lock, never aliasing storage.
*/
package ringbuffer

import "sync"

// RingBuffer is a fixed-capacity circular store of float32 samples.
type RingBuffer struct {
	mu       sync.Mutex
	storage  []float32
	capacity int
	cursor   int    // Next slot to write, always total % capacity.
	total    uint64 // Samples ever pushed; never wraps or decreases.
	mark     uint64
	marked   bool
}

// New allocates a ring buffer holding up to capacity samples. A capacity of
// zero (or less) yields a buffer that retains nothing but still counts
// pushed samples.
func New(capacity int) *RingBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &RingBuffer{
		storage:  make([]float32, capacity),
		capacity: capacity,
	}
}

// NewForDuration sizes a buffer for the given number of seconds at sampleRate.
func NewForDuration(seconds float64, sampleRate int) *RingBuffer {
	if !(seconds > 0) || sampleRate <= 0 {
		return New(0)
	}
	return New(int(seconds * float64(sampleRate)))
}

// PushSamples appends data in order, evicting the oldest samples as needed.
// If data is longer than the capacity only its tail is kept.
//
// Performance Critical (Hot Path):
//   - Called from the audio driver callback
//   - No allocations, at most two copy calls
func (r *RingBuffer) PushSamples(data []float32) {
	n := len(data)
	if n == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.total += uint64(n)
	if r.capacity == 0 {
		return
	}

	// Samples that would be overwritten within this same push are skipped,
	// but the cursor still advances past them.
	if n > r.capacity {
		skip := n - r.capacity
		r.cursor = (r.cursor + skip) % r.capacity
		data = data[skip:]
	}

	first := copy(r.storage[r.cursor:], data)
	copy(r.storage, data[first:])
	r.cursor = (r.cursor + len(data)) % r.capacity
}

// Mark records the current absolute position and returns it. Any previous
// mark is replaced.
func (r *RingBuffer) Mark() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mark = r.total
	r.marked = true
	return r.mark
}

// MarkPosition returns the last mark and whether one was ever set.
func (r *RingBuffer) MarkPosition() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mark, r.marked
}

// CurrentPosition returns the number of samples pushed so far.
func (r *RingBuffer) CurrentPosition() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Capacity returns the fixed number of slots.
func (r *RingBuffer) Capacity() int {
	return r.capacity
}

// Retained returns how many samples are currently retrievable.
func (r *RingBuffer) Retained() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retained()
}

// Earliest returns the oldest absolute index still retrievable.
func (r *RingBuffer) Earliest() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total - uint64(r.retained())
}

func (r *RingBuffer) retained() int {
	if r.total < uint64(r.capacity) {
		return int(r.total)
	}
	return r.capacity
}

// ExtractChunk returns a copy of the samples in the absolute range
// [start, end). Errors, checked in this order:
//   - ErrInvalidRange if start > end
//   - ErrOutOfBounds if end > CurrentPosition()
//   - *EvictedError (matches ErrDataEvicted) if start was overwritten
func (r *RingBuffer) ExtractChunk(start, end uint64) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extract(start, end)
}

// ExtractSinceMark returns everything pushed since the last Mark.
func (r *RingBuffer) ExtractSinceMark() ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.marked {
		return nil, ErrNoMark
	}
	return r.extract(r.mark, r.total)
}

// ExtractLatest copies up to n of the most recent samples. It never fails;
// fewer samples are returned when less is retained.
func (r *RingBuffer) ExtractLatest(n int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.retained() {
		n = r.retained()
	}
	if n <= 0 {
		return []float32{}
	}
	out, _ := r.extract(r.total-uint64(n), r.total)
	return out
}

// ReadLatestInto fills dst with the most recent samples without allocating
// and returns how many were written. Used by the level meter.
func (r *RingBuffer) ReadLatestInto(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst)
	if n > r.retained() {
		n = r.retained()
	}
	if n == 0 {
		return 0
	}
	r.copyOut(dst[:n], r.total-uint64(n))
	return n
}

// extract must be called with r.mu held.
func (r *RingBuffer) extract(start, end uint64) ([]float32, error) {
	if start > end {
		return nil, ErrInvalidRange
	}
	if end > r.total {
		return nil, ErrOutOfBounds
	}
	earliest := r.total - uint64(r.retained())
	if start < earliest {
		return nil, &EvictedError{Start: start, Earliest: earliest}
	}

	out := make([]float32, end-start)
	if len(out) > 0 {
		r.copyOut(out, start)
	}
	return out, nil
}

// copyOut copies len(dst) retained samples starting at absolute index start.
func (r *RingBuffer) copyOut(dst []float32, start uint64) {
	pos := int(start % uint64(r.capacity))
	first := copy(dst, r.storage[pos:])
	copy(dst[first:], r.storage)
}
