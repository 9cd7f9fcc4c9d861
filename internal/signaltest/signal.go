// SPDX-License-Identifier: MIT
// Package signaltest generates deterministic float32 test signals and
// provides doubles shared by the audio, dsp and pipeline tests.
package signaltest

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Sine returns n samples of a sine wave at frequency Hz with the given peak
// amplitude.
func Sine(n, sampleRate int, frequency, amplitude float64) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		t := float64(i) / float64(sampleRate)
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// Voice returns a 200 Hz fundamental with two harmonics, peaking at about
// amplitude. It stands in for voiced speech in level-sensitive tests.
func Voice(n, sampleRate int, amplitude float64) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		t := float64(i) / float64(sampleRate)
		signal := math.Sin(2*math.Pi*200*t)*0.5 +
			math.Sin(2*math.Pi*400*t)*0.3 +
			math.Sin(2*math.Pi*600*t)*0.2
		buffer[i] = float32(signal * amplitude)
	}
	return buffer
}

// Noise returns uniform noise in [-amplitude, amplitude) from a fixed seed.
func Noise(n int, amplitude float64, seed uint64) []float32 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	buffer := make([]float32, n)
	for i := range buffer {
		buffer[i] = float32((r.Float64()*2 - 1) * amplitude)
	}
	return buffer
}

// Constant returns n copies of v.
func Constant(n int, v float32) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		buffer[i] = v
	}
	return buffer
}

// Interleave repeats a mono signal across channels, scaling channel c by
// gains[c] when provided.
func Interleave(mono []float32, channels int, gains ...float32) []float32 {
	out := make([]float32, len(mono)*channels)
	for f, s := range mono {
		for c := range channels {
			g := float32(1)
			if c < len(gains) {
				g = gains[c]
			}
			out[f*channels+c] = s * g
		}
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	startBin = max(startBin, 0)
	endBin = min(endBin, len(magnitudes)-1)

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}

// MockTransport records every message sent to it.
type MockTransport struct {
	mu       sync.Mutex
	messages []any
	closed   bool
}

// Send stores data for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.messages...)
}

// Closed reports whether Close has been called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
