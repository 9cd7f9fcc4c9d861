// SPDX-License-Identifier: MIT
package analysis

// SampleSource is the read side of the capture buffer the meter samples.
type SampleSource interface {
	// ReadLatestInto copies the newest retained samples into dst and
	// returns how many were written, without allocating.
	ReadLatestInto(dst []float32) int
	CurrentPosition() uint64
}

// SpectrumProvider exposes the latest magnitude spectrum. It decouples band
// measurement from the FFT implementation.
type SpectrumProvider interface {
	MagnitudesInto(dst []float64) error
	FrequencyForBin(bin int) float64
	Bins() int
}
