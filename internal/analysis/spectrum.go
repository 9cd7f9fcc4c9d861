// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"openhush/pkg/bitint"
)

// WindowFunc selects the FFT window.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

type fftWorkspace struct {
	input     []float64
	fftOutput []complex128
	magnitude []float64
	window    []float64
	mu        sync.RWMutex // Guards magnitude.
}

// Spectrum computes a normalised magnitude spectrum of float32 frames. A
// full-scale sine centred on a bin reads 1.0 in that bin.
type Spectrum struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64
	norm       float64
	workspace  fftWorkspace
}

var _ SpectrumProvider = (*Spectrum)(nil)

// NewSpectrum rounds size up to a power of two.
func NewSpectrum(size int, sampleRate float64, windowType WindowFunc) (*Spectrum, error) {
	if size <= 1 {
		return nil, fmt.Errorf("spectrum size must be greater than 1, got %d", size)
	}
	if !(sampleRate > 0) {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if !bitint.IsPowerOfTwo(size) {
		size = bitint.NextPowerOfTwo(size)
	}

	coeffs := make([]float64, size)
	applyWindow(coeffs, windowType)
	var sum float64
	for _, c := range coeffs {
		sum += c
	}

	bins := size/2 + 1
	logger.Debugf("spectrum: size %d (2^%d), rate %.0f Hz, window %d", size, bitint.Log2(size), sampleRate, windowType)

	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		norm:       2 / sum,
		workspace: fftWorkspace{
			input:     make([]float64, size),
			fftOutput: make([]complex128, bins),
			magnitude: make([]float64, bins),
			window:    coeffs,
		},
	}, nil
}

// Process windows frame, zero-padding or truncating to the FFT size, and
// updates the magnitudes. Non-finite samples are treated as silence.
func (s *Spectrum) Process(frame []float32) {
	s.workspace.mu.Lock()
	defer s.workspace.mu.Unlock()

	for i := range s.size {
		v := 0.0
		if i < len(frame) {
			v = float64(frame[i])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
		}
		s.workspace.input[i] = v * s.workspace.window[i]
	}

	s.fft.Coefficients(s.workspace.fftOutput, s.workspace.input)
	for i, c := range s.workspace.fftOutput {
		s.workspace.magnitude[i] = cmplx.Abs(c) * s.norm
	}
}

// MagnitudesInto copies the latest magnitudes into dst, which must have
// length Bins().
func (s *Spectrum) MagnitudesInto(dst []float64) error {
	s.workspace.mu.RLock()
	defer s.workspace.mu.RUnlock()

	if len(dst) != len(s.workspace.magnitude) {
		return fmt.Errorf("destination length %d does not match %d bins", len(dst), len(s.workspace.magnitude))
	}
	copy(dst, s.workspace.magnitude)
	return nil
}

// FrequencyForBin returns the centre frequency of bin in Hz, or 0 when out
// of range.
func (s *Spectrum) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(s.workspace.fftOutput) {
		return 0
	}
	return float64(bin) * s.sampleRate / float64(s.size)
}

func (s *Spectrum) Bins() int { return s.size/2 + 1 }

func (s *Spectrum) Size() int { return s.size }

func (s *Spectrum) SampleRate() float64 { return s.sampleRate }

// ParseWindowFunc maps a case-insensitive name to a WindowFunc. Unknown
// names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	}
	return Hann, fmt.Errorf("unknown window function %q", name)
}

func applyWindow(coeffs []float64, windowType WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Hann(coeffs)
	}
}
