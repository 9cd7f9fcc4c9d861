// SPDX-License-Identifier: MIT
/*
Package dsp conditions a captured speech clip before it is validated and
handed to the recognizer.

Every operation mutates Buffer.Samples in place and is total: empty input,
silence, NaN, ±Inf and MaxFloat32 never panic. Levels are computed in
float64 and floored at SilenceFloorDB so that log10(0) never leaks -Inf or
NaN into later stages.
*/
package dsp

import "math"

const (
	// SampleRate is the rate every conditioned clip is expected to carry.
	SampleRate = 16000

	// SilenceFloorDB is the lowest level any measurement reports.
	SilenceFloorDB = -120.0
)

// Buffer is a detached, finite clip of mono samples.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// NewBuffer wraps samples at the domain sample rate. The slice is owned by
// the returned Buffer from then on.
func NewBuffer(samples []float32) *Buffer {
	return &Buffer{Samples: samples, SampleRate: SampleRate}
}

// DurationSecs returns len(Samples)/SampleRate, or 0 when either is empty.
func (b *Buffer) DurationSecs() float32 {
	if len(b.Samples) == 0 || b.SampleRate <= 0 {
		return 0
	}
	return float32(float64(len(b.Samples)) / float64(b.SampleRate))
}

// RMSDb returns the RMS level in dBFS. Non-finite samples count as silence;
// empty or silent input returns exactly SilenceFloorDB.
func (b *Buffer) RMSDb() float32 {
	if len(b.Samples) == 0 {
		return SilenceFloorDB
	}

	var sumSquares float64
	for _, s := range b.Samples {
		v := float64(s)
		if isFinite(v) {
			sumSquares += v * v
		}
	}
	return float32(powerToDB(sumSquares / float64(len(b.Samples))))
}

// PeakDb returns the highest absolute finite sample in dBFS.
func (b *Buffer) PeakDb() float32 {
	var peak float64
	for _, s := range b.Samples {
		v := math.Abs(float64(s))
		if isFinite(v) && v > peak {
			peak = v
		}
	}
	return float32(amplitudeToDB(peak))
}

// ApplyGain multiplies every sample by 10^(gainDB/20). Results are not
// clipped to [-1, 1]. A non-finite gain leaves the buffer untouched.
func (b *Buffer) ApplyGain(gainDB float32) {
	g := float64(gainDB)
	if !isFinite(g) {
		return
	}
	scale(b.Samples, dbToLinear(g))
}

// NormalizeRMS scales the clip so its RMS level becomes targetDB. Silence
// (level at the floor) is left alone.
func (b *Buffer) NormalizeRMS(targetDB float32) {
	target := float64(targetDB)
	if !isFinite(target) {
		return
	}
	current := float64(b.RMSDb())
	if current <= SilenceFloorDB {
		return
	}
	scale(b.Samples, dbToLinear(target-current))
}

// LinearToDB converts a linear amplitude to dBFS, floored at SilenceFloorDB.
func LinearToDB(amplitude float64) float32 {
	return float32(amplitudeToDB(amplitude))
}

func (b *Buffer) sampleRate() float64 {
	if b.SampleRate <= 0 {
		return SampleRate
	}
	return float64(b.SampleRate)
}

// scale multiplies in float64 and narrows. The factor is clamped to
// [0, MaxFloat32] so 0*Inf never produces NaN from a finite sample.
func scale(samples []float32, factor float64) {
	if factor == 1 {
		return
	}
	factor = clampFactor(factor)
	for i, s := range samples {
		samples[i] = float32(float64(s) * factor)
	}
}

func clampFactor(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > math.MaxFloat32:
		return math.MaxFloat32
	}
	return f
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// amplitudeToDB converts a linear amplitude to dB, floored.
func amplitudeToDB(a float64) float64 {
	if !(a > 0) || !isFinite(a) {
		return SilenceFloorDB
	}
	return math.Max(20*math.Log10(a), SilenceFloorDB)
}

// powerToDB converts a mean-square power to dB, floored.
func powerToDB(p float64) float64 {
	if !(p > 0) || !isFinite(p) {
		return SilenceFloorDB
	}
	return math.Max(10*math.Log10(p), SilenceFloorDB)
}
