// SPDX-License-Identifier: MIT
package dsp

import (
	"gonum.org/v1/gonum/interp"
)

// Resample converts samples from one rate to another with piecewise linear
// interpolation. Rates that are equal or non-positive, and clips too short
// to interpolate, are returned as a copy.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) < 2 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(i)
		ys[i] = float64(s)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		// Fit only fails on malformed xs, which cannot happen here.
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	step := float64(fromRate) / float64(toRate)
	n := int(float64(len(samples)) / step)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(pl.Predict(float64(i) * step))
	}
	return out
}

// MixToMono averages interleaved frames down to one channel. selection lists
// the channel indices to include; nil, empty, or entirely out-of-range
// selections use every channel.
func MixToMono(interleaved []float32, channels int, selection []int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		copy(out, interleaved)
		return out
	}
	out := make([]float32, len(interleaved)/channels)
	MixToMonoInto(out, interleaved, channels, selection)
	return out
}

// MixToMonoInto is the allocation-free form of MixToMono used on the capture
// path. It writes min(len(dst), frames) samples and returns that count.
func MixToMonoInto(dst, interleaved []float32, channels int, selection []int) int {
	if channels <= 1 {
		return copy(dst, interleaved)
	}

	frames := min(len(interleaved)/channels, len(dst))
	valid := 0
	for _, ch := range selection {
		if ch >= 0 && ch < channels {
			valid++
		}
	}

	for f := range frames {
		frame := interleaved[f*channels : (f+1)*channels]
		var sum float32
		if valid == 0 {
			for _, s := range frame {
				sum += s
			}
			dst[f] = sum / float32(channels)
			continue
		}
		for _, ch := range selection {
			if ch >= 0 && ch < channels {
				sum += frame[ch]
			}
		}
		dst[f] = sum / float32(valid)
	}
	return frames
}

// StreamResampler is a linear resampler for a continuous stream delivered
// in chunks. It keeps the last input sample and the fractional read
// position between calls so chunk boundaries are seamless. Process does not
// allocate.
type StreamResampler struct {
	step float64
	pos  float64 // Next output time, in input samples relative to src[0].
	prev float32
}

// NewStreamResampler converts fromRate to toRate. Non-positive rates
// degrade to a passthrough.
func NewStreamResampler(fromRate, toRate int) *StreamResampler {
	step := 1.0
	if fromRate > 0 && toRate > 0 {
		step = float64(fromRate) / float64(toRate)
	}
	return &StreamResampler{step: step}
}

// MaxOutput is the largest count Process can produce for n input samples.
func (r *StreamResampler) MaxOutput(n int) int {
	return int(float64(n+1)/r.step) + 2
}

// Process resamples src into dst and returns the number of samples written.
// Output that does not fit in dst is dropped, but the stream position still
// advances past it.
func (r *StreamResampler) Process(dst, src []float32) int {
	if len(src) == 0 {
		return 0
	}
	if r.step == 1 {
		return copy(dst, src)
	}

	written := 0
	for {
		var v float32
		if r.pos < 0 {
			// Between the previous chunk's last sample and src[0].
			frac := float32(r.pos + 1)
			v = r.prev + (src[0]-r.prev)*frac
		} else {
			i := int(r.pos)
			if i+1 >= len(src) {
				break
			}
			frac := float32(r.pos - float64(i))
			v = src[i] + (src[i+1]-src[i])*frac
		}
		if written < len(dst) {
			dst[written] = v
			written++
		}
		r.pos += r.step
	}

	r.pos -= float64(len(src))
	r.prev = src[len(src)-1]
	return written
}
