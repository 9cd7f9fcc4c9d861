// SPDX-License-Identifier: MIT
/*
Package validate is the last gate a clip passes before it reaches a speech
recognizer. It checks, in a fixed order where the first failure wins:

 1. the clip is not empty
 2. the sample rate is SampleRate
 3. the duration is at most MaxDurationSecs
 4. the duration is at least MinDurationSecs
 5. no sample is NaN
 6. no sample is infinite

The order is part of the contract. Callers can tell "no signal" from
"out of policy" from "garbage signal" by the error alone.
*/
package validate

import "math"

const (
	SampleRate      = 16000
	MaxDurationSecs = 300.0
	MinDurationSecs = 0.1
)

// Info describes a clip that passed validation.
type Info struct {
	DurationSecs float32
	SampleCount  int
	MinValue     float32
	MaxValue     float32
	RMS          float32
}

// Audio validates samples recorded at sampleRate against the fixed policy
// bounds.
func Audio(samples []float32, sampleRate int) (Info, error) {
	return check(samples, sampleRate, MaxDurationSecs, MinDurationSecs)
}

// AudioWithBounds is Audio with the duration window overridden. Non-finite
// or negative bounds fall back to the policy constants. The sample rate
// check is not affected.
func AudioWithBounds(samples []float32, sampleRate int, maxSecs, minSecs float32) (Info, error) {
	maxD, minD := float64(maxSecs), float64(minSecs)
	if !(maxD >= 0) || math.IsInf(maxD, 0) {
		maxD = MaxDurationSecs
	}
	if !(minD >= 0) || math.IsInf(minD, 0) {
		minD = MinDurationSecs
	}
	return check(samples, sampleRate, maxD, minD)
}

func check(samples []float32, sampleRate int, maxSecs, minSecs float64) (Info, error) {
	if len(samples) == 0 {
		return Info{}, ErrEmpty
	}
	if sampleRate != SampleRate {
		return Info{}, &SampleRateError{Actual: sampleRate, Expected: SampleRate}
	}

	duration := float64(len(samples)) / float64(sampleRate)
	if duration > maxSecs {
		return Info{}, &DurationError{Kind: ErrTooLong, Duration: float32(duration), Limit: float32(maxSecs)}
	}
	if duration < minSecs {
		return Info{}, &DurationError{Kind: ErrTooShort, Duration: float32(duration), Limit: float32(minSecs)}
	}

	var (
		nanCount, infCount int
		minVal             = float32(math.MaxFloat32)
		maxVal             = float32(-math.MaxFloat32)
		sumSquares         float64
	)
	for _, s := range samples {
		v := float64(s)
		switch {
		case math.IsNaN(v):
			nanCount++
		case math.IsInf(v, 0):
			infCount++
		default:
			minVal = min(minVal, s)
			maxVal = max(maxVal, s)
			sumSquares += v * v
		}
	}

	if nanCount > 0 {
		return Info{}, &NonFiniteError{Kind: ErrContainsNaN, Count: nanCount}
	}
	if infCount > 0 {
		return Info{}, &NonFiniteError{Kind: ErrContainsInfinite, Count: infCount}
	}

	return Info{
		DurationSecs: float32(duration),
		SampleCount:  len(samples),
		MinValue:     minVal,
		MaxValue:     maxVal,
		RMS:          float32(math.Sqrt(sumSquares / float64(len(samples)))),
	}, nil
}
