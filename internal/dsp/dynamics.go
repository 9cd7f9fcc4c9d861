// SPDX-License-Identifier: MIT
package dsp

import "math"

// envelope is a dB-domain envelope follower with separate attack and release
// smoothing coefficients.
type envelope struct {
	level   float64
	attack  float64
	release float64
}

func newEnvelope(sampleRate, attackMs, releaseMs float64) envelope {
	return envelope{
		level:   SilenceFloorDB,
		attack:  timeCoefficient(sampleRate, attackMs),
		release: timeCoefficient(sampleRate, releaseMs),
	}
}

// follow moves the envelope toward levelDB and returns the new value.
func (e *envelope) follow(levelDB float64) float64 {
	coef := e.release
	if levelDB > e.level {
		coef = e.attack
	}
	e.level = coef*e.level + (1-coef)*levelDB
	if e.level < SilenceFloorDB {
		e.level = SilenceFloorDB
	}
	return e.level
}

// timeCoefficient converts a time constant to a per-sample smoothing factor:
// exp(-1 / (sampleRate * ms/1000)). Zero time means instantaneous tracking.
func timeCoefficient(sampleRate, ms float64) float64 {
	if !(ms > 0) || !isFinite(ms) {
		return 0
	}
	c := math.Exp(-1 / (sampleRate * ms / 1000))
	if !isFinite(c) {
		return 0
	}
	return c
}

// dynamics is the shared feed-forward gain computer behind Compress and Limit.
type dynamics struct {
	thresholdDB float64
	slope       float64 // 1 - 1/ratio; 0 is passthrough, 1 is a brick wall.
	attackMs    float64
	releaseMs   float64
	makeup      float64 // Linear makeup gain.
	ceiling     float64 // Hard output ceiling (linear), 0 disables.
}

func (d dynamics) process(samples []float32, sampleRate float64) {
	env := newEnvelope(sampleRate, d.attackMs, d.releaseMs)

	for i, s := range samples {
		x := float64(s)
		if math.IsNaN(x) {
			// A corrupt sample is silence for the detector and for the output.
			env.follow(SilenceFloorDB)
			samples[i] = 0
			continue
		}

		level := SilenceFloorDB
		if isFinite(x) {
			level = amplitudeToDB(math.Abs(x))
		}
		envDB := env.follow(level)

		gainDB := 0.0
		if d.slope > 0 && envDB > d.thresholdDB {
			gainDB = -(envDB - d.thresholdDB) * d.slope
		}

		y := x * dbToLinear(gainDB) * d.makeup
		if math.IsNaN(y) {
			// Inf times a zero makeup gain.
			y = 0
		}
		if d.ceiling > 0 {
			y = math.Max(-d.ceiling, math.Min(d.ceiling, y))
		}
		samples[i] = float32(y)
	}
}

// Compress applies a feed-forward compressor. Above thresholdDB the excess
// level is divided by ratio; makeupGainDB is applied to every sample.
//
// Inputs are sanitised rather than rejected:
//   - ratio <= 1 or non-finite: 1 (no compression)
//   - attack/release negative or non-finite: 0 ms (instant)
//   - makeup non-finite: 0 dB
//   - NaN threshold: no compression
func (b *Buffer) Compress(thresholdDB, ratio, attackMs, releaseMs, makeupGainDB float32) {
	if len(b.Samples) == 0 {
		return
	}

	r := float64(ratio)
	if !(r > 1) || !isFinite(r) {
		r = 1
	}
	threshold := float64(thresholdDB)
	if math.IsNaN(threshold) {
		r = 1
	}
	makeup := float64(makeupGainDB)
	if !isFinite(makeup) {
		makeup = 0
	}

	d := dynamics{
		thresholdDB: threshold,
		slope:       1 - 1/r,
		attackMs:    float64(attackMs),
		releaseMs:   float64(releaseMs),
		makeup:      clampFactor(dbToLinear(makeup)),
	}
	d.process(b.Samples, b.sampleRate())
}

// Limit is a peak limiter: an infinite-ratio compressor with zero attack.
// Output peaks never exceed 10^(ceilingDB/20). Ceilings below the silence
// floor are raised to it; a non-finite ceiling leaves the buffer untouched.
func (b *Buffer) Limit(ceilingDB, releaseMs float32) {
	ceiling := float64(ceilingDB)
	if len(b.Samples) == 0 || !isFinite(ceiling) {
		return
	}
	if ceiling < SilenceFloorDB {
		ceiling = SilenceFloorDB
	}

	d := dynamics{
		thresholdDB: ceiling,
		slope:       1,
		attackMs:    0,
		releaseMs:   float64(releaseMs),
		makeup:      1,
		ceiling:     dbToLinear(ceiling),
	}
	d.process(b.Samples, b.sampleRate())
}
