// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"math"
	"slices"
	"time"

	"openhush/internal/dsp"
	"openhush/internal/log"
	"openhush/internal/transport"
)

var logger = log.Component("analysis")

// ClipThreshold is the absolute sample value at which a frame is flagged
// as clipping.
const ClipThreshold = 0.999

// Frame is one level meter reading, published to transports as JSON.
type Frame struct {
	Type     string      `json:"type"`
	Position uint64      `json:"position"`
	RMSDb    float32     `json:"rms_db"`
	PeakDb   float32     `json:"peak_db"`
	Clipping bool        `json:"clipping"`
	Bands    []BandLevel `json:"bands,omitempty"`
}

// Meter samples the newest window of captured audio. It never touches the
// capture path: it only reads from the buffer under the buffer's own lock.
type Meter struct {
	src      SampleSource
	window   []float32
	spectrum *Spectrum
	bands    *BandMeter
}

// NewMeter measures windowSize samples per reading. spectrum may be nil to
// skip band levels.
func NewMeter(src SampleSource, windowSize int, spectrum *Spectrum) *Meter {
	m := &Meter{
		src:      src,
		window:   make([]float32, max(windowSize, 1)),
		spectrum: spectrum,
	}
	if spectrum != nil {
		m.bands = NewBandMeter(spectrum, SpeechBands)
	}
	return m
}

// Measure takes one reading. The returned Bands slice is reused by the next
// call; clone it before handing the frame to another goroutine.
func (m *Meter) Measure() Frame {
	n := m.src.ReadLatestInto(m.window)
	samples := m.window[:n]

	buf := dsp.Buffer{Samples: samples, SampleRate: dsp.SampleRate}
	f := Frame{
		Type:     "level",
		Position: m.src.CurrentPosition(),
		RMSDb:    buf.RMSDb(),
		PeakDb:   buf.PeakDb(),
	}
	for _, s := range samples {
		if math.Abs(float64(s)) >= ClipThreshold {
			f.Clipping = true
			break
		}
	}

	if m.spectrum != nil {
		m.spectrum.Process(samples)
		f.Bands = m.bands.Measure()
	}
	return f
}

// Run publishes a reading every interval until ctx is done.
func (m *Meter) Run(ctx context.Context, interval time.Duration, t transport.Transport) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f := m.Measure()
			f.Bands = slices.Clone(f.Bands)
			if err := t.Send(f); err != nil {
				logger.Debugf("meter send: %v", err)
			}
		}
	}
}
