// SPDX-License-Identifier: MIT
package analysis

import (
	"openhush/internal/dsp"
)

// Band is a named frequency range, [LowHz, HighHz).
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// SpeechBands split the telephone-to-wideband speech range into regions a
// dictation display cares about.
var SpeechBands = []Band{
	{Name: "low", LowHz: 80, HighHz: 300},
	{Name: "voice", LowHz: 300, HighHz: 1000},
	{Name: "presence", LowHz: 1000, HighHz: 3000},
	{Name: "sibilance", LowHz: 3000, HighHz: 8000},
}

// BandLevel is the measured level of one Band.
type BandLevel struct {
	Name    string  `json:"name"`
	LevelDb float32 `json:"level_db"`
}

// BandMeter reduces a spectrum to per-band peak levels in dBFS.
type BandMeter struct {
	provider   SpectrumProvider
	bands      []Band
	magnitudes []float64
	levels     []BandLevel
}

func NewBandMeter(provider SpectrumProvider, bands []Band) *BandMeter {
	levels := make([]BandLevel, len(bands))
	for i, b := range bands {
		levels[i].Name = b.Name
	}
	return &BandMeter{
		provider:   provider,
		bands:      bands,
		magnitudes: make([]float64, provider.Bins()),
		levels:     levels,
	}
}

// Measure returns one level per band. The slice is reused by the next call.
func (m *BandMeter) Measure() []BandLevel {
	if err := m.provider.MagnitudesInto(m.magnitudes); err != nil {
		logger.Warnf("band meter: %v", err)
		return m.levels
	}

	for i, band := range m.bands {
		var peak float64
		for bin, mag := range m.magnitudes {
			f := m.provider.FrequencyForBin(bin)
			if f >= band.LowHz && f < band.HighHz && mag > peak {
				peak = mag
			}
		}
		m.levels[i].LevelDb = dsp.LinearToDB(peak)
	}
	return m.levels
}
