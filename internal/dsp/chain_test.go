// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"slices"
	"testing"

	"openhush/internal/signaltest"
)

func TestChainDisabled(t *testing.T) {
	in := signaltest.Voice(16000, 16000, 0.05)
	b := NewBuffer(slices.Clone(in))

	report := DefaultChain().Apply(b)
	if report.Applied {
		t.Error("Applied = true for disabled chain")
	}
	if !slices.Equal(b.Samples, in) {
		t.Error("disabled chain modified samples")
	}
	if report.InputRMSDb != report.OutputRMSDb {
		t.Errorf("levels differ: %f vs %f", report.InputRMSDb, report.OutputRMSDb)
	}
}

func TestChainDefaults(t *testing.T) {
	c := DefaultChain()
	c.Enabled = true

	tests := []struct {
		name string
		in   []float32
	}{
		{"whisper", signaltest.Voice(16000, 16000, 0.005)},
		{"shout", signaltest.Voice(16000, 16000, 2)},
		{"noise", signaltest.Noise(16000, 0.7, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(tt.in)
			report := c.Apply(b)

			if !report.Applied {
				t.Fatal("Applied = false")
			}
			if report.OutputPeak > -1+1e-3 {
				t.Errorf("OutputPeak = %f dB, want <= -1", report.OutputPeak)
			}
			// Normalization pulls everything toward -18 dB before dynamics;
			// compression and makeup keep it within a few dB of that.
			if math.Abs(float64(report.OutputRMSDb)+18) > 8 {
				t.Errorf("OutputRMSDb = %f dB, want near -18", report.OutputRMSDb)
			}
		})
	}
}

func TestChainSilence(t *testing.T) {
	c := DefaultChain()
	c.Enabled = true
	b := NewBuffer(make([]float32, 1600))
	report := c.Apply(b)
	if report.OutputRMSDb != SilenceFloorDB {
		t.Errorf("OutputRMSDb = %f, want floor", report.OutputRMSDb)
	}
}

func TestChainStagesIndividually(t *testing.T) {
	c := Chain{Enabled: true, Normalize: NormalizeStage{Enabled: true, TargetDB: -30}}
	b := NewBuffer(signaltest.Noise(8000, 0.5, 4))
	report := c.Apply(b)
	if !near(float64(report.OutputRMSDb), -30, tolerance) {
		t.Errorf("OutputRMSDb = %f, want -30", report.OutputRMSDb)
	}
}
