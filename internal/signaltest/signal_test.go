// SPDX-License-Identifier: MIT
package signaltest

import (
	"math"
	"testing"
)

func TestSine(t *testing.T) {
	s := Sine(16000, 16000, 100, 0.5)
	if len(s) != 16000 {
		t.Fatalf("len = %d, want 16000", len(s))
	}
	var peak float64
	for _, v := range s {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if math.Abs(peak-0.5) > 1e-3 {
		t.Errorf("peak = %f, want 0.5", peak)
	}
	if s[0] != 0 {
		t.Errorf("s[0] = %f, want 0", s[0])
	}
}

func TestNoiseDeterministic(t *testing.T) {
	a := Noise(256, 0.25, 7)
	b := Noise(256, 0.25, 7)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %f vs %f", i, a[i], b[i])
		}
		if a[i] < -0.25 || a[i] > 0.25 {
			t.Fatalf("sample %d = %f out of range", i, a[i])
		}
	}
}

func TestInterleave(t *testing.T) {
	got := Interleave([]float32{1, 2}, 3, 1, 0.5)
	want := []float32{1, 0.5, 1, 2, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	magnitudes := make([]float64, 1024)
	for i := range magnitudes {
		magnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-256), 2))
	}

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"full range", 0, 1023, 256},
		{"clamped bounds", -10, 5000, 256},
		{"left of peak", 0, 100, 100},
		{"right of peak", 400, 1023, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(magnitudes, tt.start, tt.end); got != tt.want {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.want)
			}
		})
	}

	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}

func TestMockTransport(t *testing.T) {
	m := &MockTransport{}
	_ = m.Send("a")
	_ = m.Send(2)
	if got := m.Messages(); len(got) != 2 || got[0] != "a" || got[1] != 2 {
		t.Errorf("Messages() = %v", got)
	}
	if m.Closed() {
		t.Error("Closed() before Close")
	}
	_ = m.Close()
	if !m.Closed() {
		t.Error("Closed() = false after Close")
	}
}
