// SPDX-License-Identifier: MIT
package telemetry

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeBuffer struct {
	pos      uint64
	retained int
}

func (f fakeBuffer) CurrentPosition() uint64 { return f.pos }
func (f fakeBuffer) Retained() int           { return f.retained }

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	h := m.Handler()
	if h == nil {
		t.Fatal("Handler() = nil")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestMetricsExported(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, "openhush-test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(ctx) })

	if err := m.ObserveBuffer(fakeBuffer{pos: 48000, retained: 32000}); err != nil {
		t.Fatalf("ObserveBuffer() error = %v", err)
	}
	m.RecordClip(ctx, "ok")
	m.RecordClip(ctx, "too_short")
	m.AddEvicted(ctx, 1600)
	m.AddDropped(ctx)
	m.ObserveTranscription(ctx, 750*time.Millisecond, true)
	m.ObserveInputLevel(ctx, -21.5)

	body := scrape(t, m)
	for _, want := range []string{
		"openhush_clips",
		`reason="too_short"`,
		"openhush_samples_evicted",
		"openhush_jobs_dropped",
		"openhush_transcription_duration",
		"openhush_clip_level",
		"openhush_samples_captured",
		"openhush_buffer_retained",
		"32000",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordClip(ctx, "ok")
	m.AddEvicted(ctx, 1)
	m.AddDropped(ctx)
	m.ObserveTranscription(ctx, time.Second, false)
	m.ObserveInputLevel(ctx, -10)
	if err := m.ObserveBuffer(fakeBuffer{}); err != nil {
		t.Errorf("ObserveBuffer() error = %v", err)
	}
	if m.Handler() != nil {
		t.Error("Handler() != nil")
	}
	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestTwoProvidersCoexist(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown(ctx)
	b, err := New(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Shutdown(ctx)

	a.RecordClip(ctx, "nan")
	if strings.Contains(scrape(t, b), `reason="nan"`) {
		t.Error("registries are shared between providers")
	}
}
