// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"openhush/internal/audio"
	"openhush/internal/dsp"
	"openhush/internal/pipeline"
	"openhush/internal/ringbuffer"
	"openhush/internal/signaltest"
	"openhush/internal/validate"
	"openhush/pkg/build"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeWAV(t *testing.T, dir, name string, samples []float32, rate int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := audio.WriteWAV(f, samples, rate, 16); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.Contains(out, build.Get().Version) {
		t.Errorf("output %q does not contain version %q", out, build.Get().Version)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	speech := writeWAV(t, dir, "speech.wav", signaltest.Voice(48000, 48000, 0.3), 48000)
	blip := writeWAV(t, dir, "blip.wav", signaltest.Voice(800, 16000, 0.3), 16000)
	flac := filepath.Join(dir, "speech.flac")
	if err := os.WriteFile(flac, []byte("fLaC"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		wantOut []string
		wantErr error
	}{
		{
			name:    "accepted",
			args:    []string{"check", speech},
			wantOut: []string{"48000 Hz, 1 ch", "accepted:  1.00s, 16000 samples", "preprocessing off"},
		},
		{
			name:    "preprocessed",
			args:    []string{"check", "--preprocess", speech},
			wantOut: []string{"preprocessing on", "accepted:"},
		},
		{
			name:    "too short",
			args:    []string{"check", blip},
			wantOut: []string{"rejected:  too_short"},
			wantErr: validate.ErrTooShort,
		},
		{
			name:    "custom bounds",
			args:    []string{"check", "--min-secs", "0.01", blip},
			wantOut: []string{"accepted:  0.05s"},
		},
		{
			name:    "too long for custom bounds",
			args:    []string{"check", "--max-secs", "0.5", speech},
			wantOut: []string{"rejected:  too_long"},
			wantErr: validate.ErrTooLong,
		},
		{
			name:    "unsupported format",
			args:    []string{"check", flac},
			wantErr: audio.ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v\n%s", err, out)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestCheckCommand_Transcribe(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := `transcription:
  command: sh
  args: ["-c", "test -s \"$1\" && echo open the pod bay doors", "sh", "{wav}"]
  timeout: 10s
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	speech := writeWAV(t, dir, "speech.wav", signaltest.Voice(16000, 16000, 0.3), 16000)

	out, err := execute(t, "check", "--transcribe", speech)
	if err != nil {
		t.Fatalf("check error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "text:      open the pod bay doors") {
		t.Errorf("output missing transcript:\n%s", out)
	}
}

func TestRootCommand_BadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := execute(t, "--config", "missing.yaml", "check", "x.wav"); err == nil {
		t.Fatal("expected error for a missing config file")
	}
	if _, err := execute(t, "--device=-5", "check", "x.wav"); err == nil {
		t.Fatal("expected error for an invalid device override")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type staticRecognizer string

func (s staticRecognizer) Transcribe(context.Context, []float32) (string, error) {
	return string(s), nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestController(t *testing.T) {
	buf := ringbuffer.New(10 * dsp.SampleRate)
	var out syncBuffer
	c := &controller{
		dictation: pipeline.NewDictation(buf, nil),
		worker:    pipeline.NewWorker(staticRecognizer("hello there"), pipeline.WorkerConfig{}),
		out:       &out,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	toggles := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.worker.Run(ctx) }()
	go func() { defer wg.Done(); c.loop(ctx, toggles) }()

	// Audio before the toggle is prebuffer, not dictation.
	buf.PushSamples(signaltest.Constant(dsp.SampleRate, 0.9))

	toggles <- struct{}{}
	waitFor(t, "dictation to begin", c.dictation.Active)
	buf.PushSamples(signaltest.Voice(dsp.SampleRate, dsp.SampleRate, 0.3))
	toggles <- struct{}{}

	waitFor(t, "transcript", func() bool { return strings.Contains(out.String(), "[1] hello there") })
	close(toggles)
	cancel()
	wg.Wait()

	got := out.String()
	for _, want := range []string{"listening... (session ", "stopped after 1.0s"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestController_Streaming(t *testing.T) {
	buf := ringbuffer.New(10 * dsp.SampleRate)
	var out syncBuffer
	c := &controller{
		dictation: pipeline.NewDictation(buf, nil),
		worker:    pipeline.NewWorker(staticRecognizer("partial"), pipeline.WorkerConfig{}),
		out:       &out,
		interval:  10 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	toggles := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.worker.Run(ctx) }()
	go func() { defer wg.Done(); c.loop(ctx, toggles) }()

	toggles <- struct{}{}
	waitFor(t, "dictation to begin", c.dictation.Active)
	buf.PushSamples(signaltest.Voice(dsp.SampleRate/2, dsp.SampleRate, 0.3))

	waitFor(t, "interim transcript", func() bool { return strings.Contains(out.String(), "... partial") })
	cancel()
	wg.Wait()
}
