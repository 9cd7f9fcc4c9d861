// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"openhush/internal/audio"
	"openhush/internal/dsp"
	"openhush/internal/telemetry"
	"openhush/internal/transport"
	"openhush/internal/validate"
)

const DefaultQueueSize = 8

// Result is published for every clip the worker takes off the queue,
// accepted or not.
type Result struct {
	Type         string  `json:"type"`
	Session      string  `json:"session"`
	Seq          uint64  `json:"seq"`
	Chunk        int     `json:"chunk"`
	Final        bool    `json:"final"`
	Text         string  `json:"text,omitempty"`
	Reason       string  `json:"reason"`
	Error        string  `json:"error,omitempty"`
	DurationSecs float32 `json:"duration_secs"`
	InputRMSDb   float32 `json:"input_rms_db"`
	OutputRMSDb  float32 `json:"output_rms_db"`
	Lost         uint64  `json:"lost_samples,omitempty"`
	ElapsedMs    int64   `json:"elapsed_ms"`
	Recording    string  `json:"recording,omitempty"`
}

// WorkerConfig holds the per-clip processing settings.
type WorkerConfig struct {
	QueueSize int
	Timeout   time.Duration // Recognizer deadline; 0 means none.
	Chain     dsp.Chain
}

// Worker conditions, validates and transcribes clips on its own goroutine.
// Submit never blocks: when the queue is full the new clip is dropped.
type Worker struct {
	cfg        WorkerConfig
	recognizer Recognizer
	jobs       chan Clip
	results    chan Result

	out      transport.Transport
	recorder *audio.Recorder
	metrics  *telemetry.Metrics

	seq     atomic.Uint64
	dropped atomic.Uint64
}

type WorkerOption func(*Worker)

// WithTransport publishes every Result to t as well as the Results channel.
func WithTransport(t transport.Transport) WorkerOption {
	return func(w *Worker) { w.out = t }
}

// WithRecorder dumps accepted clips to WAV.
func WithRecorder(r *audio.Recorder) WorkerOption {
	return func(w *Worker) { w.recorder = r }
}

func WithMetrics(m *telemetry.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func NewWorker(r Recognizer, cfg WorkerConfig, opts ...WorkerOption) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	w := &Worker{
		cfg:        cfg,
		recognizer: r,
		jobs:       make(chan Clip, cfg.QueueSize),
		results:    make(chan Result, cfg.QueueSize*2),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit enqueues clip and reports whether it was accepted.
func (w *Worker) Submit(clip Clip) bool {
	select {
	case w.jobs <- clip:
		return true
	default:
		w.dropped.Add(1)
		w.metrics.AddDropped(context.Background())
		logger.Warnf("queue full, dropped session %s chunk %d (%d samples)",
			clip.Session, clip.Chunk, len(clip.Samples))
		return false
	}
}

// Results delivers processed clips. Results are dropped if nobody reads.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Dropped returns how many clips Submit has rejected.
func (w *Worker) Dropped() uint64 {
	return w.dropped.Load()
}

// Run processes queued clips until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case clip := <-w.jobs:
			w.publish(w.process(ctx, clip))
		}
	}
}

func (w *Worker) process(ctx context.Context, clip Clip) Result {
	started := time.Now()
	res := Result{
		Type:    "transcript",
		Session: clip.Session.String(),
		Seq:     w.seq.Add(1),
		Chunk:   clip.Chunk,
		Final:   clip.Final,
		Lost:    clip.Lost,
	}

	buf := dsp.NewBuffer(clip.Samples)
	report := w.cfg.Chain.Apply(buf)
	res.InputRMSDb = report.InputRMSDb
	res.OutputRMSDb = report.OutputRMSDb
	w.metrics.ObserveInputLevel(ctx, report.InputRMSDb)

	info, err := validate.Audio(buf.Samples, buf.SampleRate)
	res.Reason = validate.Reason(err)
	w.metrics.RecordClip(ctx, res.Reason)
	if err != nil {
		res.Error = err.Error()
		res.DurationSecs = buf.DurationSecs()
		res.ElapsedMs = time.Since(started).Milliseconds()
		logger.Infof("seq %d rejected: %v", res.Seq, err)
		return res
	}
	res.DurationSecs = info.DurationSecs
	conditioned := time.Since(started)

	if w.recorder != nil {
		name := fmt.Sprintf("%s-%03d", clip.Session, res.Seq)
		if path, err := w.recorder.Save(name, buf.Samples); err != nil {
			logger.Errorf("seq %d: %v", res.Seq, err)
		} else {
			res.Recording = path
		}
	}

	tctx := ctx
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}
	recognizeStart := time.Now()
	text, err := w.recognizer.Transcribe(tctx, buf.Samples)
	recognized := time.Since(recognizeStart)
	w.metrics.ObserveTranscription(ctx, recognized, err == nil)

	res.ElapsedMs = time.Since(started).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		logger.Errorf("seq %d transcription failed after %s: %v", res.Seq, recognized.Round(time.Millisecond), err)
		return res
	}
	res.Text = text
	logger.Infof("seq %d: %.2fs audio, condition %s, recognize %s, rms %.1f -> %.1f dB",
		res.Seq, info.DurationSecs, conditioned.Round(time.Microsecond),
		recognized.Round(time.Millisecond), report.InputRMSDb, report.OutputRMSDb)
	return res
}

func (w *Worker) publish(res Result) {
	if w.out != nil {
		if err := w.out.Send(res); err != nil {
			logger.Warnf("seq %d: publish: %v", res.Seq, err)
		}
	}
	select {
	case w.results <- res:
	default:
		logger.Debugf("seq %d: results channel full", res.Seq)
	}
}
