// SPDX-License-Identifier: MIT
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"openhush/internal/analysis"
	"openhush/internal/audio"
	"openhush/internal/config"
	"openhush/internal/dsp"
	"openhush/internal/pipeline"
	"openhush/internal/ringbuffer"
	"openhush/internal/telemetry"
	"openhush/internal/transport"
)

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Capture continuously; press Enter to start and stop dictation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts.cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// run is the capture daemon. The program flow is:
//
//  1. Startup (cold path): PortAudio, ring buffer, metrics, transports,
//     transcription worker
//  2. Capture (hot path): the driver callback pushes 16 kHz mono into the
//     ring buffer until ctx is cancelled
//  3. Shutdown (cold path): deferred in reverse order
func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			logger.Warnf("%v", err)
		}
	}()

	buf := ringbuffer.New(cfg.Audio.PrebufferSamples())
	logger.Infof("prebuffer: %.0fs (%d samples)", cfg.Audio.PrebufferSecs, buf.Capacity())

	metrics, err := newMetrics(ctx, cfg, buf)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("metrics shutdown: %v", err)
		}
	}()

	events, ws, err := newTransports(cfg, metrics)
	if err != nil {
		return err
	}
	defer events.Close()

	worker, err := newWorker(cfg, events, metrics)
	if err != nil {
		return err
	}
	dictation := pipeline.NewDictation(buf, metrics)

	capturer := audio.NewPortAudioCapturer(cfg.Audio)
	handle, err := capturer.Start(buf.PushSamples)
	if err != nil {
		return err
	}
	defer func() {
		if err := capturer.Stop(handle); err != nil {
			logger.Warnf("stop capture: %v", err)
		}
	}()

	var meter *analysis.Meter
	if ws != nil {
		if meter, err = newMeter(cfg, buf); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	if meter != nil {
		g.Go(func() error { return meter.Run(ctx, cfg.Transport.MeterInterval, ws) })
	}

	// A blocking read on stdin cannot be cancelled, so this goroutine is
	// left to die with the process.
	toggles := make(chan struct{})
	go readToggles(in, toggles)

	c := &controller{
		dictation: dictation,
		worker:    worker,
		out:       out,
		interval:  cfg.Transcription.StreamingInterval,
	}
	g.Go(func() error { return c.loop(ctx, toggles) })

	fmt.Fprintln(out, "Press Enter to start dictation, Enter again to stop. Ctrl+C quits.")
	return g.Wait()
}

func newMetrics(ctx context.Context, cfg *config.Config, buf *ringbuffer.RingBuffer) (*telemetry.Metrics, error) {
	if !cfg.Telemetry.Enabled {
		return nil, nil
	}
	m, err := telemetry.New(ctx, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if err := m.ObserveBuffer(buf); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return m, nil
}

// newTransports always logs events at debug level and adds the WebSocket
// server when enabled. ws is nil when the WebSocket is disabled.
func newTransports(cfg *config.Config, metrics *telemetry.Metrics) (transport.Transport, *transport.WebSocketTransport, error) {
	logging := transport.NewLoggingTransport()
	if !cfg.Transport.WebSocketEnabled {
		if metrics != nil {
			logger.Warnf("telemetry enabled but the websocket server is off; /metrics is not served")
		}
		return logging, nil, nil
	}

	var routes []transport.Route
	if h := metrics.Handler(); h != nil {
		routes = append(routes, transport.Route{Pattern: "/metrics", Handler: h})
	}
	ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, routes...)
	if err := ws.Start(); err != nil {
		return nil, nil, err
	}
	return transport.Multi{logging, ws}, ws, nil
}

func newWorker(cfg *config.Config, events transport.Transport, metrics *telemetry.Metrics) (*pipeline.Worker, error) {
	tc := cfg.Transcription
	if tc.Command == "" {
		logger.Warnf("transcription.command is not set; clips will be validated but not transcribed")
	}
	recognizer, err := pipeline.NewExecRecognizer(tc.Command, tc.Args)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.WorkerOption{
		pipeline.WithTransport(events),
		pipeline.WithMetrics(metrics),
	}
	if cfg.Recording.Enabled {
		opts = append(opts, pipeline.WithRecorder(
			audio.NewRecorder(cfg.Recording.OutputDir, dsp.SampleRate, cfg.Recording.BitDepth)))
	}

	return pipeline.NewWorker(
		recognizer,
		pipeline.WorkerConfig{
			QueueSize: tc.QueueSize,
			Timeout:   tc.Timeout,
			Chain:     cfg.Preprocessing.Chain(),
		},
		opts...,
	), nil
}

func newMeter(cfg *config.Config, buf *ringbuffer.RingBuffer) (*analysis.Meter, error) {
	wf, err := analysis.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		return nil, err
	}
	spectrum, err := analysis.NewSpectrum(cfg.Transport.MeterWindow, dsp.SampleRate, wf)
	if err != nil {
		return nil, err
	}
	return analysis.NewMeter(buf, cfg.Transport.MeterWindow, spectrum), nil
}

// readToggles sends one toggle per input line and closes toggles at EOF.
func readToggles(in io.Reader, toggles chan<- struct{}) {
	defer close(toggles)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		toggles <- struct{}{}
	}
}

// controller turns keyboard toggles and the streaming ticker into
// dictation clips, and prints transcripts as they arrive.
type controller struct {
	dictation *pipeline.Dictation
	worker    *pipeline.Worker
	out       io.Writer
	interval  time.Duration // Interim chunk period, 0 disables streaming.
}

func (c *controller) loop(ctx context.Context, toggles <-chan struct{}) error {
	var tick <-chan time.Time
	if c.interval > 0 {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if c.dictation.Active() {
				logger.Infof("shutting down; discarding the open dictation")
			}
			return nil

		case _, ok := <-toggles:
			if !ok {
				toggles = nil
				continue
			}
			if err := c.toggle(); err != nil {
				return err
			}

		case <-tick:
			if !c.dictation.Active() {
				continue
			}
			clip, err := c.dictation.Flush()
			if err != nil {
				logger.Warnf("flush: %v", err)
				continue
			}
			if len(clip.Samples) > 0 {
				c.worker.Submit(clip)
			}

		case res := <-c.worker.Results():
			c.print(res)
		}
	}
}

func (c *controller) toggle() error {
	if !c.dictation.Active() {
		id, err := c.dictation.Begin()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "listening... (session %s)\n", id)
		return nil
	}

	clip, err := c.dictation.End()
	if errors.Is(err, pipeline.ErrNotActive) {
		return nil
	}
	if err != nil {
		return err
	}
	secs := float64(len(clip.Samples)) / dsp.SampleRate
	fmt.Fprintf(c.out, "stopped after %.1fs\n", secs)
	if clip.Lost > 0 {
		fmt.Fprintf(c.out, "warning: the first %.1fs were overwritten; raise audio.prebuffer_duration_secs\n",
			float64(clip.Lost)/dsp.SampleRate)
	}
	if !c.worker.Submit(clip) {
		fmt.Fprintln(c.out, "transcription queue full; clip dropped")
	}
	return nil
}

func (c *controller) print(res pipeline.Result) {
	switch {
	case res.Error != "" && res.Final:
		fmt.Fprintf(c.out, "[%d] rejected (%s): %s\n", res.Seq, res.Reason, res.Error)
	case res.Error != "":
		logger.Debugf("interim chunk %d: %s", res.Chunk, res.Error)
	case res.Final:
		fmt.Fprintf(c.out, "[%d] %s\n", res.Seq, res.Text)
	default:
		fmt.Fprintf(c.out, "[%d] ... %s\n", res.Seq, res.Text)
	}
}
