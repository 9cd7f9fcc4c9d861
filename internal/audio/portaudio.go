// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"

	"openhush/internal/config"
	"openhush/internal/dsp"
	"openhush/internal/log"
)

var logger = log.Component("audio")

type paStream interface {
	Start() error
	Stop() error
	Close() error
}

// Replaced in tests.
var (
	paOpenStream = func(p portaudio.StreamParameters, callback func([]float32)) (paStream, error) {
		return portaudio.OpenStream(p, callback)
	}
	lookupInputDevice = InputDevice
)

// PortAudioCapturer captures from a PortAudio input device, mixes the
// selected channels to mono and resamples to 16 kHz before handing chunks
// to the sink.
//
// Thread Safety:
//   - Start and Stop are serialised by a mutex
//   - The callback only touches buffers allocated in Start
//   - The callback locks its OS thread and never allocates
type PortAudioCapturer struct {
	cfg config.AudioConfig

	mu      sync.Mutex
	stream  paStream
	handle  Handle
	running bool

	// Owned by the callback while running.
	sink      Sink
	mono      []float32
	out       []float32
	resampler *dsp.StreamResampler

	callbacks atomic.Uint64
}

var _ Capturer = (*PortAudioCapturer)(nil)

func NewPortAudioCapturer(cfg config.AudioConfig) *PortAudioCapturer {
	return &PortAudioCapturer{cfg: cfg}
}

// Start opens the configured device and begins delivering to sink.
func (c *PortAudioCapturer) Start(sink Sink) (Handle, error) {
	if sink == nil {
		return Handle{}, errors.New("capture sink is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return Handle{}, ErrAlreadyStarted
	}

	device, err := lookupInputDevice(c.cfg.InputDevice)
	if err != nil {
		return Handle{}, err
	}

	latency := device.DefaultHighInputLatency
	if c.cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	frames := c.cfg.FramesPerBuffer
	c.sink = sink
	c.resampler = dsp.NewStreamResampler(int(c.cfg.SampleRate), dsp.SampleRate)
	c.mono = make([]float32, frames)
	c.out = make([]float32, c.resampler.MaxOutput(frames))

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: c.cfg.InputChannels,
			Latency:  latency,
		},
		FramesPerBuffer: frames,
		SampleRate:      c.cfg.SampleRate,
	}

	stream, err := paOpenStream(params, c.process)
	if err != nil {
		return Handle{}, fmt.Errorf("open input stream on %q: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return Handle{}, fmt.Errorf("start input stream on %q: %w", device.Name, err)
	}

	c.stream = stream
	c.handle = Handle{ID: uuid.New()}
	c.running = true
	logger.Infof("capturing from %q: %d ch @ %.0f Hz, %d frames, latency %s",
		device.Name, c.cfg.InputChannels, c.cfg.SampleRate, frames, latency.Round(time.Microsecond))
	return c.handle, nil
}

// Stop halts the capture identified by h.
func (c *PortAudioCapturer) Stop(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || h != c.handle {
		return ErrUnknownHandle
	}
	c.running = false

	stopErr := c.stream.Stop()
	closeErr := c.stream.Close()
	c.stream = nil
	logger.Infof("capture stopped after %d callbacks", c.callbacks.Load())
	return errors.Join(stopErr, closeErr)
}

// Callbacks returns how many driver buffers have been processed.
func (c *PortAudioCapturer) Callbacks() uint64 {
	return c.callbacks.Load()
}

// process is the driver callback.
//
// Performance Critical (Hot Path):
//   - Runs on the PortAudio thread
//   - Uses only buffers allocated in Start
func (c *PortAudioCapturer) process(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := dsp.MixToMonoInto(c.mono, in, c.cfg.InputChannels, c.cfg.ChannelSelection)
	m := c.resampler.Process(c.out, c.mono[:n])
	c.sink(c.out[:m])
	c.callbacks.Add(1)
}
