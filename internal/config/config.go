// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"openhush/internal/dsp"
	"openhush/internal/log"
)

// Boundaries and defaults for the capture engine.
const (
	MinDeviceID     = -1 // -1 represents the system default device.
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192

	// The pre-buffer can never hold more than the longest clip the
	// validator accepts.
	MaxPrebufferSecs     = 300.0
	DefaultPrebufferSecs = 30.0

	DefaultQueueSize = 8
)

// Config is the application configuration, loaded from YAML.
type Config struct {
	Debug         bool                `yaml:"debug"`
	LogLevel      string              `yaml:"log_level"`
	Audio         AudioConfig         `yaml:"audio"`
	Preprocessing PreprocessingConfig `yaml:"preprocessing"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Recording     RecordingConfig     `yaml:"recording"`
	Transport     TransportConfig     `yaml:"transport"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	InputDevice      int     `yaml:"input_device"`            // PortAudio device index, -1 for default.
	SampleRate       float64 `yaml:"sample_rate"`             // Device capture rate; resampled to 16 kHz.
	FramesPerBuffer  int     `yaml:"frames_per_buffer"`       // Frames per driver callback.
	LowLatency       bool    `yaml:"low_latency"`             // Request the device's low input latency.
	InputChannels    int     `yaml:"input_channels"`          // Channels opened on the device.
	ChannelSelection []int   `yaml:"channel_selection"`       // Channels mixed to mono; empty means all.
	PrebufferSecs    float64 `yaml:"prebuffer_duration_secs"` // Always-on history kept before a dictation starts.
	FFTWindow        string  `yaml:"fft_window"`              // Window for the meter's speech-band spectrum.
}

// PreprocessingConfig controls the conditioning chain run on every clip.
type PreprocessingConfig struct {
	Enabled       bool                `yaml:"enabled"`
	Normalization NormalizationConfig `yaml:"normalization"`
	Compression   CompressionConfig   `yaml:"compression"`
	Limiter       LimiterConfig       `yaml:"limiter"`
}

type NormalizationConfig struct {
	Enabled  bool    `yaml:"enabled"`
	TargetDB float32 `yaml:"target_db"`
}

type CompressionConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ThresholdDB  float32 `yaml:"threshold_db"`
	Ratio        float32 `yaml:"ratio"`
	AttackMs     float32 `yaml:"attack_ms"`
	ReleaseMs    float32 `yaml:"release_ms"`
	MakeupGainDB float32 `yaml:"makeup_gain_db"`
}

type LimiterConfig struct {
	Enabled   bool    `yaml:"enabled"`
	CeilingDB float32 `yaml:"ceiling_db"`
	ReleaseMs float32 `yaml:"release_ms"`
}

// TranscriptionConfig configures the recognizer and its worker.
type TranscriptionConfig struct {
	Command           string        `yaml:"command"`            // External recognizer; empty disables transcription.
	Args              []string      `yaml:"args"`               // "{wav}" is replaced with the clip path.
	QueueSize         int           `yaml:"queue_size"`         // Pending clips before new ones are dropped.
	Timeout           time.Duration `yaml:"timeout"`            // Per-clip recognizer deadline, 0 for none.
	StreamingInterval time.Duration `yaml:"streaming_interval"` // Interim chunk period during dictation, 0 disables.
}

// RecordingConfig controls the debug dump of accepted clips.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
	BitDepth  int    `yaml:"bit_depth"`
}

// TransportConfig configures the level meter broadcast.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	MeterInterval    time.Duration `yaml:"meter_interval"`
	MeterWindow      int           `yaml:"meter_window"` // Samples per reading at 16 kHz.
}

// TelemetryConfig enables the /metrics endpoint on the transport server.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the built-in configuration.
func Default() Config {
	chain := dsp.DefaultChain()
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			SampleRate:      48000,
			FramesPerBuffer: 512,
			InputChannels:   1,
			PrebufferSecs:   DefaultPrebufferSecs,
			FFTWindow:       "Hann",
		},
		Preprocessing: PreprocessingConfig{
			Enabled: chain.Enabled,
			Normalization: NormalizationConfig{
				Enabled:  chain.Normalize.Enabled,
				TargetDB: chain.Normalize.TargetDB,
			},
			Compression: CompressionConfig{
				Enabled:      chain.Compress.Enabled,
				ThresholdDB:  chain.Compress.ThresholdDB,
				Ratio:        chain.Compress.Ratio,
				AttackMs:     chain.Compress.AttackMs,
				ReleaseMs:    chain.Compress.ReleaseMs,
				MakeupGainDB: chain.Compress.MakeupGainDB,
			},
			Limiter: LimiterConfig{
				Enabled:   chain.Limit.Enabled,
				CeilingDB: chain.Limit.CeilingDB,
				ReleaseMs: chain.Limit.ReleaseMs,
			},
		},
		Transcription: TranscriptionConfig{
			QueueSize: DefaultQueueSize,
			Timeout:   2 * time.Minute,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			BitDepth:  16,
		},
		Transport: TransportConfig{
			WebSocketAddress: "127.0.0.1:8080",
			MeterInterval:    50 * time.Millisecond,
			MeterWindow:      1024,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "openhush",
		},
	}
}

// Chain converts the preprocessing section to a dsp.Chain.
func (p PreprocessingConfig) Chain() dsp.Chain {
	return dsp.Chain{
		Enabled: p.Enabled,
		Normalize: dsp.NormalizeStage{
			Enabled:  p.Normalization.Enabled,
			TargetDB: p.Normalization.TargetDB,
		},
		Compress: dsp.CompressStage{
			Enabled:      p.Compression.Enabled,
			ThresholdDB:  p.Compression.ThresholdDB,
			Ratio:        p.Compression.Ratio,
			AttackMs:     p.Compression.AttackMs,
			ReleaseMs:    p.Compression.ReleaseMs,
			MakeupGainDB: p.Compression.MakeupGainDB,
		},
		Limit: dsp.LimitStage{
			Enabled:   p.Limiter.Enabled,
			CeilingDB: p.Limiter.CeilingDB,
			ReleaseMs: p.Limiter.ReleaseMs,
		},
	}
}

// PrebufferSamples is the ring buffer capacity at the 16 kHz domain rate.
func (a AudioConfig) PrebufferSamples() int {
	return int(a.PrebufferSecs * dsp.SampleRate)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok && c.LogLevel != "" {
		add("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		add("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		add("audio.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		add("audio.frames_per_buffer must be in (0, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels < 1 {
		add("audio.input_channels must be at least 1, got %d", a.InputChannels)
	}
	for _, ch := range a.ChannelSelection {
		if ch < 0 || ch >= a.InputChannels {
			add("audio.channel_selection index %d out of range for %d channels", ch, a.InputChannels)
		}
	}
	if !(a.PrebufferSecs > 0) || a.PrebufferSecs > MaxPrebufferSecs || math.IsInf(a.PrebufferSecs, 0) {
		add("audio.prebuffer_duration_secs must be in (0, %g], got %g", MaxPrebufferSecs, a.PrebufferSecs)
	}

	p := c.Preprocessing
	if p.Compression.Enabled && !(p.Compression.Ratio >= 1) {
		add("preprocessing.compression.ratio must be >= 1, got %g", p.Compression.Ratio)
	}
	if p.Limiter.Enabled && p.Limiter.CeilingDB > 0 {
		add("preprocessing.limiter.ceiling_db must be <= 0, got %g", p.Limiter.CeilingDB)
	}

	tr := c.Transcription
	if tr.QueueSize < 1 {
		add("transcription.queue_size must be at least 1, got %d", tr.QueueSize)
	}
	if tr.Timeout < 0 || tr.StreamingInterval < 0 {
		add("transcription durations must not be negative")
	}

	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		add("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	}
	if c.Recording.Enabled && c.Recording.OutputDir == "" {
		add("recording.output_dir must be set when recording is enabled")
	}

	t := c.Transport
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		add("transport.websocket_address must be set when the websocket is enabled")
	}
	if t.MeterInterval <= 0 {
		add("transport.meter_interval must be positive, got %s", t.MeterInterval)
	}
	if t.MeterWindow <= 0 {
		add("transport.meter_window must be positive, got %d", t.MeterWindow)
	}

	return errors.Join(errs...)
}
