// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes mono samples as integer PCM. Samples are clipped to
// [-1, 1]; non-finite samples are written as silence.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)
	full := float64(int64(1)<<(bitDepth-1)) - 1
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		v := float64(s)
		if math.IsNaN(v) {
			v = 0
		}
		v = math.Max(-1, math.Min(1, v))
		buf.Data[i] = int(math.Round(v * full))
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("write wav samples: %w", err)
	}
	return enc.Close()
}

// Recorder dumps accepted clips to WAV files for debugging.
type Recorder struct {
	dir        string
	sampleRate int
	bitDepth   int
}

func NewRecorder(dir string, sampleRate, bitDepth int) *Recorder {
	return &Recorder{dir: dir, sampleRate: sampleRate, bitDepth: bitDepth}
}

// Save writes samples to <dir>/<name>.wav and returns the path.
func (r *Recorder) Save(name string, samples []float32) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create recording dir: %w", err)
	}

	path := filepath.Join(r.dir, name+".wav")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteWAV(f, samples, r.sampleRate, r.bitDepth); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
