// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"openhush/internal/dsp"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Clip is decoded file audio: interleaved float32 in [-1, 1] at the file's
// own rate and channel count.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Mono16k mixes the selected channels down and resamples to the 16 kHz
// domain rate.
func (c *Clip) Mono16k(selection []int) []float32 {
	mono := dsp.MixToMono(c.Samples, c.Channels, selection)
	return dsp.Resample(mono, c.SampleRate, dsp.SampleRate)
}

// DecodeFile decodes a .wav, .mp3 or .ogg file chosen by extension.
func DecodeFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	clip, err := Decode(f, ext)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return clip, nil
}

// Decode reads r as the given format, named by extension (".wav", ".mp3",
// ".ogg").
func Decode(r io.ReadSeeker, ext string) (*Clip, error) {
	switch strings.TrimPrefix(ext, ".") {
	case "wav", "wave":
		return decodeWAV(r)
	case "mp3":
		return decodeMP3(r)
	case "ogg", "oga":
		return decodeOgg(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

func decodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, errors.New("WAV file has no channels")
	}

	depth := int(d.BitDepth)
	samples := make([]float32, len(buf.Data))
	if depth == 8 {
		// 8-bit PCM is unsigned.
		for i, v := range buf.Data {
			samples[i] = float32(v-128) / 128
		}
	} else {
		scale := float32(int64(1) << (depth - 1))
		for i, v := range buf.Data {
			samples[i] = float32(v) / scale
		}
	}

	return &Clip{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(r io.Reader) (*Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		samples[i] = float32(v) / 32768
	}
	return &Clip{Samples: samples, SampleRate: dec.SampleRate(), Channels: 2}, nil
}

func decodeOgg(r io.Reader) (*Clip, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Clip{Samples: samples, SampleRate: format.SampleRate, Channels: format.Channels}, nil
}
