// SPDX-License-Identifier: MIT
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"openhush/internal/audio"
	"openhush/internal/dsp"
)

// WAVPlaceholder in ExecRecognizer.Args is replaced with the clip's path.
const WAVPlaceholder = "{wav}"

const waitDelay = time.Second

// Recognizer turns a validated 16 kHz mono clip into text.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

// ExecRecognizer runs an external speech-to-text command once per clip.
// The clip is written to a temporary 16-bit WAV file. The transcript is the
// command's trimmed stdout, or its "text" field when stdout is a JSON object.
type ExecRecognizer struct {
	Command string
	Args    []string
	TempDir string // Empty uses os.TempDir.
}

// NewExecRecognizer splits command with shell quoting rules, so
// "whisper-cli -m 'models/base en.bin'" works, and appends args. An empty
// command is accepted; Transcribe then fails.
func NewExecRecognizer(command string, args []string) (*ExecRecognizer, error) {
	words, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse transcription command: %w", err)
	}
	r := &ExecRecognizer{}
	if len(words) > 0 {
		r.Command = words[0]
		r.Args = append(words[1:], args...)
	}
	return r, nil
}

func (r *ExecRecognizer) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if r.Command == "" {
		return "", errors.New("no recognizer command configured")
	}

	f, err := os.CreateTemp(r.TempDir, "openhush-*.wav")
	if err != nil {
		return "", fmt.Errorf("create clip file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if err := audio.WriteWAV(f, samples, dsp.SampleRate, 16); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, r.Command, r.args(path)...)
	// Children of the command may hold stdout open after a kill.
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s: %w", r.Command, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", r.Command, err, msg)
		}
		return "", fmt.Errorf("%s: %w", r.Command, err)
	}
	return parseTranscript(out), nil
}

type jsonTranscript struct {
	Text *string `json:"text"`
}

func parseTranscript(out []byte) string {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var t jsonTranscript
		if err := json.Unmarshal(trimmed, &t); err == nil && t.Text != nil {
			return strings.TrimSpace(*t.Text)
		}
	}
	return string(trimmed)
}

// args substitutes the placeholder, or appends the path when there is none.
func (r *ExecRecognizer) args(path string) []string {
	args := make([]string, 0, len(r.Args)+1)
	replaced := false
	for _, a := range r.Args {
		if strings.Contains(a, WAVPlaceholder) {
			a = strings.ReplaceAll(a, WAVPlaceholder, path)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, path)
	}
	return args
}
