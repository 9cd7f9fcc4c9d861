// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"openhush/internal/audio"
	"openhush/internal/config"
	"openhush/internal/dsp"
	"openhush/internal/pipeline"
	"openhush/internal/validate"
)

type checkOptions struct {
	preprocess bool
	transcribe bool
	maxSecs    float32
	minSecs    float32
}

func newCheckCommand(opts *options) *cobra.Command {
	var co checkOptions
	checkCmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Run a wav, mp3 or ogg file through conditioning and validation",
		Long: `Decodes the file, mixes it to mono, resamples to 16 kHz, applies the
preprocessing chain and validates the result. The exit status is non-zero
when the clip would be rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkFile(cmd.Context(), cmd.OutOrStdout(), opts.cfg, args[0], co)
		},
	}

	checkCmd.Flags().BoolVarP(&co.preprocess, "preprocess", "p", false,
		"Apply the preprocessing chain even if disabled in config")
	checkCmd.Flags().BoolVarP(&co.transcribe, "transcribe", "t", false,
		"Send an accepted clip to the configured transcription command")
	checkCmd.Flags().Float32Var(&co.maxSecs, "max-secs", validate.MaxDurationSecs,
		"Longest accepted clip, in seconds")
	checkCmd.Flags().Float32Var(&co.minSecs, "min-secs", validate.MinDurationSecs,
		"Shortest accepted clip, in seconds")
	return checkCmd
}

func checkFile(ctx context.Context, w io.Writer, cfg *config.Config, path string, co checkOptions) error {
	clip, err := audio.DecodeFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "file:      %s (%d Hz, %d ch, %d samples)\n",
		path, clip.SampleRate, clip.Channels, len(clip.Samples))

	buf := dsp.NewBuffer(clip.Mono16k(cfg.Audio.ChannelSelection))
	chain := cfg.Preprocessing.Chain()
	if co.preprocess {
		chain.Enabled = true
	}
	report := chain.Apply(buf)
	fmt.Fprintf(w, "level:     %.1f dB RMS in, %.1f dB RMS out, %.1f dB peak (preprocessing %s)\n",
		report.InputRMSDb, report.OutputRMSDb, report.OutputPeak, onOff(report.Applied))

	info, err := validate.AudioWithBounds(buf.Samples, buf.SampleRate, co.maxSecs, co.minSecs)
	if err != nil {
		fmt.Fprintf(w, "rejected:  %s\n", validate.Reason(err))
		return err
	}
	fmt.Fprintf(w, "accepted:  %.2fs, %d samples, range [%.3f, %.3f], rms %.4f\n",
		info.DurationSecs, info.SampleCount, info.MinValue, info.MaxValue, info.RMS)

	if !co.transcribe {
		return nil
	}
	tctx := ctx
	if cfg.Transcription.Timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, cfg.Transcription.Timeout)
		defer cancel()
	}
	rec, err := pipeline.NewExecRecognizer(cfg.Transcription.Command, cfg.Transcription.Args)
	if err != nil {
		return err
	}
	text, err := rec.Transcribe(tctx, buf.Samples)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	fmt.Fprintf(w, "text:      %s\n", text)
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
