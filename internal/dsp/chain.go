// SPDX-License-Identifier: MIT
package dsp

// NormalizeStage configures RMS normalization.
type NormalizeStage struct {
	Enabled  bool
	TargetDB float32
}

// CompressStage configures the compressor.
type CompressStage struct {
	Enabled      bool
	ThresholdDB  float32
	Ratio        float32
	AttackMs     float32
	ReleaseMs    float32
	MakeupGainDB float32
}

// LimitStage configures the output limiter.
type LimitStage struct {
	Enabled   bool
	CeilingDB float32
	ReleaseMs float32
}

// Chain runs normalize → compress → limit on a clip. Stages are applied in
// that fixed order; the limiter is the last word on peak level.
type Chain struct {
	Enabled   bool
	Normalize NormalizeStage
	Compress  CompressStage
	Limit     LimitStage
}

// Report summarises what a Chain did to a clip.
type Report struct {
	InputRMSDb  float32
	OutputRMSDb float32
	OutputPeak  float32
	Applied     bool
}

// DefaultChain returns the speech-tuned defaults. The chain is disabled until
// explicitly enabled in configuration.
func DefaultChain() Chain {
	return Chain{
		Enabled: false,
		Normalize: NormalizeStage{
			Enabled:  true,
			TargetDB: -18,
		},
		Compress: CompressStage{
			Enabled:      true,
			ThresholdDB:  -24,
			Ratio:        4,
			AttackMs:     5,
			ReleaseMs:    50,
			MakeupGainDB: 6,
		},
		Limit: LimitStage{
			Enabled:   true,
			CeilingDB: -1,
			ReleaseMs: 50,
		},
	}
}

// Apply conditions b in place.
func (c Chain) Apply(b *Buffer) Report {
	report := Report{InputRMSDb: b.RMSDb()}
	if c.Enabled {
		if c.Normalize.Enabled {
			b.NormalizeRMS(c.Normalize.TargetDB)
		}
		if c.Compress.Enabled {
			cs := c.Compress
			b.Compress(cs.ThresholdDB, cs.Ratio, cs.AttackMs, cs.ReleaseMs, cs.MakeupGainDB)
		}
		if c.Limit.Enabled {
			b.Limit(c.Limit.CeilingDB, c.Limit.ReleaseMs)
		}
		report.Applied = true
	}
	report.OutputRMSDb = b.RMSDb()
	report.OutputPeak = b.PeakDb()
	return report
}
