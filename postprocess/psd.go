package postprocess

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
	"github.com/cwbudde/algo-vecmath"

	"github.com/kjaeger/spikekit/core"
)

// Errors returned by PSD estimation.
var (
	ErrSegmentLength = errors.New("postprocess: psd segment length must be a power of two >= 16")
	ErrTooShort      = errors.New("postprocess: recording shorter than one psd segment")
)

// PSDOptions configures Welch spectrum estimation.
type PSDOptions struct {
	// SegmentLength is the per-segment FFT size, default 1024. Segments
	// overlap by half and are Hann-windowed.
	SegmentLength int

	// MaxFrames caps how much of the recording is read, default 10 s
	// worth of frames. 0 means the default, negative means everything.
	MaxFrames int
}

// PSD is a per-channel Welch power spectral density estimate.
type PSD struct {
	FreqsHz []float64
	// Power is channel-major: Power[ch][bin].
	Power [][]float64
}

// NoisePSD estimates each channel's power spectral density with Welch's
// method: half-overlapping Hann-windowed segments, averaged periodograms.
func NoisePSD(rec core.Recording, opts PSDOptions) (*PSD, error) {
	segLen := opts.SegmentLength
	if segLen == 0 {
		segLen = 1024
	}
	if segLen < 16 || segLen&(segLen-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrSegmentLength, segLen)
	}

	maxFrames := opts.MaxFrames
	if maxFrames == 0 {
		maxFrames = int(10 * rec.SamplingFrequency())
	}
	numFrames := rec.NumFrames()
	if maxFrames > 0 && numFrames > maxFrames {
		numFrames = maxFrames
	}
	if numFrames < segLen {
		return nil, fmt.Errorf("%w: %d frames, segment %d", ErrTooShort, numFrames, segLen)
	}

	plan, err := algofft.NewPlan64(segLen)
	if err != nil {
		return nil, fmt.Errorf("postprocess: create FFT plan: %w", err)
	}
	hann := window.Generate(window.TypeHann, segLen)

	traces, err := rec.Traces(0, numFrames, nil)
	if err != nil {
		return nil, err
	}

	fs := rec.SamplingFrequency()
	numBins := segLen/2 + 1
	freqs := make([]float64, numBins)
	for i := range freqs {
		freqs[i] = float64(i) * fs / float64(segLen)
	}

	hop := segLen / 2
	numSegments := (numFrames-segLen)/hop + 1

	power := make([][]float64, rec.NumChannels())
	col := make([]float64, 0, numFrames)
	seg := make([]float64, segLen)
	in := make([]complex128, segLen)
	out := make([]complex128, segLen)
	re := make([]float64, numBins)
	im := make([]float64, numBins)
	binPow := make([]float64, numBins)

	for ch := range power {
		col = core.Column(col, traces, ch)
		acc := make([]float64, numBins)

		for s := 0; s < numSegments; s++ {
			copy(seg, col[s*hop:s*hop+segLen])
			vecmath.MulBlockInPlace(seg, hann)
			for i, v := range seg {
				in[i] = complex(v, 0)
			}
			if err := plan.Forward(out, in); err != nil {
				return nil, fmt.Errorf("postprocess: forward FFT failed: %w", err)
			}
			for i := 0; i < numBins; i++ {
				re[i] = real(out[i])
				im[i] = imag(out[i])
			}
			vecmath.Power(binPow, re, im)
			for i := range acc {
				acc[i] += binPow[i]
			}
		}

		norm := 1 / (float64(numSegments) * float64(segLen) * fs)
		for i := range acc {
			acc[i] *= norm
		}
		power[ch] = acc
	}

	return &PSD{FreqsHz: freqs, Power: power}, nil
}
