package preprocess

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"

	"github.com/kjaeger/spikekit/core"
)

// Errors returned by the spatial filter.
var (
	ErrButterBand   = errors.New("preprocess: butterworth band must be highpass or lowpass")
	ErrButterWn     = errors.New("preprocess: butterworth Wn must be in (0, 1)")
	ErrButterOrder  = errors.New("preprocess: butterworth order must be positive")
	ErrPadTooLarge  = errors.New("preprocess: channel pad exceeds channel count")
	ErrEmptySelect  = errors.New("preprocess: channel selection is empty")
	ErrSelectBounds = errors.New("preprocess: selected channel out of range")
)

// Band selects the Butterworth response type.
type Band string

// Supported Butterworth bands.
const (
	Highpass Band = "highpass"
	Lowpass  Band = "lowpass"
)

// ButterOptions describes the Butterworth filter applied across the channel
// dimension. Wn is the corner as a fraction of the spatial Nyquist.
type ButterOptions struct {
	Order int
	Wn    float64
	Band  Band
}

// SpatialFilterOptions configures HighpassSpatialFilter.
type SpatialFilterOptions struct {
	// NChannelPad channels are mirrored onto both probe ends before
	// filtering, suppressing edge transients.
	NChannelPad int

	// NChannelTaper applies a cosine ramp over this many channels at both
	// (padded) ends.
	NChannelTaper int

	// AGC normalizes each channel by its windowed RMS before the spatial
	// pass and restores the gain afterwards. nil disables it.
	AGC *AGCOptions

	// Butter defaults to {Order: 3, Wn: 0.01, Band: Highpass}.
	Butter ButterOptions

	// SelectChannels restricts the spatial pass to a channel subset;
	// unselected channels pass through unchanged. Nil selects all
	// channels, a non-nil empty slice is an error. When set, the default
	// Butter corner moves from Wn 0.01 to 0.1.
	SelectChannels []int
}

// DefaultSpatialFilterOptions returns the conventional settings for a
// recording at the given sampling frequency.
func DefaultSpatialFilterOptions(samplingFrequency float64) SpatialFilterOptions {
	return SpatialFilterOptions{
		NChannelPad: 60,
		AGC:         DefaultAGC(samplingFrequency),
		Butter:      ButterOptions{Order: 3, Wn: 0.01, Band: Highpass},
	}
}

// HighpassSpatialFilter returns a lazy view of rec filtered across the
// channel dimension. Each frame is treated as a one-dimensional signal over
// channels: mirror-padded, tapered, Butterworth-filtered forward and
// backward (zero phase), then unpadded.
func HighpassSpatialFilter(rec core.Recording, opts SpatialFilterOptions) (core.Recording, error) {
	if opts.Butter.Order == 0 && opts.Butter.Wn == 0 && opts.Butter.Band == "" {
		opts.Butter = ButterOptions{Order: 3, Wn: 0.01, Band: Highpass}
		if len(opts.SelectChannels) > 0 {
			// a channel subset is a much shorter spatial signal, so the
			// conventional corner moves up a decade
			opts.Butter.Wn = 0.1
		}
	}
	if opts.Butter.Order <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrButterOrder, opts.Butter.Order)
	}
	if opts.Butter.Wn <= 0 || opts.Butter.Wn >= 1 {
		return nil, fmt.Errorf("%w: %f", ErrButterWn, opts.Butter.Wn)
	}
	if opts.Butter.Band != Highpass && opts.Butter.Band != Lowpass {
		return nil, fmt.Errorf("%w: %q", ErrButterBand, opts.Butter.Band)
	}

	width := rec.NumChannels()
	if len(opts.SelectChannels) > 0 {
		seen := map[int]bool{}
		for _, ch := range opts.SelectChannels {
			if ch < 0 || ch >= rec.NumChannels() {
				return nil, fmt.Errorf("%w: %d of %d", ErrSelectBounds, ch, rec.NumChannels())
			}
			seen[ch] = true
		}
		width = len(opts.SelectChannels)
	} else if opts.SelectChannels != nil {
		return nil, ErrEmptySelect
	}
	if opts.NChannelPad < 0 {
		opts.NChannelPad = 0
	}
	if opts.NChannelPad > width {
		return nil, fmt.Errorf("%w: pad %d, %d channels", ErrPadTooLarge, opts.NChannelPad, width)
	}

	if opts.AGC != nil {
		if _, err := opts.AGC.windowSamples(); err != nil {
			return nil, err
		}
	}

	return &spatialFilteredRecording{parent: rec, opts: opts}, nil
}

type spatialFilteredRecording struct {
	parent core.Recording
	opts   SpatialFilterOptions
}

func (r *spatialFilteredRecording) NumChannels() int           { return r.parent.NumChannels() }
func (r *spatialFilteredRecording) NumFrames() int             { return r.parent.NumFrames() }
func (r *spatialFilteredRecording) SamplingFrequency() float64 { return r.parent.SamplingFrequency() }
func (r *spatialFilteredRecording) ChannelIDs() []string       { return r.parent.ChannelIDs() }
func (r *spatialFilteredRecording) Probe() *core.Probe         { return r.parent.Probe() }

func (r *spatialFilteredRecording) Annotations() map[string]any {
	ann := map[string]any{"is_filtered": true}
	for k, v := range r.parent.Annotations() {
		ann[k] = v
	}
	ann["is_filtered"] = true
	return ann
}

func (r *spatialFilteredRecording) Traces(start, end int, channels []int) ([][]float64, error) {
	// The whole channel set is needed to filter across it, regardless of
	// the requested channel subset.
	traces, err := r.parent.Traces(start, end, nil)
	if err != nil {
		return nil, err
	}
	if len(traces) == 0 {
		return traces, nil
	}

	selected := r.opts.SelectChannels
	if len(selected) == 0 {
		selected = make([]int, r.parent.NumChannels())
		for i := range selected {
			selected[i] = i
		}
	}

	// AGC along time per selected channel; gains kept for restoring.
	var gains [][]float64 // indexed [selIdx][frame]
	if r.opts.AGC != nil {
		wl, err := r.opts.AGC.windowSamples()
		if err != nil {
			return nil, err
		}
		gains = make([][]float64, len(selected))
		col := make([]float64, 0, len(traces))
		for si, ch := range selected {
			col = core.Column(col, traces, ch)
			gains[si] = applyAGC(col, wl)
			core.SetColumn(traces, ch, col)
		}
	}

	coeffs, err := butterCoefficients(r.opts.Butter)
	if err != nil {
		return nil, err
	}
	chain := biquad.NewChain(coeffs)
	warmup := settleLength(r.opts.Butter.Wn)

	pad := r.opts.NChannelPad
	buf := make([]float64, len(selected)+2*pad)
	for fi := range traces {
		for si, ch := range selected {
			buf[pad+si] = traces[fi][ch]
		}
		mirrorPad(buf, pad)
		applyTaper(buf, r.opts.NChannelTaper)

		filtfilt(chain, buf, warmup)

		for si, ch := range selected {
			v := buf[pad+si]
			if gains != nil {
				v *= gains[si][fi]
			}
			traces[fi][ch] = v
		}
	}

	if channels == nil {
		return traces, nil
	}
	out := make([][]float64, len(traces))
	for i, row := range traces {
		sub := make([]float64, len(channels))
		for j, ch := range channels {
			if ch < 0 || ch >= len(row) {
				return nil, fmt.Errorf("%w: %d of %d channels", core.ErrChannelIndex, ch, len(row))
			}
			sub[j] = row[ch]
		}
		out[i] = sub
	}
	return out, nil
}

// butterCoefficients designs the cascade with the corner expressed as a
// fraction of Nyquist (sample rate 2 makes Nyquist exactly 1).
func butterCoefficients(opts ButterOptions) ([]biquad.Coefficients, error) {
	switch opts.Band {
	case Highpass:
		return pass.ButterworthHP(opts.Wn, opts.Order, 2.0), nil
	case Lowpass:
		return pass.ButterworthLP(opts.Wn, opts.Order, 2.0), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrButterBand, opts.Band)
	}
}

// mirrorPad fills the pad regions of buf with the interior reflected at
// both ends. The interior is buf[pad : len(buf)-pad].
func mirrorPad(buf []float64, pad int) {
	if pad == 0 {
		return
	}
	n := len(buf) - 2*pad
	for i := 0; i < pad; i++ {
		buf[pad-1-i] = buf[pad+minInt(i+1, n-1)]
		buf[len(buf)-pad+i] = buf[len(buf)-pad-1-minInt(i+1, n-1)]
	}
}

// applyTaper ramps the first and last n samples with a cosine window.
func applyTaper(buf []float64, n int) {
	if n <= 0 {
		return
	}
	if 2*n > len(buf) {
		n = len(buf) / 2
	}
	for i := 0; i < n; i++ {
		w := 0.5 * (1 - math.Cos(math.Pi*(float64(i)+0.5)/float64(n)))
		buf[i] *= w
		buf[len(buf)-1-i] *= w
	}
}

// settleLength is the warmup run used to bring the cascade to steady state
// on the edge value before each pass, the equivalent of filtfilt initial
// conditions. Roughly six time constants of the corner frequency.
func settleLength(wn float64) int {
	n := int(6 / wn)
	if n > 4096 {
		n = 4096
	}
	if n < 16 {
		n = 16
	}
	return n
}

// filtfilt runs the cascade forward then backward for zero-phase response.
// Before each pass the filter state settles on the edge sample, so constant
// offsets are rejected without an onset transient.
func filtfilt(chain *biquad.Chain, buf []float64, warmup int) {
	if len(buf) == 0 {
		return
	}
	for pass := 0; pass < 2; pass++ {
		chain.Reset()
		for i := 0; i < warmup; i++ {
			chain.ProcessSample(buf[0])
		}
		chain.ProcessBlock(buf)
		reverse(buf)
	}
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
